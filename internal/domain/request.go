package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Archive request parameter names understood by the backend.
const (
	VarWindSpeed     = "WINDSPD"
	VarWindDirection = "WINDDIR"
	VarTemperature   = "TMP"
	VarWindGust      = "GUST"
)

// Defaults matching the archive form's usual values.
const (
	DefaultStepHours   = 2
	DefaultMinUseHours = 6
)

// ArchiveRequest describes one archive fetch: which spot and forecast model,
// the date range, the hours-per-column step, and the requested variables.
type ArchiveRequest struct {
	SpotID      int       `json:"spot_id"`
	ModelID     int       `json:"model_id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	StepHours   int       `json:"step_hours"`
	MinUseHours int       `json:"min_use_hours"`
	Variables   []string  `json:"variables"`
}

// NewArchiveRequest builds a request with the default step, min-use-hours,
// and variable set (wind speed, wind direction, temperature).
func NewArchiveRequest(spotID, modelID int, from, to time.Time) ArchiveRequest {
	return ArchiveRequest{
		SpotID:      spotID,
		ModelID:     modelID,
		From:        from,
		To:          to,
		StepHours:   DefaultStepHours,
		MinUseHours: DefaultMinUseHours,
		Variables:   []string{VarWindSpeed, VarWindDirection, VarTemperature},
	}
}

// WithGusts returns a copy of the request that also asks for wind gusts.
func (r ArchiveRequest) WithGusts() ArchiveRequest {
	r.Variables = append(append([]string(nil), r.Variables...), VarWindGust)
	return r
}

// Validate checks the request is well formed before it reaches the backend.
func (r ArchiveRequest) Validate() error {
	if r.SpotID <= 0 {
		return errors.New("spot id must be positive")
	}
	if r.ModelID <= 0 {
		return errors.New("model id must be positive")
	}
	if r.To.Before(r.From) {
		return errors.New("date range end must not precede start")
	}
	if r.StepHours <= 0 {
		return errors.New("step hours must be positive")
	}
	return nil
}

// FetchID is a deterministic identifier for this request's decoded result.
// Re-fetching the same spot/model/range/step overwrites the same record
// instead of accumulating duplicates.
func (r ArchiveRequest) FetchID() string {
	input := fmt.Sprintf("%d|%d|%s|%s|%d",
		r.SpotID, r.ModelID,
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02"),
		r.StepHours,
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// Spot is a named forecast location.
type Spot struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// SpotSearchResult holds the spots matching one search query.
type SpotSearchResult struct {
	Query string `json:"query"`
	Spots []Spot `json:"spots"`
	Total int    `json:"total"`
}

// Model is a weather forecast model available in the archive.
type Model struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Resolution string `json:"resolution,omitempty"`
	Coverage   string `json:"coverage,omitempty"`
}

// Models returns the forecast models the archive is known to serve.
func Models() []Model {
	return []Model{
		{ID: 3, Name: "GFS 13 km (World)", Resolution: "13km", Coverage: "World"},
		{ID: 117, Name: "IFS-HRES 9 km (World)", Resolution: "9km", Coverage: "World"},
		{ID: 21, Name: "WRF 9 km (Europe)", Resolution: "9km", Coverage: "Europe"},
		{ID: 43, Name: "ICON 7 km (Europe)", Resolution: "7km", Coverage: "Europe"},
		{ID: 45, Name: "ICON 13 km (World)", Resolution: "13km", Coverage: "World"},
	}
}

// FetchRecord is the stored metadata for one decoded fetch.
type FetchRecord struct {
	ID         string    `json:"id"`
	SpotID     int       `json:"spot_id"`
	ModelID    int       `json:"model_id"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	StepHours  int       `json:"step_hours"`
	PointCount int       `json:"point_count"`
	FetchedAt  time.Time `json:"fetched_at"`
}
