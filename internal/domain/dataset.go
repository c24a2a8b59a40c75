package domain

import "time"

// VariableSpec describes one variable block declared by the archive table
// header: a free-text label and the number of columns the block spans.
// The span of the first spec equals the number of intra-day timestamps.
type VariableSpec struct {
	Label string `json:"label"`
	Span  int    `json:"span"`
}

// DataPoint is one observation at a calendar date plus an intra-day hour
// offset. Fields are nil when the source cell was missing or unparsable.
type DataPoint struct {
	Date      time.Time `json:"date"`      // calendar day, midnight UTC
	Hour      int       `json:"hour"`      // hours since midnight, index*step
	Timestamp time.Time `json:"timestamp"` // Date + Hour, used for ordering and charting

	WindSpeed   *float64 `json:"wind_speed,omitempty"`  // knots
	WindDir     *int     `json:"wind_dir,omitempty"`    // degrees, [0, 359]
	Temperature *float64 `json:"temperature,omitempty"` // °C
	WindGust    *float64 `json:"wind_gust,omitempty"`   // knots
}

// NewDataPoint builds a point for the given day and hour offset with the
// derived timestamp set and all measurement fields missing.
func NewDataPoint(date time.Time, hour int) DataPoint {
	return DataPoint{
		Date:      date,
		Hour:      hour,
		Timestamp: date.Add(time.Duration(hour) * time.Hour),
	}
}

// HasData reports whether at least one measurement field is present.
func (p DataPoint) HasData() bool {
	return p.WindSpeed != nil || p.WindDir != nil || p.Temperature != nil || p.WindGust != nil
}

// Dataset is the decoded archive: points in source traversal order (by row,
// then by intra-day offset), which is the canonical chronological order.
// The slice is never re-sorted after decoding.
type Dataset struct {
	SpotID    int            `json:"spot_id,omitempty"`
	ModelID   int            `json:"model_id,omitempty"`
	StepHours int            `json:"step_hours"`
	Variables []VariableSpec `json:"variables,omitempty"`
	Points    []DataPoint    `json:"points"`
}

// Len returns the number of decoded points.
func (d Dataset) Len() int { return len(d.Points) }

// Range returns the timestamps of the first and last point, or zero times
// for an empty dataset.
func (d Dataset) Range() (from, to time.Time) {
	if len(d.Points) == 0 {
		return time.Time{}, time.Time{}
	}
	return d.Points[0].Timestamp, d.Points[len(d.Points)-1].Timestamp
}
