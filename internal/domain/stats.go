package domain

import (
	"math"
	"sort"
)

// FieldStats summarizes the non-missing samples of one measurement field.
// StdDev is the population standard deviation (divide by N).
type FieldStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// SpeedBand is the share of wind-speed samples in one half-open band
// [Min, Max). Max < 0 means unbounded above. The bands deliberately
// overlap: 10-20, 15-25, and 20-30 all answer the "rideable conditions"
// question at different thresholds.
type SpeedBand struct {
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"` // -1 when unbounded
	Percent float64 `json:"percent"`
}

// Summary is the read-only statistics view over a dataset. A nil field
// block means the dataset had no samples for that field; statistics are
// never computed over an empty sample set.
type Summary struct {
	TotalPoints int `json:"total_points"`

	WindSpeed     *FieldStats `json:"wind_speed,omitempty"`
	WindDirection *FieldStats `json:"wind_direction,omitempty"`
	Temperature   *FieldStats `json:"temperature,omitempty"`
	WindGust      *FieldStats `json:"wind_gust,omitempty"`

	// SpeedBands is present only when wind speed has at least one sample.
	SpeedBands []SpeedBand `json:"speed_bands,omitempty"`
}

// speedBandBounds are the fixed wind-speed bands, in knots.
var speedBandBounds = []struct {
	label    string
	min, max float64
}{
	{"0-10", 0, 10},
	{"10-20", 10, 20},
	{"15-25", 15, 25},
	{"20-30", 20, 30},
	{"30+", 30, -1},
}

// Summarize reduces a dataset to summary statistics. It is a pure function
// of its input and never fails; fields without samples are simply absent.
func Summarize(ds Dataset) Summary {
	var speeds, dirs, temps, gusts []float64
	for _, p := range ds.Points {
		if p.WindSpeed != nil {
			speeds = append(speeds, *p.WindSpeed)
		}
		if p.WindDir != nil {
			dirs = append(dirs, float64(*p.WindDir))
		}
		if p.Temperature != nil {
			temps = append(temps, *p.Temperature)
		}
		if p.WindGust != nil {
			gusts = append(gusts, *p.WindGust)
		}
	}

	return Summary{
		TotalPoints:   len(ds.Points),
		WindSpeed:     fieldStats(speeds),
		WindDirection: fieldStats(dirs),
		Temperature:   fieldStats(temps),
		WindGust:      fieldStats(gusts),
		SpeedBands:    speedBands(speeds),
	}
}

// fieldStats computes the per-field block, or nil for an empty sample set.
func fieldStats(samples []float64) *FieldStats {
	n := len(samples)
	if n == 0 {
		return nil
	}

	var sum float64
	minV, maxV := samples[0], samples[0]
	for _, v := range samples {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean := sum / float64(n)

	var sqSum float64
	for _, v := range samples {
		d := v - mean
		sqSum += d * d
	}

	return &FieldStats{
		Count:  n,
		Mean:   mean,
		Median: median(samples),
		Min:    minV,
		Max:    maxV,
		StdDev: math.Sqrt(sqSum / float64(n)),
	}
}

// median returns the middle sample, averaging the two central values for
// even-sized sets. The input slice is not modified.
func median(samples []float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// speedBands buckets wind-speed samples into the fixed bands. Membership is
// min-inclusive and max-exclusive, so a sample of exactly 10 knots counts in
// "10-20" but never in "0-10".
func speedBands(speeds []float64) []SpeedBand {
	if len(speeds) == 0 {
		return nil
	}

	total := float64(len(speeds))
	bands := make([]SpeedBand, 0, len(speedBandBounds))
	for _, b := range speedBandBounds {
		count := 0
		for _, v := range speeds {
			if v >= b.min && (b.max < 0 || v < b.max) {
				count++
			}
		}
		bands = append(bands, SpeedBand{
			Label:   b.label,
			Min:     b.min,
			Max:     b.max,
			Percent: float64(count) / total * 100,
		})
	}
	return bands
}
