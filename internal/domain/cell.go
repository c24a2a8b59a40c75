package domain

import (
	"strconv"
	"strings"
)

// Field identifies which DataPoint attribute a decoded cell feeds.
type Field int

const (
	FieldNone Field = iota // unrecognized variable, decoded but discarded
	FieldWindSpeed
	FieldWindDirection
	FieldTemperature
	FieldWindGust
)

// labelRule maps a header-label substring to a field. Rules are evaluated
// in order and the first match wins, so more specific substrings must come
// before ones they contain.
type labelRule struct {
	substring string
	field     Field
}

// Header labels are free text controlled by the archive backend ("Wind speed
// (knots)", "Temperature (°C)", ...). Substring matching is the contract;
// exact labels vary with requested units and language.
var labelRules = []labelRule{
	{"Wind speed", FieldWindSpeed},
	{"Wind gusts", FieldWindGust},
	{"Temperature", FieldTemperature},
}

// FieldForLabel classifies a variable header label. Labels matching no rule
// return FieldNone; their columns are still consumed during decoding so the
// column cursor stays aligned.
func FieldForLabel(label string) Field {
	for _, r := range labelRules {
		if strings.Contains(label, r.substring) {
			return r.field
		}
	}
	return FieldNone
}

// CellKind discriminates the parsed shape of a table cell.
type CellKind int

const (
	CellUnrecognized CellKind = iota
	CellNumber
	CellDirection
)

// CellValue is the tagged result of classifying one table cell: a rotation
// angle (wind direction), a plain number, or nothing usable.
type CellValue struct {
	Kind    CellKind
	Number  float64 // valid when Kind == CellNumber
	Degrees int     // valid when Kind == CellDirection, always in [0, 359]
}

// NumberCell wraps a parsed numeric cell.
func NumberCell(v float64) CellValue {
	return CellValue{Kind: CellNumber, Number: v}
}

// DirectionCell wraps a rotation angle, normalizing any integer — negative
// or ≥360 — into [0, 359].
func DirectionCell(degrees int) CellValue {
	return CellValue{Kind: CellDirection, Degrees: NormalizeDegrees(degrees)}
}

// UnrecognizedCell marks a cell that parsed as neither direction nor number.
func UnrecognizedCell() CellValue {
	return CellValue{Kind: CellUnrecognized}
}

// ParseNumberCell classifies trimmed cell text as a number, or returns an
// unrecognized cell. Empty and non-numeric text is not an error; it simply
// yields no value.
func ParseNumberCell(text string) CellValue {
	text = strings.TrimSpace(text)
	if text == "" {
		return UnrecognizedCell()
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return UnrecognizedCell()
	}
	return NumberCell(v)
}

// NormalizeDegrees reduces an angle to [0, 359] for any integer input.
func NormalizeDegrees(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}

// Apply assigns a classified cell to the point field chosen by the header
// label. Direction cells always feed WindDir regardless of label, matching
// the source format where the arrow column's label names the wind variable.
// Unrecognized cells and FieldNone numbers leave the point untouched.
func (c CellValue) Apply(p *DataPoint, field Field) {
	switch c.Kind {
	case CellDirection:
		deg := c.Degrees
		p.WindDir = &deg
	case CellNumber:
		v := c.Number
		switch field {
		case FieldWindSpeed:
			p.WindSpeed = &v
		case FieldTemperature:
			p.Temperature = &v
		case FieldWindGust:
			p.WindGust = &v
		}
	}
}
