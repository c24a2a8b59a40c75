package archive

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitewatch/wind-archive/internal/domain"
)

// wrapTable embeds table rows in a realistic archive page.
func wrapTable(rows string) string {
	return `<html><body><div id="archive-box">` +
		`<table class="daily-archive"><tbody>` + rows + `</tbody></table>` +
		`</div></body></html>`
}

// arrowCell renders a wind-direction cell the way the archive does: an SVG
// arrow rotated by the direction angle.
func arrowCell(degrees int) string {
	return fmt.Sprintf(`<td><svg width="20" height="20"><g transform="rotate(%d 10 10)"><path d="M10 2 L10 18"/></g></svg></td>`, degrees)
}

// twoDayDocument is a two-variable, two-timestamp archive covering two days:
// wind speed and wind direction, each spanning 2 columns.
func twoDayDocument() string {
	return wrapTable(
		`<tr><td>Date</td><td colspan="2">Wind speed (knots)</td><td colspan="2">Wind direction</td></tr>` +
			`<tr><td></td><td>00</td><td>12</td><td>00</td><td>12</td></tr>` +
			`<tr><td>01.01.2024</td><td>12.5</td><td>18</td>` + arrowCell(90) + arrowCell(225) + `</tr>` +
			`<tr><td>02.01.2024</td><td>7</td><td>31.5</td>` + arrowCell(360) + arrowCell(-30) + `</tr>`,
	)
}

func TestDecode_TwoDayDocument(t *testing.T) {
	ds, err := Decode(twoDayDocument(), 12)
	require.NoError(t, err)

	require.Equal(t, []domain.VariableSpec{
		{Label: "Wind speed (knots)", Span: 2},
		{Label: "Wind direction", Span: 2},
	}, ds.Variables)

	// 2 rows × span 2 = 4 points.
	require.Len(t, ds.Points, 4)

	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, day1, ds.Points[0].Date)
	assert.Equal(t, 0, ds.Points[0].Hour)
	assert.Equal(t, day1, ds.Points[1].Date)
	assert.Equal(t, 12, ds.Points[1].Hour)
	assert.Equal(t, day2, ds.Points[2].Date)
	assert.Equal(t, 0, ds.Points[2].Hour)
	assert.Equal(t, day2, ds.Points[3].Date)
	assert.Equal(t, 12, ds.Points[3].Hour)

	for i, want := range []float64{12.5, 18, 7, 31.5} {
		require.NotNil(t, ds.Points[i].WindSpeed, "point %d wind speed", i)
		assert.Equal(t, want, *ds.Points[i].WindSpeed, "point %d", i)
	}

	// 360 normalizes to 0, -30 to 330.
	for i, want := range []int{90, 225, 0, 330} {
		require.NotNil(t, ds.Points[i].WindDir, "point %d wind dir", i)
		assert.Equal(t, want, *ds.Points[i].WindDir, "point %d", i)
	}

	// No temperature or gust columns were present.
	for i, p := range ds.Points {
		assert.Nil(t, p.Temperature, "point %d", i)
		assert.Nil(t, p.WindGust, "point %d", i)
	}
}

func TestDecode_DerivedTimestampOrdering(t *testing.T) {
	ds, err := Decode(twoDayDocument(), 12)
	require.NoError(t, err)

	for i := 1; i < len(ds.Points); i++ {
		assert.False(t, ds.Points[i].Timestamp.Before(ds.Points[i-1].Timestamp),
			"timestamps must be non-decreasing at index %d", i)
	}
	assert.Equal(t,
		time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		ds.Points[1].Timestamp)
}

func TestDecode_Deterministic(t *testing.T) {
	doc := twoDayDocument()

	first, err := Decode(doc, 12)
	require.NoError(t, err)
	second, err := Decode(doc, 12)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecode_TableNotFound(t *testing.T) {
	_, err := Decode(`<html><body><table class="other"><tr><td>x</td></tr></table></body></html>`, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = Decode("", 2)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestDecode_SkipsNonDateRows(t *testing.T) {
	doc := wrapTable(
		`<tr><td>Date</td><td colspan="2">Wind speed (knots)</td></tr>` +
			`<tr><td></td><td>00</td><td>12</td></tr>` +
			`<tr><td>not-a-date</td><td>99</td><td>99</td></tr>` +
			`<tr><td>03.01.2024</td><td>10</td><td>20</td></tr>` +
			`<tr><td colspan="3">footer</td></tr>`,
	)

	ds, err := Decode(doc, 12)
	require.NoError(t, err)

	// Only the valid date row contributes points; decoding continues past
	// the bad row.
	require.Len(t, ds.Points, 2)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), ds.Points[0].Date)
	require.NotNil(t, ds.Points[0].WindSpeed)
	assert.Equal(t, 10.0, *ds.Points[0].WindSpeed)
}

func TestDecode_SecondaryHeaderNeverParsed(t *testing.T) {
	// The second row deliberately looks like a data row with a date; it must
	// still be skipped by position.
	doc := wrapTable(
		`<tr><td>Date</td><td colspan="1">Wind speed (knots)</td></tr>` +
			`<tr><td>01.01.2024</td><td>55</td></tr>` +
			`<tr><td>02.01.2024</td><td>12</td></tr>`,
	)

	ds, err := Decode(doc, 2)
	require.NoError(t, err)

	require.Len(t, ds.Points, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ds.Points[0].Date)
	require.NotNil(t, ds.Points[0].WindSpeed)
	assert.Equal(t, 12.0, *ds.Points[0].WindSpeed)
}

func TestDecode_ShortRowLeavesFieldsMissing(t *testing.T) {
	doc := wrapTable(
		`<tr><td>Date</td><td colspan="2">Wind speed (knots)</td><td colspan="2">Temperature (°C)</td></tr>` +
			`<tr><td></td><td>00</td><td>02</td><td>00</td><td>02</td></tr>` +
			// Row ends after the first temperature cell.
			`<tr><td>01.01.2024</td><td>14</td><td>16</td><td>21.5</td></tr>`,
	)

	ds, err := Decode(doc, 2)
	require.NoError(t, err)
	require.Len(t, ds.Points, 2)

	require.NotNil(t, ds.Points[0].Temperature)
	assert.Equal(t, 21.5, *ds.Points[0].Temperature)
	assert.Nil(t, ds.Points[1].Temperature, "missing cell must stay missing")

	require.NotNil(t, ds.Points[1].WindSpeed)
	assert.Equal(t, 16.0, *ds.Points[1].WindSpeed)
}

func TestDecode_UnparsableNumberIsMissing(t *testing.T) {
	doc := wrapTable(
		`<tr><td>Date</td><td colspan="2">Wind speed (knots)</td></tr>` +
			`<tr><td></td><td>00</td><td>02</td></tr>` +
			`<tr><td>01.01.2024</td><td>n/a</td><td>9</td></tr>`,
	)

	ds, err := Decode(doc, 2)
	require.NoError(t, err)
	require.Len(t, ds.Points, 2)

	assert.Nil(t, ds.Points[0].WindSpeed)
	require.NotNil(t, ds.Points[1].WindSpeed)
	assert.Equal(t, 9.0, *ds.Points[1].WindSpeed)
}

func TestDecode_UnrecognizedLabelDiscardedButConsumed(t *testing.T) {
	// An unknown variable block must not shift the columns of the blocks
	// after it.
	doc := wrapTable(
		`<tr><td>Date</td><td colspan="2">Cloud cover (%)</td><td colspan="2">Temperature (°C)</td></tr>` +
			`<tr><td></td><td>00</td><td>02</td><td>00</td><td>02</td></tr>` +
			`<tr><td>01.01.2024</td><td>80</td><td>100</td><td>18</td><td>19</td></tr>`,
	)

	ds, err := Decode(doc, 2)
	require.NoError(t, err)
	require.Len(t, ds.Points, 2)

	require.NotNil(t, ds.Points[0].Temperature)
	assert.Equal(t, 18.0, *ds.Points[0].Temperature)
	require.NotNil(t, ds.Points[1].Temperature)
	assert.Equal(t, 19.0, *ds.Points[1].Temperature)

	// Cloud cover is decoded but lands nowhere.
	assert.Nil(t, ds.Points[0].WindSpeed)
	assert.Nil(t, ds.Points[0].WindGust)
}

func TestDecode_GustsAndAllVariables(t *testing.T) {
	doc := wrapTable(
		`<tr><td>Date</td>` +
			`<td colspan="1">Wind speed (knots)</td>` +
			`<td colspan="1">Wind gusts (knots)</td>` +
			`<td colspan="1">Wind direction</td>` +
			`<td colspan="1">Temperature (°C)</td></tr>` +
			`<tr><td></td><td>00</td><td>00</td><td>00</td><td>00</td></tr>` +
			`<tr><td>15.06.2024</td><td>17</td><td>24</td>` + arrowCell(315) + `<td>-2.5</td></tr>`,
	)

	ds, err := Decode(doc, 2)
	require.NoError(t, err)
	require.Len(t, ds.Points, 1)

	p := ds.Points[0]
	require.NotNil(t, p.WindSpeed)
	require.NotNil(t, p.WindGust)
	require.NotNil(t, p.WindDir)
	require.NotNil(t, p.Temperature)
	assert.Equal(t, 17.0, *p.WindSpeed)
	assert.Equal(t, 24.0, *p.WindGust)
	assert.Equal(t, 315, *p.WindDir)
	assert.Equal(t, -2.5, *p.Temperature)
}

func TestDecode_DegenerateHeaderFallsBackToTwelve(t *testing.T) {
	doc := wrapTable(
		`<tr><td>Date</td><td>Wind speed</td></tr>` +
			`<tr><td></td><td>labels</td></tr>` +
			`<tr><td>01.01.2024</td><td>10</td></tr>`,
	)

	ds, err := Decode(doc, 2)
	require.NoError(t, err)

	// No colspan headers: no variable specs, but still one point per
	// fallback timestamp slot.
	assert.Empty(t, ds.Variables)
	require.Len(t, ds.Points, 12)
	for i, p := range ds.Points {
		assert.Equal(t, i*2, p.Hour)
		assert.False(t, p.HasData())
	}
}

func TestDecode_PointCountProperty(t *testing.T) {
	// points == valid data rows × span of first variable.
	var rows strings.Builder
	rows.WriteString(`<tr><td>Date</td><td colspan="4">Wind speed (knots)</td></tr>`)
	rows.WriteString(`<tr><td></td><td>00</td><td>06</td><td>12</td><td>18</td></tr>`)
	for day := 1; day <= 5; day++ {
		fmt.Fprintf(&rows, `<tr><td>%02d.03.2024</td><td>1</td><td>2</td><td>3</td><td>4</td></tr>`, day)
	}

	ds, err := Decode(wrapTable(rows.String()), 6)
	require.NoError(t, err)
	assert.Len(t, ds.Points, 5*4)
}

func TestClassifyCell_RotationVariants(t *testing.T) {
	tests := []struct {
		name    string
		cell    string
		kind    domain.CellKind
		degrees int
	}{
		{"plain rotate", arrowCell(45), domain.CellDirection, 45},
		{"negative rotate", arrowCell(-30), domain.CellDirection, 330},
		{"over 360", arrowCell(725), domain.CellDirection, 5},
		{"svg without transform", `<td><svg><g><path/></g></svg></td>`, domain.CellUnrecognized, 0},
		{"svg without group", `<td><svg><path/></svg></td>`, domain.CellUnrecognized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := wrapTable(
				`<tr><td>Date</td><td colspan="1">Wind direction</td></tr>` +
					`<tr><td></td><td>00</td></tr>` +
					`<tr><td>01.01.2024</td>` + tt.cell + `</tr>`,
			)
			ds, err := Decode(doc, 2)
			require.NoError(t, err)
			require.Len(t, ds.Points, 1)

			if tt.kind == domain.CellDirection {
				require.NotNil(t, ds.Points[0].WindDir)
				assert.Equal(t, tt.degrees, *ds.Points[0].WindDir)
			} else {
				assert.Nil(t, ds.Points[0].WindDir)
			}
		})
	}
}

func TestDecode_StepZeroUsesDefault(t *testing.T) {
	ds, err := Decode(twoDayDocument(), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStepHours, ds.StepHours)
	assert.Equal(t, domain.DefaultStepHours, ds.Points[1].Hour)
}
