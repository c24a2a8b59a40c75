package archive

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kitewatch/wind-archive/internal/domain"
)

// ErrTableNotFound is returned when the document carries no archive table.
// It is the only fatal decode condition; everything else degrades to
// missing data.
var ErrTableNotFound = errors.New("archive table not found in document")

const (
	// tableSelector identifies the measurement table in the archive page.
	tableSelector = "table.daily-archive"

	// dateLayout is the first-cell date format of a data row.
	dateLayout = "02.01.2006"

	// fallbackSpan stands in for the first header span when no header cell
	// carries a colspan: 12 columns, a 2-hour step over 24 hours.
	fallbackSpan = 12
)

// rotateRe extracts the rotation angle from an SVG transform attribute,
// e.g. "rotate(225 10 10)" or "rotate(-30)". The angle may be negative.
var rotateRe = regexp.MustCompile(`rotate\((-?\d+)`)

// Decode parses an archive HTML document into an ordered dataset.
//
// The table's first row declares one VariableSpec per colspan-carrying
// header cell; the second row is the timestamp label row and is always
// skipped. Every following row is one calendar date, demultiplexed into
// span-of-first-variable points via the column-cursor walk in decodeRow.
//
// stepHours is the hours-per-column constant the archive was requested
// with; it is supplied by the caller, never inferred from the table.
func Decode(html string, stepHours int) (domain.Dataset, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("parse archive document: %w", err)
	}

	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return domain.Dataset{}, ErrTableNotFound
	}

	if stepHours <= 0 {
		stepHours = domain.DefaultStepHours
	}

	rows := table.Find("tr")
	specs := headerSpecs(rows.First())

	ds := domain.Dataset{
		StepHours: stepHours,
		Variables: specs,
	}
	rows.Each(func(i int, row *goquery.Selection) {
		if i < 2 {
			return
		}
		ds.Points = append(ds.Points, decodeRow(row, specs, stepHours)...)
	})

	return ds, nil
}

// headerSpecs collects the variable blocks declared by the header row, in
// left-to-right order. Header cells without a colspan (the date column) are
// not variable blocks.
func headerSpecs(header *goquery.Selection) []domain.VariableSpec {
	var specs []domain.VariableSpec
	header.Find("td").Each(func(_ int, cell *goquery.Selection) {
		attr, ok := cell.Attr("colspan")
		if !ok {
			return
		}
		span, err := strconv.Atoi(strings.TrimSpace(attr))
		if err != nil || span <= 0 {
			return
		}
		specs = append(specs, domain.VariableSpec{
			Label: strings.TrimSpace(cell.Text()),
			Span:  span,
		})
	})
	return specs
}

// timestampCount is the number of intra-day points per data row: the span
// of the first variable block, or the fallback for a degenerate header.
func timestampCount(specs []domain.VariableSpec) int {
	if len(specs) == 0 {
		return fallbackSpan
	}
	return specs[0].Span
}

// decodeRow demultiplexes one data row into its per-timestamp points.
// Rows whose first cell is not a date (separators, footers) yield nothing.
func decodeRow(row *goquery.Selection, specs []domain.VariableSpec, stepHours int) []domain.DataPoint {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return nil
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(cells.First().Text()))
	if err != nil {
		return nil
	}

	count := timestampCount(specs)
	points := make([]domain.DataPoint, 0, count)
	for t := 0; t < count; t++ {
		p := domain.NewDataPoint(date, t*stepHours)

		// Walk the variable blocks with a running column cursor, starting
		// just after the date column. Each block contributes the cell at
		// cursor+t, then moves the cursor past its own span.
		cursor := 1
		for _, spec := range specs {
			next, idx := advance(cursor, spec, t)
			if cell := cellAt(cells, idx); cell != nil {
				classifyCell(cell).Apply(&p, domain.FieldForLabel(spec.Label))
			}
			cursor = next
		}

		points = append(points, p)
	}
	return points
}

// advance is one step of the column-cursor fold: for a block starting at
// cursor, the cell for timestamp t sits at cursor+t and the next block
// begins span columns later.
func advance(cursor int, spec domain.VariableSpec, t int) (next, cellIndex int) {
	return cursor + spec.Span, cursor + t
}

// cellAt returns the i-th cell, or nil when the row is shorter than the
// header promised. A missing cell means a missing field, never an error.
func cellAt(cells *goquery.Selection, i int) *goquery.Selection {
	if i < 0 || i >= cells.Length() {
		return nil
	}
	return cells.Eq(i)
}

// classifyCell produces the tagged cell variant. A cell embedding an SVG
// group with a rotation transform is a wind direction; anything else is
// numeric text or unrecognized.
func classifyCell(cell *goquery.Selection) domain.CellValue {
	if g := cell.Find("svg g"); g.Length() > 0 {
		transform, ok := g.First().Attr("transform")
		if ok {
			if m := rotateRe.FindStringSubmatch(transform); len(m) == 2 {
				if deg, err := strconv.Atoi(m[1]); err == nil {
					return domain.DirectionCell(deg)
				}
			}
		}
		// An arrow cell without a readable rotation carries no value.
		return domain.UnrecognizedCell()
	}
	return domain.ParseNumberCell(cell.Text())
}
