// Package domain models Windguru archive data.
//
// # Data Source
//
// Archive pages come from the Windguru archive endpoint
// (https://www.windguru.cz/ajax/ajax_archive.php), which renders a
// requested spot/model/date-range as an HTML table rather than a JSON
// payload. The table has a packed, self-describing column layout:
//
//	| Date | Wind speed (knots) ... | Wind direction ... | Temperature (°C) ... |
//	|      |  00 02 04 ... 22       |  00 02 04 ... 22   |  00 02 04 ... 22     |
//
// One contiguous block of columns per variable, each block spanning all
// intra-day timestamps. The header row declares each block with a colspan
// attribute; the colspan of the first block equals the number of timestamps
// per calendar day. The second row is a secondary header (the timestamp
// labels) and carries no measurements.
//
// # Cell Conventions
//
// Date column:
//
//	"26.04.2024" — dd.mm.yyyy. Rows whose first cell is not a date are
//	separators or footers and contribute no data points.
//
// Wind direction:
//
//	Not text. The cell embeds an SVG arrow whose <g> element carries a
//	rotation transform, e.g. transform="rotate(225 10 10)". The rotation
//	angle is the direction in degrees; it may be negative or ≥360 in the
//	raw markup and is normalized into [0, 359]. See [DirectionCell].
//
// All other variables:
//
//	Plain numeric text. Wind speed and gusts in knots, temperature in °C.
//	Empty or non-numeric cells mean the value was not recorded.
//
// # Timestamps
//
// The hour of the t-th cell in a block is t*step, where step is the
// hours-per-column constant the archive was requested with (default 2).
// The step is part of the request, not derived from the table, so a point's
// timestamp is date + t*step hours.
//
// # Missing Data
//
// A data point's fields are pointers; nil means the source cell was absent,
// empty, or unparsable. Missing fields are expected and are not errors —
// the archive backend routinely emits short rows and blank cells.
package domain
