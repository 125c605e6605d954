// Package normalizer cleans raw cell values according to the kind of the
// canonical field they feed. Normalization is total: every input produces a
// value, and inputs that cannot be interpreted degrade to a fallback plus a
// warning.
package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"assetdesk/adapters/importing/schema"
	"assetdesk/domain/core"
	"assetdesk/domain/importing/sheet"
)

// Spreadsheet serials count days from 1899-12-30; 25569 is that epoch's
// distance to 1970-01-01.
const (
	unixEpochSerial = 25569
	secondsPerDay   = 86400
	maxSerial       = 2958465 // 9999-12-31
)

// Dates before this are kept but flagged. A year typed on its own is a
// small serial and lands in the early 1900s.
var plausibleFrom = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	core.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-Jan-2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2006",
}

var frenchMonths = strings.NewReplacer(
	"janvier", "january",
	"fevrier", "february",
	"mars", "march",
	"avril", "april",
	"mai", "may",
	"juin", "june",
	"juillet", "july",
	"aout", "august",
	"septembre", "september",
	"octobre", "october",
	"novembre", "november",
	"decembre", "december",
	"1er", "1",
)

// Result is the outcome of normalizing one cell
type Result struct {
	Value interface{}
	// Warning is set when the raw value could not be interpreted
	Warning string
	// Fallback is set when Value was invented rather than read from the cell
	Fallback bool
}

// Normalizer applies per-kind value cleanup
type Normalizer struct {
	schema *schema.Schema
	clock  core.Clock
}

// New creates a normalizer. clock supplies the processing date used as the
// fallback for unparseable dates.
func New(s *schema.Schema, clock core.Clock) *Normalizer {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Normalizer{schema: s, clock: clock}
}

// Normalize converts a raw cell into the value stored for field
func (n *Normalizer) Normalize(cell sheet.Cell, field schema.Field) Result {
	switch field.Kind {
	case schema.KindTypeEnum:
		return Result{Value: n.schema.ResolveType(cell.String())}
	case schema.KindBoolean:
		return Result{Value: n.Boolean(cell)}
	case schema.KindDate:
		return n.date(cell, field)
	default:
		return Result{Value: strings.TrimSpace(cell.String())}
	}
}

// Boolean is true only for affirmative cells. Anything unrecognized is false.
func (n *Normalizer) Boolean(cell sheet.Cell) bool {
	switch cell.Kind {
	case sheet.CellBool:
		return cell.Bool
	case sheet.CellNumber:
		return cell.Number != 0
	case sheet.CellText:
		return n.schema.IsAffirmative(cell.Text)
	default:
		return false
	}
}

func (n *Normalizer) date(cell sheet.Cell, field schema.Field) Result {
	if t, ok := ParseDate(cell); ok {
		res := Result{Value: t.Format(core.DateLayout)}
		if t.Before(plausibleFrom) {
			res.Warning = fmt.Sprintf("%s: implausible date %q read as %s", field.Name, strings.TrimSpace(cell.String()), res.Value)
		}
		return res
	}
	today := n.clock().UTC().Format(core.DateLayout)
	return Result{
		Value:    today,
		Fallback: true,
		Warning:  fmt.Sprintf("%s: unreadable date %q replaced by processing date %s", field.Name, strings.TrimSpace(cell.String()), today),
	}
}

// ParseDate interprets a cell as a calendar date. Numbers, and text that
// parses as a number, are spreadsheet serials in the 1900 date system; other
// text is tried against ISO, day-first and named-month layouts (French month
// names included).
func ParseDate(cell sheet.Cell) (time.Time, bool) {
	switch cell.Kind {
	case sheet.CellNumber:
		return FromSerial(cell.Number)
	case sheet.CellText:
		text := strings.TrimSpace(cell.Text)
		if text == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64); err == nil {
			return FromSerial(f)
		}
		for _, candidate := range []string{text, frenchMonths.Replace(schema.Fold(text))} {
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, candidate); err == nil {
					return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
				}
			}
		}
	}
	return time.Time{}, false
}

// FromSerial converts a 1900-system spreadsheet serial to a UTC date. The
// fractional time-of-day part is discarded.
func FromSerial(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial < 1 || serial > maxSerial {
		return time.Time{}, false
	}
	seconds := int64(math.Floor(serial)-unixEpochSerial) * secondsPerDay
	t := time.Unix(seconds, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}
