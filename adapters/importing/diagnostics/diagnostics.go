// Package diagnostics produces the non-blocking warnings attached to mapped
// records, and the sheet-level confidence.
package diagnostics

import (
	"fmt"
	"strings"
	"time"

	"assetdesk/adapters/importing/schema"
	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"

	"github.com/montanaflynn/stats"
)

// Rule inspects a finished record and returns a warning when it applies
type Rule struct {
	Name  string
	Check func(rec *mapping.MappedRecord) (string, bool)
}

// Diagnostics evaluates an ordered rule list
type Diagnostics struct {
	rules []Rule
}

// New builds the rule list for a schema. clock supplies the processing date.
func New(s *schema.Schema, clock core.Clock) *Diagnostics {
	if clock == nil {
		clock = core.SystemClock
	}
	d := &Diagnostics{}

	for _, name := range []string{"marque", "proprietaire"} {
		if f, ok := s.Field(name); ok && f.Default.Kind == schema.DefaultPlaceholder {
			d.rules = append(d.rules, placeholderRule(name, s.Placeholder()))
		}
	}
	for _, f := range s.Fields() {
		switch f.Kind {
		case schema.KindTypeEnum:
			d.rules = append(d.rules, unknownTypeRule(f.Name, s.FallbackType()))
		case schema.KindDate:
			d.rules = append(d.rules, futureDateRule(f.Name, clock))
		}
	}
	if id, ok := s.Identifier(); ok {
		d.rules = append(d.rules, identifierRule(id))
	}
	return d
}

// Rules lists the rule names in evaluation order
func (d *Diagnostics) Rules() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name
	}
	return names
}

// Run appends the warnings of every matching rule and returns how many were added
func (d *Diagnostics) Run(rec *mapping.MappedRecord) int {
	n := 0
	for _, r := range d.rules {
		if msg, ok := r.Check(rec); ok {
			rec.AddWarning("%s", msg)
			n++
		}
	}
	return n
}

func placeholderRule(field, placeholder string) Rule {
	return Rule{
		Name: "placeholder:" + field,
		Check: func(rec *mapping.MappedRecord) (string, bool) {
			if rec.String(field) != placeholder {
				return "", false
			}
			return fmt.Sprintf("%s is unknown (left as %q)", field, placeholder), true
		},
	}
}

func unknownTypeRule(field, fallback string) Rule {
	return Rule{
		Name: "unknown-type",
		Check: func(rec *mapping.MappedRecord) (string, bool) {
			if rec.String(field) != fallback {
				return "", false
			}
			return "unrecognized equipment type", true
		},
	}
}

func futureDateRule(field string, clock core.Clock) Rule {
	return Rule{
		Name: "future-date:" + field,
		Check: func(rec *mapping.MappedRecord) (string, bool) {
			d, err := time.Parse(core.DateLayout, rec.String(field))
			if err != nil {
				return "", false
			}
			today := core.NewTimestamp(clock()).Date()
			if !d.After(today) {
				return "", false
			}
			return fmt.Sprintf("acquisition date in the future (%s)", d.Format(core.DateLayout)), true
		},
	}
}

func identifierRule(rule schema.IdentifierRule) Rule {
	return Rule{
		Name: "identifier-length:" + rule.Field,
		Check: func(rec *mapping.MappedRecord) (string, bool) {
			value := strings.Join(strings.Fields(rec.String(rule.Field)), "")
			if value == "" || len([]rune(value)) >= rule.MinLength {
				return "", false
			}
			return fmt.Sprintf("%s %q is shorter than %d characters", rule.Field, value, rule.MinLength), true
		},
	}
}

// SheetConfidence is the mean of the mapping confidences, raised by a capped
// bonus proportional to the average number of transformation notes per row.
// A mapping with no accepted column scores 0.
func SheetConfidence(m mapping.ColumnMapping, records []mapping.MappedRecord, s *schema.Schema) float64 {
	mean, err := stats.Mean(m.Confidences())
	if err != nil {
		return 0
	}

	bonus := 0.0
	if len(records) > 0 {
		notes := 0
		for i := range records {
			notes += len(records[i].Notes)
		}
		boost := s.Boost()
		bonus = min(boost.Cap, boost.PerNote*float64(notes)/float64(len(records)))
	}
	return min(1, max(0, mean+bonus))
}
