// Package extractor repairs combined fields and mines specification tokens
// out of free text.
package extractor

import (
	"strings"

	"assetdesk/adapters/importing/schema"
	"assetdesk/domain/importing/mapping"
)

const separators = " ,;/|-"

// Extractor runs the split and mining rules of a schema over mapped records
type Extractor struct {
	splits     []schema.SplitRule
	mining     []schema.MiningRule
	textFields []string
}

// New creates an extractor for the given schema
func New(s *schema.Schema) *Extractor {
	e := &Extractor{
		splits: s.SplitRules(),
		mining: s.MiningRules(),
	}
	for _, f := range s.Fields() {
		if f.Kind == schema.KindText {
			e.textFields = append(e.textFields, f.Name)
		}
	}
	return e
}

// Apply runs Split then Mine and returns the number of notes added
func (e *Extractor) Apply(rec *mapping.MappedRecord) int {
	return e.Split(rec) + e.Mine(rec)
}

// Split moves tokens that belong to another field out of combined values.
// The source is always cleaned. The target is only written while it is unset;
// a target already holding a different value keeps it and the dropped token
// is recorded in a note. Returns the number of splits.
func (e *Extractor) Split(rec *mapping.MappedRecord) int {
	count := 0
	for _, rule := range e.splits {
		src := rec.String(rule.Source)
		if src == "" {
			continue
		}
		loc := rule.Pattern.FindStringSubmatchIndex(src)
		if loc == nil {
			continue
		}
		token := strings.TrimSpace(group(src, loc, rule.Pattern.SubexpIndex("token")))
		if token == "" {
			continue
		}

		existing := strings.TrimSpace(rec.String(rule.Target))

		var cleaned string
		if keep := rule.Pattern.SubexpIndex("keep"); keep >= 0 && loc[2*keep] >= 0 {
			cleaned = group(src, loc, keep)
		} else {
			cleaned = src[:loc[0]] + " " + src[loc[1]:]
		}
		cleaned = strings.Trim(strings.Join(strings.Fields(cleaned), " "), separators)

		if cleaned == "" {
			rec.Delete(rule.Source)
		} else {
			rec.Set(rule.Source, cleaned)
		}
		switch existing {
		case "":
			rec.Set(rule.Target, token)
			rec.AddNote("%s: moved %q to %s", rule.Source, token, rule.Target)
		case token:
			rec.AddNote("%s: removed %q already present in %s", rule.Source, token, rule.Target)
		default:
			rec.AddNote("%s: dropped %q, %s already holds %q", rule.Source, token, rule.Target, existing)
		}
		count++
	}
	return count
}

type span struct{ start, end int }

type source struct {
	field string
	value string
	used  []span
}

func (s *source) overlaps(start, end int) bool {
	for _, u := range s.used {
		if start < u.end && u.start < end {
			return true
		}
	}
	return false
}

// Mine scans the populated free-text values of the record, flat fields
// first, for specification tokens. Rules run in schema order and every
// match consumes its span, so text claimed by an earlier rule (a storage
// size) is never read again by a later one (a memory size). A slot that
// already holds a value keeps it. Returns the number of slots filled.
func (e *Extractor) Mine(rec *mapping.MappedRecord) int {
	sources := make([]*source, 0, len(e.textFields))
	for _, name := range e.textFields {
		if v := rec.String(name); strings.TrimSpace(v) != "" {
			sources = append(sources, &source{field: name, value: v})
		}
	}

	count := 0
	for _, rule := range e.mining {
		for _, src := range sources {
			for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(src.value, -1) {
				if src.overlaps(loc[0], loc[1]) {
					continue
				}
				src.used = append(src.used, span{loc[0], loc[1]})
				if rec.Has(rule.Slot) {
					continue
				}
				token := strings.TrimSpace(rule.Render(src.value, loc))
				if token == "" {
					continue
				}
				rec.Set(rule.Slot, token)
				rec.AddNote("%s: extracted %q from %s", rule.Slot, token, src.field)
				count++
			}
		}
	}
	return count
}

func group(src string, loc []int, i int) string {
	if i < 0 || 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return ""
	}
	return src[loc[2*i]:loc[2*i+1]]
}
