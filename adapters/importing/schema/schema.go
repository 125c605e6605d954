// Package schema holds the canonical target schema of the spreadsheet import
// engine: the field list with its synonym and pattern dictionaries, the
// equipment-type vocabulary, the boolean vocabulary, and the split and mining
// rules. A Schema is immutable once built and safe to share between goroutines.
package schema

import (
	"regexp"
	"sort"
	"strings"
)

// Kind selects the value normalization applied to a field
type Kind string

const (
	KindTypeEnum Kind = "type-enum"
	KindBoolean  Kind = "boolean"
	KindDate     Kind = "date"
	KindText     Kind = "free-text"
)

// DefaultKind selects how an unset field is filled
type DefaultKind string

const (
	DefaultValue       DefaultKind = "value"
	DefaultPlaceholder DefaultKind = "placeholder"
	DefaultToday       DefaultKind = "today"
	DefaultEmpty       DefaultKind = "empty"
	DefaultNone        DefaultKind = "none"
)

// DefaultSpec documents the default of a field
type DefaultSpec struct {
	Kind  DefaultKind `yaml:"kind" json:"kind"`
	Value interface{} `yaml:"value,omitempty" json:"value,omitempty"`
}

// Field is one canonical target attribute
type Field struct {
	Name              string
	Kind              Kind
	Synonyms          []string
	TruncatedPatterns []string
	ContentPatterns   []string
	Default           DefaultSpec

	foldedSynonyms  []string
	foldedTruncated []string
	foldedContent   []string
}

// FoldedSynonyms returns the folded synonym list, including the field name
// itself. The slice is shared and must not be modified.
func (f Field) FoldedSynonyms() []string { return f.foldedSynonyms }

// FoldedTruncatedPatterns returns the folded truncated-pattern list. Shared, read only.
func (f Field) FoldedTruncatedPatterns() []string { return f.foldedTruncated }

// FoldedContentPatterns returns the folded content-pattern list. Shared, read only.
func (f Field) FoldedContentPatterns() []string { return f.foldedContent }

// IsSpecification reports whether the field lives in the specifications sub-map
func (f Field) IsSpecification() bool {
	return strings.HasPrefix(f.Name, "specifications.")
}

// SplitRule describes a combined field: a token matching Pattern inside
// Source really belongs to Target
type SplitRule struct {
	Source  string
	Target  string
	Pattern *regexp.Regexp
}

// MiningRule describes a specification token that may appear in any free-text value
type MiningRule struct {
	Slot      string
	Pattern   *regexp.Regexp
	Format    string
	Uppercase bool
	Aliases   map[string]string
}

// Render formats a match of the rule against src
func (r MiningRule) Render(src string, submatch []int) string {
	var out string
	if r.Format == "" {
		out = src[submatch[0]:submatch[1]]
	} else {
		out = string(r.Pattern.ExpandString(nil, r.Format, src, submatch))
	}
	out = strings.Join(strings.Fields(out), " ")
	if r.Uppercase {
		out = strings.ToUpper(out)
	}
	if len(r.Aliases) > 0 {
		words := strings.Fields(out)
		for i, w := range words {
			if alias, ok := r.Aliases[w]; ok {
				words[i] = alias
			}
		}
		out = strings.Join(words, " ")
	}
	return out
}

// IdentifierRule flags identifiers shorter than MinLength
type IdentifierRule struct {
	Field     string
	MinLength int
}

// ConfidenceBoost raises sheet-level confidence in proportion to the
// average number of transformation notes per row
type ConfidenceBoost struct {
	PerNote float64
	Cap     float64
}

type typeEntry struct {
	synonym string
	tag     string
	order   int
}

// Schema is the immutable canonical schema
type Schema struct {
	profile     string
	version     int
	placeholder string
	threshold   float64
	boost       ConfidenceBoost
	identifier  *IdentifierRule

	fields     []Field
	fieldIndex map[string]int

	typeTags     []string
	fallbackType string
	typeEntries  []typeEntry

	affirmative map[string]bool

	splitRules  []SplitRule
	miningRules []MiningRule

	doc Document
}

// Profile returns the profile name (e.g. "it", "telecom")
func (s *Schema) Profile() string { return s.profile }

// Version returns the schema document version
func (s *Schema) Version() int { return s.version }

// Placeholder returns the literal used for unset brand/owner/department fields
func (s *Schema) Placeholder() string { return s.placeholder }

// Threshold returns the header acceptance threshold; a match must exceed it
func (s *Schema) Threshold() float64 { return s.threshold }

// Boost returns the sheet-level confidence boost constants
func (s *Schema) Boost() ConfidenceBoost { return s.boost }

// Identifier returns the identifier length rule, if the profile defines one
func (s *Schema) Identifier() (IdentifierRule, bool) {
	if s.identifier == nil {
		return IdentifierRule{}, false
	}
	return *s.identifier, true
}

// IdentifierField names the field that identifies one physical asset: the
// identifier rule field when the profile has one, else serial_number when
// the profile defines it, else "".
func (s *Schema) IdentifierField() string {
	if s.identifier != nil {
		return s.identifier.Field
	}
	if _, ok := s.fieldIndex["serial_number"]; ok {
		return "serial_number"
	}
	return ""
}

// Fields returns the canonical fields in schema order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldNames returns the canonical field names in schema order
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Field looks a field up by name
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FieldOrder returns the position of the field in schema order, or -1
func (s *Schema) FieldOrder(name string) int {
	i, ok := s.fieldIndex[name]
	if !ok {
		return -1
	}
	return i
}

// TypeTags returns the closed equipment-type tag set, fallback included
func (s *Schema) TypeTags() []string {
	out := make([]string, len(s.typeTags))
	copy(out, s.typeTags)
	return out
}

// FallbackType returns the tag used when no vocabulary entry matches
func (s *Schema) FallbackType() string { return s.fallbackType }

// ResolveType maps free text onto the equipment-type vocabulary by substring
// match. Longer synonyms are tried first so "telephone portable" resolves to
// phone before "portable" can claim it. Unmatched text resolves to the fallback.
func (s *Schema) ResolveType(text string) string {
	folded := Fold(text)
	if folded == "" {
		return s.fallbackType
	}
	for _, e := range s.typeEntries {
		if strings.Contains(folded, e.synonym) {
			return e.tag
		}
	}
	return s.fallbackType
}

// IsAffirmative reports whether text belongs to the affirmative-word set
func (s *Schema) IsAffirmative(text string) bool {
	return s.affirmative[Fold(text)]
}

// SplitRules returns the combined-field split rules in evaluation order
func (s *Schema) SplitRules() []SplitRule {
	out := make([]SplitRule, len(s.splitRules))
	copy(out, s.splitRules)
	return out
}

// MiningRules returns the specification mining rules in evaluation order
func (s *Schema) MiningRules() []MiningRule {
	out := make([]MiningRule, len(s.miningRules))
	copy(out, s.miningRules)
	return out
}

// Document returns a copy of the source document, suitable for dumping
func (s *Schema) Document() Document {
	return s.doc.clone()
}

// WithThreshold returns a copy of the schema using a different acceptance threshold
func (s *Schema) WithThreshold(threshold float64) (*Schema, error) {
	doc := s.doc.clone()
	doc.AcceptThreshold = threshold
	return Build(doc)
}

func sortTypeEntries(entries []typeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		li, lj := len([]rune(entries[i].synonym)), len([]rune(entries[j].synonym))
		if li != lj {
			return li > lj
		}
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].synonym < entries[j].synonym
	})
}
