package schema

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"assetdesk/internal/errors"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var profiles embed.FS

// DefaultProfile is the profile used when none is configured
const DefaultProfile = "it"

// Document is the YAML representation of a schema
type Document struct {
	Profile         string           `yaml:"profile"`
	Version         int              `yaml:"version"`
	Placeholder     string           `yaml:"placeholder"`
	AcceptThreshold float64          `yaml:"accept_threshold"`
	ConfidenceBoost BoostDocument    `yaml:"confidence_boost"`
	Identifier      *IdentifierDoc   `yaml:"identifier,omitempty"`
	Fields          []FieldDocument  `yaml:"fields"`
	Types           TypesDocument    `yaml:"types"`
	Affirmative     []string         `yaml:"affirmative"`
	Split           []SplitDocument  `yaml:"split"`
	Mining          []MiningDocument `yaml:"mining"`
}

// BoostDocument configures the sheet-level confidence boost
type BoostDocument struct {
	PerNote float64 `yaml:"per_note"`
	Cap     float64 `yaml:"cap"`
}

// IdentifierDoc configures the identifier length check
type IdentifierDoc struct {
	Field     string `yaml:"field"`
	MinLength int    `yaml:"min_length"`
}

// FieldDocument is one canonical field
type FieldDocument struct {
	Name      string      `yaml:"name"`
	Kind      Kind        `yaml:"kind"`
	Default   DefaultSpec `yaml:"default"`
	Synonyms  []string    `yaml:"synonyms"`
	Truncated []string    `yaml:"truncated,omitempty"`
	Content   []string    `yaml:"content,omitempty"`
}

// TypesDocument is the equipment-type vocabulary
type TypesDocument struct {
	Fallback string         `yaml:"fallback"`
	Tags     []TypeTagEntry `yaml:"tags"`
}

// TypeTagEntry lists the free-text synonyms of one canonical tag
type TypeTagEntry struct {
	Tag      string   `yaml:"tag"`
	Synonyms []string `yaml:"synonyms"`
}

// SplitDocument is one combined-field split rule
type SplitDocument struct {
	Source  string `yaml:"source"`
	Target  string `yaml:"target"`
	Pattern string `yaml:"pattern"`
}

// MiningDocument is one specification mining rule
type MiningDocument struct {
	Slot      string            `yaml:"slot"`
	Pattern   string            `yaml:"pattern"`
	Format    string            `yaml:"format,omitempty"`
	Uppercase bool              `yaml:"uppercase,omitempty"`
	Aliases   map[string]string `yaml:"aliases,omitempty"`
}

// Profiles lists the embedded profile names
func Profiles() []string {
	entries, err := profiles.ReadDir("profiles")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return names
}

// Builtin loads one of the embedded profiles
func Builtin(profile string) (*Schema, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	data, err := profiles.ReadFile("profiles/" + profile + ".yaml")
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown schema profile %q (available: %s)", profile, strings.Join(Profiles(), ", ")))
	}
	return Load(data)
}

// MustBuiltin is Builtin for embedded profiles known to be valid
func MustBuiltin(profile string) *Schema {
	s, err := Builtin(profile)
	if err != nil {
		panic(err)
	}
	return s
}

// Default returns the default embedded profile
func Default() *Schema {
	return MustBuiltin(DefaultProfile)
}

// LoadFile reads a schema document from disk
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema file %s", path)
	}
	return Load(data)
}

// Load parses a YAML schema document
func Load(data []byte) (*Schema, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to parse schema document"))
	}
	return Build(doc)
}

// Marshal renders the document as YAML
func (d Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Build validates a document and compiles it into an immutable Schema
func Build(doc Document) (*Schema, error) {
	doc = doc.clone()

	if doc.Profile == "" {
		return nil, errors.ConfigInvalid("schema profile name is required")
	}
	if doc.AcceptThreshold <= 0 || doc.AcceptThreshold >= 1 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("accept_threshold must be in (0,1), got %v", doc.AcceptThreshold))
	}
	if doc.ConfidenceBoost.PerNote < 0 || doc.ConfidenceBoost.Cap < 0 || doc.ConfidenceBoost.Cap > 1 {
		return nil, errors.ConfigInvalid("confidence_boost values must be in [0,1]")
	}
	if len(doc.Fields) == 0 {
		return nil, errors.ConfigInvalid("schema declares no fields")
	}

	s := &Schema{
		profile:     doc.Profile,
		version:     doc.Version,
		placeholder: doc.Placeholder,
		threshold:   doc.AcceptThreshold,
		boost:       ConfidenceBoost{PerNote: doc.ConfidenceBoost.PerNote, Cap: doc.ConfidenceBoost.Cap},
		fieldIndex:  make(map[string]int, len(doc.Fields)),
		affirmative: make(map[string]bool, len(doc.Affirmative)),
		doc:         doc,
	}

	for _, fd := range doc.Fields {
		field, err := buildField(fd)
		if err != nil {
			return nil, err
		}
		if _, dup := s.fieldIndex[field.Name]; dup {
			return nil, errors.ConfigInvalid(fmt.Sprintf("duplicate field %q", field.Name))
		}
		if field.Default.Kind == DefaultPlaceholder && s.placeholder == "" {
			return nil, errors.ConfigInvalid(fmt.Sprintf("field %q defaults to the placeholder but none is declared", field.Name))
		}
		s.fieldIndex[field.Name] = len(s.fields)
		s.fields = append(s.fields, field)
	}

	if err := s.buildTypes(doc.Types); err != nil {
		return nil, err
	}

	for _, word := range foldAll(doc.Affirmative) {
		s.affirmative[word] = true
	}

	if doc.Identifier != nil {
		if _, ok := s.fieldIndex[doc.Identifier.Field]; !ok {
			return nil, errors.ConfigInvalid(fmt.Sprintf("identifier rule references unknown field %q", doc.Identifier.Field))
		}
		rule := IdentifierRule{Field: doc.Identifier.Field, MinLength: doc.Identifier.MinLength}
		s.identifier = &rule
	}

	for _, sd := range doc.Split {
		rule, err := s.buildSplitRule(sd)
		if err != nil {
			return nil, err
		}
		s.splitRules = append(s.splitRules, rule)
	}

	for _, md := range doc.Mining {
		rule, err := s.buildMiningRule(md)
		if err != nil {
			return nil, err
		}
		s.miningRules = append(s.miningRules, rule)
	}

	return s, nil
}

func buildField(fd FieldDocument) (Field, error) {
	name := strings.TrimSpace(fd.Name)
	if name == "" {
		return Field{}, errors.ConfigInvalid("field name is required")
	}
	switch fd.Kind {
	case KindTypeEnum, KindBoolean, KindDate, KindText:
	case "":
		fd.Kind = KindText
	default:
		return Field{}, errors.ConfigInvalid(fmt.Sprintf("field %q has unknown kind %q", name, fd.Kind))
	}
	switch fd.Default.Kind {
	case DefaultValue, DefaultPlaceholder, DefaultToday, DefaultEmpty, DefaultNone:
	case "":
		fd.Default.Kind = DefaultEmpty
	default:
		return Field{}, errors.ConfigInvalid(fmt.Sprintf("field %q has unknown default kind %q", name, fd.Default.Kind))
	}

	// The field name itself (with its last path segment) is always a synonym
	synonyms := append([]string{}, fd.Synonyms...)
	synonyms = append(synonyms, name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		synonyms = append(synonyms, name[i+1:])
	}

	return Field{
		Name:              name,
		Kind:              fd.Kind,
		Synonyms:          append([]string{}, fd.Synonyms...),
		TruncatedPatterns: append([]string{}, fd.Truncated...),
		ContentPatterns:   append([]string{}, fd.Content...),
		Default:           fd.Default,
		foldedSynonyms:    foldAll(synonyms),
		foldedTruncated:   foldAll(fd.Truncated),
		foldedContent:     foldAll(fd.Content),
	}, nil
}

func (s *Schema) buildTypes(td TypesDocument) error {
	if td.Fallback == "" {
		return errors.ConfigInvalid("types.fallback is required")
	}
	s.fallbackType = td.Fallback

	seen := make(map[string]bool)
	for order, entry := range td.Tags {
		if entry.Tag == "" {
			return errors.ConfigInvalid("type tag name is required")
		}
		if seen[entry.Tag] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate type tag %q", entry.Tag))
		}
		seen[entry.Tag] = true
		s.typeTags = append(s.typeTags, entry.Tag)

		for _, syn := range foldAll(append(append([]string{}, entry.Synonyms...), entry.Tag)) {
			s.typeEntries = append(s.typeEntries, typeEntry{synonym: syn, tag: entry.Tag, order: order})
		}
	}
	if !seen[td.Fallback] {
		s.typeTags = append(s.typeTags, td.Fallback)
	}
	sortTypeEntries(s.typeEntries)
	return nil
}

func (s *Schema) buildSplitRule(sd SplitDocument) (SplitRule, error) {
	if _, ok := s.fieldIndex[sd.Source]; !ok {
		return SplitRule{}, errors.ConfigInvalid(fmt.Sprintf("split rule source %q is not a field", sd.Source))
	}
	if _, ok := s.fieldIndex[sd.Target]; !ok {
		return SplitRule{}, errors.ConfigInvalid(fmt.Sprintf("split rule target %q is not a field", sd.Target))
	}
	re, err := regexp.Compile(sd.Pattern)
	if err != nil {
		return SplitRule{}, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "split rule %s->%s has an invalid pattern", sd.Source, sd.Target))
	}
	if re.SubexpIndex("token") < 0 {
		return SplitRule{}, errors.ConfigInvalid(fmt.Sprintf("split rule %s->%s needs a (?P<token>...) group", sd.Source, sd.Target))
	}
	return SplitRule{Source: sd.Source, Target: sd.Target, Pattern: re}, nil
}

func (s *Schema) buildMiningRule(md MiningDocument) (MiningRule, error) {
	field, ok := s.fieldIndex[md.Slot]
	if !ok || !s.fields[field].IsSpecification() {
		return MiningRule{}, errors.ConfigInvalid(fmt.Sprintf("mining rule slot %q is not a specification field", md.Slot))
	}
	re, err := regexp.Compile(md.Pattern)
	if err != nil {
		return MiningRule{}, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "mining rule %s has an invalid pattern", md.Slot))
	}
	aliases := make(map[string]string, len(md.Aliases))
	for k, v := range md.Aliases {
		aliases[k] = v
	}
	return MiningRule{
		Slot:      md.Slot,
		Pattern:   re,
		Format:    md.Format,
		Uppercase: md.Uppercase,
		Aliases:   aliases,
	}, nil
}

func (d Document) clone() Document {
	out := d
	if d.Identifier != nil {
		id := *d.Identifier
		out.Identifier = &id
	}
	out.Fields = make([]FieldDocument, len(d.Fields))
	for i, f := range d.Fields {
		f.Synonyms = append([]string(nil), f.Synonyms...)
		f.Truncated = append([]string(nil), f.Truncated...)
		f.Content = append([]string(nil), f.Content...)
		out.Fields[i] = f
	}
	out.Types.Tags = make([]TypeTagEntry, len(d.Types.Tags))
	for i, t := range d.Types.Tags {
		t.Synonyms = append([]string(nil), t.Synonyms...)
		out.Types.Tags[i] = t
	}
	out.Affirmative = append([]string(nil), d.Affirmative...)
	out.Split = append([]SplitDocument(nil), d.Split...)
	out.Mining = make([]MiningDocument, len(d.Mining))
	for i, m := range d.Mining {
		if m.Aliases != nil {
			aliases := make(map[string]string, len(m.Aliases))
			for k, v := range m.Aliases {
				aliases[k] = v
			}
			m.Aliases = aliases
		}
		out.Mining[i] = m
	}
	return out
}
