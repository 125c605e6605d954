package classifier

import (
	"strings"

	"assetdesk/adapters/importing/schema"
	"assetdesk/adapters/importing/similarity"
	"assetdesk/domain/importing/mapping"
)

// Candidate is the best field found by a strategy for one header
type Candidate struct {
	Field string
	Score float64
}

// Strategy is one header-matching phase. Attempt receives the folded header
// and returns its best candidate along with whether that candidate clears
// the acceptance threshold. A rejected candidate is still reported so the
// caller can explain why a column stayed unmatched.
type Strategy interface {
	Name() mapping.Strategy
	Attempt(header string) (Candidate, bool)
}

// exactStrategy accepts a header equal to a folded synonym
type exactStrategy struct {
	fields []schema.Field
}

// NewExactStrategy matches headers that are literally one of a field's synonyms
func NewExactStrategy(s *schema.Schema) Strategy {
	return exactStrategy{fields: s.Fields()}
}

func (exactStrategy) Name() mapping.Strategy { return mapping.StrategyExact }

func (e exactStrategy) Attempt(header string) (Candidate, bool) {
	for _, f := range e.fields {
		for _, syn := range f.FoldedSynonyms() {
			if syn == header {
				return Candidate{Field: f.Name, Score: 1}, true
			}
		}
	}
	return Candidate{}, false
}

// containmentStrategy scores patterns that contain, or are contained in, the header
type containmentStrategy struct {
	name      mapping.Strategy
	fields    []schema.Field
	patterns  func(schema.Field) []string
	threshold float64
}

// NewTruncatedStrategy matches abbreviated headers against truncated patterns
func NewTruncatedStrategy(s *schema.Schema) Strategy {
	return containmentStrategy{
		name:      mapping.StrategyTruncated,
		fields:    s.Fields(),
		patterns:  schema.Field.FoldedTruncatedPatterns,
		threshold: s.Threshold(),
	}
}

// NewContentStrategy matches headers carrying value-shape hints
func NewContentStrategy(s *schema.Schema) Strategy {
	return containmentStrategy{
		name:      mapping.StrategyContent,
		fields:    s.Fields(),
		patterns:  schema.Field.FoldedContentPatterns,
		threshold: s.Threshold(),
	}
}

func (c containmentStrategy) Name() mapping.Strategy { return c.name }

func (c containmentStrategy) Attempt(header string) (Candidate, bool) {
	var best Candidate
	for _, f := range c.fields {
		for _, p := range c.patterns(f) {
			if !strings.Contains(header, p) && !strings.Contains(p, header) {
				continue
			}
			if score := similarity.Score(header, p); score > best.Score {
				best = Candidate{Field: f.Name, Score: score}
			}
		}
	}
	return best, best.Field != "" && best.Score > c.threshold
}

// synonymStrategy scores the header against every synonym of every field
type synonymStrategy struct {
	fields    []schema.Field
	threshold float64
}

// NewSynonymStrategy is the fuzzy fallback over the full synonym dictionary
func NewSynonymStrategy(s *schema.Schema) Strategy {
	return synonymStrategy{fields: s.Fields(), threshold: s.Threshold()}
}

func (synonymStrategy) Name() mapping.Strategy { return mapping.StrategySynonym }

func (s synonymStrategy) Attempt(header string) (Candidate, bool) {
	var best Candidate
	for _, f := range s.fields {
		for _, syn := range f.FoldedSynonyms() {
			if score := similarity.Score(header, syn); score > best.Score {
				best = Candidate{Field: f.Name, Score: score}
			}
		}
	}
	return best, best.Field != "" && best.Score > s.threshold
}

// DefaultStrategies returns the matching phases in evaluation order
func DefaultStrategies(s *schema.Schema) []Strategy {
	return []Strategy{
		NewExactStrategy(s),
		NewTruncatedStrategy(s),
		NewContentStrategy(s),
		NewSynonymStrategy(s),
	}
}
