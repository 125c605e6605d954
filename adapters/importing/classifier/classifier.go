// Package classifier maps spreadsheet header cells onto canonical schema fields.
package classifier

import (
	"strconv"
	"strings"

	"assetdesk/adapters/importing/schema"
	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"
	"assetdesk/domain/importing/sheet"
)

// Classifier builds the column mapping of a sheet from its header row
type Classifier struct {
	schema     *schema.Schema
	strategies []Strategy
}

// Option configures a Classifier
type Option func(*Classifier)

// WithStrategies replaces the default phase list
func WithStrategies(strategies ...Strategy) Option {
	return func(c *Classifier) {
		c.strategies = strategies
	}
}

// New creates a classifier for the given schema
func New(s *schema.Schema, opts ...Option) *Classifier {
	c := &Classifier{schema: s, strategies: DefaultStrategies(s)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify evaluates each header cell against the strategy list, stopping at
// the first phase that accepts. When two columns resolve to the same field
// the first column keeps it and the later one is reported as a conflict.
func (c *Classifier) Classify(header []sheet.Cell) mapping.ColumnMapping {
	result := mapping.ColumnMapping{
		Matches:   []mapping.ColumnMatch{},
		Threshold: c.schema.Threshold(),
	}
	taken := make(map[string]int)
	folded := make([]string, 0, len(header)+2)
	folded = append(folded, c.schema.Profile(), strconv.FormatFloat(c.schema.Threshold(), 'f', -1, 64))

	for col, cell := range header {
		text := strings.TrimSpace(cell.String())
		key := schema.Fold(text)
		folded = append(folded, key)
		if key == "" {
			continue
		}

		match, best, ok := c.classifyHeader(key)
		if !ok {
			result.Unmatched = append(result.Unmatched, mapping.UnmatchedColumn{
				Column:    col,
				Header:    text,
				BestField: best.Field,
				BestScore: clamp(best.Score),
			})
			continue
		}
		match.Column = col
		match.Header = text

		if winner, dup := taken[match.Field]; dup {
			result.Conflicts = append(result.Conflicts, mapping.ColumnConflict{ColumnMatch: match, WinnerColumn: winner})
			continue
		}
		taken[match.Field] = col
		result.Matches = append(result.Matches, match)
	}

	result.Fingerprint = core.HashStrings(folded)
	return result
}

func (c *Classifier) classifyHeader(key string) (mapping.ColumnMatch, Candidate, bool) {
	var best Candidate
	for _, strategy := range c.strategies {
		candidate, accepted := strategy.Attempt(key)
		if accepted {
			return mapping.ColumnMatch{
				Field:      candidate.Field,
				Confidence: clamp(candidate.Score),
				Strategy:   strategy.Name(),
			}, candidate, true
		}
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	return mapping.ColumnMatch{}, best, false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
