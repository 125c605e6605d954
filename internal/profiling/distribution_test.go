package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeConfidences(t *testing.T) {
	a := NewConfidenceAnalyzer(5, 0.5)
	p := a.Analyze([]float64{1, 1, 0.75, 0.5, 0.25})

	assert.Equal(t, 5, p.Count)
	assert.InDelta(t, 0.7, p.Mean, 1e-9)
	assert.InDelta(t, 0.75, p.Median, 1e-9)
	assert.Equal(t, 0.25, p.Min)
	assert.Equal(t, 1.0, p.Max)
	assert.Equal(t, 0.25, p.P10)
	assert.Equal(t, 2, p.Low)

	require.Len(t, p.Histogram, 5)
	counts := make([]int, len(p.Histogram))
	for i, b := range p.Histogram {
		counts[i] = b.Count
	}
	assert.Equal(t, []int{0, 1, 1, 1, 2}, counts)
	assert.Equal(t, 0.8, p.Histogram[4].Lower)
	assert.Equal(t, 1.0, p.Histogram[4].Upper)
}

func TestAnalyzeEmpty(t *testing.T) {
	p := NewConfidenceAnalyzer(0, 0.5).Analyze(nil)
	assert.Equal(t, 0, p.Count)
	assert.Len(t, p.Histogram, DefaultBuckets)
	assert.Equal(t, 0.0, p.Mean)
}
