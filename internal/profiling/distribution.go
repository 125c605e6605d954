package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBuckets is the number of equal-width histogram buckets over [0,1]
const DefaultBuckets = 5

// Bucket is one histogram bin; Upper is inclusive only for the last bin
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// ConfidenceProfile summarizes the record confidences of one import
type ConfidenceProfile struct {
	Count     int      `json:"count"`
	Mean      float64  `json:"mean"`
	Median    float64  `json:"median"`
	StdDev    float64  `json:"std_dev"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	P10       float64  `json:"p10"`
	Low       int      `json:"low"`
	Histogram []Bucket `json:"histogram"`
}

// ConfidenceAnalyzer profiles confidence distributions
type ConfidenceAnalyzer struct {
	buckets      int
	lowThreshold float64
}

// NewConfidenceAnalyzer creates an analyzer. Records at or under
// lowThreshold are counted as low confidence.
func NewConfidenceAnalyzer(buckets int, lowThreshold float64) *ConfidenceAnalyzer {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	return &ConfidenceAnalyzer{buckets: buckets, lowThreshold: lowThreshold}
}

// Analyze profiles the values. An empty input yields a zero profile with an
// empty histogram.
func (a *ConfidenceAnalyzer) Analyze(values []float64) ConfidenceProfile {
	profile := ConfidenceProfile{Histogram: a.histogram(values)}
	if len(values) == 0 {
		return profile
	}
	profile.Count = len(values)

	data := stats.Float64Data(values)
	profile.Mean, _ = data.Mean()
	profile.Median, _ = data.Median()
	profile.StdDev, _ = data.StandardDeviation()
	profile.Min, _ = data.Min()
	profile.Max, _ = data.Max()

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	profile.P10 = stat.Quantile(0.1, stat.Empirical, sorted, nil)

	for _, v := range values {
		if v <= a.lowThreshold {
			profile.Low++
		}
	}
	return profile
}

func (a *ConfidenceAnalyzer) histogram(values []float64) []Bucket {
	width := 1.0 / float64(a.buckets)
	out := make([]Bucket, a.buckets)
	for i := range out {
		out[i] = Bucket{Lower: round(float64(i) * width), Upper: round(float64(i+1) * width)}
	}
	for _, v := range values {
		i := int(math.Floor(v / width))
		if i >= a.buckets {
			i = a.buckets - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
