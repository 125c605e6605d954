// Package similarity provides the normalized string-similarity primitive used
// to match spreadsheet headers against canonical field vocabularies.
package similarity

import (
	"strings"
)

// Score returns a similarity in [0,1] between a and b.
//
// Both strings are case-folded and trimmed. The base score is the normalized
// Levenshtein similarity (maxLen-distance)/maxLen. An exact match scores 1.0,
// and when one string contains the other the containment ratio
// min(len)/max(len) is used if it beats the edit-distance score. The function
// is symmetric.
func Score(a, b string) float64 {
	ra := []rune(strings.ToLower(strings.TrimSpace(a)))
	rb := []rune(strings.ToLower(strings.TrimSpace(b)))

	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if string(ra) == string(rb) {
		return 1.0
	}

	maxLen := len(ra)
	minLen := len(rb)
	if minLen > maxLen {
		maxLen, minLen = minLen, maxLen
	}

	score := float64(maxLen-distance(ra, rb)) / float64(maxLen)

	if minLen > 0 && (strings.Contains(string(ra), string(rb)) || strings.Contains(string(rb), string(ra))) {
		if containment := float64(minLen) / float64(maxLen); containment > score {
			score = containment
		}
	}

	return clamp(score)
}

// Distance returns the Levenshtein edit distance between a and b, counted in runes
func Distance(a, b string) int {
	return distance([]rune(a), []rune(b))
}

func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows of the dynamic programming table
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(row[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
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
