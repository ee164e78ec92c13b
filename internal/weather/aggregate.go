package weather

import (
	"math"
	"sort"
)

// CountWeatherTypes tallies how many times each label occurs.
func CountWeatherTypes(labels []string) map[string]int {
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

// Dominant picks the most frequent label. Ties go to the label that sorts
// first; an empty tally yields "".
func Dominant(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	best, bestCount := "", 0
	for _, l := range labels {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

// round1 rounds v to one decimal place for presentation.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
