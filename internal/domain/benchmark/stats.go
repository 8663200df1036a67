// Package benchmark ranks a submission's primary metric against its cohort.
package benchmark

import (
	"math"
	"sort"
)

// neutralPercentile is reported when the population has a single member.
const neutralPercentile = 50

// SortByPolarity returns a copy of values ordered so index 0 is the best
// performer: ascending when lower is better, descending otherwise.
func SortByPolarity(values []float64, lowerIsBetter bool) []float64 {
	sorted := append([]float64(nil), values...)
	if lowerIsBetter {
		sort.Float64s(sorted)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	}
	return sorted
}

// firstNotBetter returns the first index of sorted that is no better than v,
// or -1 when every member beats v.
func firstNotBetter(sorted []float64, v float64, lowerIsBetter bool) int {
	for i, candidate := range sorted {
		if lowerIsBetter && candidate >= v {
			return i
		}
		if !lowerIsBetter && candidate <= v {
			return i
		}
	}
	return -1
}

// Percentile places v within a polarity-sorted population. Ties resolve to
// the best-ranked occurrence.
func Percentile(sorted []float64, v float64, lowerIsBetter bool) float64 {
	n := len(sorted)
	if n <= 1 {
		return neutralPercentile
	}
	idx := firstNotBetter(sorted, v, lowerIsBetter)
	if idx == -1 {
		idx = n - 1
	}
	return float64(n-idx-1) / float64(n-1) * 100
}

// RelativeRank is the 1-based position of v in a polarity-sorted population.
func RelativeRank(sorted []float64, v float64, lowerIsBetter bool) int {
	rank := firstNotBetter(sorted, v, lowerIsBetter) + 1
	if rank <= 0 {
		return 1
	}
	return rank
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation around mean; 0 when len <= 1.
func StdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// Quantile interpolates linearly at index (N-1)*q of sorted.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := float64(len(sorted)-1) * q
	low := int(math.Floor(index))
	high := int(math.Ceil(index))
	if low == high {
		return sorted[low]
	}
	return sorted[low] + (sorted[high]-sorted[low])*(index-float64(low))
}

// ZScore returns (v-mean)/sd, or 0 when sd is 0.
func ZScore(v, mean, sd float64) float64 {
	if sd == 0 {
		return 0
	}
	return (v - mean) / sd
}
