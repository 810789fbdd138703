package fuzzy

import (
	"math"
	"sort"
)

// Min is the conjunctive aggregate used for per-note degrees; an empty list
// means nothing constrained the note and yields 1.
func Min(degrees []float64) float64 {
	m := 1.0
	for _, d := range degrees {
		if d < m {
			m = d
		}
	}
	return m
}

// Average is the sequence-level aggregate; 1 for an empty list.
func Average(degrees []float64) float64 {
	if len(degrees) == 0 {
		return 1
	}
	sum := 0.0
	for _, d := range degrees {
		sum += d
	}
	return sum / float64(len(degrees))
}

// AlmostAll maps a proportion through the linguistic "almost all"
// quantifier: 0 up to one half, 1 from one, linear between.
func AlmostAll(x float64) float64 {
	switch {
	case x <= 0.5:
		return 0
	case x >= 1:
		return 1
	default:
		return (x - 0.5) / 0.5
	}
}

// AlmostAllAverage scores a degree list by the quantifier applied to its
// mean.
func AlmostAllAverage(degrees []float64) float64 {
	return AlmostAll(Average(degrees))
}

// AlmostAllYager is Yager's quantified aggregation: the supremum over the
// distinct degrees alpha of min(alpha, AlmostAll(share of degrees >= alpha)).
func AlmostAllYager(degrees []float64) float64 {
	if len(degrees) == 0 {
		return 1
	}
	distinct := make([]float64, 0, len(degrees))
	seen := make(map[float64]bool, len(degrees))
	for _, d := range degrees {
		if !seen[d] {
			seen[d] = true
			distinct = append(distinct, d)
		}
	}
	sort.Float64s(distinct)

	best := 0.0
	for _, alpha := range distinct {
		n := 0
		for _, d := range degrees {
			if d >= alpha {
				n++
			}
		}
		v := math.Min(alpha, AlmostAll(float64(n)/float64(len(degrees))))
		if v > best {
			best = v
		}
	}
	return best
}
