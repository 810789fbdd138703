package fuzzy

import (
	"math"

	"github.com/agenthands/musypher/internal/core/model"
)

// ToneDistance is the tolerant pitch distance in tones. When either pitch
// lacks a class the octaves alone decide; when either lacks an octave the
// classes are compared within a single octave.
func ToneDistance(p1, p2 model.Pitch) float64 {
	if !p1.HasClass() || !p2.HasClass() {
		if p1.HasOctave() && p2.HasOctave() {
			return math.Abs(float64(12*(*p1.Octave-*p2.Octave))) / 2
		}
		return 0
	}
	if !p1.HasOctave() || !p2.HasOctave() {
		i1, err1 := p1.ChromaticIndex()
		i2, err2 := p2.ChromaticIndex()
		if err1 != nil || err2 != nil {
			return 0
		}
		return math.Abs(float64(i1-i2)) / 2
	}
	semis, err := p1.Sub(p2)
	if err != nil {
		return 0
	}
	return math.Abs(float64(semis)) / 2
}

// PitchDegree grades a sounded pitch against the queried one: 1 at distance
// zero, linear down to 0 at the tolerance edge. Zero tolerance means the
// dimension is exact and contributes full degree.
func PitchDegree(query, actual model.Pitch, tolerance float64) float64 {
	if tolerance == 0 {
		return 1
	}
	return math.Max(0, 1-ToneDistance(query, actual)/tolerance)
}

// IntervalDegree grades a sounded melodic interval against the queried one,
// both in tones. Undefined intervals (rest boundaries) are not penalized.
func IntervalDegree(query, actual *float64, tolerance float64) float64 {
	if tolerance == 0 || query == nil || actual == nil {
		return 1
	}
	return math.Max(0, 1-math.Abs(*query-*actual)/tolerance)
}

// DurationDegree grades a sounded duration (or duration ratio) against the
// expected value under a multiplicative factor. Factors below 1 grade the
// same band as their reciprocal. The grade is 1 when the values agree and 0
// once their quotient reaches the factor.
func DurationDegree(expected, actual, factor float64) float64 {
	if factor == 1 || expected == 0 || actual == 0 {
		return 1
	}
	if factor < 1 {
		factor = 1 / factor
	}
	z := math.Max(expected/actual, actual/expected)
	a := -1 / (factor - 1)
	b := 1 - a
	return clamp01(a*z + b)
}

// SequencingDegree grades the silence between consecutive notes: 1 when they
// touch or overlap, 0 once the gap reaches the tolerance.
func SequencingDegree(end1, start2, maxGap float64) float64 {
	if maxGap == 0 {
		return 1
	}
	return clamp01(1 - (start2-end1)/maxGap)
}

// DurationRange is the value band around a duration (or duration ratio)
// where the triangular tolerance profile sits at or above alpha. The factor
// first shrinks with alpha, then the remaining distances shrink again, so
// the band collapses onto the peak as alpha approaches 1.
func DurationRange(duration, factor, alpha float64) (float64, float64) {
	if factor < 1 {
		factor = 1 / factor
	}
	if factor == 1 {
		return duration, duration
	}
	factor = (factor-1)*(1-alpha) + 1
	lowDistance := duration - duration/factor
	highDistance := duration*factor - duration
	return duration - lowDistance*(1-alpha), duration + highDistance*(1-alpha)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
