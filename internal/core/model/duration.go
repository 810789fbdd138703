package model

import "math"

// Duration is a canonical notated duration: the power-of-two denominator
// (1 whole, 2 half, 4 quarter, ... 32) plus augmentation dots.
type Duration struct {
	Value int `json:"value"`
	Dots  int `json:"dots"`
}

// Fraction converts to the whole-note fraction stored in the graph. Each dot
// adds half of the previous increment: dotted quarter = 1/4 + 1/8.
func (d Duration) Fraction() float64 {
	if d.Value <= 0 {
		return 0
	}
	base := 1.0 / float64(d.Value)
	f := base
	for i := 1; i <= d.Dots; i++ {
		f += base / math.Pow(2, float64(i))
	}
	return f
}

// DurFromFraction recovers the canonical denominator from a stored
// whole-note fraction, undoing the dot expansion when dots are set.
func DurFromFraction(fraction float64, dots int) int {
	if fraction <= 0 {
		return 0
	}
	unit := Duration{Value: 1, Dots: dots}.Fraction()
	return int(math.Round(unit / fraction))
}

// Chord is one query position: one or more simultaneous pitches sharing a
// duration. A single note is a chord of one.
type Chord struct {
	Pitches  []Pitch  `json:"pitches"`
	Duration Duration `json:"duration"`
	Start    *float64 `json:"start,omitempty"`
	End      *float64 `json:"end,omitempty"`
	ID       string   `json:"id,omitempty"`
}

// Note is a sounded note reconstructed from a result row. Duration is the
// stored whole-note fraction; Dur the canonical denominator recovered from
// it.
type Note struct {
	Pitch    Pitch   `json:"pitch"`
	Dur      int     `json:"dur"`
	Dots     int     `json:"dots,omitempty"`
	Duration float64 `json:"duration"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	ID       string  `json:"id,omitempty"`
}
