package model

// Interval is the melodic interval target between two consecutive events,
// in tones. A hop bordering a rest is marked Rest; a hop touching an
// underspecified pitch is neither Rest nor Known and carries no constraint.
type Interval struct {
	Rest  bool
	Known bool
	Tones float64
}

const (
	pitchSounding = iota
	pitchRest
	pitchUnknown
)

// IntervalTargets derives the per-hop interval targets from the first fact
// of each event. Chord positions contribute their first pitch; the extra
// chord pitches are constrained separately.
func (q *ParsedQuery) IntervalTargets() []Interval {
	n := len(q.Events)
	if n < 2 {
		return nil
	}
	stones := make([]float64, n)
	kind := make([]int, n)
	for i := 0; i < n; i++ {
		f := q.FirstFact(i)
		if f == nil {
			kind[i] = pitchUnknown
			continue
		}
		p := f.Pitch()
		switch {
		case p.IsRest():
			kind[i] = pitchRest
		case !p.HasClass() || !p.HasOctave():
			kind[i] = pitchUnknown
		default:
			s, err := p.BaseStone()
			if err != nil {
				kind[i] = pitchUnknown
				continue
			}
			stones[i] = s
		}
	}
	out := make([]Interval, n-1)
	for i := 0; i < n-1; i++ {
		switch {
		case kind[i] == pitchRest || kind[i+1] == pitchRest:
			out[i] = Interval{Rest: true}
		case kind[i] == pitchUnknown || kind[i+1] == pitchUnknown:
			out[i] = Interval{}
		default:
			out[i] = Interval{Known: true, Tones: stones[i+1] - stones[i]}
		}
	}
	return out
}

// RatioTargets derives per-hop duration ratios from the event durations,
// dots included. A nil entry carries no constraint.
func (q *ParsedQuery) RatioTargets() []*float64 {
	n := len(q.Events)
	if n < 2 {
		return nil
	}
	durs := make([]*float64, n)
	for i := range q.Events {
		d, ok := q.Events[i].Dur.Get()
		if !ok || d == 0 {
			continue
		}
		dur := Duration{Value: d}
		if dots, ok := q.Events[i].Dots.Get(); ok {
			dur.Dots = dots
		}
		v := dur.Fraction()
		durs[i] = &v
	}
	out := make([]*float64, n-1)
	for i := 0; i < n-1; i++ {
		if durs[i] == nil || durs[i+1] == nil || *durs[i] == 0 {
			continue
		}
		r := *durs[i+1] / *durs[i]
		out[i] = &r
	}
	return out
}
