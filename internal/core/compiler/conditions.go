package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/agenthands/musypher/internal/core/fuzzy"
	"github.com/agenthands/musypher/internal/core/model"
)

// where assembles the condition segment. Passthrough conditions, event
// literals and the collection filter come first on one line; the generated
// tolerance conditions follow one per line.
func (b *builder) where() (string, error) {
	q := b.q
	p := q.Params

	pre := append([]string{}, q.Where...)
	pre = append(pre, eventLiteralConditions(q)...)
	if len(q.Collections) > 0 {
		pre = append(pre, collectionCondition(b.collectionNode, q.Collections))
	}

	var gen []string
	if p.PitchDistance > 0 || p.AllowTransposition {
		gen = append(gen, chordConditions(q)...)
	}
	if !p.AllowTransposition {
		for i := range q.Facts {
			c, err := pitchCondition(&q.Facts[i], p.PitchDistance, p.Alpha)
			if err != nil {
				return "", err
			}
			if c != "" {
				gen = append(gen, c)
			}
		}
	}

	var intervals []model.Interval
	if p.AllowTransposition {
		intervals = q.IntervalTargets()
	}
	var ratios []*float64
	if p.AllowHomothety {
		ratios = q.RatioTargets()
	}

	last := len(q.Events) - 1
	for i := range q.Events {
		if p.AllowTransposition && i < last {
			if c := b.intervalCondition(intervals[i], i); c != "" {
				gen = append(gen, c)
			}
		}
		if p.AllowHomothety {
			if i < last {
				if c := b.ratioCondition(ratios[i], i); c != "" {
					gen = append(gen, c)
				}
			}
		} else {
			factor := p.DurationFactor
			if q.EventFixed(i) {
				factor = 1
			}
			if c := durationCondition(&q.Events[i], factor, p.Alpha); c != "" {
				gen = append(gen, c)
			}
		}
		if p.DurationGap > 0 && i < last {
			gen = append(gen, sequencingCondition(p.DurationGap, q.Events[i].Name, q.Events[i+1].Name, p.Alpha))
		}
	}

	sup, err := supportConditions(q)
	if err != nil {
		return "", err
	}
	gen = append(gen, sup...)

	if len(pre) == 0 && len(gen) == 0 {
		return "", nil
	}
	out := "\nWHERE\n"
	if len(pre) > 0 {
		out += strings.Join(pre, " AND ")
		if len(gen) > 0 {
			out += " AND\n"
		}
	}
	return out + strings.Join(gen, " AND\n"), nil
}

func eventLiteralConditions(q *model.ParsedQuery) []string {
	var conds []string
	for i := range q.Events {
		ev := &q.Events[i]
		if v, ok := ev.Start.Get(); ok {
			conds = append(conds, fmt.Sprintf("%s.start = %s", ev.Name, formatFloat(v)))
		}
		if v, ok := ev.End.Get(); ok {
			conds = append(conds, fmt.Sprintf("%s.end = %s", ev.Name, formatFloat(v)))
		}
		if v, ok := ev.ID.Get(); ok {
			conds = append(conds, fmt.Sprintf("%s.id = '%s'", ev.Name, v))
		}
	}
	return conds
}

func collectionCondition(node string, collections []string) string {
	parts := make([]string, len(collections))
	for i, c := range collections {
		parts[i] = fmt.Sprintf("%s.collection CONTAINS '%s'", node, c)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// pitchCondition constrains one fact. Exact searches (distance zero or a
// fixed position) pin the sharp-folded class, the accidental flags and the
// octave; tolerant searches pin a frequency band instead.
func pitchCondition(f *model.Fact, pitchDistance, alpha float64) (string, error) {
	p := f.Pitch()
	if !p.HasClass() {
		if o, ok := f.Octave.Get(); ok {
			return fmt.Sprintf("%s.octave = %d", f.Name, o), nil
		}
		return "", nil
	}
	if p.IsRest() {
		return fmt.Sprintf("%s.type = 'rest'", f.Name), nil
	}

	if pitchDistance == 0 || f.Fixed {
		name := ""
		var octave *int
		if p.HasOctave() {
			np, err := p.Transpose(0)
			if err != nil {
				return "", err
			}
			name = np.Class + np.Accid
			octave = np.Octave
		} else {
			n, err := p.SharpName()
			if err != nil {
				return "", err
			}
			name = n
		}
		cond := fmt.Sprintf("%s.class = '%s'", f.Name, name[:1])
		switch {
		case f.Accid.IsWildcard():
			// explicitly don't-care: no accidental constraint
		case strings.HasSuffix(name, "#"):
			// the store spells sharps with 's', on accid or accid_ges
			cond += fmt.Sprintf(" AND (%s.accid = 's' OR %s.accid_ges = 's')", f.Name, f.Name)
		default:
			cond += fmt.Sprintf(" AND ((NOT EXISTS(%s.accid) AND NOT EXISTS(%s.accid_ges)) OR %s.accid = 'n')", f.Name, f.Name, f.Name)
		}
		if octave != nil {
			cond += fmt.Sprintf(" AND %s.octave = %d", f.Name, *octave)
		}
		return cond, nil
	}

	if !p.HasOctave() {
		return "", &model.ValidationError{
			Field: "pitch",
			Msg:   fmt.Sprintf("tolerant matching on %s needs an octave", f.Name),
		}
	}
	low, high, err := p.FrequencyBounds(pitchDistance, alpha)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d <= %s.frequency AND %s.frequency <= %d", low, f.Name, f.Name, high), nil
}

func durationCondition(ev *model.Event, factor, alpha float64) string {
	dur, ok := ev.Dur.Get()
	if !ok || dur == 0 {
		return ""
	}
	d := model.Duration{Value: dur}
	if dots, ok := ev.Dots.Get(); ok {
		d.Dots = dots
	}
	duration := d.Fraction()
	if factor != 1 {
		min, max := fuzzy.DurationRange(duration, factor, alpha)
		return fmt.Sprintf("%s.duration >= %s AND %s.duration <= %s",
			ev.Name, formatFloat(min), ev.Name, formatFloat(max))
	}
	return fmt.Sprintf("%s.duration = %s", ev.Name, formatFloat(duration))
}

func (b *builder) ratioCondition(ratio *float64, idx int) string {
	if ratio == nil {
		return ""
	}
	p := b.q.Params
	factor := p.DurationFactor
	if factor < 1 {
		factor = 1 / factor
	}
	ea := b.q.Events[idx].Name
	eb := b.q.Events[idx+1].Name
	if p.DurationGap > 0 {
		if factor > 1 {
			min, max := fuzzy.DurationRange(*ratio, factor, p.Alpha)
			return fmt.Sprintf(
				"EXISTS(%s.duration) AND EXISTS(%s.duration) AND %s <= %s.duration / %s.duration AND %s.duration / %s.duration <= %s",
				ea, eb, formatFloat(min), eb, ea, eb, ea, formatFloat(max))
		}
		return fmt.Sprintf("EXISTS(%s.duration) AND EXISTS(%s.duration) AND %s.duration / %s.duration = %s",
			ea, eb, eb, ea, formatFloat(*ratio))
	}
	rel := b.relName(idx)
	if factor > 1 {
		min, max := fuzzy.DurationRange(*ratio, factor, p.Alpha)
		return fmt.Sprintf("%s <= %s.duration_ratio AND %s.duration_ratio <= %s",
			formatFloat(min), rel, rel, formatFloat(max))
	}
	return fmt.Sprintf("%s.duration_ratio = %s", rel, formatFloat(*ratio))
}

func (b *builder) intervalCondition(iv model.Interval, idx int) string {
	p := b.q.Params
	if iv.Rest {
		if p.DurationGap > 0 {
			return fmt.Sprintf("(NOT EXISTS(%s.halfTonesFromA4) OR NOT EXISTS(%s.halfTonesFromA4))",
				b.factName(idx), b.factName(idx+1))
		}
		return fmt.Sprintf("NOT EXISTS(%s.interval)", b.relName(idx))
	}
	if !iv.Known {
		return ""
	}
	low := iv.Tones - p.PitchDistance*(1-p.Alpha)
	high := iv.Tones + p.PitchDistance*(1-p.Alpha)
	if p.DurationGap > 0 {
		fa, fb := b.factName(idx), b.factName(idx+1)
		expr := fmt.Sprintf("toFloat(%s.halfTonesFromA4 - %s.halfTonesFromA4)/2", fb, fa)
		if p.PitchDistance > 0 {
			return fmt.Sprintf("EXISTS(%s.halfTonesFromA4) AND EXISTS(%s.halfTonesFromA4) AND %s <= %s AND %s <= %s",
				fb, fa, formatFloat(low), expr, expr, formatFloat(high))
		}
		return fmt.Sprintf("EXISTS(%s.halfTonesFromA4) AND EXISTS(%s.halfTonesFromA4) AND %s = %s",
			fb, fa, expr, formatFloat(iv.Tones))
	}
	rel := b.relName(idx)
	if p.PitchDistance > 0 {
		return fmt.Sprintf("%s <= %s.interval AND %s.interval <= %s",
			formatFloat(low), rel, rel, formatFloat(high))
	}
	return fmt.Sprintf("%s.interval = %s", rel, formatFloat(iv.Tones))
}

func sequencingCondition(gap float64, name1, name2 string, alpha float64) string {
	return fmt.Sprintf("%s.end >= %s.start - %s", name1, name2, formatFloat(gap*(1-alpha)))
}

// chordConditions pins each extra chord pitch to its interval from the
// chord's first pitch, so tolerant or transposed matches keep their shape.
func chordConditions(q *model.ParsedQuery) []string {
	var conds []string
	for i := range q.Events {
		facts := q.Events[i].Facts
		if len(facts) < 2 {
			continue
		}
		first := &q.Facts[facts[0]]
		fp := first.Pitch()
		for _, j := range facts[1:] {
			extra := &q.Facts[j]
			ep := extra.Pitch()
			if fp.IsRest() || ep.IsRest() ||
				!fp.HasClass() || !fp.HasOctave() || !ep.HasClass() || !ep.HasOctave() {
				continue
			}
			s1, err1 := fp.BaseStone()
			s2, err2 := ep.BaseStone()
			if err1 != nil || err2 != nil {
				continue
			}
			conds = append(conds, fmt.Sprintf("toFloat(%s.halfTonesFromA4 - %s.halfTonesFromA4)/2 = %s",
				extra.Name, first.Name, formatFloat(s2-s1)))
		}
	}
	return conds
}

// supportConditions prunes on each bound attribute staying inside the
// membership function's support; the degrees themselves are computed after
// retrieval.
func supportConditions(q *model.ParsedQuery) ([]string, error) {
	var conds []string
	for _, bnd := range q.Bindings {
		def, ok := q.Membership(bnd.Function)
		if !ok {
			return nil, &model.ParseError{Fragment: bnd.Function, Msg: "undefined membership function"}
		}
		m, err := fuzzy.Compile(def)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(m.SupportLow, -1) {
			conds = append(conds, fmt.Sprintf("%s.%s > %s", bnd.Node, bnd.Attr, formatFloat(m.SupportLow)))
		}
		if !math.IsInf(m.SupportHigh, 1) {
			conds = append(conds, fmt.Sprintf("%s.%s < %s", bnd.Node, bnd.Attr, formatFloat(m.SupportHigh)))
		}
	}
	return conds, nil
}
