package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/musypher/internal/core/fuzzy"
	"github.com/agenthands/musypher/internal/core/model"
)

// position is one reconstructed chain position: the sounded note plus the
// interval and duration ratio leading into it (set from the second position
// on, under the matching structural mode).
type position struct {
	note     model.Note
	interval *float64
	ratio    *float64
}

// Rank scores raw result rows against the query they were compiled from.
// Each row is reconstructed through the projection aliases, scored per
// position, cut at alpha on the sequence degree, and the survivors are
// sorted by degree descending, stable on retrieval order.
func Rank(records []*neo4j.Record, q *model.ParsedQuery) ([]model.MatchRecord, error) {
	if len(q.Events) == 0 {
		return nil, nil
	}
	funcs, err := fuzzy.CompileAll(q.Memberships)
	if err != nil {
		return nil, err
	}
	bounds, err := resolveBindings(q, funcs)
	if err != nil {
		return nil, err
	}

	var intervals []model.Interval
	if q.Params.AllowTransposition {
		intervals = q.IntervalTargets()
	}
	var ratios []*float64
	if q.Params.AllowHomothety {
		ratios = q.RatioTargets()
	}

	var out []model.MatchRecord
	for _, rec := range records {
		seq := reconstruct(rec, q)
		match, keep := score(rec, seq, q, intervals, ratios, bounds)
		if keep {
			out = append(out, match)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OverallDegree > out[j].OverallDegree
	})
	return out, nil
}

func reconstruct(rec *neo4j.Record, q *model.ParsedQuery) []position {
	n := len(q.Events)
	seq := make([]position, n)
	for i := 0; i < n; i++ {
		var note model.Note
		if len(q.Events[i].Facts) > 0 {
			note.Pitch = rowPitch(rec, q.Events[i].Facts[0])
		}
		note.Duration = rowFloat(rec, fmt.Sprintf("duration_%d", i))
		note.Dots = rowInt(rec, fmt.Sprintf("dots_%d", i))
		note.Dur = model.DurFromFraction(note.Duration, note.Dots)
		note.Start = rowFloat(rec, fmt.Sprintf("start_%d", i))
		note.End = rowFloat(rec, fmt.Sprintf("end_%d", i))
		note.ID = rowString(rec, fmt.Sprintf("id_%d", i))
		seq[i].note = note
		if i > 0 {
			if q.Params.AllowTransposition {
				seq[i].interval = rowFloatPtr(rec, fmt.Sprintf("interval_%d", i-1))
			}
			if q.Params.AllowHomothety {
				seq[i].ratio = rowFloatPtr(rec, fmt.Sprintf("duration_ratio_%d", i-1))
			}
		}
	}
	return seq
}

func score(rec *neo4j.Record, seq []position, q *model.ParsedQuery,
	intervals []model.Interval, ratios []*float64, bounds []boundAttr) (model.MatchRecord, bool) {

	p := q.Params
	n := len(seq)
	noteDegs := make([][]float64, n)
	intervalDegs := make([][]float64, n)
	traces := make([][]string, n)
	details := make([]model.NoteDetail, n)

	for idx := 0; idx < n; idx++ {
		pitchDeg, durationDeg, seqDeg := 1.0, 1.0, 1.0
		qf := q.FirstFact(idx)

		if p.PitchDistance > 0 {
			if p.AllowTransposition {
				if idx > 0 {
					pitchDeg = fuzzy.IntervalDegree(intervalTarget(intervals, idx-1), seq[idx].interval, p.PitchDistance)
					intervalDegs[idx-1] = append(intervalDegs[idx-1], pitchDeg)
				}
			} else if qf != nil && !qf.Fixed {
				qp := qf.Pitch()
				if qp.HasClass() && qp.HasOctave() {
					pitchDeg = fuzzy.PitchDegree(qp, seq[idx].note.Pitch, p.PitchDistance)
					noteDegs[idx] = append(noteDegs[idx], pitchDeg)
				}
			}
		}

		if p.DurationFactor != 1 {
			if p.AllowHomothety {
				if idx > 0 && ratios[idx-1] != nil {
					durationDeg = ratioDegree(*ratios[idx-1], seq[idx].ratio, p.DurationFactor)
					noteDegs[idx] = append(noteDegs[idx], durationDeg)
				}
			} else if expected := eventFraction(q, idx); expected > 0 && !q.EventFixed(idx) {
				durationDeg = fuzzy.DurationDegree(expected, seq[idx].note.Duration, p.DurationFactor)
				noteDegs[idx] = append(noteDegs[idx], durationDeg)
			}
		}

		if p.DurationGap > 0 && idx > 0 {
			seqDeg = fuzzy.SequencingDegree(seq[idx-1].note.End, seq[idx].note.Start, p.DurationGap)
			noteDegs[idx] = append(noteDegs[idx], seqDeg)
		}

		details[idx] = model.NoteDetail{
			Note:          seq[idx].note,
			PitchDeg:      pitchDeg,
			DurationDeg:   durationDeg,
			SequencingDeg: seqDeg,
		}
	}

	for _, b := range bounds {
		v := rowFloatPtr(rec, b.alias)
		if v == nil {
			continue
		}
		deg := b.fn.Degree(*v)
		trace := fmt.Sprintf("%s-> %s", b.fn.Name, formatDegree(deg))
		if b.hop {
			intervalDegs[b.idx] = append(intervalDegs[b.idx], deg)
			traces[b.idx+1] = append(traces[b.idx+1], trace)
		} else {
			noteDegs[b.idx] = append(noteDegs[b.idx], deg)
			traces[b.idx] = append(traces[b.idx], trace)
		}
	}

	// Interval degrees weigh on the position the hop lands on
	for idx := 1; idx < n; idx++ {
		noteDegs[idx] = append(noteDegs[idx], intervalDegs[idx-1]...)
	}

	aggregated := make([]float64, n)
	for idx := range noteDegs {
		aggregated[idx] = fuzzy.Min(noteDegs[idx])
		details[idx].NoteDeg = aggregated[idx]
		details[idx].MembershipDegrees = strings.Join(traces[idx], "| ")
	}
	overall := fuzzy.Average(aggregated)
	if overall < p.Alpha {
		return model.MatchRecord{}, false
	}

	return model.MatchRecord{
		Source:        rowString(rec, "source"),
		Start:         rowFloat(rec, "start"),
		End:           rowFloat(rec, "end"),
		OverallDegree: overall,
		Notes:         details,
	}, true
}

// boundAttr is one membership binding resolved onto the chain: a projection
// alias, its compiled fuzzy set, and the position (or hop) it grades.
type boundAttr struct {
	alias string
	fn    fuzzy.Membership
	hop   bool
	idx   int
}

func resolveBindings(q *model.ParsedQuery, funcs map[string]fuzzy.Membership) ([]boundAttr, error) {
	var out []boundAttr
	for _, bnd := range q.Bindings {
		m, ok := funcs[bnd.Function]
		if !ok {
			return nil, &model.ParseError{Fragment: bnd.Function, Msg: "undefined membership function"}
		}
		b := boundAttr{
			alias: fmt.Sprintf("%s_%s_%s", bnd.Attr, bnd.Node, bnd.Function),
			fn:    m,
		}
		if i, ok := eventIndex(q, bnd.Node); ok {
			b.idx = i
		} else if j, ok := factIndex(q, bnd.Node); ok {
			b.idx = q.Facts[j].Event
		} else if i, ok := relIndex(q, bnd.Node); ok {
			b.hop = true
			b.idx = i
		} else {
			return nil, &model.ValidationError{
				Field: "membership",
				Msg:   fmt.Sprintf("binding target %s is not part of the pattern chain", bnd.Node),
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func eventIndex(q *model.ParsedQuery, name string) (int, bool) {
	for i := range q.Events {
		if q.Events[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

func factIndex(q *model.ParsedQuery, name string) (int, bool) {
	for j := range q.Facts {
		if q.Facts[j].Name == name {
			return j, true
		}
	}
	return 0, false
}

func relIndex(q *model.ParsedQuery, name string) (int, bool) {
	for i, rel := range q.RelNames {
		if rel != "" && rel == name {
			return i, true
		}
	}
	return 0, false
}

func intervalTarget(intervals []model.Interval, i int) *float64 {
	if i < 0 || i >= len(intervals) {
		return nil
	}
	iv := intervals[i]
	if iv.Rest || !iv.Known {
		return nil
	}
	return &iv.Tones
}

func ratioDegree(expected float64, actual *float64, factor float64) float64 {
	if actual == nil {
		return 1
	}
	return fuzzy.DurationDegree(expected, *actual, factor)
}

func eventFraction(q *model.ParsedQuery, i int) float64 {
	d, ok := q.Events[i].Dur.Get()
	if !ok || d == 0 {
		return 0
	}
	dur := model.Duration{Value: d}
	if dots, ok := q.Events[i].Dots.Get(); ok {
		dur.Dots = dots
	}
	return dur.Fraction()
}

// Unify groups scored matches by source, preserving first-seen order from
// the degree-sorted stream.
func Unify(records []model.MatchRecord) []model.UnifiedResult {
	var out []model.UnifiedResult
	index := make(map[string]int)
	for _, rec := range records {
		i, ok := index[rec.Source]
		if !ok {
			i = len(out)
			index[rec.Source] = i
			out = append(out, model.UnifiedResult{Source: rec.Source})
		}
		u := &out[i]
		u.NumberOfOccurrences++
		if rec.OverallDegree > u.MaxMatchDegree {
			u.MaxMatchDegree = rec.OverallDegree
		}
		notes := make([]model.NoteDegrees, len(rec.Notes))
		for k, nd := range rec.Notes {
			notes[k] = model.NoteDegrees{
				NoteDeg:       nd.NoteDeg,
				PitchDeg:      nd.PitchDeg,
				DurationDeg:   nd.DurationDeg,
				SequencingDeg: nd.SequencingDeg,
				ID:            nd.Note.ID,
			}
		}
		u.Matches = append(u.Matches, model.MatchSummary{
			OverallDegree: rec.OverallDegree,
			Notes:         notes,
		})
	}
	return out
}
