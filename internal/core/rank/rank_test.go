package rank

import (
	"fmt"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/musypher/internal/core/model"
)

func row(kv map[string]interface{}) *neo4j.Record {
	keys := make([]string, 0, len(kv))
	values := make([]interface{}, 0, len(kv))
	for k, v := range kv {
		keys = append(keys, k)
		values = append(values, v)
	}
	return &neo4j.Record{Keys: keys, Values: values}
}

func chainQuery(params model.FuzzyParams, pitches []string, durs []int) *model.ParsedQuery {
	q := &model.ParsedQuery{Params: params}
	for i, s := range pitches {
		ev := model.Event{Name: fmt.Sprintf("e%d", i), Facts: []int{i}}
		if durs != nil && durs[i] != 0 {
			ev.Dur = model.Known(durs[i])
		}
		f := model.Fact{Name: fmt.Sprintf("f%d", i), Event: i}
		if s != "" {
			p, err := model.ParsePitch(s)
			if err != nil {
				panic(err)
			}
			f.Class = model.Known(p.Class)
			if p.Accid != "" {
				f.Accid = model.Known(p.Accid)
			}
			if p.Octave != nil {
				f.Octave = model.Known(*p.Octave)
			}
		}
		q.Events = append(q.Events, ev)
		q.Facts = append(q.Facts, f)
	}
	q.RelNames = make([]string, len(pitches)-1)
	return q
}

func exact() model.FuzzyParams {
	return model.FuzzyParams{DurationFactor: 1}
}

func TestRankReconstructsNotes(t *testing.T) {
	q := chainQuery(exact(), []string{"c/5", "d/5"}, []int{4, 8})
	rec := row(map[string]interface{}{
		"pitch_0": "c", "octave_0": int64(5), "accid_0": nil, "accid_ges_0": nil,
		"pitch_1": "d", "octave_1": int64(5),
		"duration_0": 0.25, "dots_0": int64(0), "start_0": 16.0, "end_0": 16.25, "id_0": "n1",
		"duration_1": 0.125, "dots_1": nil, "start_1": 16.25, "end_1": 16.375, "id_1": "n2",
		"source": "air.mei", "start": 16.0, "end": 16.375,
	})

	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "air.mei", m.Source)
	assert.Equal(t, 16.0, m.Start)
	assert.Equal(t, 16.375, m.End)
	assert.Equal(t, 1.0, m.OverallDegree)

	require.Len(t, m.Notes, 2)
	n0 := m.Notes[0].Note
	assert.Equal(t, "c/5", n0.Pitch.String())
	assert.Equal(t, 4, n0.Dur)
	assert.Equal(t, 0.25, n0.Duration)
	assert.Equal(t, "n1", n0.ID)
	assert.Equal(t, 8, m.Notes[1].Note.Dur)

	// Exact search: every dimension reports full degree
	assert.Equal(t, 1.0, m.Notes[0].PitchDeg)
	assert.Equal(t, 1.0, m.Notes[0].DurationDeg)
	assert.Equal(t, 1.0, m.Notes[0].SequencingDeg)
	assert.Equal(t, 1.0, m.Notes[0].NoteDeg)
}

func TestRankDottedReconstruction(t *testing.T) {
	q := chainQuery(exact(), []string{"c/5"}, []int{4})
	rec := row(map[string]interface{}{
		"pitch_0": "c", "octave_0": int64(5),
		"duration_0": 0.375, "dots_0": int64(1), "source": "s",
	})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 4, matches[0].Notes[0].Note.Dur)
	assert.Equal(t, 1, matches[0].Notes[0].Note.Dots)
}

func TestRankPitchScoringAndCut(t *testing.T) {
	params := exact()
	params.PitchDistance = 2.0
	params.Alpha = 0.4
	q := chainQuery(params, []string{"c/4"}, nil)

	rows := []*neo4j.Record{
		row(map[string]interface{}{"pitch_0": "d", "octave_0": int64(4), "source": "a"}),
		row(map[string]interface{}{"pitch_0": "c", "octave_0": int64(4), "source": "b"}),
		// f# sits three tones out, degree zero, cut away
		row(map[string]interface{}{"pitch_0": "f", "accid_0": "s", "octave_0": int64(4), "source": "c"}),
	}
	matches, err := Rank(rows, q)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "b", matches[0].Source)
	assert.Equal(t, 1.0, matches[0].OverallDegree)
	assert.Equal(t, "a", matches[1].Source)
	assert.InDelta(t, 0.5, matches[1].OverallDegree, 1e-9)
	assert.InDelta(t, 0.5, matches[1].Notes[0].PitchDeg, 1e-9)
}

func TestRankStableOnTies(t *testing.T) {
	params := exact()
	params.PitchDistance = 2.0
	q := chainQuery(params, []string{"c/4"}, nil)
	rows := []*neo4j.Record{
		row(map[string]interface{}{"pitch_0": "d", "octave_0": int64(4), "source": "first"}),
		row(map[string]interface{}{"pitch_0": "d", "octave_0": int64(4), "source": "second"}),
	}
	matches, err := Rank(rows, q)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Source)
	assert.Equal(t, "second", matches[1].Source)
}

func TestRankTranspositionScoring(t *testing.T) {
	params := exact()
	params.PitchDistance = 2.0
	params.AllowTransposition = true
	q := chainQuery(params, []string{"c/4", "d/4"}, nil)

	// Queried interval is one tone up; the sounded one is two
	rec := row(map[string]interface{}{"interval_0": 2.0, "source": "s"})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.InDelta(t, 0.5, m.Notes[1].PitchDeg, 1e-9)
	assert.InDelta(t, 0.5, m.Notes[1].NoteDeg, 1e-9)
	assert.Equal(t, 1.0, m.Notes[0].NoteDeg)
	assert.InDelta(t, 0.75, m.OverallDegree, 1e-9)

	// A hop the store could not value is not penalized
	rec = row(map[string]interface{}{"source": "s2"})
	matches, err = Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].OverallDegree)
}

func TestRankHomothetyScoring(t *testing.T) {
	params := exact()
	params.DurationFactor = 3.0
	params.AllowHomothety = true
	q := chainQuery(params, []string{"c/4", "d/4"}, []int{4, 8})

	// Queried ratio 0.5, sounded 1.0: quotient 2 under factor 3
	rec := row(map[string]interface{}{"duration_ratio_0": 1.0, "source": "s"})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.InDelta(t, 0.5, m.Notes[1].DurationDeg, 1e-9)
	assert.Equal(t, 1.0, m.Notes[0].DurationDeg)
	assert.InDelta(t, 0.75, m.OverallDegree, 1e-9)
}

func TestRankSequencingScoring(t *testing.T) {
	params := exact()
	params.DurationGap = 0.25
	q := chainQuery(params, []string{"c/4", "d/4"}, nil)

	rec := row(map[string]interface{}{
		"end_0": 1.0, "start_1": 1.125, "source": "s",
	})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.InDelta(t, 0.5, m.Notes[1].SequencingDeg, 1e-9)
	assert.InDelta(t, 0.75, m.OverallDegree, 1e-9)
}

func TestRankAbsoluteDurationScoring(t *testing.T) {
	params := exact()
	params.DurationFactor = 3.0
	q := chainQuery(params, []string{"c/4"}, []int{4})

	// Expected quarter, sounded half: quotient 2 under factor 3
	rec := row(map[string]interface{}{"duration_0": 0.5, "source": "s"})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.5, matches[0].Notes[0].DurationDeg, 1e-9)
}

func TestRankMembershipDegrees(t *testing.T) {
	params := exact()
	q := chainQuery(params, []string{"c/4", "d/4"}, nil)
	q.RelNames[0] = "n0"
	q.Memberships = []model.MembershipDef{
		{Name: "late", Shape: model.ShapeAscending, Points: []float64{4, 8}},
		{Name: "narrow", Shape: model.ShapeTrapezoid, Points: []float64{-1, 0, 0, 1}},
	}
	q.Bindings = []model.MembershipBinding{
		{Node: "e0", Attr: "start", Function: "late"},
		{Node: "n0", Attr: "interval", Function: "narrow"},
	}

	rec := row(map[string]interface{}{
		"start_e0_late":      6.0,
		"interval_n0_narrow": 0.5,
		"source":             "s",
	})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "late-> 0.5", m.Notes[0].MembershipDegrees)
	assert.InDelta(t, 0.5, m.Notes[0].NoteDeg, 1e-9)
	// Relation bindings grade the position the hop lands on
	assert.Equal(t, "narrow-> 0.5", m.Notes[1].MembershipDegrees)
	assert.InDelta(t, 0.5, m.Notes[1].NoteDeg, 1e-9)
	assert.InDelta(t, 0.5, m.OverallDegree, 1e-9)
}

func TestRankChordReadsFirstFact(t *testing.T) {
	params := exact()
	params.PitchDistance = 2.0
	q := &model.ParsedQuery{Params: params}
	q.Events = []model.Event{
		{Name: "e0", Facts: []int{0, 1}},
		{Name: "e1", Facts: []int{2}},
	}
	q.Facts = []model.Fact{
		{Name: "f0", Class: model.Known("c"), Octave: model.Known(5), Event: 0},
		{Name: "f1", Class: model.Known("e"), Octave: model.Known(5), Event: 0},
		{Name: "f2", Class: model.Known("g"), Octave: model.Known(5), Event: 1},
	}
	q.RelNames = []string{""}

	// The second position's pitch lives under the fact index, not the event index
	rec := row(map[string]interface{}{
		"pitch_0": "c", "octave_0": int64(5),
		"pitch_1": "e", "octave_1": int64(5),
		"pitch_2": "a", "octave_2": int64(5),
		"source": "s",
	})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "a/5", m.Notes[1].Note.Pitch.String())
	assert.InDelta(t, 0.5, m.Notes[1].PitchDeg, 1e-9)
	assert.Equal(t, 1.0, m.Notes[0].PitchDeg)
}

func TestRankFixedPositionKeepsFullDegree(t *testing.T) {
	params := exact()
	params.PitchDistance = 2.0
	params.DurationFactor = 2.0
	q := chainQuery(params, []string{"c/4"}, []int{4})
	q.Facts[0].Fixed = true

	rec := row(map[string]interface{}{
		"pitch_0": "d", "octave_0": int64(4), "duration_0": 0.5, "source": "s",
	})
	matches, err := Rank([]*neo4j.Record{rec}, q)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].OverallDegree)
	assert.Equal(t, 1.0, matches[0].Notes[0].PitchDeg)
	assert.Equal(t, 1.0, matches[0].Notes[0].DurationDeg)
}

func TestRankBindingOutsideChain(t *testing.T) {
	q := chainQuery(exact(), []string{"c/4"}, nil)
	q.Memberships = []model.MembershipDef{{Name: "f", Shape: model.ShapeAscending, Points: []float64{0, 1}}}
	q.Bindings = []model.MembershipBinding{{Node: "tp", Attr: "year", Function: "f"}}

	_, err := Rank(nil, q)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "membership", ve.Field)
}

func TestUnify(t *testing.T) {
	records := []model.MatchRecord{
		{Source: "a", OverallDegree: 0.9, Notes: []model.NoteDetail{{NoteDeg: 0.9, PitchDeg: 0.9, Note: model.Note{ID: "x1"}}}},
		{Source: "b", OverallDegree: 0.8},
		{Source: "a", OverallDegree: 0.7},
	}
	unified := Unify(records)
	require.Len(t, unified, 2)

	a := unified[0]
	assert.Equal(t, "a", a.Source)
	assert.Equal(t, 2, a.NumberOfOccurrences)
	assert.Equal(t, 0.9, a.MaxMatchDegree)
	require.Len(t, a.Matches, 2)
	assert.Equal(t, 0.9, a.Matches[0].OverallDegree)
	assert.Equal(t, 0.7, a.Matches[1].OverallDegree)
	assert.Equal(t, "x1", a.Matches[0].Notes[0].ID)

	b := unified[1]
	assert.Equal(t, "b", b.Source)
	assert.Equal(t, 1, b.NumberOfOccurrences)
	assert.Equal(t, 0.8, b.MaxMatchDegree)
}

func TestRenderText(t *testing.T) {
	oct := 5
	rec := model.MatchRecord{
		Source: "air.mei", Start: 16, End: 16.375, OverallDegree: 0.75,
		Notes: []model.NoteDetail{{
			Note: model.Note{
				Pitch: model.Pitch{Class: "c", Octave: &oct},
				Dur:   4, Start: 16, End: 16.25,
			},
			PitchDeg: 0.5, DurationDeg: 1, SequencingDeg: 1, NoteDeg: 0.5,
			MembershipDegrees: "late-> 0.5",
		}},
	}
	out := RenderText([]model.MatchRecord{rec})
	assert.Contains(t, out, "Source: air.mei, Start: 16.0, End: 16.375, Overall Degree: 0.75")
	assert.Contains(t, out, "Note 1: c/5 1/4 [16.0, 16.25]")
	assert.Contains(t, out, "Pitch Degree: 0.5")
	assert.Contains(t, out, "Fuzzy Functions Degrees: late-> 0.5")
	assert.Contains(t, out, "Aggregated Note Degree: 0.5")
}

func TestFormatDegree(t *testing.T) {
	assert.Equal(t, "1.0", formatDegree(1))
	assert.Equal(t, "0.5", formatDegree(0.5))
	assert.Equal(t, "0.667", formatDegree(2.0/3.0))
	assert.Equal(t, "0.0", formatDegree(0))
}
