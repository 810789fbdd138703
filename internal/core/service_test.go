package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/musypher/internal/core/model"
)

const twoNoteQuery = `MATCH
 TOLERANT pitch=0.0, duration=1.0, gap=0.0
 ALPHA 0.0
 (e0:Event)-[n0:NEXT]->(e1:Event),
 (e0)--(f0:Fact{class:'c', octave:5, dur:4}),
 (e1)--(f1:Fact{class:'d', octave:5, dur:8})
RETURN e0.source AS source, e0.start AS start`

const singleNoteQuery = `MATCH
 (e0:Event),
 (e0)--(f0:Fact{class:'c', octave:5, dur:4})
RETURN e0.source AS source, e0.start AS start`

func TestCompile(t *testing.T) {
	s := NewService(&MockDriver{}, nil)

	crisp, err := s.Compile(twoNoteQuery)
	require.NoError(t, err)

	assert.Contains(t, crisp, "(e0:Event)-[:NEXT]->(e1:Event)")
	assert.Contains(t, crisp, "f0.class = 'c'")
	assert.Contains(t, crisp, "e0.duration = 0.25")
	assert.Contains(t, crisp, "e0.source AS source")
}

func TestCompileParseError(t *testing.T) {
	s := NewService(&MockDriver{}, nil)

	_, err := s.Compile("MATCH TOLERANT pitch=abc (e0:Event) RETURN e0")
	var pe *model.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestSearchExactSingleNote(t *testing.T) {
	mock := &MockDriver{
		MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{row(map[string]interface{}{
				"pitch_0": "c", "octave_0": int64(5), "accid_0": nil, "accid_ges_0": nil,
				"duration_0": 0.25, "dots_0": int64(0), "start_0": 0.0, "end_0": 0.25, "id_0": "n1",
				"source": "air.mei", "start": 0.0, "end": 0.25,
			})},
		},
	}
	s := NewService(mock, nil)

	matches, err := s.Search(context.Background(), singleNoteQuery)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "air.mei", matches[0].Source)
	assert.Equal(t, 1.0, matches[0].OverallDegree)
	assert.Contains(t, mock.QueryExecuted, "f0.class = 'c'")
}

func TestSearchUnified(t *testing.T) {
	rec := func(start float64) *neo4j.Record {
		return row(map[string]interface{}{
			"pitch_0": "c", "octave_0": int64(5), "accid_0": nil, "accid_ges_0": nil,
			"duration_0": 0.25, "dots_0": int64(0), "start_0": start, "end_0": start + 0.25, "id_0": "n1",
			"source": "air.mei", "start": start, "end": start + 0.25,
		})
	}
	mock := &MockDriver{
		MockResult: neo4j.EagerResult{Records: []*neo4j.Record{rec(0), rec(4)}},
	}
	s := NewService(mock, nil)

	unified, err := s.SearchUnified(context.Background(), singleNoteQuery)
	require.NoError(t, err)
	require.Len(t, unified, 1)
	assert.Equal(t, "air.mei", unified[0].Source)
	assert.Equal(t, 2, unified[0].NumberOfOccurrences)
	assert.Equal(t, 1.0, unified[0].MaxMatchDegree)
}

func TestSearchExecutionError(t *testing.T) {
	mock := &MockDriver{Err: fmt.Errorf("connection refused")}
	s := NewService(mock, nil)

	_, err := s.Search(context.Background(), singleNoteQuery)
	var ee *model.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Query, "MATCH")
	assert.Contains(t, errors.Unwrap(ee).Error(), "connection refused")
}

func TestQueryEditsDB(t *testing.T) {
	assert.True(t, QueryEditsDB("CREATE (n:Event)"))
	assert.True(t, QueryEditsDB("MATCH (n) DETACH DELETE n"))
	assert.True(t, QueryEditsDB("MATCH (n) SET n.x = 1"))
	assert.False(t, QueryEditsDB("MATCH (e:Event) RETURN e.duration"))
}

func TestExecuteCrispRejectsMutation(t *testing.T) {
	mock := &MockDriver{}
	s := NewService(mock, nil)

	_, err := s.ExecuteCrisp(context.Background(), "CREATE (n:Event) RETURN n")
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, mock.QueryExecuted)
}

func TestExecuteCrispRows(t *testing.T) {
	mock := &MockDriver{
		MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{row(map[string]interface{}{"source": "air.mei", "n": int64(3)})},
		},
	}
	s := NewService(mock, nil)

	rows, err := s.ExecuteCrisp(context.Background(), "MATCH (e:Event) RETURN e.source AS source, count(e) AS n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "air.mei", rows[0]["source"])
	assert.Equal(t, int64(3), rows[0]["n"])
}

func TestListSources(t *testing.T) {
	mock := &MockDriver{
		MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{
				row(map[string]interface{}{"source": "air.mei"}),
				row(map[string]interface{}{"source": "gavotte.mei"}),
			},
		},
	}
	s := NewService(mock, nil)

	sources, err := s.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"air.mei", "gavotte.mei"}, sources)
	assert.Contains(t, mock.QueryExecuted, "Score")
}

func TestFirstNotes(t *testing.T) {
	mock := &MockDriver{
		MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{row(map[string]interface{}{
				"pitch_0": "c", "octave_0": int64(5), "accid_0": "s", "dur_0": int64(4), "dots_0": int64(0),
				"start_0": 0.0, "end_0": 0.25,
				"pitch_1": "d", "octave_1": int64(5), "accid_1": nil, "dur_1": int64(8), "dots_1": int64(1),
				"start_1": 0.25, "end_1": 0.4375,
				"source": "air.mei",
			})},
		},
	}
	s := NewService(mock, nil)

	chords, err := s.FirstNotes(context.Background(), "air.mei", 2)
	require.NoError(t, err)
	require.Len(t, chords, 2)
	assert.Equal(t, "c#/5", chords[0].Pitches[0].String())
	assert.Equal(t, 4, chords[0].Duration.Value)
	assert.Equal(t, "d/5", chords[1].Pitches[0].String())
	assert.Equal(t, 1, chords[1].Duration.Dots)
	assert.Equal(t, map[string]interface{}{"source": "air.mei"}, mock.QueryParams)
}

func TestFirstNotesRejectsBadCount(t *testing.T) {
	s := NewService(&MockDriver{}, nil)
	_, err := s.FirstNotes(context.Background(), "air.mei", 0)
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNotesInWindow(t *testing.T) {
	mock := &MockDriver{
		MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{row(map[string]interface{}{
				"class": "g", "octave": int64(4), "accid": nil,
				"dur": int64(4), "dots": int64(0), "start": 1.0, "end": 1.25,
			})},
		},
	}
	s := NewService(mock, nil)

	chords, err := s.NotesInWindow(context.Background(), "air.mei", 0.0, 2.0)
	require.NoError(t, err)
	require.Len(t, chords, 1)
	assert.Equal(t, "g/4", chords[0].Pitches[0].String())
	require.NotNil(t, chords[0].Start)
	assert.Equal(t, 1.0, *chords[0].Start)
	assert.Equal(t, 2.0, mock.QueryParams["end"])
}
