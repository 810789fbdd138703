// Package core wires the search pipeline together: parse the fuzzy query,
// compile it to exact graph-query text, execute it through the driver and
// rank the rows that come back.
package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/musypher/internal/core/compiler"
	"github.com/agenthands/musypher/internal/core/model"
	"github.com/agenthands/musypher/internal/core/parse"
	"github.com/agenthands/musypher/internal/core/rank"
	"github.com/agenthands/musypher/internal/driver"
	"github.com/agenthands/musypher/internal/metrics"
)

type Service struct {
	Driver  driver.GraphDriver
	Metrics metrics.Recorder
}

func NewService(d driver.GraphDriver, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{Driver: d, Metrics: rec}
}

func (s *Service) BuildIndices(ctx context.Context) error {
	return s.Driver.BuildIndices(ctx)
}

// mutationKeywords abort any query that would edit the store. The check is
// on lowercased substrings, matching the conservative guard the API always
// had: false positives abort, false negatives never happen.
var mutationKeywords = []string{"create", "delete", "set", "remove", "detach", "load"}

// QueryEditsDB reports whether the query text contains a keyword that
// modifies the database.
func QueryEditsDB(query string) bool {
	lower := strings.ToLower(query)
	for _, k := range mutationKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Compile lowers fuzzy query text to exact graph-query text without touching
// the store.
func (s *Service) Compile(text string) (string, error) {
	h := s.Metrics.Start("compile_query")
	defer s.Metrics.End(h)

	q, err := parse.Parse(text)
	if err != nil {
		return "", err
	}
	return compiler.Compile(q)
}

// Search runs the whole pipeline for one fuzzy query: compile, guard,
// execute, rank. Matches come back sorted by degree, already cut at alpha.
func (s *Service) Search(ctx context.Context, text string) ([]model.MatchRecord, error) {
	q, err := parse.Parse(text)
	if err != nil {
		return nil, err
	}
	h := s.Metrics.Start("compile_query")
	crisp, err := compiler.Compile(q)
	s.Metrics.End(h)
	if err != nil {
		return nil, err
	}
	if QueryEditsDB(crisp) {
		return nil, &model.ValidationError{Field: "query", Msg: "contains a keyword that edits the database"}
	}

	h = s.Metrics.Start("execute_query")
	res, err := s.Driver.ExecuteQuery(ctx, crisp, nil)
	s.Metrics.End(h)
	if err != nil {
		return nil, &model.ExecutionError{Query: crisp, Err: err}
	}

	h = s.Metrics.Start("process_results")
	defer s.Metrics.End(h)
	return rank.Rank(res.Records, q)
}

// SearchUnified groups the matches of one search by source.
func (s *Service) SearchUnified(ctx context.Context, text string) ([]model.UnifiedResult, error) {
	matches, err := s.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	return rank.Unify(matches), nil
}

// SearchText renders the matches of one search as a readable report.
func (s *Service) SearchText(ctx context.Context, text string) (string, error) {
	matches, err := s.Search(ctx, text)
	if err != nil {
		return "", err
	}
	return rank.RenderText(matches), nil
}

// ExecuteCrisp runs already-exact query text and returns the raw rows as
// maps. Mutating queries are refused.
func (s *Service) ExecuteCrisp(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if QueryEditsDB(query) {
		return nil, &model.ValidationError{Field: "query", Msg: "contains a keyword that edits the database"}
	}
	h := s.Metrics.Start("execute_query")
	res, err := s.Driver.ExecuteQuery(ctx, query, nil)
	s.Metrics.End(h)
	if err != nil {
		return nil, &model.ExecutionError{Query: query, Err: err}
	}
	rows := make([]map[string]interface{}, len(res.Records))
	for i, rec := range res.Records {
		rows[i] = rec.AsMap()
	}
	return rows, nil
}

// ListSources returns the distinct score sources present in the store.
func (s *Service) ListSources(ctx context.Context) ([]string, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListSourcesQuery, nil)
	if err != nil {
		return nil, &model.ExecutionError{Query: driver.ListSourcesQuery, Err: err}
	}
	sources := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if v, ok := rec.Get("source"); ok {
			if src, ok := v.(string); ok {
				sources = append(sources, src)
			}
		}
	}
	return sources, nil
}

// FirstNotes returns the k opening notes of one source.
func (s *Service) FirstNotes(ctx context.Context, source string, k int) ([]model.Chord, error) {
	if k < 1 {
		return nil, &model.ValidationError{Field: "number", Msg: "must be at least 1"}
	}
	query := driver.FirstNotesQuery(k)
	res, err := s.Driver.ExecuteQuery(ctx, query, map[string]interface{}{"source": source})
	if err != nil {
		return nil, &model.ExecutionError{Query: query, Err: err}
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	rec := res.Records[0]
	chords := make([]model.Chord, k)
	for i := 0; i < k; i++ {
		chords[i] = recordChord(rec, i)
	}
	return chords, nil
}

// NotesInWindow returns the notes of one source inside [start, end], in
// onset order.
func (s *Service) NotesInWindow(ctx context.Context, source string, start, end float64) ([]model.Chord, error) {
	params := map[string]interface{}{"source": source, "start": start, "end": end}
	res, err := s.Driver.ExecuteQuery(ctx, driver.NotesInWindowQuery, params)
	if err != nil {
		return nil, &model.ExecutionError{Query: driver.NotesInWindowQuery, Err: err}
	}
	chords := make([]model.Chord, 0, len(res.Records))
	for _, rec := range res.Records {
		chords = append(chords, model.Chord{
			Pitches: []model.Pitch{recordPitch(rec, "class", "octave", "accid")},
			Duration: model.Duration{
				Value: recInt(rec, "dur"),
				Dots:  recInt(rec, "dots"),
			},
			Start: recFloatPtr(rec, "start"),
			End:   recFloatPtr(rec, "end"),
		})
	}
	return chords, nil
}

func recordChord(rec *neo4j.Record, i int) model.Chord {
	suffix := func(field string) string { return field + "_" + strconv.Itoa(i) }
	return model.Chord{
		Pitches: []model.Pitch{recordPitch(rec, suffix("pitch"), suffix("octave"), suffix("accid"))},
		Duration: model.Duration{
			Value: recInt(rec, suffix("dur")),
			Dots:  recInt(rec, suffix("dots")),
		},
		Start: recFloatPtr(rec, suffix("start")),
		End:   recFloatPtr(rec, suffix("end")),
	}
}

func recordPitch(rec *neo4j.Record, classKey, octaveKey, accidKey string) model.Pitch {
	var p model.Pitch
	if v, ok := rec.Get(classKey); ok {
		if s, ok := v.(string); ok {
			p.Class = s
		}
	}
	p.Octave = recIntPtr(rec, octaveKey)
	if v, ok := rec.Get(accidKey); ok {
		if s, ok := v.(string); ok {
			if a, err := model.NormalizeAccid(s); err == nil {
				p.Accid = a
			}
		}
	}
	return p
}

func recInt(rec *neo4j.Record, key string) int {
	if p := recIntPtr(rec, key); p != nil {
		return *p
	}
	return 0
}

func recIntPtr(rec *neo4j.Record, key string) *int {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case int64:
		i := int(n)
		return &i
	case int:
		return &n
	case float64:
		i := int(n)
		return &i
	}
	return nil
}

func recFloatPtr(rec *neo4j.Record, key string) *float64 {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

