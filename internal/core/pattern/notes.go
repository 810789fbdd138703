// Package pattern generates fuzzy query text from structured inputs: note
// lists for melodic searches and contour strings for shape searches. The
// generated text feeds the same parser as hand-written queries.
package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/musypher/internal/core/model"
)

// Scope restricts where a generated pattern may match.
type Scope struct {
	IncipitOnly bool   `json:"incipit_only"`
	Collection  string `json:"collection"`
}

// NoteSpec is one position of a searched pattern: the pitches sounding
// together (several for a chord), an optional duration denominator (1 whole,
// 2 half, 4 quarter, ...) and an optional dot count. Nil leaves the matching
// attribute unconstrained.
type NoteSpec struct {
	Pitches []model.Pitch
	Dur     *int
	Dots    *int
}

// UnmarshalJSON reads the wire form [["c#/5","d/5"], 4, 0]: a pitch list,
// a duration denominator and an optional dot count. A null pitch or number
// leaves that attribute unconstrained.
func (n *NoteSpec) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return &model.ParseError{Fragment: compact(data), Msg: "note entry must be an array"}
	}
	if len(parts) < 2 || len(parts) > 3 {
		return &model.ParseError{Fragment: compact(data), Msg: "note entry needs pitches and a duration, dots optional"}
	}
	var names []*string
	if err := json.Unmarshal(parts[0], &names); err != nil {
		return &model.ParseError{Fragment: compact(parts[0]), Msg: "pitches must be an array of strings"}
	}
	if len(names) == 0 {
		return &model.ParseError{Fragment: compact(data), Msg: "a note needs at least one pitch"}
	}
	spec := NoteSpec{}
	for _, name := range names {
		if name == nil {
			spec.Pitches = append(spec.Pitches, model.Pitch{})
			continue
		}
		p, err := model.ParsePitch(*name)
		if err != nil {
			return err
		}
		spec.Pitches = append(spec.Pitches, p)
	}
	dur, err := intField(parts[1], "duration")
	if err != nil {
		return err
	}
	if dur != nil && *dur < 1 {
		return &model.ParseError{Fragment: compact(parts[1]), Msg: "duration denominator must be positive"}
	}
	spec.Dur = dur
	if len(parts) == 3 {
		dots, err := intField(parts[2], "dots")
		if err != nil {
			return err
		}
		if dots != nil && *dots < 0 {
			return &model.ParseError{Fragment: compact(parts[2]), Msg: "dots must not be negative"}
		}
		spec.Dots = dots
	}
	*n = spec
	return nil
}

// ParseNotes reads a whole note list from its JSON wire form
// [[["c#/5","d/5"],4,0], [["c/5"],16,0], ...].
func ParseNotes(text string) ([]NoteSpec, error) {
	var notes []NoteSpec
	if err := json.Unmarshal([]byte(text), &notes); err != nil {
		var pe *model.ParseError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &model.ParseError{Fragment: compact([]byte(text)), Msg: "notes must be a JSON array of note entries"}
	}
	return notes, nil
}

// FromNotes renders a fuzzy query searching for the given note sequence.
// Every pitch of a chord becomes its own fact on the shared event, with
// duration and dots riding on the first one.
func FromNotes(notes []NoteSpec, params model.FuzzyParams, scope Scope) (string, error) {
	if len(notes) == 0 {
		return "", &model.ParseError{Fragment: "notes", Msg: "empty note list"}
	}
	if err := params.Validate(); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("MATCH\n")
	if params.AllowTransposition {
		sb.WriteString(" ALLOW_TRANSPOSITION\n")
	}
	if params.AllowHomothety {
		sb.WriteString(" ALLOW_HOMOTHETY\n")
	}
	fmt.Fprintf(&sb, " TOLERANT pitch=%s, duration=%s, gap=%s\n ALPHA %s\n",
		model.FormatFloat(params.PitchDistance), model.FormatFloat(params.DurationFactor),
		model.FormatFloat(params.DurationGap), model.FormatFloat(params.Alpha))
	writeScope(&sb, scope)

	var facts []string
	factNb := 0
	sb.WriteString(" ")
	for i, note := range notes {
		if len(note.Pitches) == 0 {
			return "", &model.ParseError{Fragment: fmt.Sprintf("note %d", i), Msg: "a note needs at least one pitch"}
		}
		if i < len(notes)-1 {
			fmt.Fprintf(&sb, "(e%d:Event)-[n%d:NEXT]->", i, i)
		} else {
			fmt.Fprintf(&sb, "(e%d:Event)", i)
		}
		for j, p := range note.Pitches {
			facts = append(facts, fmt.Sprintf("(e%d)--(f%d:Fact%s)", i, factNb, factProps(note, j, p)))
			factNb++
		}
	}
	sb.WriteString(",\n ")
	sb.WriteString(strings.Join(facts, ",\n "))
	sb.WriteString("\nRETURN e0.source AS source, e0.start AS start")
	return sb.String(), nil
}

func factProps(note NoteSpec, j int, p model.Pitch) string {
	var props []string
	if p.Class != "" {
		props = append(props, fmt.Sprintf("class:'%s'", p.Class+p.Accid))
	}
	if p.Octave != nil {
		props = append(props, fmt.Sprintf("octave:%d", *p.Octave))
	}
	if j == 0 {
		if note.Dur != nil {
			props = append(props, fmt.Sprintf("dur:%d", *note.Dur))
		}
		if note.Dots != nil {
			props = append(props, fmt.Sprintf("dots:%d", *note.Dots))
		}
	}
	if len(props) == 0 {
		return ""
	}
	return "{" + strings.Join(props, ", ") + "}"
}

func writeScope(sb *strings.Builder, scope Scope) {
	if scope.IncipitOnly {
		sb.WriteString(" (v:Voice)-[:timeSeries]->(e0:Event),\n")
	}
	if scope.Collection != "" {
		fmt.Fprintf(sb, " (tp:TopRhythmic{collection:'%s'})-[:RHYTHMIC]->(m:Measure),\n (m)-[:HAS]->(e0:Event),\n", scope.Collection)
	}
}

func intField(raw json.RawMessage, field string) (*int, error) {
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &model.ParseError{Fragment: compact(raw), Msg: field + " must be a number"}
	}
	if v == nil {
		return nil, nil
	}
	i := int(*v)
	if float64(i) != *v {
		return nil, &model.ParseError{Fragment: compact(raw), Msg: field + " must be an integer"}
	}
	return &i, nil
}

func compact(raw []byte) string { return strings.TrimSpace(string(raw)) }
