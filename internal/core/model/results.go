package model

// NoteDetail is one matched note with its per-dimension degrees. NoteDeg is
// the minimum of the contributing degrees; dimensions with tolerance off
// contribute nothing and report 1.0.
type NoteDetail struct {
	Note              Note    `json:"note"`
	PitchDeg          float64 `json:"pitch_deg"`
	DurationDeg       float64 `json:"duration_deg"`
	SequencingDeg     float64 `json:"sequencing_deg"`
	NoteDeg           float64 `json:"note_deg"`
	MembershipDegrees string  `json:"membership_functions_degrees,omitempty"`
}

// MatchRecord is one scored occurrence of the pattern.
type MatchRecord struct {
	Source        string       `json:"source"`
	Start         float64      `json:"start"`
	End           float64      `json:"end"`
	OverallDegree float64      `json:"overall_degree"`
	Notes         []NoteDetail `json:"notes"`
}

// NoteDegrees is the per-note degree breakdown kept in unified results.
type NoteDegrees struct {
	NoteDeg       float64 `json:"note_deg"`
	PitchDeg      float64 `json:"pitch_deg"`
	DurationDeg   float64 `json:"duration_deg"`
	SequencingDeg float64 `json:"sequencing_deg"`
	ID            string  `json:"id,omitempty"`
}

// MatchSummary is one occurrence inside a unified result.
type MatchSummary struct {
	OverallDegree float64       `json:"overall_degree"`
	Notes         []NoteDegrees `json:"notes"`
}

// UnifiedResult groups the matches of one source, in first-seen order from
// the degree-sorted stream.
type UnifiedResult struct {
	Source              string         `json:"source"`
	NumberOfOccurrences int            `json:"number_of_occurrences"`
	MaxMatchDegree      float64        `json:"max_match_degree"`
	Matches             []MatchSummary `json:"matches"`
}
