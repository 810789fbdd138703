package rank

import (
	"fmt"
	"math"
	"strings"

	"github.com/agenthands/musypher/internal/core/model"
)

// RenderText writes scored matches in the readable report form used by the
// command line: one block per occurrence, best first.
func RenderText(records []model.MatchRecord) string {
	var sb strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&sb, "Source: %s, Start: %s, End: %s, Overall Degree: %s\n",
			rec.Source, formatDegree(rec.Start), formatDegree(rec.End), formatDegree(rec.OverallDegree))
		for idx, nd := range rec.Notes {
			fmt.Fprintf(&sb, "  Note %d: %s\n", idx+1, describeNote(nd.Note))
			fmt.Fprintf(&sb, "    Pitch Degree: %s\n", formatDegree(nd.PitchDeg))
			fmt.Fprintf(&sb, "    Duration Degree: %s\n", formatDegree(nd.DurationDeg))
			fmt.Fprintf(&sb, "    Sequencing Degree: %s\n", formatDegree(nd.SequencingDeg))
			if nd.MembershipDegrees != "" {
				fmt.Fprintf(&sb, "    Fuzzy Functions Degrees: %s\n", nd.MembershipDegrees)
			}
			fmt.Fprintf(&sb, "    Aggregated Note Degree: %s\n", formatDegree(nd.NoteDeg))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func describeNote(n model.Note) string {
	s := n.Pitch.String()
	if s == "" {
		s = "?"
	}
	if n.Dur > 0 {
		s += fmt.Sprintf(" 1/%d", n.Dur)
		s += strings.Repeat(".", n.Dots)
	}
	return fmt.Sprintf("%s [%s, %s]", s, formatDegree(n.Start), formatDegree(n.End))
}

// formatDegree renders a degree or time rounded to three decimals.
func formatDegree(v float64) string {
	return model.FormatFloat(math.Round(v*1000) / 1000)
}
