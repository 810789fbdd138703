package driver

import (
	"fmt"
	"strings"
)

// IndexQueries covers the attributes compiled queries filter on: the score
// spine, event timing and the pitch attributes used by tolerance bands.
var IndexQueries = []string{
	"CREATE INDEX ON :Score(source);",
	"CREATE INDEX ON :Event(source);",
	"CREATE INDEX ON :Event(start);",
	"CREATE INDEX ON :Event(end);",
	"CREATE INDEX ON :Event(duration);",
	"CREATE INDEX ON :Fact(class);",
	"CREATE INDEX ON :Fact(octave);",
	"CREATE INDEX ON :Fact(frequency);",
	"CREATE INDEX ON :Fact(halfTonesFromA4);",
}

const ListSourcesQuery = "MATCH (s:Score) RETURN DISTINCT s.source AS source"

// NotesInWindowQuery selects the notes of one source sounding inside a time
// window, in onset order.
const NotesInWindowQuery = `MATCH (e:Event)--(f:Fact)
WHERE e.start >= $start AND e.end <= $end AND e.source = $source
RETURN f.class AS class, f.octave AS octave, f.accid AS accid,
 e.dur AS dur, e.dots AS dots, e.start AS start, e.end AS end
ORDER BY e.start`

// FirstNotesQuery builds the query returning the k opening notes of one
// source, aliased with the same <field>_<index> convention compiled
// pattern queries use.
func FirstNotesQuery(k int) string {
	events := make([]string, k)
	facts := make([]string, k)
	fields := make([]string, 0, k+1)
	for i := 0; i < k; i++ {
		events[i] = fmt.Sprintf("(e%d:Event)", i)
		facts[i] = fmt.Sprintf("(e%d)--(f%d:Fact)", i, i)
		fields = append(fields, fmt.Sprintf(
			"f%d.class AS pitch_%d, f%d.octave AS octave_%d, f%d.accid AS accid_%d, e%d.dur AS dur_%d, e%d.dots AS dots_%d, e%d.start AS start_%d, e%d.end AS end_%d",
			i, i, i, i, i, i, i, i, i, i, i, i, i, i))
	}
	fields = append(fields, "e0.source AS source")

	return "MATCH\n " + strings.Join(events, "-[:NEXT]->") +
		",\n " + strings.Join(facts, ",\n ") +
		"\nWHERE\n e0.start = 0 AND e0.source = $source" +
		"\nRETURN\n " + strings.Join(fields, ",\n ")
}
