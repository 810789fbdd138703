package compiler

import (
	"fmt"
	"strings"

	"github.com/agenthands/musypher/internal/core/model"
)

// The shortest duration assumed when bounding variable-length hops; a gap
// of g beats can hide at most g/0.0625 sixteenth-of-a-whole notes.
const shortestDuration = 0.0625

// Compile lowers a parsed fuzzy query onto exact property-graph query text:
// a pattern segment, a condition segment encoding the tolerance bands cut at
// alpha, and a projection segment the ranking stage reads by alias.
func Compile(q *model.ParsedQuery) (string, error) {
	if err := q.Params.Validate(); err != nil {
		return "", err
	}
	if len(q.Events) == 0 {
		return "", &model.ValidationError{Field: "pattern", Msg: "no events to search"}
	}
	if q.Params.DurationGap > 0 {
		for _, bnd := range q.Bindings {
			if isRelName(q, bnd.Node) {
				return "", &model.ValidationError{
					Field: "gap",
					Msg:   "membership bindings on relations need gap=0; variable-length hops have no relation variables",
				}
			}
		}
	}

	b := &builder{q: q, collectionNode: q.CollectionNode}
	if len(q.Collections) > 0 && b.collectionNode == "" {
		// No container in the pattern; splice one in for the filter to hold onto.
		b.collectionNode = "tp"
		b.extraAux = []string{
			"(tp:TopRhythmic)-[:RHYTHMIC]->(m:Measure)",
			fmt.Sprintf("(m)-[:HAS]->(%s:Event)", q.Events[0].Name),
		}
	}

	where, err := b.where()
	if err != nil {
		return "", err
	}
	return strings.Trim(b.match()+where+b.ret(), "\n"), nil
}

type builder struct {
	q              *model.ParsedQuery
	collectionNode string
	extraAux       []string
}

// relName resolves the variable naming the NEXT relation of hop i. Unnamed
// relations receive canonical names when a condition needs to reach them.
func (b *builder) relName(i int) string {
	if i < len(b.q.RelNames) && b.q.RelNames[i] != "" {
		return b.q.RelNames[i]
	}
	return fmt.Sprintf("n%d", i)
}

// factName resolves the first fact of event i for interval expressions.
func (b *builder) factName(i int) string {
	if f := b.q.FirstFact(i); f != nil {
		return f.Name
	}
	return fmt.Sprintf("f%d", i)
}

func isRelName(q *model.ParsedQuery, node string) bool {
	for _, name := range q.RelNames {
		if name != "" && name == node {
			return true
		}
	}
	return false
}

func (b *builder) match() string {
	q := b.q
	patterns := make([]string, 0, len(b.extraAux)+len(q.Aux)+1+len(q.Facts))
	patterns = append(patterns, b.extraAux...)
	patterns = append(patterns, q.Aux...)
	patterns = append(patterns, b.chain())
	for i := range q.Facts {
		f := &q.Facts[i]
		patterns = append(patterns, fmt.Sprintf("(%s)--(%s:Fact)", q.Events[f.Event].Name, f.Name))
	}
	if q.Params.DurationGap > 0 {
		return "MATCH\n " + strings.Join(patterns, ",\n ")
	}
	return "MATCH\n" + strings.Join(patterns, ",\n ")
}

// chain renders the event spine. A positive gap widens every hop into a
// bounded variable-length relation and drops the relation variables; at
// gap zero the hops stay single and are named whenever interval or ratio
// conditions will refer to them.
func (b *builder) chain() string {
	q := b.q
	p := q.Params
	if p.DurationGap > 0 {
		hops := int(p.DurationGap / shortestDuration)
		if hops < 1 {
			hops = 1
		}
		link := fmt.Sprintf("-[:NEXT*1..%d]->", hops+1)
		parts := make([]string, len(q.Events))
		for i := range q.Events {
			parts[i] = "(" + q.Events[i].Name + ":Event)"
		}
		return strings.Join(parts, link)
	}
	var sb strings.Builder
	for i := range q.Events {
		if i > 0 {
			rel := ""
			if i-1 < len(q.RelNames) {
				rel = q.RelNames[i-1]
			}
			if rel == "" && (p.AllowTransposition || p.AllowHomothety) {
				rel = fmt.Sprintf("n%d", i-1)
			}
			if rel == "" {
				sb.WriteString("-[:NEXT]->")
			} else {
				sb.WriteString("-[" + rel + ":NEXT]->")
			}
		}
		sb.WriteString("(" + q.Events[i].Name + ":Event)")
	}
	return sb.String()
}

func (b *builder) ret() string {
	q := b.q
	p := q.Params
	last := len(q.Events) - 1
	var items []string
	for i := range q.Events {
		name := q.Events[i].Name
		items = append(items,
			fmt.Sprintf("\n%s.duration AS duration_%d", name, i),
			fmt.Sprintf("%s.dots AS dots_%d", name, i),
			fmt.Sprintf("%s.start AS start_%d", name, i),
			fmt.Sprintf("%s.end AS end_%d", name, i),
			fmt.Sprintf("%s.id AS id_%d", name, i),
		)
		if p.AllowTransposition && i < last {
			if p.DurationGap > 0 {
				items = append(items, fmt.Sprintf(
					"toFloat(%s.halfTonesFromA4 - %s.halfTonesFromA4)/2 AS interval_%d",
					b.factName(i+1), b.factName(i), i))
			} else {
				items = append(items, fmt.Sprintf("%s.interval AS interval_%d", b.relName(i), i))
			}
		}
		if p.AllowHomothety && i < last {
			if p.DurationGap > 0 {
				items = append(items, fmt.Sprintf(
					"toFloat(%s.duration) / toFloat(%s.duration) AS duration_ratio_%d",
					q.Events[i+1].Name, name, i))
			} else {
				items = append(items, fmt.Sprintf("%s.duration_ratio AS duration_ratio_%d", b.relName(i), i))
			}
		}
	}
	for j := range q.Facts {
		name := q.Facts[j].Name
		items = append(items,
			fmt.Sprintf("\n%s.octave AS octave_%d", name, j),
			fmt.Sprintf("%s.class AS pitch_%d", name, j),
			fmt.Sprintf("%s.accid AS accid_%d", name, j),
			fmt.Sprintf("%s.accid_ges AS accid_ges_%d", name, j),
		)
	}
	items = append(items,
		fmt.Sprintf("\n%s.source AS source", q.Events[0].Name),
		fmt.Sprintf("%s.start AS start", q.Events[0].Name),
		fmt.Sprintf("%s.end AS end", q.Events[last].Name),
	)
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[it] = true
	}
	for _, bnd := range q.Bindings {
		it := fmt.Sprintf("\n%s.%s AS %s_%s_%s", bnd.Node, bnd.Attr, bnd.Attr, bnd.Node, bnd.Function)
		if !seen[it] {
			items = append(items, it)
			seen[it] = true
		}
	}
	return "\nRETURN" + strings.Join(items, ", ")
}

func formatFloat(v float64) string { return model.FormatFloat(v) }
