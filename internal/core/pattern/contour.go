package pattern

import (
	"fmt"
	"strings"

	"github.com/agenthands/musypher/internal/core/model"
)

// Contour is a parsed shape description: melodic symbols give successive
// interval directions, rhythmic symbols the matching duration ratios.
type Contour struct {
	Melodic  []string
	Rhythmic []string
}

// contourSets maps each contour symbol to the fuzzy set bound to its chain
// position. X (either case) carries no constraint and has no entry, as do
// *U and *D, recognized by ParseContour but without a set to bind.
var contourSets = map[string]struct{ name, def string }{
	"u": {"stepUp", "DEFINETRAP stepUp AS (0.0, 0.5, 1.0, 2)"},
	"U": {"leapUp", "DEFINEASC leapUp AS (0.5, 2.0)"},
	"R": {"repeat", "DEFINETRAP repeat AS (-1, 0.0, 0.0, 1)"},
	"d": {"stepDown", "DEFINETRAP stepDown AS (-2, -1.0, -0.5, 0.0)"},
	"D": {"leapDown", "DEFINEDESC leapDown AS (-2.0, -0.5)"},
	"s": {"shorterDuration", "DEFINETRAP shorterDuration AS (0.0, 0.5, 0.75, 1)"},
	"S": {"muchShorterDuration", "DEFINEDESC muchShorterDuration AS (0.25, 0.5)"},
	"M": {"sameDuration", "DEFINETRAP sameDuration AS (0.5, 1.0, 1.0, 2.0)"},
	"l": {"longerDuration", "DEFINETRAP longerDuration AS (1.0, 1.5, 2.0, 4.0)"},
	"L": {"muchLongerDuration", "DEFINEASC muchLongerDuration AS (2.0, 4.0)"},
}

// ParseContour splits a compact contour such as "URd-LMl" into melodic and
// rhythmic symbol lists. The halves must have equal length; X leaves a
// position unconstrained.
func ParseContour(s string) (Contour, error) {
	melodicPart, rhythmicPart, ok := strings.Cut(s, "-")
	if !ok {
		return Contour{}, &model.ParseError{Fragment: s, Msg: "contour needs melodic and rhythmic halves separated by '-'"}
	}
	var melodic []string
	for i := 0; i < len(melodicPart); i++ {
		c := melodicPart[i]
		switch {
		case c == '*':
			if i+1 >= len(melodicPart) || (melodicPart[i+1] != 'U' && melodicPart[i+1] != 'D') {
				return Contour{}, &model.ParseError{Fragment: melodicPart[i:], Msg: "expected *U or *D"}
			}
			melodic = append(melodic, melodicPart[i:i+2])
			i++
		case strings.ContainsRune("UDRudX", rune(c)):
			melodic = append(melodic, string(c))
		default:
			return Contour{}, &model.ParseError{Fragment: string(c), Msg: "melodic symbols are U, u, R, d, D, *U, *D and X"}
		}
	}
	var rhythmic []string
	for _, c := range rhythmicPart {
		if !strings.ContainsRune("LlMsSX", c) {
			return Contour{}, &model.ParseError{Fragment: string(c), Msg: "rhythmic symbols are L, l, M, s, S and X"}
		}
		rhythmic = append(rhythmic, string(c))
	}
	if len(melodic) != len(rhythmic) {
		return Contour{}, &model.ParseError{Fragment: s, Msg: "melodic and rhythmic halves must have the same length"}
	}
	if len(melodic) == 0 {
		return Contour{}, &model.ParseError{Fragment: s, Msg: "empty contour"}
	}
	return Contour{Melodic: melodic, Rhythmic: rhythmic}, nil
}

// FromContour renders the fuzzy query for a parsed contour: one fuzzy set
// definition per distinct symbol, a pattern chain long enough to carry the
// intervals, and one IS binding per constrained position. Tolerances stay
// at their defaults; the fuzzy sets do the matching.
func FromContour(c Contour, scope Scope) (string, error) {
	if len(c.Melodic) != len(c.Rhythmic) {
		return "", &model.ParseError{Fragment: "contour", Msg: "melodic and rhythmic halves must have the same length"}
	}
	if len(c.Melodic) == 0 {
		return "", &model.ParseError{Fragment: "contour", Msg: "empty contour"}
	}
	var defs []string
	defined := map[string]bool{}
	var conds []string
	bind := func(sym, attr string, idx int) error {
		if sym == "X" || sym == "x" {
			return nil
		}
		set, ok := contourSets[sym]
		if !ok {
			return &model.ParseError{Fragment: sym, Msg: "contour symbol not supported"}
		}
		if !defined[set.name] {
			defs = append(defs, set.def)
			defined[set.name] = true
		}
		conds = append(conds, fmt.Sprintf("n%d.%s IS %s", idx, attr, set.name))
		return nil
	}
	for idx, sym := range c.Melodic {
		if err := bind(sym, "interval", idx); err != nil {
			return "", err
		}
	}
	for idx, sym := range c.Rhythmic {
		if err := bind(sym, "duration_ratio", idx); err != nil {
			return "", err
		}
	}

	n := len(c.Melodic)
	var sb strings.Builder
	for _, def := range defs {
		sb.WriteString(def)
		sb.WriteString("\n")
	}
	sb.WriteString("MATCH\n")
	writeScope(&sb, scope)
	sb.WriteString(" ")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "(e%d:Event)-[n%d:NEXT]->", i, i)
	}
	fmt.Fprintf(&sb, "(e%d:Event)", n)
	for i := 0; i <= n; i++ {
		fmt.Fprintf(&sb, ",\n (e%d)--(f%d:Fact)", i, i)
	}
	if len(conds) > 0 {
		sb.WriteString("\nWHERE\n ")
		sb.WriteString(strings.Join(conds, " AND\n "))
	}
	sb.WriteString("\nRETURN e0.source AS source, e0.start AS start")
	return sb.String(), nil
}
