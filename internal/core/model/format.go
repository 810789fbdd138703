package model

import (
	"strconv"
	"strings"
)

// FormatFloat renders numeric literals in generated query text and reports:
// shortest round-trip form, integral values keeping a trailing .0 so they
// read as floats on the way back in.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
