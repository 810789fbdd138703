package parse

import (
	"github.com/agenthands/musypher/internal/core/model"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// tokenize splits query text into identifiers, numbers, quoted strings and
// symbols. Two-character symbols bind before one-character ones, and a '.'
// only joins a number when a digit follows, so hop ranges like 1..3 survive.
func tokenize(src string) ([]token, error) {
	var toks []token
	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < n && src[j] != quote {
				j++
			}
			if j >= n {
				return nil, &model.ParseError{Fragment: src[i:min(i+16, n)], Msg: "unterminated string"}
			}
			toks = append(toks, token{kind: tokString, text: src[i+1 : j], pos: i})
			i = j + 1
		case isDigit(c):
			j := i
			for j < n && isDigit(src[j]) {
				j++
			}
			if j+1 < n && src[j] == '.' && isDigit(src[j+1]) {
				j++
				for j < n && isDigit(src[j]) {
					j++
				}
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], pos: i})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		default:
			if i+1 < n {
				switch src[i : i+2] {
				case "--", "->", ">=", "<=", "..", "<>":
					toks = append(toks, token{kind: tokSymbol, text: src[i : i+2], pos: i})
					i += 2
					continue
				}
			}
			switch c {
			case '(', ')', '{', '}', '[', ']', ':', ',', '.', '=', '<', '>', '-', '*', '+', '/':
				toks = append(toks, token{kind: tokSymbol, text: string(c), pos: i})
				i++
			default:
				return nil, &model.ParseError{Fragment: string(c), Msg: "unexpected character"}
			}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: n})
	return toks, nil
}

// Cypher keywords that read as identifiers but need breathing room when
// conditions are rendered back to text. Function names stay tight against
// their opening paren.
var renderKeywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "XOR": true, "IS": true, "IN": true,
}

// renderTokens rebuilds condition text from tokens: dots and brackets stay
// tight, operators and keywords keep single spaces, strings re-quote.
func renderTokens(toks []token) string {
	var b []byte
	prevTight := true // suppress the leading space
	prevText := ""
	for _, t := range toks {
		text := t.text
		if t.kind == tokString {
			text = "'" + t.text + "'"
		}
		tightBefore := false
		switch text {
		case ")", "]", "}", ",", ".", "..":
			tightBefore = true
		case "(":
			// tight after a function name, spaced after operators and keywords
			tightBefore = prevText != "" && !renderKeywords[prevText] && isIdentPart(prevText[len(prevText)-1])
		}
		if !prevTight && !tightBefore {
			b = append(b, ' ')
		}
		b = append(b, text...)
		switch text {
		case "(", "[", "{", ".", "..":
			prevTight = true
		default:
			prevTight = false
		}
		prevText = text
	}
	return string(b)
}
