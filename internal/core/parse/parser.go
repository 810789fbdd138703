package parse

import (
	"fmt"
	"strconv"

	"github.com/agenthands/musypher/internal/core/model"
)

// Parse turns fuzzy pattern query text into its structured form. It fails
// with *model.ParseError on malformed text and *model.ValidationError when a
// directive carries an out-of-range value; no partial result is returned.
func Parse(text string) (*model.ParsedQuery, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseQuery()
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) at(kind tokenKind, text string) bool {
	t := p.cur()
	return t.kind == kind && t.text == text
}

func (p *parser) atIdent(word string) bool { return p.at(tokIdent, word) }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(kind tokenKind, text string) bool {
	if p.at(kind, text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptIdent(word string) bool { return p.accept(tokIdent, word) }

func (p *parser) expectSymbol(text string) error {
	if !p.accept(tokSymbol, text) {
		return p.errHere(fmt.Sprintf("expected %q", text))
	}
	return nil
}

func (p *parser) errHere(msg string) error {
	frag := p.cur().text
	if p.cur().kind == tokEOF {
		frag = "end of query"
	}
	return &model.ParseError{Fragment: frag, Msg: msg}
}

func (p *parser) parseQuery() (*model.ParsedQuery, error) {
	q := &model.ParsedQuery{Params: model.DefaultFuzzyParams()}

	for p.atIdent("DEFINETRAP") || p.atIdent("DEFINEASC") || p.atIdent("DEFINEDESC") {
		def, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		for _, existing := range q.Memberships {
			if existing.Name == def.Name {
				return nil, &model.ParseError{Fragment: def.Name, Msg: "membership function redefined"}
			}
		}
		q.Memberships = append(q.Memberships, def)
	}

	if !p.acceptIdent("MATCH") {
		return nil, p.errHere("expected MATCH")
	}
	if err := p.parseDirectives(q); err != nil {
		return nil, err
	}
	nodes, links, err := p.parsePatterns()
	if err != nil {
		return nil, err
	}
	var conds [][]token
	if p.acceptIdent("WHERE") {
		conds, err = p.parseWhere()
		if err != nil {
			return nil, err
		}
	}
	if !p.acceptIdent("RETURN") {
		return nil, p.errHere("expected RETURN")
	}
	// The projection is rebuilt at compile time; accept and drop the rest.
	for p.cur().kind != tokEOF {
		p.pos++
	}

	if err := p.build(q, nodes, links, conds); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *parser) parseDefinition() (model.MembershipDef, error) {
	var def model.MembershipDef
	arity := 0
	switch p.advance().text {
	case "DEFINETRAP":
		def.Shape, arity = model.ShapeTrapezoid, 4
	case "DEFINEASC":
		def.Shape, arity = model.ShapeAscending, 2
	case "DEFINEDESC":
		def.Shape, arity = model.ShapeDescending, 2
	}
	if p.cur().kind != tokIdent {
		return def, p.errHere("expected membership function name")
	}
	def.Name = p.advance().text
	if !p.acceptIdent("AS") {
		return def, p.errHere("expected AS")
	}
	if err := p.expectSymbol("("); err != nil {
		return def, err
	}
	for {
		v, err := p.parseSignedNumber()
		if err != nil {
			return def, err
		}
		def.Points = append(def.Points, v)
		if !p.accept(tokSymbol, ",") {
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return def, err
	}
	if len(def.Points) != arity {
		return def, &model.ParseError{
			Fragment: def.Name,
			Msg:      fmt.Sprintf("needs %d points, got %d", arity, len(def.Points)),
		}
	}
	return def, nil
}

func (p *parser) parseSignedNumber() (float64, error) {
	neg := p.accept(tokSymbol, "-")
	t := p.cur()
	if t.kind != tokNumber {
		return 0, p.errHere("expected number")
	}
	p.pos++
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return 0, &model.ParseError{Fragment: t.text, Msg: "malformed number"}
	}
	if neg {
		v = -v
	}
	return v, nil
}

func (p *parser) parseDirectives(q *model.ParsedQuery) error {
	for {
		switch {
		case p.acceptIdent("ALLOW_TRANSPOSITION"):
			q.Params.AllowTransposition = true
		case p.acceptIdent("ALLOW_HOMOTHETY"):
			q.Params.AllowHomothety = true
		case p.acceptIdent("TOLERANT"):
			if err := p.parseTolerant(q); err != nil {
				return err
			}
		case p.acceptIdent("ALPHA"):
			v, err := p.parseSignedNumber()
			if err != nil {
				return err
			}
			q.Params.Alpha = v
		default:
			if p.at(tokSymbol, "(") {
				return nil
			}
			return p.errHere("expected a directive or pattern")
		}
	}
}

func (p *parser) parseTolerant(q *model.ParsedQuery) error {
	for {
		if p.cur().kind != tokIdent {
			return p.errHere("expected tolerance name")
		}
		key := p.advance().text
		if err := p.expectSymbol("="); err != nil {
			return err
		}
		v, err := p.parseSignedNumber()
		if err != nil {
			return err
		}
		switch key {
		case "pitch":
			q.Params.PitchDistance = v
		case "duration":
			q.Params.DurationFactor = v
		case "gap":
			q.Params.DurationGap = v
		default:
			return &model.ParseError{Fragment: key, Msg: "unknown tolerance"}
		}
		if !p.accept(tokSymbol, ",") {
			return nil
		}
	}
}

type rawProp struct {
	key      string
	val      token
	wildcard bool
	bare     bool
}

type rawNode struct {
	name  string
	label string
	props []rawProp
	order int
}

type rawLink struct {
	from, to   string
	undirected bool
	relName    string
	relType    string
}

func (p *parser) parsePatterns() ([]*rawNode, []rawLink, error) {
	byName := map[string]*rawNode{}
	var order []*rawNode
	var links []rawLink
	anon := 0

	for {
		node, err := p.parseNode(byName, &order, &anon)
		if err != nil {
			return nil, nil, err
		}
		for p.at(tokSymbol, "--") || p.at(tokSymbol, "-") {
			link, err := p.parseLinkTail()
			if err != nil {
				return nil, nil, err
			}
			target, err := p.parseNode(byName, &order, &anon)
			if err != nil {
				return nil, nil, err
			}
			link.from = node.name
			link.to = target.name
			links = append(links, link)
			node = target
		}
		if p.accept(tokSymbol, ",") {
			continue
		}
		break
	}
	return order, links, nil
}

func (p *parser) parseNode(byName map[string]*rawNode, order *[]*rawNode, anon *int) (*rawNode, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	name := ""
	if p.cur().kind == tokIdent {
		name = p.advance().text
	}
	label := ""
	if p.accept(tokSymbol, ":") {
		if p.cur().kind != tokIdent {
			return nil, p.errHere("expected node label")
		}
		label = p.advance().text
	}
	var props []rawProp
	if p.accept(tokSymbol, "{") {
		for {
			if p.cur().kind != tokIdent {
				return nil, p.errHere("expected attribute name")
			}
			prop := rawProp{key: p.advance().text}
			if p.accept(tokSymbol, ":") {
				t := p.cur()
				switch {
				case t.kind == tokNumber || t.kind == tokString:
					prop.val = t
					p.pos++
				case p.accept(tokSymbol, "*"):
					prop.wildcard = true
				case p.accept(tokSymbol, "-"):
					t = p.cur()
					if t.kind != tokNumber {
						return nil, p.errHere("expected number")
					}
					prop.val = token{kind: tokNumber, text: "-" + t.text, pos: t.pos}
					p.pos++
				default:
					return nil, p.errHere("expected attribute value")
				}
			} else {
				prop.bare = true
			}
			props = append(props, prop)
			if !p.accept(tokSymbol, ",") {
				break
			}
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("_anon%d", *anon)
		*anon++
	}
	if existing, ok := byName[name]; ok {
		if label != "" {
			if existing.label != "" && existing.label != label {
				return nil, &model.ParseError{Fragment: name, Msg: "node declared with two labels"}
			}
			existing.label = label
		}
		existing.props = append(existing.props, props...)
		return existing, nil
	}
	node := &rawNode{name: name, label: label, props: props, order: len(*order)}
	byName[name] = node
	*order = append(*order, node)
	return node, nil
}

func (p *parser) parseLinkTail() (rawLink, error) {
	if p.accept(tokSymbol, "--") {
		return rawLink{undirected: true}, nil
	}
	if err := p.expectSymbol("-"); err != nil {
		return rawLink{}, err
	}
	if err := p.expectSymbol("["); err != nil {
		return rawLink{}, err
	}
	var link rawLink
	if p.cur().kind == tokIdent {
		link.relName = p.advance().text
	}
	if err := p.expectSymbol(":"); err != nil {
		return rawLink{}, err
	}
	if p.cur().kind != tokIdent {
		return rawLink{}, p.errHere("expected relation type")
	}
	link.relType = p.advance().text
	if p.accept(tokSymbol, "*") {
		// hop bounds are recomputed from the gap at compile time
		if p.cur().kind == tokNumber {
			p.pos++
			if p.accept(tokSymbol, "..") {
				if p.cur().kind != tokNumber {
					return rawLink{}, p.errHere("expected hop bound")
				}
				p.pos++
			}
		}
	}
	if err := p.expectSymbol("]"); err != nil {
		return rawLink{}, err
	}
	if err := p.expectSymbol("->"); err != nil {
		return rawLink{}, err
	}
	return link, nil
}

func (p *parser) parseWhere() ([][]token, error) {
	var conds [][]token
	var cur []token
	depth := 0
	for {
		t := p.cur()
		if t.kind == tokEOF {
			break
		}
		if depth == 0 && t.kind == tokIdent {
			if t.text == "RETURN" {
				break
			}
			if t.text == "AND" {
				if len(cur) == 0 {
					return nil, p.errHere("empty condition")
				}
				conds = append(conds, cur)
				cur = nil
				p.pos++
				continue
			}
		}
		if t.kind == tokSymbol {
			switch t.text {
			case "(", "[":
				depth++
			case ")", "]":
				depth--
			}
		}
		cur = append(cur, t)
		p.pos++
	}
	if len(cur) == 0 {
		if len(conds) > 0 {
			return nil, p.errHere("dangling AND")
		}
		return nil, p.errHere("empty WHERE clause")
	}
	conds = append(conds, cur)
	return conds, nil
}
