package parse

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agenthands/musypher/internal/core/model"
)

// build assembles the raw pattern into the query graph: classifies nodes,
// reconstructs the event chain, attaches facts, renames everything onto the
// canonical e/f/n scheme and folds WHERE equalities into node attributes.
func (p *parser) build(q *model.ParsedQuery, nodes []*rawNode, links []rawLink, conds [][]token) error {
	byName := make(map[string]*rawNode, len(nodes))
	for _, n := range nodes {
		byName[n.name] = n
	}

	// 1. Classify nodes; unlabeled chain endpoints become events, unlabeled
	// partners of an event in an ownership link become facts.
	isEvent := map[string]bool{}
	isFact := map[string]bool{}
	for _, n := range nodes {
		switch n.label {
		case "Event":
			isEvent[n.name] = true
		case "Fact":
			isFact[n.name] = true
		}
	}
	for _, l := range links {
		if l.relType != "NEXT" {
			continue
		}
		for _, name := range []string{l.from, l.to} {
			if byName[name].label == "" {
				isEvent[name] = true
			}
		}
	}
	for _, l := range links {
		if !l.undirected && l.relType != "IS" {
			continue
		}
		if isEvent[l.from] && byName[l.to].label == "" && !isEvent[l.to] {
			isFact[l.to] = true
		}
		if isEvent[l.to] && byName[l.from].label == "" && !isEvent[l.from] {
			isFact[l.from] = true
		}
	}
	for _, n := range nodes {
		if isEvent[n.name] && isFact[n.name] {
			return &model.ParseError{Fragment: n.name, Msg: "node is both an event and a fact"}
		}
	}

	// 2. Event chain over NEXT
	var eventNodes []*rawNode
	for _, n := range nodes {
		if isEvent[n.name] {
			eventNodes = append(eventNodes, n)
		}
	}
	if len(eventNodes) == 0 {
		return &model.ParseError{Msg: "pattern has no events"}
	}
	nextTo := map[string]rawLink{}
	indeg := map[string]int{}
	for _, l := range links {
		if l.relType != "NEXT" {
			continue
		}
		if l.undirected {
			return &model.ParseError{Fragment: l.from, Msg: "NEXT must be directed"}
		}
		if !isEvent[l.from] || !isEvent[l.to] {
			return &model.ParseError{Fragment: l.from, Msg: "NEXT joins non-events"}
		}
		if _, dup := nextTo[l.from]; dup {
			return &model.ParseError{Fragment: l.from, Msg: "event has two successors"}
		}
		nextTo[l.from] = l
		indeg[l.to]++
		if indeg[l.to] > 1 {
			return &model.ParseError{Fragment: l.to, Msg: "event has two predecessors"}
		}
	}
	head := ""
	for _, n := range eventNodes {
		if indeg[n.name] == 0 {
			if head != "" {
				return &model.ParseError{Fragment: n.name, Msg: "event chain is broken"}
			}
			head = n.name
		}
	}
	if head == "" {
		return &model.ParseError{Msg: "event chain is broken"}
	}
	chain := []string{head}
	for {
		l, ok := nextTo[chain[len(chain)-1]]
		if !ok {
			break
		}
		chain = append(chain, l.to)
	}
	if len(chain) != len(eventNodes) {
		return &model.ParseError{Msg: "event chain is broken"}
	}

	// 3. Fact ownership
	owner := map[string]string{}
	for _, l := range links {
		if !l.undirected && l.relType != "IS" {
			continue
		}
		var eventName, factName string
		switch {
		case isEvent[l.from] && isFact[l.to]:
			eventName, factName = l.from, l.to
		case isEvent[l.to] && isFact[l.from]:
			eventName, factName = l.to, l.from
		default:
			if l.undirected {
				return &model.ParseError{Fragment: l.from, Msg: "undirected links may only attach facts to events"}
			}
			continue
		}
		if prev, dup := owner[factName]; dup && prev != eventName {
			return &model.ParseError{Fragment: factName, Msg: "fact has two owners"}
		}
		owner[factName] = eventName
	}
	var factNodes []*rawNode
	for _, n := range nodes {
		if isFact[n.name] {
			if owner[n.name] == "" {
				return &model.ParseError{Fragment: n.name, Msg: "fact not attached to an event"}
			}
			factNodes = append(factNodes, n)
		}
	}

	// 4. Canonical renaming
	rename := map[string]string{}
	eventIdx := map[string]int{}
	for i, name := range chain {
		rename[name] = fmt.Sprintf("e%d", i)
		eventIdx[name] = i
	}
	sort.SliceStable(factNodes, func(i, j int) bool {
		a, b := factNodes[i], factNodes[j]
		ea, eb := eventIdx[owner[a.name]], eventIdx[owner[b.name]]
		if ea != eb {
			return ea < eb
		}
		return a.order < b.order
	})
	factIdx := map[string]int{}
	for j, n := range factNodes {
		rename[n.name] = fmt.Sprintf("f%d", j)
		factIdx[n.name] = j
	}
	var relNames []string
	if len(chain) > 1 {
		relNames = make([]string, len(chain)-1)
		for i := 0; i+1 < len(chain); i++ {
			if l := nextTo[chain[i]]; l.relName != "" {
				canonical := fmt.Sprintf("n%d", i)
				rename[l.relName] = canonical
				relNames[i] = canonical
			}
		}
	}
	canonical := map[string]bool{}
	for _, target := range rename {
		canonical[target] = true
	}
	for _, n := range nodes {
		if _, renamed := rename[n.name]; !renamed && canonical[n.name] {
			return &model.ParseError{Fragment: n.name, Msg: "name collides with a canonical node name"}
		}
	}

	// 5. Events and facts with routed attributes
	q.Events = make([]model.Event, len(chain))
	for i, name := range chain {
		ev := model.Event{Name: fmt.Sprintf("e%d", i)}
		for _, prop := range byName[name].props {
			if err := applyEventProp(&ev, prop); err != nil {
				return err
			}
		}
		q.Events[i] = ev
	}
	q.RelNames = relNames
	for j, n := range factNodes {
		f := model.Fact{Name: fmt.Sprintf("f%d", j), Event: eventIdx[owner[n.name]]}
		for _, prop := range n.props {
			if err := applyFactProp(&f, &q.Events[f.Event], prop); err != nil {
				return err
			}
		}
		q.Facts = append(q.Facts, f)
		q.Events[f.Event].Facts = append(q.Events[f.Event].Facts, j)
	}

	// 6. Collection filters declared on TopRhythmic nodes
	for _, n := range nodes {
		if n.label != "TopRhythmic" {
			continue
		}
		if q.CollectionNode == "" {
			q.CollectionNode = n.name
		}
		for _, prop := range n.props {
			if prop.key != "collection" {
				continue
			}
			if prop.val.kind != tokString {
				return &model.ParseError{Fragment: n.name, Msg: "collection must be a string"}
			}
			q.Collections = appendUnique(q.Collections, prop.val.text)
		}
	}

	// 7. Auxiliary patterns, re-rendered with canonical names
	for _, l := range links {
		if l.relType == "NEXT" || l.undirected || l.relType == "IS" {
			continue
		}
		text := renderAuxNode(byName[l.from], rename) + "-[:" + l.relType + "]->" + renderAuxNode(byName[l.to], rename)
		q.Aux = append(q.Aux, text)
	}

	// 8. Conditions: membership bindings, attribute equalities, passthrough
	for _, cond := range conds {
		if err := p.applyCondition(q, cond, rename, byName, eventIdx, factIdx); err != nil {
			return err
		}
	}

	// 9. Invariants that merging could have broken
	for i := range q.Facts {
		f := &q.Facts[i]
		if c, ok := f.Class.Get(); ok && c == "r" {
			if f.Octave.IsKnown() || f.Accid.IsKnown() {
				return &model.ValidationError{Field: "pitch", Msg: "a rest cannot carry octave or accidental"}
			}
		}
	}
	return q.Params.Validate()
}

func applyEventProp(ev *model.Event, prop rawProp) error {
	if prop.bare {
		return &model.ParseError{Fragment: prop.key, Msg: "unknown event marker"}
	}
	if prop.wildcard {
		switch prop.key {
		case "dur":
			ev.Dur = model.Wildcard[int]()
		case "dots":
			ev.Dots = model.Wildcard[int]()
		case "start":
			ev.Start = model.Wildcard[float64]()
		case "end":
			ev.End = model.Wildcard[float64]()
		case "id":
			ev.ID = model.Wildcard[string]()
		default:
			return &model.ParseError{Fragment: prop.key, Msg: "unknown event attribute"}
		}
		return nil
	}
	switch prop.key {
	case "dur":
		v, err := intValue(prop.val)
		if err != nil {
			return err
		}
		ev.Dur = model.Known(v)
	case "dots":
		v, err := intValue(prop.val)
		if err != nil {
			return err
		}
		ev.Dots = model.Known(v)
	case "start":
		v, err := floatValue(prop.val)
		if err != nil {
			return err
		}
		ev.Start = model.Known(v)
	case "end":
		v, err := floatValue(prop.val)
		if err != nil {
			return err
		}
		ev.End = model.Known(v)
	case "id":
		if prop.val.kind != tokString {
			return &model.ParseError{Fragment: prop.key, Msg: "id must be a string"}
		}
		ev.ID = model.Known(prop.val.text)
	default:
		return &model.ParseError{Fragment: prop.key, Msg: "unknown event attribute"}
	}
	return nil
}

func applyFactProp(f *model.Fact, ev *model.Event, prop rawProp) error {
	if prop.bare {
		if prop.key == "fixed" {
			f.Fixed = true
			return nil
		}
		return &model.ParseError{Fragment: prop.key, Msg: "unknown fact marker"}
	}
	if prop.wildcard {
		switch prop.key {
		case "class":
			f.Class = model.Wildcard[string]()
		case "octave":
			f.Octave = model.Wildcard[int]()
		case "accid":
			f.Accid = model.Wildcard[string]()
		case "dur":
			ev.Dur = model.Wildcard[int]()
		case "dots":
			ev.Dots = model.Wildcard[int]()
		default:
			return &model.ParseError{Fragment: prop.key, Msg: "unknown fact attribute"}
		}
		return nil
	}
	switch prop.key {
	case "class":
		if prop.val.kind != tokString {
			return &model.ParseError{Fragment: prop.key, Msg: "class must be a string"}
		}
		if prop.val.text == "r" {
			f.Class = model.Known("r")
			return nil
		}
		cp, err := model.ParsePitch(prop.val.text)
		if err != nil {
			return err
		}
		f.Class = model.Known(cp.Class)
		if cp.Accid != "" {
			f.Accid = model.Known(cp.Accid)
		}
	case "octave":
		v, err := intValue(prop.val)
		if err != nil {
			return err
		}
		f.Octave = model.Known(v)
	case "accid":
		if prop.val.kind != tokString {
			return &model.ParseError{Fragment: prop.key, Msg: "accid must be a string"}
		}
		accid, err := model.NormalizeAccid(prop.val.text)
		if err != nil {
			return &model.ParseError{Fragment: prop.val.text, Msg: err.Error()}
		}
		f.Accid = model.Known(accid)
	case "dur":
		v, err := intValue(prop.val)
		if err != nil {
			return err
		}
		ev.Dur = model.Known(v)
	case "dots":
		v, err := intValue(prop.val)
		if err != nil {
			return err
		}
		ev.Dots = model.Known(v)
	default:
		return &model.ParseError{Fragment: prop.key, Msg: "unknown fact attribute"}
	}
	return nil
}

// applyCondition routes one WHERE condition: `node.attr IS fn` becomes a
// membership binding, a plain attribute equality folds into the node, and
// everything else passes through with canonical names.
func (p *parser) applyCondition(q *model.ParsedQuery, toks []token, rename map[string]string,
	byName map[string]*rawNode, eventIdx, factIdx map[string]int) error {

	if len(toks) == 5 &&
		toks[0].kind == tokIdent && toks[1].kind == tokSymbol && toks[1].text == "." &&
		toks[2].kind == tokIdent && toks[3].kind == tokIdent && toks[3].text == "IS" &&
		toks[4].kind == tokIdent {
		node := toks[0].text
		canonical, ok := rename[node]
		if !ok {
			if _, exists := byName[node]; !exists {
				return &model.ParseError{Fragment: node, Msg: "unknown node in condition"}
			}
			// Degrees attach to chain positions; auxiliary nodes have none.
			return &model.ParseError{Fragment: node, Msg: "membership bindings may only target events, facts or chain relations"}
		}
		fn := toks[4].text
		if _, defined := q.Membership(fn); !defined {
			return &model.ParseError{Fragment: fn, Msg: "undefined membership function"}
		}
		q.Bindings = append(q.Bindings, model.MembershipBinding{Node: canonical, Attr: toks[2].text, Function: fn})
		return nil
	}

	if len(toks) >= 5 &&
		toks[0].kind == tokIdent && toks[1].kind == tokSymbol && toks[1].text == "." &&
		toks[2].kind == tokIdent && toks[3].kind == tokSymbol && toks[3].text == "=" {
		if lit, next, ok := literalAt(toks, 4); ok && next == len(toks) {
			merged, err := p.mergeEquality(q, toks[0].text, toks[2].text, lit, byName, eventIdx, factIdx)
			if err != nil {
				return err
			}
			if merged {
				return nil
			}
		}
	}

	rewritten := make([]token, len(toks))
	for i, t := range toks {
		rewritten[i] = t
		if t.kind == tokIdent && i+1 < len(toks) && toks[i+1].kind == tokSymbol && toks[i+1].text == "." {
			if canon, ok := rename[t.text]; ok {
				rewritten[i].text = canon
			}
		}
	}
	q.Where = append(q.Where, renderTokens(rewritten))
	return nil
}

// mergeEquality folds `node.attr = literal` into the query graph when the
// attribute is one the reformulation emits itself. Everything else reports
// unmerged and stays a passthrough condition.
func (p *parser) mergeEquality(q *model.ParsedQuery, node, attr string, lit token,
	byName map[string]*rawNode, eventIdx, factIdx map[string]int) (bool, error) {

	prop := rawProp{key: attr, val: lit}
	if j, ok := factIdx[node]; ok {
		switch attr {
		case "class", "octave", "accid", "dur", "dots":
			f := &q.Facts[j]
			return true, applyFactProp(f, &q.Events[f.Event], prop)
		}
		return false, nil
	}
	if i, ok := eventIdx[node]; ok {
		switch attr {
		case "dur", "dots":
			return true, applyEventProp(&q.Events[i], prop)
		}
		return false, nil
	}
	if n, ok := byName[node]; ok && n.label == "TopRhythmic" && attr == "collection" {
		if lit.kind != tokString {
			return false, &model.ParseError{Fragment: node, Msg: "collection must be a string"}
		}
		q.Collections = appendUnique(q.Collections, lit.text)
		return true, nil
	}
	return false, nil
}

func literalAt(toks []token, i int) (token, int, bool) {
	if i >= len(toks) {
		return token{}, 0, false
	}
	t := toks[i]
	if t.kind == tokNumber || t.kind == tokString {
		return t, i + 1, true
	}
	if t.kind == tokSymbol && t.text == "-" && i+1 < len(toks) && toks[i+1].kind == tokNumber {
		return token{kind: tokNumber, text: "-" + toks[i+1].text, pos: t.pos}, i + 2, true
	}
	return token{}, 0, false
}

func intValue(t token) (int, error) {
	if t.kind != tokNumber {
		return 0, &model.ParseError{Fragment: t.text, Msg: "expected integer"}
	}
	v, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, &model.ParseError{Fragment: t.text, Msg: "malformed integer"}
	}
	return v, nil
}

func floatValue(t token) (float64, error) {
	if t.kind != tokNumber {
		return 0, &model.ParseError{Fragment: t.text, Msg: "expected number"}
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return 0, &model.ParseError{Fragment: t.text, Msg: "malformed number"}
	}
	return v, nil
}

// renderAuxNode rebuilds a non-chain node reference. Events and facts render
// name and label only; other nodes keep their remaining literal properties.
func renderAuxNode(n *rawNode, rename map[string]string) string {
	var b strings.Builder
	b.WriteByte('(')
	name := n.name
	if canon, ok := rename[name]; ok {
		name = canon
	}
	if !strings.HasPrefix(name, "_anon") {
		b.WriteString(name)
	}
	if n.label != "" {
		b.WriteByte(':')
		b.WriteString(n.label)
	}
	if _, renamed := rename[n.name]; !renamed {
		var props []string
		for _, prop := range n.props {
			if n.label == "TopRhythmic" && prop.key == "collection" {
				continue
			}
			switch {
			case prop.bare:
				props = append(props, prop.key)
			case prop.wildcard:
				continue
			case prop.val.kind == tokString:
				props = append(props, prop.key+":'"+prop.val.text+"'")
			default:
				props = append(props, prop.key+":"+prop.val.text)
			}
		}
		if len(props) > 0 {
			b.WriteByte('{')
			b.WriteString(strings.Join(props, ", "))
			b.WriteByte('}')
		}
	}
	b.WriteByte(')')
	return b.String()
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
