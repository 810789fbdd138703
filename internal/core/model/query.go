package model

// AttrState distinguishes an attribute the query never wrote from an
// explicit don't-care and from a concrete value.
type AttrState int

const (
	AttrUnspecified AttrState = iota
	AttrWildcard
	AttrKnown
)

// Attr is a tri-state query attribute.
type Attr[T any] struct {
	State AttrState
	Value T
}

func Known[T any](v T) Attr[T] { return Attr[T]{State: AttrKnown, Value: v} }

func Wildcard[T any]() Attr[T] { return Attr[T]{State: AttrWildcard} }

func (a Attr[T]) IsKnown() bool { return a.State == AttrKnown }

func (a Attr[T]) IsWildcard() bool { return a.State == AttrWildcard }

// Get returns the value and whether it is known.
func (a Attr[T]) Get() (T, bool) { return a.Value, a.State == AttrKnown }

// Event is one rhythmic position in the pattern chain. Dur holds the
// canonical denominator, not the whole-note fraction.
type Event struct {
	Name  string
	Dur   Attr[int]
	Dots  Attr[int]
	Start Attr[float64]
	End   Attr[float64]
	ID    Attr[string]
	Facts []int // indices into ParsedQuery.Facts, textual order
}

// Fact is one pitch attached to an event; chords attach several.
type Fact struct {
	Name   string
	Class  Attr[string] // "a".."g" or "r"
	Octave Attr[int]
	Accid  Attr[string]
	Fixed  bool // exact matching for this position regardless of tolerances
	Event  int
}

// Pitch assembles the fact's known attributes into a Pitch value; wildcard
// and unspecified attributes stay absent.
func (f *Fact) Pitch() Pitch {
	var p Pitch
	if c, ok := f.Class.Get(); ok {
		p.Class = c
	}
	if o, ok := f.Octave.Get(); ok {
		v := o
		p.Octave = &v
	}
	if a, ok := f.Accid.Get(); ok {
		p.Accid = a
	}
	return p
}

// MembershipShape selects the piecewise-linear profile of a fuzzy set.
type MembershipShape int

const (
	ShapeTrapezoid MembershipShape = iota
	ShapeAscending
	ShapeDescending
)

// MembershipDef declares a named fuzzy set: four points for a trapezoid,
// two for the ascending and descending ramps.
type MembershipDef struct {
	Name   string
	Shape  MembershipShape
	Points []float64
}

// MembershipBinding applies a declared fuzzy set to one node attribute,
// written `node.attr IS function` in query text.
type MembershipBinding struct {
	Node     string
	Attr     string
	Function string
}

// ParsedQuery is the structured form of a fuzzy pattern query. Events hold
// the melodic chain in textual order; RelNames[i] names the NEXT relation
// joining Events[i] to Events[i+1] (empty when unnamed). Aux keeps non-chain
// pattern fragments re-renderable, already canonicalized. Where carries
// passthrough conditions verbatim apart from node renaming.
type ParsedQuery struct {
	Events         []Event
	Facts          []Fact
	RelNames       []string
	Aux            []string
	Collections    []string
	CollectionNode string // name of the container node carrying the collection property
	Params         FuzzyParams
	Memberships    []MembershipDef
	Bindings       []MembershipBinding
	Where          []string
}

// FirstFact returns the first fact of event i, or nil when the event has no
// pitch attached.
func (q *ParsedQuery) FirstFact(i int) *Fact {
	if i < 0 || i >= len(q.Events) || len(q.Events[i].Facts) == 0 {
		return nil
	}
	return &q.Facts[q.Events[i].Facts[0]]
}

// EventFixed reports whether any pitch of event i carries the fixed marker,
// pinning the whole position to exact matching.
func (q *ParsedQuery) EventFixed(i int) bool {
	if i < 0 || i >= len(q.Events) {
		return false
	}
	for _, j := range q.Events[i].Facts {
		if q.Facts[j].Fixed {
			return true
		}
	}
	return false
}

// Membership looks up a declared fuzzy set by name.
func (q *ParsedQuery) Membership(name string) (MembershipDef, bool) {
	for _, m := range q.Memberships {
		if m.Name == name {
			return m, true
		}
	}
	return MembershipDef{}, false
}
