package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sharp-spelled pitch classes indexed by semitones above c.
var sharpNames = []string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

var classSemitones = map[string]int{
	"c": 0, "d": 2, "e": 4, "f": 5, "g": 7, "a": 9, "b": 11,
}

var accidSemitones = map[string]int{
	"": 0, "#": 1, "n": 0, "b": -1, "x": 2, "bb": -2,
}

// Pitch is a notated pitch: class a-g (or "r" for a rest), optional octave,
// optional accidental. A missing class or octave leaves the pitch partially
// specified; the query layers treat those attributes as unconstrained.
type Pitch struct {
	Class  string `json:"class,omitempty"`
	Octave *int   `json:"octave,omitempty"`
	Accid  string `json:"accid,omitempty"`
}

// ParsePitch reads the textual forms "c#/5", "c/5", "c#", "c" and "r".
// Accidentals accept both spelling conventions: # or s for sharp, b, f or -
// for flat, n natural, x double sharp, bb double flat.
func ParsePitch(s string) (Pitch, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pitch{}, &ParseError{Fragment: s, Msg: "empty pitch"}
	}
	if s == "r" {
		return Pitch{Class: "r"}, nil
	}
	name := s
	var octave *int
	if i := strings.IndexByte(s, '/'); i >= 0 {
		name = s[:i]
		o, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return Pitch{}, &ParseError{Fragment: s, Msg: "malformed octave"}
		}
		octave = &o
	}
	if name == "" {
		return Pitch{}, &ParseError{Fragment: s, Msg: "missing pitch class"}
	}
	class := strings.ToLower(name[:1])
	if class < "a" || class > "g" {
		return Pitch{}, &ParseError{Fragment: s, Msg: "pitch class must be a-g or r"}
	}
	accid, err := NormalizeAccid(name[1:])
	if err != nil {
		return Pitch{}, &ParseError{Fragment: s, Msg: err.Error()}
	}
	return Pitch{Class: class, Octave: octave, Accid: accid}, nil
}

// NormalizeAccid folds the accepted accidental spellings onto the canonical
// set "#", "b", "n", "x", "bb" or empty.
func NormalizeAccid(a string) (string, error) {
	switch strings.ToLower(a) {
	case "":
		return "", nil
	case "#", "s":
		return "#", nil
	case "b", "f", "-":
		return "b", nil
	case "n":
		return "n", nil
	case "x":
		return "x", nil
	case "bb", "ff":
		return "bb", nil
	}
	return "", fmt.Errorf("unknown accidental %q", a)
}

func (p Pitch) IsRest() bool { return p.Class == "r" }

// HasClass reports whether the pitch names a sounding class (rests excluded).
func (p Pitch) HasClass() bool { return p.Class != "" && p.Class != "r" }

func (p Pitch) HasOctave() bool { return p.Octave != nil }

// SemitonesFromA4 is the signed semitone offset from a4, accidental included.
func (p Pitch) SemitonesFromA4() (int, error) {
	if p.IsRest() {
		return 0, &ValidationError{Field: "pitch", Msg: "rests have no pitch height"}
	}
	if !p.HasClass() || !p.HasOctave() {
		return 0, &ValidationError{Field: "pitch", Msg: "semitone arithmetic needs class and octave"}
	}
	return (*p.Octave-4)*12 + classSemitones[p.Class] + accidSemitones[p.Accid] - classSemitones["a"], nil
}

// Frequency is the equal-tempered frequency in Hz, a4 = 440.
func (p Pitch) Frequency() (float64, error) {
	semis, err := p.SemitonesFromA4()
	if err != nil {
		return 0, err
	}
	return 440 * math.Pow(2, float64(semis)/12), nil
}

// Transpose shifts the pitch by the given number of semitones and re-spells
// the result with sharps, carrying the octave across the class wrap.
func (p Pitch) Transpose(semitones int) (Pitch, error) {
	if p.IsRest() {
		return Pitch{}, &ValidationError{Field: "pitch", Msg: "cannot transpose a rest"}
	}
	if !p.HasClass() || !p.HasOctave() {
		return Pitch{}, &ValidationError{Field: "pitch", Msg: "transposition needs class and octave"}
	}
	total := *p.Octave*12 + classSemitones[p.Class] + accidSemitones[p.Accid] + semitones
	octave := total / 12
	idx := total % 12
	if idx < 0 {
		idx += 12
		octave--
	}
	name := sharpNames[idx]
	out := Pitch{Class: name[:1], Octave: &octave}
	if len(name) == 2 {
		out.Accid = "#"
	}
	return out, nil
}

// Sub returns the semitone distance p minus o.
func (p Pitch) Sub(o Pitch) (int, error) {
	a, err := p.SemitonesFromA4()
	if err != nil {
		return 0, err
	}
	b, err := o.SemitonesFromA4()
	if err != nil {
		return 0, err
	}
	return a - b, nil
}

// BaseStone places the pitch on the tone scale used for melodic interval
// targets: half the semitone count anchored 21 semitones below c0.
func (p Pitch) BaseStone() (float64, error) {
	if p.IsRest() {
		return 0, &ValidationError{Field: "pitch", Msg: "rests have no pitch height"}
	}
	if !p.HasClass() || !p.HasOctave() {
		return 0, &ValidationError{Field: "pitch", Msg: "interval arithmetic needs class and octave"}
	}
	return float64(classSemitones[p.Class]+accidSemitones[p.Accid]+*p.Octave*12+21) / 2, nil
}

// FrequencyBounds gives the integer Hz band reachable within maxDist tones
// once the alpha cut narrows it. The semitone width floors, so raising alpha
// only ever shrinks the band.
func (p Pitch) FrequencyBounds(maxDist, alpha float64) (int, int, error) {
	semis := int(math.Floor(2 * maxDist * (1 - alpha)))
	lowPitch, err := p.Transpose(-semis)
	if err != nil {
		return 0, 0, err
	}
	highPitch, err := p.Transpose(semis)
	if err != nil {
		return 0, 0, err
	}
	low, err := lowPitch.Frequency()
	if err != nil {
		return 0, 0, err
	}
	high, err := highPitch.Frequency()
	if err != nil {
		return 0, 0, err
	}
	return int(math.Floor(low)), int(math.Ceil(high)), nil
}

// ChromaticIndex is the folded semitone index above c, in [0, 12). The
// accidental is absorbed and the class wraps without borrowing an octave.
func (p Pitch) ChromaticIndex() (int, error) {
	if !p.HasClass() {
		return 0, &ValidationError{Field: "pitch", Msg: "no pitch class to index"}
	}
	idx := (classSemitones[p.Class] + accidSemitones[p.Accid]) % 12
	if idx < 0 {
		idx += 12
	}
	return idx, nil
}

// SharpName folds the accidental into a sharp spelling, e.g. db -> c#.
// The octave is left to the caller; the class wraps without borrowing.
func (p Pitch) SharpName() (string, error) {
	idx, err := p.ChromaticIndex()
	if err != nil {
		return "", err
	}
	return sharpNames[idx], nil
}

func (p Pitch) String() string {
	if p.IsRest() {
		return "r"
	}
	s := p.Class + p.Accid
	if p.Octave != nil {
		s += "/" + strconv.Itoa(*p.Octave)
	}
	return s
}
