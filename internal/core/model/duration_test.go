package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDurationFraction(t *testing.T) {
	assert.InDelta(t, 0.25, Duration{Value: 4}.Fraction(), 1e-9)
	assert.InDelta(t, 1.0, Duration{Value: 1}.Fraction(), 1e-9)

	// One dot adds half, a second dot a quarter
	assert.InDelta(t, 0.375, Duration{Value: 4, Dots: 1}.Fraction(), 1e-9)
	assert.InDelta(t, 0.875, Duration{Value: 2, Dots: 2}.Fraction(), 1e-9)

	assert.Equal(t, 0.0, Duration{}.Fraction())
}

func TestDurFromFraction(t *testing.T) {
	assert.Equal(t, 4, DurFromFraction(0.25, 0))
	assert.Equal(t, 16, DurFromFraction(0.0625, 0))
	assert.Equal(t, 4, DurFromFraction(0.375, 1))
	assert.Equal(t, 1, DurFromFraction(1.5, 1))
	assert.Equal(t, 4, DurFromFraction(0.4375, 2))
	assert.Equal(t, 0, DurFromFraction(0, 0))
}

func TestFuzzyParamsValidate(t *testing.T) {
	ok := DefaultFuzzyParams()
	assert.NoError(t, ok.Validate())

	bad := DefaultFuzzyParams()
	bad.Alpha = 1.5
	err := bad.Validate()
	assert.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "alpha", verr.Field)

	bad = DefaultFuzzyParams()
	bad.PitchDistance = -1
	assert.Error(t, bad.Validate())

	bad = DefaultFuzzyParams()
	bad.DurationFactor = 0
	assert.Error(t, bad.Validate())

	bad = DefaultFuzzyParams()
	bad.DurationGap = -0.25
	assert.Error(t, bad.Validate())
}

func TestAttrStates(t *testing.T) {
	var unset Attr[int]
	assert.False(t, unset.IsKnown())
	assert.False(t, unset.IsWildcard())

	w := Wildcard[int]()
	assert.True(t, w.IsWildcard())
	assert.False(t, w.IsKnown())

	k := Known(4)
	v, ok := k.Get()
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestFactPitch(t *testing.T) {
	f := Fact{
		Name:   "f0",
		Class:  Known("c"),
		Octave: Known(5),
		Accid:  Known("#"),
	}
	p := f.Pitch()
	assert.Equal(t, "c#/5", p.String())

	// Wildcards stay absent in the assembled pitch
	f = Fact{Name: "f1", Class: Wildcard[string](), Octave: Known(4)}
	p = f.Pitch()
	assert.False(t, p.HasClass())
	assert.Equal(t, 4, *p.Octave)
}
