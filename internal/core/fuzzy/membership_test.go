package fuzzy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/musypher/internal/core/model"
)

func TestCompileTrapezoid(t *testing.T) {
	// stepUp profile: ramps over (0, 0.5), plateau to 1, down to 2
	m, err := Compile(model.MembershipDef{
		Name:   "stepUp",
		Shape:  model.ShapeTrapezoid,
		Points: []float64{0, 0.5, 1, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Degree(-1))
	assert.Equal(t, 0.0, m.Degree(0))
	assert.InDelta(t, 0.5, m.Degree(0.25), 1e-9)
	assert.Equal(t, 1.0, m.Degree(0.75))
	assert.InDelta(t, 0.5, m.Degree(1.5), 1e-9)
	assert.Equal(t, 0.0, m.Degree(2))

	assert.Equal(t, 0.0, m.SupportLow)
	assert.Equal(t, 2.0, m.SupportHigh)
}

func TestCompileRamps(t *testing.T) {
	up, err := Compile(model.MembershipDef{
		Name:   "leapUp",
		Shape:  model.ShapeAscending,
		Points: []float64{0.5, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, up.Degree(0.5))
	assert.InDelta(t, 0.5, up.Degree(1.25), 1e-9)
	assert.Equal(t, 1.0, up.Degree(3))
	assert.True(t, math.IsInf(up.SupportHigh, 1))
	assert.Equal(t, 0.5, up.SupportLow)

	down, err := Compile(model.MembershipDef{
		Name:   "leapDown",
		Shape:  model.ShapeDescending,
		Points: []float64{-2, -0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, down.Degree(-3))
	assert.InDelta(t, 0.5, down.Degree(-1.25), 1e-9)
	assert.Equal(t, 0.0, down.Degree(0))
	assert.True(t, math.IsInf(down.SupportLow, -1))
	assert.Equal(t, -0.5, down.SupportHigh)
}

func TestCompileRejectsBadDefinitions(t *testing.T) {
	_, err := Compile(model.MembershipDef{
		Name:   "broken",
		Shape:  model.ShapeTrapezoid,
		Points: []float64{0, 1},
	})
	assert.Error(t, err)
	var perr *model.ParseError
	assert.ErrorAs(t, err, &perr)

	_, err = Compile(model.MembershipDef{
		Name:   "unordered",
		Shape:  model.ShapeAscending,
		Points: []float64{2, 1},
	})
	assert.Error(t, err)
}

func TestCompileAll(t *testing.T) {
	defs := []model.MembershipDef{
		{Name: "repeat", Shape: model.ShapeTrapezoid, Points: []float64{-1, 0, 0, 1}},
		{Name: "muchLongerDuration", Shape: model.ShapeAscending, Points: []float64{2, 4}},
	}
	byName, err := CompileAll(defs)
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, 1.0, byName["repeat"].Degree(0))
	assert.InDelta(t, 0.5, byName["muchLongerDuration"].Degree(3), 1e-9)
}

func TestAggregators(t *testing.T) {
	assert.Equal(t, 1.0, Min(nil))
	assert.Equal(t, 0.25, Min([]float64{0.5, 0.25, 1}))

	assert.Equal(t, 1.0, Average(nil))
	assert.InDelta(t, 0.5, Average([]float64{0.25, 0.75}), 1e-9)

	assert.Equal(t, 0.0, AlmostAll(0.5))
	assert.InDelta(t, 0.5, AlmostAll(0.75), 1e-9)
	assert.Equal(t, 1.0, AlmostAll(1))

	assert.InDelta(t, 0.5, AlmostAllAverage([]float64{0.75, 0.75}), 1e-9)
}

func TestAlmostAllYager(t *testing.T) {
	// Cut at 0.5 keeps all three degrees: min(0.5, AlmostAll(1)) = 0.5.
	// Cut at 1 keeps two of three: min(1, AlmostAll(2/3)) = 1/3.
	got := AlmostAllYager([]float64{1, 1, 0.5})
	assert.InDelta(t, 0.5, got, 1e-9)

	assert.Equal(t, 1.0, AlmostAllYager(nil))
	assert.Equal(t, 1.0, AlmostAllYager([]float64{1, 1}))
	assert.Equal(t, 0.0, AlmostAllYager([]float64{0}))
}
