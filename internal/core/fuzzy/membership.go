package fuzzy

import (
	"fmt"
	"math"

	"github.com/agenthands/musypher/internal/core/model"
)

// Membership is a compiled fuzzy set: the evaluator used when scoring rows
// and the support interval injected as a range pre-filter into compiled
// queries. Unbounded support ends are +-Inf.
type Membership struct {
	Name        string
	Degree      func(x float64) float64
	SupportLow  float64
	SupportHigh float64
}

// Compile turns a membership declaration into an evaluator with its support.
func Compile(def model.MembershipDef) (Membership, error) {
	switch def.Shape {
	case model.ShapeTrapezoid:
		if len(def.Points) != 4 {
			return Membership{}, &model.ParseError{Fragment: def.Name, Msg: "trapezoid needs four points"}
		}
		if err := checkOrdered(def.Points); err != nil {
			return Membership{}, &model.ParseError{Fragment: def.Name, Msg: err.Error()}
		}
		a, b, c, d := def.Points[0], def.Points[1], def.Points[2], def.Points[3]
		return Membership{
			Name:        def.Name,
			Degree:      trapezoid(a, b, c, d),
			SupportLow:  a,
			SupportHigh: d,
		}, nil
	case model.ShapeAscending:
		if len(def.Points) != 2 {
			return Membership{}, &model.ParseError{Fragment: def.Name, Msg: "ascending ramp needs two points"}
		}
		if err := checkOrdered(def.Points); err != nil {
			return Membership{}, &model.ParseError{Fragment: def.Name, Msg: err.Error()}
		}
		a, b := def.Points[0], def.Points[1]
		return Membership{
			Name:        def.Name,
			Degree:      ascending(a, b),
			SupportLow:  a,
			SupportHigh: math.Inf(1),
		}, nil
	case model.ShapeDescending:
		if len(def.Points) != 2 {
			return Membership{}, &model.ParseError{Fragment: def.Name, Msg: "descending ramp needs two points"}
		}
		if err := checkOrdered(def.Points); err != nil {
			return Membership{}, &model.ParseError{Fragment: def.Name, Msg: err.Error()}
		}
		a, b := def.Points[0], def.Points[1]
		return Membership{
			Name:        def.Name,
			Degree:      descending(a, b),
			SupportLow:  math.Inf(-1),
			SupportHigh: b,
		}, nil
	}
	return Membership{}, &model.ParseError{Fragment: def.Name, Msg: "unknown membership shape"}
}

// CompileAll compiles every declaration, keyed by name.
func CompileAll(defs []model.MembershipDef) (map[string]Membership, error) {
	out := make(map[string]Membership, len(defs))
	for _, def := range defs {
		m, err := Compile(def)
		if err != nil {
			return nil, err
		}
		out[def.Name] = m
	}
	return out, nil
}

func checkOrdered(points []float64) error {
	for i := 1; i < len(points); i++ {
		if points[i] < points[i-1] {
			return fmt.Errorf("membership points must not decrease")
		}
	}
	return nil
}

func trapezoid(a, b, c, d float64) func(float64) float64 {
	return func(x float64) float64 {
		switch {
		case x <= a:
			return 0
		case x < b:
			return (x - a) / (b - a)
		case x <= c:
			return 1
		case x < d:
			return (d - x) / (d - c)
		default:
			return 0
		}
	}
}

func ascending(a, b float64) func(float64) float64 {
	return func(x float64) float64 {
		switch {
		case x <= a:
			return 0
		case x < b:
			return (x - a) / (b - a)
		default:
			return 1
		}
	}
}

func descending(a, b float64) func(float64) float64 {
	return func(x float64) float64 {
		switch {
		case x <= a:
			return 1
		case x < b:
			return (b - x) / (b - a)
		default:
			return 0
		}
	}
}
