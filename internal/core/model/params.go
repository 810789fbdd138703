package model

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FuzzyParams are the tolerance directives of one query. PitchDistance is in
// tones, DurationFactor multiplicative (1.0 = exact), DurationGap a
// whole-note fraction, Alpha the minimum acceptable degree.
type FuzzyParams struct {
	PitchDistance      float64 `json:"pitch_distance" validate:"gte=0"`
	DurationFactor     float64 `json:"duration_factor" validate:"gt=0"`
	DurationGap        float64 `json:"duration_gap" validate:"gte=0"`
	Alpha              float64 `json:"alpha" validate:"gte=0,lte=1"`
	AllowTransposition bool    `json:"allow_transposition"`
	AllowHomothety     bool    `json:"allow_homothety"`
}

// DefaultFuzzyParams is the all-exact baseline used when a query carries no
// tolerance directives.
func DefaultFuzzyParams() FuzzyParams {
	return FuzzyParams{DurationFactor: 1.0}
}

func (p FuzzyParams) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			switch fe.Field() {
			case "Alpha":
				return &ValidationError{Field: "alpha", Msg: "must be within [0, 1]"}
			case "PitchDistance":
				return &ValidationError{Field: "pitch_distance", Msg: "must not be negative"}
			case "DurationFactor":
				return &ValidationError{Field: "duration_factor", Msg: "must be positive"}
			case "DurationGap":
				return &ValidationError{Field: "duration_gap", Msg: "must not be negative"}
			}
		}
	}
	return err
}
