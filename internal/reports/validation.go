package reports

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/scoutdesk/scoutdesk/internal/shared"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("score", func(fl validator.FieldLevel) bool {
		return ValidScore(fl.Field().Float())
	})
	return v
}

// normalize trims free-text fields so whitespace-only values count as missing.
func (in CreateInput) normalize() CreateInput {
	in.Strengths = strings.TrimSpace(in.Strengths)
	in.Weaknesses = strings.TrimSpace(in.Weaknesses)
	in.Comparison = strings.TrimSpace(in.Comparison)
	in.RiskAssessment = strings.TrimSpace(in.RiskAssessment)
	in.AdditionalNotes = strings.TrimSpace(in.AdditionalNotes)
	in.Recommendation = Recommendation(strings.TrimSpace(string(in.Recommendation)))
	return in
}

func validateCreate(v *validator.Validate, in CreateInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.FieldError("payload", err.Error())
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return shared.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be a positive id"
	case "score":
		return "must be between 1 and 10 in steps of 0.5"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
