// Package validation checks Add/Edit sample forms before they reach the
// store. Only the first violated rule is reported, in form field order.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"soil-bknd/internal/models"

	"github.com/go-playground/validator/v10"
)

// Error is a failed rule, carried back to the client as its message.
type Error struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// messages keyed by "<field>.<rule>"; fields without an entry fall back to a
// generic message.
var messages = map[string]string{
	"location_name.required":   "Location name is required",
	"location_name.max":        "Location name must be at most 200 characters",
	"municipality_id.required": "Please select a municipality",
	"municipality_id.uuid":     "Please select a municipality",
	"latitude.required":        "Please select a location on the map",
	"longitude.required":       "Please select a location on the map",
	"temperature.required":     "Temperature is required",
	"temperature.gte":          "Temperature too low",
	"temperature.lte":          "Temperature too high",
	"ph.required":              "pH is required",
	"ph.gte":                   "pH must be between 0 and 14",
	"ph.lte":                   "pH must be between 0 and 14",
	"fertility_percentage.gte": "Fertility must be between 0 and 100",
	"fertility_percentage.lte": "Fertility must be between 0 and 100",
	"nitrogen_level.gte":       "Nitrogen level cannot be negative",
	"phosphorus_level.gte":     "Phosphorus level cannot be negative",
	"potassium_level.gte":      "Potassium level cannot be negative",
	"notes.max":                "Notes must be less than 1000 characters",
}

// SampleForm normalizes f in place and returns the first violated rule, or nil.
func SampleForm(f *models.SampleForm) error {
	f.Normalize()

	err := instance().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate sample form: %w", err)
	}

	first := verrs[0]
	return &Error{
		Field:   first.Field(),
		Rule:    first.Tag(),
		Message: message(first),
	}
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
