package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error for a field or key.
type ValidationError struct {
	Field   string         // Field name (for UI mapping)
	Rule    string         // Rule that was violated (e.g., "required", "max")
	Message string         // Human-readable message
	Params  map[string]any // Rule parameters (e.g., {"max": 100})
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors that can be accumulated.
type ValidationErrors []ValidationError

// Error implements the error interface, combining all error messages.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add appends a validation error to the collection.
func (e *ValidationErrors) Add(field, rule, message string) {
	*e = append(*e, ValidationError{Field: field, Rule: rule, Message: message})
}

// Merge combines another ValidationErrors into this collection.
func (e *ValidationErrors) Merge(other ValidationErrors) {
	*e = append(*e, other...)
}

// ByField returns the first error message for a specific field, or empty string.
func (e ValidationErrors) ByField(field string) string {
	for _, err := range e {
		if err.Field == field {
			return err.Message
		}
	}
	return ""
}

// Fields returns all unique field names that have errors.
func (e ValidationErrors) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, err := range e {
		if err.Field != "" && !seen[err.Field] {
			seen[err.Field] = true
			fields = append(fields, err.Field)
		}
	}
	return fields
}

// AsMap returns errors as a map of field name to first message.
func (e ValidationErrors) AsMap() map[string]string {
	result := make(map[string]string)
	for _, err := range e {
		if _, ok := result[err.Field]; !ok {
			result[err.Field] = err.Message
		}
	}
	return result
}

// Validator checks structs tagged with `validate` rules. Field names are
// taken from the `form` tag so errors map back onto HTML inputs.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s. Messages are untranslated English; MessageFunc can
// rewrite them per rule.
func (v *Validator) Struct(s any, msg MessageFunc) ValidationErrors {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Message: err.Error()}}
	}

	if msg == nil {
		msg = DefaultMessage
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ve := ValidationError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
		}
		if fe.Param() != "" {
			ve.Params = map[string]any{fe.Tag(): fe.Param()}
		}
		ve.Message = msg(ve)
		out = append(out, ve)
	}
	return out
}

// MessageFunc renders the message of a failed rule.
type MessageFunc func(ValidationError) string

// DefaultMessage renders English messages for the rules used in this module.
func DefaultMessage(e ValidationError) string {
	switch e.Rule {
	case "required":
		return "is required"
	case "email":
		return "is not a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %v characters", e.Params["max"])
	case "min":
		return fmt.Sprintf("must be at least %v characters", e.Params["min"])
	default:
		return "is invalid"
	}
}

// IsRequired checks if a string is not blank.
func IsRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}
