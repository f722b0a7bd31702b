package validator

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	// Path is the JSON path of the field relative to the validated value,
	// e.g. "courses[2].name".
	Path  string `json:"path"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// Message renders a human readable description of the failure.
func (v ValidationError) Message() string {
	switch v.Tag {
	case "required", "required_with", "required_without":
		return fmt.Sprintf("%s is required", v.Field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", v.Field)
	case "url", "http_url", "media_url":
		return fmt.Sprintf("%s must be a valid URL", v.Field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", v.Field, v.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", v.Field, v.Param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", v.Field, v.Param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", v.Field, v.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", v.Field, v.Param)
	case "datetime":
		return fmt.Sprintf("%s must match the format %s", v.Field, v.Param)
	case "e164":
		return fmt.Sprintf("%s must be a valid phone number", v.Field)
	default:
		if v.Param != "" {
			return fmt.Sprintf("%s failed on %s=%s", v.Field, v.Tag, v.Param)
		}
		return fmt.Sprintf("%s failed on %s", v.Field, v.Tag)
	}
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		if err.Param != "" {
			parts[i] = err.Path + " failed on " + err.Tag + "=" + err.Param
		} else {
			parts[i] = err.Path + " failed on " + err.Tag
		}
	}
	return strings.Join(parts, "; ")
}

// FieldMap indexes failures by JSON path, keeping the first message per path.
func (v ValidationErrors) FieldMap() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		if _, exists := out[err.Path]; exists {
			continue
		}
		out[err.Path] = err.Message()
	}
	return out
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: fe.Field(),
				Path:  relativePath(fe.Namespace()),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// ValidateVar validates a single value against a tag expression. The
// returned failures carry the supplied field name.
func ValidateVar(field string, value interface{}, tag string) error {
	err := getValidator().Var(value, tag)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: field,
				Path:  field,
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

// relativePath drops the root struct name from a validator namespace.
func relativePath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx != -1 {
		return namespace[idx+1:]
	}
	return namespace
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("media_url", isMediaURL)
	})
	return validate
}

// isMediaURL accepts absolute http(s) URLs and root-relative paths such as
// "/uploads/logo.png". Scheme-relative "//host" forms are rejected.
func isMediaURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" || strings.ContainsAny(raw, " \t\r\n\\") {
		return false
	}
	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, "//") {
			return false
		}
		u, err := url.Parse(raw)
		return err == nil && u.Scheme == "" && u.Host == ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
