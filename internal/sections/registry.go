// Package sections defines the profile sections each account kind may write
// and the typed schema every section payload is validated against.
package sections

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gorm.io/datatypes"

	"github.com/campusbridge/onboard/internal/models"
	apperrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/validator"
)

// MaxListItems bounds list sections such as courses or faculty.
const MaxListItems = 100

// ErrInvalidSection is returned for names outside a kind's whitelist.
var ErrInvalidSection = apperrors.New("INVALID_SECTION", "Unknown profile section", http.StatusBadRequest)

// Shape describes how a section is stored.
type Shape int

const (
	ShapeObject Shape = iota
	ShapeList
	ShapeURL
)

// PhoneNormalizer converts user supplied phone numbers to E.164.
type PhoneNormalizer interface {
	NormalizePhone(raw string) (string, bool)
}

// Value is a decoded, validated section ready to be persisted.
type Value struct {
	Section string
	Shape   Shape
	// JSON is the canonical encoding for object and list sections.
	JSON []byte
	// URL is set for string columns (logo_url, profile_photo_url).
	URL string
}

// Column value as handed to the storage layer.
func (v Value) Column() any {
	if v.Shape == ShapeURL {
		return v.URL
	}
	return datatypes.JSON(v.JSON)
}

// Definition binds a section name to its schema.
type Definition struct {
	Name  string
	Title string
	Shape Shape

	decode func(r *Registry, name string, raw []byte) ([]byte, map[string]string, error)
}

// Registry holds the section whitelist per account kind.
type Registry struct {
	phones PhoneNormalizer
	kinds  map[models.AccountKind]map[string]Definition
	order  map[models.AccountKind][]string
}

// NewRegistry builds the registry. phones may be nil, in which case phone
// numbers are stored as submitted.
func NewRegistry(phones PhoneNormalizer) *Registry {
	r := &Registry{
		phones: phones,
		kinds:  make(map[models.AccountKind]map[string]Definition),
		order:  make(map[models.AccountKind][]string),
	}

	r.register(models.KindInstitute,
		objectSection[InstituteBasicInfo]("basic_info", "Basic Info"),
		objectSection[InstituteContact]("contact_details", "Contact"),
		listSection[Course]("courses", "Courses"),
		listSection[FacultyMember]("faculty", "Faculty"),
		listSection[Facility]("facilities", "Facilities"),
		achievementsSection(),
		objectSection[InstituteMedia]("media", "Media"),
		objectSection[SocialLinks]("social_media", "Social"),
		urlSection("logo_url", "Logo"),
	)

	r.register(models.KindStudent,
		objectSection[StudentBasicInfo]("basic_info", "Basic Info"),
		objectSection[StudentContact]("contact_info", "Contact"),
		listSection[EducationEntry]("education", "Education"),
		objectSection[StudentPreferences]("preferences", "Preferences"),
		achievementsSection(),
		objectSection[SocialLinks]("social_media", "Social"),
		urlSection("profile_photo_url", "Profile Photo"),
	)

	return r
}

func (r *Registry) register(kind models.AccountKind, defs ...Definition) {
	set := make(map[string]Definition, len(defs))
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		set[def.Name] = def
		names = append(names, def.Name)
	}
	r.kinds[kind] = set
	r.order[kind] = names
}

// Allowed reports whether name is writable for kind.
func (r *Registry) Allowed(kind models.AccountKind, name string) bool {
	_, ok := r.kinds[kind][name]
	return ok
}

// Lookup returns the definition registered for name.
func (r *Registry) Lookup(kind models.AccountKind, name string) (Definition, bool) {
	def, ok := r.kinds[kind][name]
	return def, ok
}

// Names lists the whitelist for kind in registration order.
func (r *Registry) Names(kind models.AccountKind) []string {
	return append([]string(nil), r.order[kind]...)
}

// Decode parses, validates and canonicalises a section payload. Unknown
// sections yield ErrInvalidSection; schema failures yield a
// VALIDATION_FAILED error whose fields are keyed by JSON path.
func (r *Registry) Decode(kind models.AccountKind, name string, raw []byte) (Value, error) {
	def, ok := r.Lookup(kind, name)
	if !ok {
		return Value{}, ErrInvalidSection
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Value{}, apperrors.NewValidation(map[string]string{name: name + " is required"})
	}

	if def.Shape == ShapeURL {
		return r.decodeURL(name, raw)
	}

	out, fields, err := def.decode(r, name, raw)
	if err != nil {
		return Value{}, err
	}
	if len(fields) > 0 {
		return Value{}, apperrors.NewValidation(fields)
	}
	return Value{Section: name, Shape: def.Shape, JSON: out}, nil
}

func (r *Registry) decodeURL(name string, raw []byte) (Value, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return Value{}, apperrors.NewValidation(map[string]string{name: name + " must be a string"})
	}
	value = strings.TrimSpace(value)
	if err := validator.ValidateVar(name, value, "required,media_url,max=1024"); err != nil {
		return Value{}, apperrors.NewValidation(fieldsFrom(name, err))
	}
	return Value{Section: name, Shape: ShapeURL, URL: value}, nil
}

// IsEmpty reports whether stored section JSON counts as not filled in.
func IsEmpty(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}

type phoneField struct {
	path     string
	value    *string
	required bool
}

type phoneHolder interface {
	phoneFields() []phoneField
}

func objectSection[T any](name, title string) Definition {
	return Definition{
		Name:  name,
		Title: title,
		Shape: ShapeObject,
		decode: func(r *Registry, section string, raw []byte) ([]byte, map[string]string, error) {
			var target T
			if fields := strictDecode(section, raw, &target); fields != nil {
				return nil, fields, nil
			}
			if err := validator.ValidateStruct(&target); err != nil {
				return nil, prefixed(section, err), nil
			}
			if holder, ok := any(&target).(phoneHolder); ok {
				if fields := r.normalizePhones(section, holder); len(fields) > 0 {
					return nil, fields, nil
				}
			}
			out, err := json.Marshal(target)
			return out, nil, err
		},
	}
}

func listSection[T any](name, title string) Definition {
	return Definition{
		Name:  name,
		Title: title,
		Shape: ShapeList,
		decode: func(r *Registry, section string, raw []byte) ([]byte, map[string]string, error) {
			var items []T
			if fields := strictDecode(section, raw, &items); fields != nil {
				return nil, fields, nil
			}
			if items == nil {
				items = []T{}
			}
			if len(items) > MaxListItems {
				return nil, map[string]string{section: fmt.Sprintf("%s must contain at most %d entries", section, MaxListItems)}, nil
			}
			var fields map[string]string
			for idx := range items {
				if err := validator.ValidateStruct(&items[idx]); err != nil {
					if fields == nil {
						fields = map[string]string{}
					}
					for path, msg := range prefixed(fmt.Sprintf("%s[%d]", section, idx), err) {
						fields[path] = msg
					}
				}
			}
			if len(fields) > 0 {
				return nil, fields, nil
			}
			out, err := json.Marshal(items)
			return out, nil, err
		},
	}
}

func achievementsSection() Definition {
	return Definition{
		Name:  "achievements",
		Title: "Achievements",
		Shape: ShapeList,
		decode: func(_ *Registry, section string, raw []byte) ([]byte, map[string]string, error) {
			var items []Achievement
			if fields := strictDecode(section, raw, &items); fields != nil {
				return nil, fields, nil
			}
			if len(items) > MaxListItems {
				return nil, map[string]string{section: fmt.Sprintf("%s must contain at most %d entries", section, MaxListItems)}, nil
			}
			kept, fields := NormalizeAchievements(section, items)
			if len(fields) > 0 {
				return nil, fields, nil
			}
			out, err := json.Marshal(kept)
			return out, nil, err
		},
	}
}

func urlSection(name, title string) Definition {
	return Definition{Name: name, Title: title, Shape: ShapeURL}
}

func (r *Registry) normalizePhones(section string, holder phoneHolder) map[string]string {
	if r.phones == nil {
		return nil
	}
	var fields map[string]string
	for _, pf := range holder.phoneFields() {
		value := strings.TrimSpace(*pf.value)
		if value == "" {
			continue
		}
		e164, ok := r.phones.NormalizePhone(value)
		if !ok {
			if fields == nil {
				fields = map[string]string{}
			}
			fields[section+"."+pf.path] = pf.path + " must be a valid phone number"
			continue
		}
		*pf.value = e164
	}
	return fields
}

// strictDecode rejects unknown fields and reports type mismatches by path.
func strictDecode(section string, raw []byte, target any) map[string]string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	err := dec.Decode(target)
	if err == nil {
		if _, extra := dec.Token(); extra != io.EOF {
			return map[string]string{section: "unexpected data after JSON value"}
		}
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := section
		if typeErr.Field != "" {
			path = section + "." + typeErr.Field
		}
		return map[string]string{path: fmt.Sprintf("must be of type %s", jsonKind(typeErr.Type.Kind().String()))}
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		field := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return map[string]string{section + "." + field: "unknown field"}
	}
	return map[string]string{section: "malformed JSON"}
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "slice", "array":
		return "array"
	case "struct", "map":
		return "object"
	case "bool":
		return "boolean"
	default:
		return "number"
	}
}

func prefixed(section string, err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{section: err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for path, msg := range verrs.FieldMap() {
		fields[section+"."+path] = msg
	}
	return fields
}

func fieldsFrom(name string, err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{name: err.Error()}
	}
	return verrs.FieldMap()
}
