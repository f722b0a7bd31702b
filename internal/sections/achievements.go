package sections

import (
	"fmt"
	"strings"

	"github.com/campusbridge/onboard/pkg/validator"
)

// Achievement is a persisted achievement entry.
type Achievement struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=2000"`
	Category    string     `json:"category" validate:"required,max=100"`
	Date        string     `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Documents   []Document `json:"documents,omitempty" validate:"max=10,dive"`
}

// IsDraft reports whether the entry is an untouched draft row: every field
// empty, documents included.
func (a Achievement) IsDraft() bool {
	if strings.TrimSpace(a.Title) != "" ||
		strings.TrimSpace(a.Description) != "" ||
		strings.TrimSpace(a.Category) != "" ||
		strings.TrimSpace(a.Date) != "" {
		return false
	}
	for _, doc := range a.Documents {
		if strings.TrimSpace(doc.Name) != "" || strings.TrimSpace(doc.URL) != "" {
			return false
		}
	}
	return true
}

func (a Achievement) trimmed() Achievement {
	out := Achievement{
		Title:       strings.TrimSpace(a.Title),
		Description: strings.TrimSpace(a.Description),
		Category:    strings.TrimSpace(a.Category),
		Date:        strings.TrimSpace(a.Date),
	}
	for _, doc := range a.Documents {
		doc.Name = strings.TrimSpace(doc.Name)
		doc.URL = strings.TrimSpace(doc.URL)
		if doc.Name == "" && doc.URL == "" {
			continue
		}
		out.Documents = append(out.Documents, doc)
	}
	return out
}

// NormalizeAchievements drops draft rows and validates the rest. Field errors
// are keyed by the index the entry had in the submitted list, prefixed with
// prefix (e.g. "achievements[3].title"), so dropping drafts never shifts the
// keys reported for later entries.
func NormalizeAchievements(prefix string, submitted []Achievement) ([]Achievement, map[string]string) {
	kept := make([]Achievement, 0, len(submitted))
	var fields map[string]string

	for idx, item := range submitted {
		if item.IsDraft() {
			continue
		}
		item = item.trimmed()

		if err := validator.ValidateStruct(item); err != nil {
			verrs, ok := err.(validator.ValidationErrors)
			if !ok {
				if fields == nil {
					fields = map[string]string{}
				}
				fields[fmt.Sprintf("%s[%d]", prefix, idx)] = err.Error()
				continue
			}
			if fields == nil {
				fields = map[string]string{}
			}
			for path, msg := range verrs.FieldMap() {
				key := fmt.Sprintf("%s[%d].%s", prefix, idx, path)
				if _, exists := fields[key]; !exists {
					fields[key] = msg
				}
			}
			continue
		}
		kept = append(kept, item)
	}

	return kept, fields
}
