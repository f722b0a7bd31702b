// Package wizard drives the multi-step registration flow: which section each
// step edits, how far an account has progressed and which step comes next.
package wizard

import (
	"errors"
	"math"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/sections"
)

// ErrUnknownStep is returned when a step key is not part of a kind's flow.
var ErrUnknownStep = errors.New("wizard: unknown step")

// Step is one page of the wizard.
type Step struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Section string `json:"section"`
}

// StepStatus reports completion of a step.
type StepStatus struct {
	Step
	Index    int  `json:"index"`
	Complete bool `json:"complete"`
}

// Progress summarises an account's position in the wizard.
type Progress struct {
	AccountType models.AccountKind `json:"account_type"`
	Steps       []StepStatus       `json:"steps"`
	Completed   int                `json:"completed"`
	Total       int                `json:"total"`
	Percent     int                `json:"percent"`
	// CurrentStep is the first incomplete step, empty once everything is filled in.
	CurrentStep string `json:"current_step,omitempty"`
	Done        bool   `json:"done"`
}

// SectionSource exposes stored section JSON. models.AccountRecord satisfies it.
type SectionSource interface {
	SectionJSON(name string) []byte
}

var flows = map[models.AccountKind][]Step{
	models.KindInstitute: {
		{Key: "basic_info", Title: "Basic Info", Section: "basic_info"},
		{Key: "contact", Title: "Contact", Section: "contact_details"},
		{Key: "courses", Title: "Courses", Section: "courses"},
		{Key: "faculty", Title: "Faculty", Section: "faculty"},
		{Key: "achievements", Title: "Achievements", Section: "achievements"},
		{Key: "facilities", Title: "Facilities", Section: "facilities"},
		{Key: "media", Title: "Media", Section: "media"},
		{Key: "social", Title: "Social", Section: "social_media"},
	},
	models.KindStudent: {
		{Key: "basic_info", Title: "Basic Info", Section: "basic_info"},
		{Key: "contact", Title: "Contact", Section: "contact_info"},
		{Key: "education", Title: "Education", Section: "education"},
		{Key: "achievements", Title: "Achievements", Section: "achievements"},
		{Key: "preferences", Title: "Preferences", Section: "preferences"},
		{Key: "social", Title: "Social", Section: "social_media"},
	},
}

// Steps returns the ordered steps for kind.
func Steps(kind models.AccountKind) []Step {
	return append([]Step(nil), flows[kind]...)
}

// StepForSection finds the step editing section.
func StepForSection(kind models.AccountKind, section string) (Step, int, bool) {
	for idx, step := range flows[kind] {
		if step.Section == section {
			return step, idx, true
		}
	}
	return Step{}, -1, false
}

func indexOf(kind models.AccountKind, key string) int {
	for idx, step := range flows[kind] {
		if step.Key == key {
			return idx
		}
	}
	return -1
}

// Next returns the step after key. ok is false on the last step.
func Next(kind models.AccountKind, key string) (Step, bool, error) {
	idx := indexOf(kind, key)
	if idx == -1 {
		return Step{}, false, ErrUnknownStep
	}
	steps := flows[kind]
	if idx+1 >= len(steps) {
		return Step{}, false, nil
	}
	return steps[idx+1], true, nil
}

// Previous returns the step before key. It never validates or persists
// anything; ok is false on the first step.
func Previous(kind models.AccountKind, key string) (Step, bool, error) {
	idx := indexOf(kind, key)
	if idx == -1 {
		return Step{}, false, ErrUnknownStep
	}
	if idx == 0 {
		return Step{}, false, nil
	}
	return flows[kind][idx-1], true, nil
}

// Evaluate computes progress from the sections stored on src. A step is
// complete when its section holds a non-empty value.
func Evaluate(kind models.AccountKind, src SectionSource) Progress {
	steps := flows[kind]
	progress := Progress{
		AccountType: kind,
		Steps:       make([]StepStatus, 0, len(steps)),
		Total:       len(steps),
	}

	for idx, step := range steps {
		complete := src != nil && !sections.IsEmpty(src.SectionJSON(step.Section))
		if complete {
			progress.Completed++
		} else if progress.CurrentStep == "" {
			progress.CurrentStep = step.Key
		}
		progress.Steps = append(progress.Steps, StepStatus{Step: step, Index: idx, Complete: complete})
	}

	if progress.Total > 0 {
		progress.Percent = int(math.Round(float64(progress.Completed) * 100 / float64(progress.Total)))
	}
	progress.Done = progress.Total > 0 && progress.Completed == progress.Total
	return progress
}
