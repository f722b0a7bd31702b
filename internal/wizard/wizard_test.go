package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/sections"
)

func keys(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Section
	}
	return out
}

func TestStepOrder(t *testing.T) {
	require.Equal(t, []string{
		"basic_info", "contact_details", "courses", "faculty",
		"achievements", "facilities", "media", "social_media",
	}, keys(Steps(models.KindInstitute)))
	require.Equal(t, []string{
		"basic_info", "contact_info", "education", "achievements",
		"preferences", "social_media",
	}, keys(Steps(models.KindStudent)))
}

func TestEveryStepIsARegisteredSection(t *testing.T) {
	reg := sections.NewRegistry(nil)
	for _, kind := range models.AccountKinds {
		for _, step := range Steps(kind) {
			require.True(t, reg.Allowed(kind, step.Section), "%s/%s", kind, step.Section)
		}
	}
}

func TestNextAndPrevious(t *testing.T) {
	next, ok, err := Next(models.KindInstitute, "faculty")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "achievements", next.Key)

	_, ok, err = Next(models.KindInstitute, "social")
	require.NoError(t, err)
	require.False(t, ok)

	prev, ok, err := Previous(models.KindStudent, "achievements")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "education", prev.Key)

	_, ok, err = Previous(models.KindStudent, "basic_info")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = Next(models.KindStudent, "courses")
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestStepForSection(t *testing.T) {
	step, idx, ok := StepForSection(models.KindStudent, "contact_info")
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.Equal(t, "contact", step.Key)

	_, _, ok = StepForSection(models.KindStudent, "profile_photo_url")
	require.False(t, ok)
}

func TestEvaluate(t *testing.T) {
	inst := &models.Institute{
		BasicInfo:      datatypes.JSON(`{"institute_name":"Greenfield"}`),
		ContactDetails: datatypes.JSON(`{}`),
		Courses:        datatypes.JSON(`[{"name":"B.Sc"}]`),
		Achievements:   datatypes.JSON(`[]`),
	}

	progress := Evaluate(models.KindInstitute, inst)
	require.Equal(t, 8, progress.Total)
	require.Equal(t, 2, progress.Completed)
	require.Equal(t, 25, progress.Percent)
	require.Equal(t, "contact", progress.CurrentStep)
	require.False(t, progress.Done)
	require.True(t, progress.Steps[0].Complete)
	require.False(t, progress.Steps[1].Complete)
	require.True(t, progress.Steps[2].Complete)
}

func TestEvaluateComplete(t *testing.T) {
	st := &models.Student{
		BasicInfo:    datatypes.JSON(`{"full_name":"Asha"}`),
		ContactInfo:  datatypes.JSON(`{"email":"a@b.com"}`),
		Education:    datatypes.JSON(`[{"institution":"X"}]`),
		Achievements: datatypes.JSON(`[{"title":"Y"}]`),
		Preferences:  datatypes.JSON(`{"study_mode":"online"}`),
		SocialMedia:  datatypes.JSON(`{"github":"https://github.com/asha"}`),
	}

	progress := Evaluate(models.KindStudent, st)
	require.True(t, progress.Done)
	require.Equal(t, 100, progress.Percent)
	require.Empty(t, progress.CurrentStep)
}
