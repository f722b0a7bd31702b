package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusbridge/onboard/internal/identity"
	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/sections"
	apperrors "github.com/campusbridge/onboard/pkg/errors"
)

func newProfileFixture(t *testing.T) (*ProfileService, *countingStore, *GormAccountStore) {
	t.Helper()

	store, _ := openAccountStore(t)
	counting := &countingStore{AccountStore: store}
	svc, err := NewProfileService(counting, sections.NewRegistry(identity.NewResolver("IN")))
	require.NoError(t, err)
	return svc, counting, store
}

func TestProfileUpdateUnknownSectionSkipsStore(t *testing.T) {
	svc, counting, _ := newProfileFixture(t)

	_, err := svc.UpdateSection(context.Background(), models.KindInstitute, "any-id", "password", []byte(`{"x":1}`), 0)
	require.ErrorIs(t, err, sections.ErrInvalidSection)

	_, err = svc.UpdateSection(context.Background(), models.KindStudent, "any-id", "courses", []byte(`[]`), 0)
	require.ErrorIs(t, err, sections.ErrInvalidSection)

	require.Empty(t, counting.Calls())
}

func TestProfileUpdateSectionReplacesColumn(t *testing.T) {
	svc, _, store := newProfileFixture(t)
	ctx := context.Background()
	account := createInstitute(t, store, "profile@springfield.edu", "+919876543210", "password123", true)

	update, err := svc.UpdateSection(ctx, models.KindInstitute, account.ID, "basic_info",
		[]byte(`{"institute_name":"Springfield College","institute_type":"college","established_year":1965}`), 0)
	require.NoError(t, err)

	require.EqualValues(t, 2, update.Account.AccountBase().Version)
	require.JSONEq(t,
		`{"institute_name":"Springfield College","institute_type":"college","established_year":1965}`,
		string(update.Account.SectionJSON("basic_info")))
	require.Equal(t, 1, update.Progress.Completed)
	require.Equal(t, "contact", update.Progress.CurrentStep)
	require.NotNil(t, update.NextStep)
	require.Equal(t, "contact", update.NextStep.Key)

	update, err = svc.UpdateSection(ctx, models.KindInstitute, account.ID, "basic_info",
		[]byte(`{"institute_name":"Renamed","institute_type":"university"}`), 2)
	require.NoError(t, err)
	require.JSONEq(t, `{"institute_name":"Renamed","institute_type":"university"}`, string(update.Account.SectionJSON("basic_info")))
	require.EqualValues(t, 3, update.Account.AccountBase().Version)
}

func TestProfileUpdateSectionVersionConflict(t *testing.T) {
	svc, _, store := newProfileFixture(t)
	ctx := context.Background()
	account := createInstitute(t, store, "race@springfield.edu", "+919876543210", "password123", true)

	_, err := svc.UpdateSection(ctx, models.KindInstitute, account.ID, "social_media", []byte(`{"website":"https://springfield.edu"}`), 1)
	require.NoError(t, err)

	_, err = svc.UpdateSection(ctx, models.KindInstitute, account.ID, "social_media", []byte(`{"website":"https://other.edu"}`), 1)
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestProfileUpdateSectionValidationFields(t *testing.T) {
	svc, counting, store := newProfileFixture(t)
	account := createInstitute(t, store, "invalid@springfield.edu", "+919876543210", "password123", true)

	_, err := svc.UpdateSection(context.Background(), models.KindInstitute, account.ID, "courses",
		[]byte(`[{"name":"BSc"},{"name":"MSc"},{"name":""}]`), 0)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Contains(t, appErr.Fields, "courses[2].name")
	require.Empty(t, counting.Calls())
}

func TestProfileReplaceAchievementsDraftRule(t *testing.T) {
	svc, _, store := newProfileFixture(t)
	ctx := context.Background()
	account := createInstitute(t, store, "awards@springfield.edu", "+919876543210", "password123", true)

	update, err := svc.ReplaceAchievements(ctx, models.KindInstitute, account.ID, []sections.Achievement{
		{},
		{Title: "Best College", Description: "State award", Category: "award", Date: "2023-04-01"},
	}, 0)
	require.NoError(t, err)

	var stored []sections.Achievement
	require.NoError(t, json.Unmarshal(update.Account.SectionJSON("achievements"), &stored))
	require.Len(t, stored, 1)
	require.Equal(t, "Best College", stored[0].Title)

	_, err = svc.ReplaceAchievements(ctx, models.KindInstitute, account.ID, []sections.Achievement{
		{},
		{Title: "Half filled"},
	}, 0)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Contains(t, appErr.Fields, "achievements[1].description")
	require.Contains(t, appErr.Fields, "achievements[1].category")
	require.NotContains(t, appErr.Fields, "achievements[1].title")
}

func TestProfileSetMediaURLAndProgress(t *testing.T) {
	svc, _, store := newProfileFixture(t)
	ctx := context.Background()
	account := createInstitute(t, store, "logo@springfield.edu", "+919876543210", "password123", true)

	record, err := svc.SetMediaURL(ctx, models.KindInstitute, account.ID, "https://cdn.example.com/logos/a.png")
	require.NoError(t, err)
	institute, ok := record.(*models.Institute)
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/logos/a.png", institute.LogoURL)

	progress, err := svc.Progress(ctx, models.KindInstitute, account.ID)
	require.NoError(t, err)
	require.Equal(t, 8, progress.Total)
	require.Zero(t, progress.Completed)
	require.Equal(t, "basic_info", progress.CurrentStep)

	_, err = svc.Progress(ctx, models.KindInstitute, "missing")
	require.ErrorIs(t, err, ErrAccountNotFound)
}
