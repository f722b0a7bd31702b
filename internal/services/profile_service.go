package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/sections"
	"github.com/campusbridge/onboard/internal/wizard"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/metrics"
)

// SectionUpdate is the outcome of a successful section write.
type SectionUpdate struct {
	Account  models.AccountRecord
	Progress wizard.Progress
	// NextStep is the wizard step following the one that edits the written
	// section, nil when the section is the last step or not part of the flow.
	NextStep *wizard.Step
}

// ProfileService writes profile sections for institutes and students.
type ProfileService struct {
	store    AccountStore
	registry *sections.Registry
	log      *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(store AccountStore, registry *sections.Registry) (*ProfileService, error) {
	if store == nil {
		return nil, errors.New("profile service: store is required")
	}
	if registry == nil {
		return nil, errors.New("profile service: section registry is required")
	}
	return &ProfileService{
		store:    store,
		registry: registry,
		log:      logger.WithModule("profile"),
	}, nil
}

// Registry exposes the section whitelist.
func (s *ProfileService) Registry() *sections.Registry {
	return s.registry
}

// UpdateSection validates payload against the section schema and replaces the
// stored column. Unknown sections are rejected before storage is touched.
// A positive expectedVersion turns the write into a compare-and-swap.
func (s *ProfileService) UpdateSection(ctx context.Context, kind models.AccountKind, accountID, section string, payload []byte, expectedVersion int64) (SectionUpdate, error) {
	if !s.registry.Allowed(kind, section) {
		metrics.SectionUpdates.WithLabelValues(string(kind), "unknown", "invalid_section").Inc()
		return SectionUpdate{}, sections.ErrInvalidSection
	}

	value, err := s.registry.Decode(kind, section, payload)
	if err != nil {
		metrics.SectionUpdates.WithLabelValues(string(kind), section, "invalid").Inc()
		return SectionUpdate{}, err
	}

	return s.write(ctx, kind, accountID, value, expectedVersion)
}

// ReplaceAchievements stores a batch of achievements after applying the draft
// rule: empty rows are dropped and partially filled rows must be complete.
func (s *ProfileService) ReplaceAchievements(ctx context.Context, kind models.AccountKind, accountID string, items []sections.Achievement, expectedVersion int64) (SectionUpdate, error) {
	if items == nil {
		items = []sections.Achievement{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return SectionUpdate{}, fmt.Errorf("profile service: encode achievements: %w", err)
	}
	return s.UpdateSection(ctx, kind, accountID, "achievements", payload, expectedVersion)
}

// SetMediaURL stores an uploaded logo or profile photo location.
func (s *ProfileService) SetMediaURL(ctx context.Context, kind models.AccountKind, accountID, url string) (models.AccountRecord, error) {
	section := mediaSection(kind)
	payload, err := json.Marshal(url)
	if err != nil {
		return nil, fmt.Errorf("profile service: encode url: %w", err)
	}
	update, err := s.UpdateSection(ctx, kind, accountID, section, payload, 0)
	if err != nil {
		return nil, err
	}
	return update.Account, nil
}

// Progress reports the wizard position of an account.
func (s *ProfileService) Progress(ctx context.Context, kind models.AccountKind, accountID string) (wizard.Progress, error) {
	record, err := s.store.FindByID(ctx, kind, accountID)
	if err != nil {
		return wizard.Progress{}, err
	}
	return wizard.Evaluate(kind, record), nil
}

func (s *ProfileService) write(ctx context.Context, kind models.AccountKind, accountID string, value sections.Value, expectedVersion int64) (SectionUpdate, error) {
	record, err := s.store.UpdateSection(ctx, kind, accountID, value.Section, value.Column(), expectedVersion)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrVersionConflict) {
			result = "conflict"
		}
		metrics.SectionUpdates.WithLabelValues(string(kind), value.Section, result).Inc()
		return SectionUpdate{}, err
	}

	metrics.SectionUpdates.WithLabelValues(string(kind), value.Section, "success").Inc()
	s.log.Debug("section updated",
		zap.String("account_type", string(kind)),
		zap.String("account_id", accountID),
		zap.String("section", value.Section),
		zap.Int64("version", record.AccountBase().Version))

	update := SectionUpdate{
		Account:  record,
		Progress: wizard.Evaluate(kind, record),
	}
	if step, _, ok := wizard.StepForSection(kind, value.Section); ok {
		if next, ok, err := wizard.Next(kind, step.Key); err == nil && ok {
			update.NextStep = &next
		}
	}
	return update, nil
}

func mediaSection(kind models.AccountKind) string {
	if kind == models.KindInstitute {
		return "logo_url"
	}
	return "profile_photo_url"
}
