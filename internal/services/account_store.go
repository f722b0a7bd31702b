package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusbridge/onboard/internal/models"
)

// AccountStore persists institutes and students.
type AccountStore interface {
	Create(ctx context.Context, record models.AccountRecord) error
	FindByID(ctx context.Context, kind models.AccountKind, id string) (models.AccountRecord, error)
	FindByEmail(ctx context.Context, kind models.AccountKind, email string) (models.AccountRecord, error)
	FindByPhone(ctx context.Context, kind models.AccountKind, phone string) (models.AccountRecord, error)
	UpdateFields(ctx context.Context, kind models.AccountKind, id string, fields map[string]any) error
	// UpdateSection replaces one column and bumps the row version. When
	// expectedVersion is positive the write only applies to that version.
	UpdateSection(ctx context.Context, kind models.AccountKind, id, column string, value any, expectedVersion int64) (models.AccountRecord, error)
	Delete(ctx context.Context, kind models.AccountKind, id string) error
	// RecordCodeMismatch counts one wrong guess against the pending code
	// codeHash. Once the count reaches limit the code is cleared and exhausted
	// is true. attempts is zero when codeHash is no longer pending.
	RecordCodeMismatch(ctx context.Context, kind models.AccountKind, id, codeHash string, limit int) (attempts int, exhausted bool, err error)
	// ConsumeCode marks the account verified at now if codeHash is still
	// pending and below limit mismatches. Expiry is checked by the caller.
	ConsumeCode(ctx context.Context, kind models.AccountKind, id, codeHash string, limit int, now time.Time) (bool, error)
	// PurgeStaleCodes clears verification codes that expired before cutoff.
	PurgeStaleCodes(ctx context.Context, kind models.AccountKind, cutoff time.Time) (int64, error)
}

// GormAccountStore implements AccountStore with gorm.
type GormAccountStore struct {
	db *gorm.DB
}

// NewGormAccountStore constructs the store.
func NewGormAccountStore(db *gorm.DB) (*GormAccountStore, error) {
	if db == nil {
		return nil, errors.New("account store: db is required")
	}
	return &GormAccountStore{db: db}, nil
}

func newRecord(kind models.AccountKind) (models.AccountRecord, error) {
	record := models.NewRecord(kind)
	if record == nil {
		return nil, fmt.Errorf("account store: unknown account type %q", kind)
	}
	return record, nil
}

func (s *GormAccountStore) Create(ctx context.Context, record models.AccountRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("account store: create %s: %w", record.Kind(), err)
	}
	return nil
}

func (s *GormAccountStore) FindByID(ctx context.Context, kind models.AccountKind, id string) (models.AccountRecord, error) {
	return s.findBy(ctx, kind, "id = ?", id)
}

func (s *GormAccountStore) FindByEmail(ctx context.Context, kind models.AccountKind, email string) (models.AccountRecord, error) {
	return s.findBy(ctx, kind, "email = ?", email)
}

func (s *GormAccountStore) FindByPhone(ctx context.Context, kind models.AccountKind, phone string) (models.AccountRecord, error) {
	return s.findBy(ctx, kind, "phone = ?", phone)
}

func (s *GormAccountStore) findBy(ctx context.Context, kind models.AccountKind, query string, arg any) (models.AccountRecord, error) {
	record, err := newRecord(kind)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where(query, arg).Take(record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account store: find %s: %w", kind, err)
	}
	return record, nil
}

func (s *GormAccountStore) UpdateFields(ctx context.Context, kind models.AccountKind, id string, fields map[string]any) error {
	record, err := newRecord(kind)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(record).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("account store: update %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *GormAccountStore) UpdateSection(ctx context.Context, kind models.AccountKind, id, column string, value any, expectedVersion int64) (models.AccountRecord, error) {
	record, err := newRecord(kind)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Model(record).Where("id = ?", id)
	if expectedVersion > 0 {
		tx = tx.Where("version = ?", expectedVersion)
	}
	res := tx.Updates(map[string]any{
		column:    value,
		"version": gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("account store: update section %s: %w", column, res.Error)
	}

	if res.RowsAffected == 0 {
		if _, err := s.FindByID(ctx, kind, id); err != nil {
			return nil, err
		}
		return nil, ErrVersionConflict
	}

	return s.FindByID(ctx, kind, id)
}

func (s *GormAccountStore) Delete(ctx context.Context, kind models.AccountKind, id string) error {
	record, err := newRecord(kind)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(record).Error; err != nil {
		return fmt.Errorf("account store: delete %s: %w", kind, err)
	}
	return nil
}

func (s *GormAccountStore) RecordCodeMismatch(ctx context.Context, kind models.AccountKind, id, codeHash string, limit int) (int, bool, error) {
	record, err := newRecord(kind)
	if err != nil {
		return 0, false, err
	}

	var attempts int
	var exhausted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(record).
			Where("id = ? AND verification_code_hash = ?", id, codeHash).
			Update("verification_attempts", gorm.Expr("verification_attempts + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		// the row stays locked by the update until commit
		if err := tx.Model(record).Select("verification_attempts").Where("id = ?", id).Row().Scan(&attempts); err != nil {
			return err
		}
		if attempts < limit {
			return nil
		}
		exhausted = true
		return tx.Model(record).Where("id = ?", id).Updates(map[string]any{
			"verification_code_hash":  nil,
			"verification_expires_at": nil,
			"verification_attempts":   0,
		}).Error
	})
	if err != nil {
		return 0, false, fmt.Errorf("account store: record mismatch %s: %w", kind, err)
	}
	return attempts, exhausted, nil
}

func (s *GormAccountStore) ConsumeCode(ctx context.Context, kind models.AccountKind, id, codeHash string, limit int, now time.Time) (bool, error) {
	record, err := newRecord(kind)
	if err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Model(record).
		Where("id = ? AND is_verified = ? AND verification_code_hash = ? AND verification_attempts < ?",
			id, false, codeHash, limit).
		Updates(map[string]any{
			"is_verified":             true,
			"verified_at":             now,
			"verification_code_hash":  nil,
			"verification_expires_at": nil,
			"verification_attempts":   0,
		})
	if res.Error != nil {
		return false, fmt.Errorf("account store: consume code %s: %w", kind, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormAccountStore) PurgeStaleCodes(ctx context.Context, kind models.AccountKind, cutoff time.Time) (int64, error) {
	record, err := newRecord(kind)
	if err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(record).
		Where("is_verified = ? AND verification_code_hash IS NOT NULL AND verification_expires_at < ?", false, cutoff).
		Updates(map[string]any{
			"verification_code_hash":  nil,
			"verification_expires_at": nil,
			"verification_attempts":   0,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("account store: purge codes %s: %w", kind, res.Error)
	}
	return res.RowsAffected, nil
}
