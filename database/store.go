package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"survey-backend/models"
	"survey-backend/submission"
)

// Store is the gorm-backed survey repository.
type Store struct {
	db *gorm.DB
}

var _ submission.Repository = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for wiring and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// FindSurvey resolves ref against the survey id first, then the code.
func (s *Store) FindSurvey(ctx context.Context, ref string) (*models.Survey, error) {
	var survey models.Survey
	err := s.db.WithContext(ctx).Where("id = ? OR code = ?", ref, ref).First(&survey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find survey %q: %w", ref, submission.ErrSurveyNotFound)
		}
		return nil, fmt.Errorf("find survey %q: %w", ref, err)
	}
	return &survey, nil
}

// ActiveQuestionCodes returns active question codes in display order.
func (s *Store) ActiveQuestionCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("is_active = ?", true).
		Order("display_order, question_code").
		Pluck("question_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("list active questions: %w", err)
	}
	return codes, nil
}

// InsertResponseHeader inserts the header row. The unique
// (survey_id, employee_id) index is the only duplicate check.
func (s *Store) InsertResponseHeader(ctx context.Context, header *models.Response) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(header).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert response: %w", submission.ErrDuplicateResponse)
		}
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// InsertAnswerItems writes all items in one multi-row INSERT.
func (s *Store) InsertAnswerItems(ctx context.Context, items []models.ResponseItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("insert response items: %w", err)
	}
	return nil
}

func (s *Store) WithTransaction(ctx context.Context, fn func(submission.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// DeleteOrphanHeaders removes response headers without any items that were
// answered before cutoff. Cascade is not needed: they own nothing.
func (s *Store) DeleteOrphanHeaders(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Exec(`
		DELETE FROM responses
		WHERE answered_at < ?
		  AND NOT EXISTS (
			SELECT 1 FROM response_items
			WHERE response_items.response_id = responses.id
		  )`, cutoff)
	if res.Error != nil {
		return 0, fmt.Errorf("delete orphan responses: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClaimIdempotencyKey inserts rec as a pending key. When the key already
// exists the stored record is returned with created=false, unless it has
// expired or has been pending for longer than lease.
func (s *Store) ClaimIdempotencyKey(ctx context.Context, rec *models.IdempotencyKey, lease time.Duration) (*models.IdempotencyKey, bool, error) {
	db := s.db.WithContext(ctx)
	now := s.db.NowFunc()

	var existing models.IdempotencyKey
	err := db.Where(&models.IdempotencyKey{Key: rec.Key}).First(&existing).Error
	switch {
	case err == nil && !existing.ExpiresAt.After(now):
		if err := db.Where("id = ? AND expires_at <= ?", existing.ID, now).Delete(&models.IdempotencyKey{}).Error; err != nil {
			return nil, false, fmt.Errorf("expire idempotency key: %w", err)
		}
	case err == nil && existing.Pending() && lease > 0 && existing.CreatedAt.Before(now.Add(-lease)):
		// abandoned claim
		if err := db.Where("id = ? AND response_status = ?", existing.ID, 0).Delete(&models.IdempotencyKey{}).Error; err != nil {
			return nil, false, fmt.Errorf("reclaim idempotency key: %w", err)
		}
	case err == nil:
		return &existing, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}

	if err := db.Create(rec).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("idempotency create failed: %w", err)
		}
		// lost the race; the winner's record is authoritative
		if err := db.Where(&models.IdempotencyKey{Key: rec.Key}).First(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("idempotency reread failed: %w", err)
		}
		return &existing, false, nil
	}
	return rec, true, nil
}

// CompleteIdempotencyKey stores the final response for key.
func (s *Store) CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte) error {
	now := s.db.NowFunc()
	blob := make([]byte, len(body))
	copy(blob, body)
	err := s.db.WithContext(ctx).
		Model(&models.IdempotencyKey{}).
		Where(&models.IdempotencyKey{Key: key}).
		Updates(map[string]any{
			"response_status": status,
			"response_body":   datatypes.JSON(blob),
			"completed_at":    &now,
		}).Error
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// ReleaseIdempotencyKey forgets a pending key so the request can be retried.
func (s *Store) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where(&models.IdempotencyKey{Key: key}).Delete(&models.IdempotencyKey{}).Error
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *Store) PurgeExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.IdempotencyKey{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", res.Error)
	}
	return res.RowsAffected, nil
}
