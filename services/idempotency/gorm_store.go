package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps claims in the processed_webhook_events table.
type GormStore struct {
	db    *gorm.DB
	lease time.Duration
	now   func() time.Time
}

func NewGormStore(db *gorm.DB, lease time.Duration) *GormStore {
	return &GormStore{
		db:    db,
		lease: lease,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *GormStore) Claim(ctx context.Context, eventID, kind string) (string, bool, error) {
	now := s.now()
	token := uuid.NewString()
	record := models.ProcessedWebhookEvent{
		EventID:    eventID,
		EventKind:  kind,
		Status:     models.WebhookEventProcessing,
		ClaimToken: token,
		ClaimedAt:  now,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if res.Error != nil {
		return "", false, fmt.Errorf("claim event %s: %w", eventID, res.Error)
	}
	if res.RowsAffected == 1 {
		return token, true, nil
	}

	res = s.db.WithContext(ctx).
		Model(&models.ProcessedWebhookEvent{}).
		Where("event_id = ? AND status = ? AND claimed_at < ?", eventID, models.WebhookEventProcessing, now.Add(-s.lease)).
		Updates(map[string]any{"claimed_at": now, "claim_token": token})
	if res.Error != nil {
		return "", false, fmt.Errorf("take over event %s: %w", eventID, res.Error)
	}
	if res.RowsAffected != 1 {
		return "", false, nil
	}
	return token, true, nil
}

func (s *GormStore) Complete(ctx context.Context, eventID, token string) error {
	now := s.now()
	err := s.db.WithContext(ctx).
		Model(&models.ProcessedWebhookEvent{}).
		Where("event_id = ? AND claim_token = ?", eventID, token).
		Updates(map[string]any{"status": models.WebhookEventDone, "processed_at": now}).Error
	if err != nil {
		return fmt.Errorf("complete event %s: %w", eventID, err)
	}
	return nil
}

func (s *GormStore) Release(ctx context.Context, eventID, token string) error {
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND status = ? AND claim_token = ?", eventID, models.WebhookEventProcessing, token).
		Delete(&models.ProcessedWebhookEvent{}).Error
	if err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}
