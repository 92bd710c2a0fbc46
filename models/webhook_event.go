package models

import "time"

type WebhookEventStatus string

const (
	WebhookEventProcessing WebhookEventStatus = "processing"
	WebhookEventDone       WebhookEventStatus = "done"
)

// ProcessedWebhookEvent records gateway event ids so redeliveries are applied once.
type ProcessedWebhookEvent struct {
	EventID     string             `gorm:"primaryKey;size:255"`
	EventKind   string             `gorm:"size:128;not null"`
	Status      WebhookEventStatus `gorm:"size:16;not null"`
	ClaimToken  string             `gorm:"size:64;not null;default:''"`
	ClaimedAt   time.Time          `gorm:"not null"`
	ProcessedAt *time.Time
}
