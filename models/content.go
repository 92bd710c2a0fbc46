package models

import (
	"fmt"
	"time"
)

type BlogPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TargetKind is the closed set of entity types tags and ailments may point at.
type TargetKind string

const (
	TargetProduct  TargetKind = "product"
	TargetBlogPost TargetKind = "blog_post"
	TargetCategory TargetKind = "category"
)

func ParseTargetKind(s string) (TargetKind, error) {
	switch k := TargetKind(s); k {
	case TargetProduct, TargetBlogPost, TargetCategory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown target kind %q", s)
	}
}

type Tag struct {
	ID    uint         `gorm:"primaryKey" json:"id"`
	Label string       `gorm:"size:255;uniqueIndex;not null" json:"label"`
	Items []TaggedItem `gorm:"foreignKey:TagID" json:"items,omitempty"`
}

type TaggedItem struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TagID      uint       `gorm:"not null;uniqueIndex:idx_tagged_items_target" json:"tag_id"`
	TargetKind TargetKind `gorm:"size:32;not null;uniqueIndex:idx_tagged_items_target;index:idx_tagged_items_lookup" json:"target_kind"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_tagged_items_target;index:idx_tagged_items_lookup" json:"target_id"`
}

type Ailment struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Description string        `json:"description"`
	Items       []AilmentItem `gorm:"foreignKey:AilmentID" json:"items,omitempty"`
}

type AilmentItem struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AilmentID  uint       `gorm:"not null;uniqueIndex:idx_ailment_items_target" json:"ailment_id"`
	TargetKind TargetKind `gorm:"size:32;not null;uniqueIndex:idx_ailment_items_target;index:idx_ailment_items_lookup" json:"target_kind"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_ailment_items_target;index:idx_ailment_items_lookup" json:"target_id"`
}
