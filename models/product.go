package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string              `gorm:"size:255;not null" json:"name"`
	Slug             string              `gorm:"size:255;index" json:"slug"`
	SKU              *string             `gorm:"size:64;uniqueIndex" json:"sku,omitempty"`
	ShortDescription string              `json:"short_description"`
	FullDescription  string              `json:"full_description"`
	Price            decimal.Decimal     `gorm:"type:numeric(8,2);not null" json:"price"`
	Discount         decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"discount"`
	New              bool                `gorm:"not null;default:false" json:"new"`
	Stock            int                 `gorm:"not null;default:0" json:"stock"`
	CategoryID       uint                `gorm:"index;not null" json:"category_id"`
	Category         *Category           `json:"category,omitempty"`
	Variations       []ProductVariation  `gorm:"foreignKey:ProductID" json:"variations,omitempty"`
	Images           []ProductImage      `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type ProductVariation struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	ProductID uint                `gorm:"index;not null" json:"product_id"`
	SKU       string              `gorm:"size:64" json:"sku"`
	Label     string              `gorm:"size:255" json:"label"`
	Price     decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"price"`
	Stock     int                 `gorm:"not null;default:0" json:"stock"`
}

// ProductImage is an uploaded file served under /uploads.
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	FileName  string    `gorm:"size:255;not null" json:"-"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a shopper's free-text review of a product.
type Review struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"index;not null" json:"product_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"date"`
}
