package models

type Category struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title             string    `gorm:"size:255;not null" json:"title"`
	FeaturedProductID *uint     `json:"featured_product_id,omitempty"`
	Products          []Product `gorm:"foreignKey:CategoryID" json:"-"`
}
