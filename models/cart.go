package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is anonymous and addressed by an opaque UUID. It is deleted when an
// order is placed from it.
type Cart struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

type CartItem struct {
	ID                      uint                `gorm:"primaryKey" json:"id"`
	CartID                  string              `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_items_cart_product" json:"-"`
	ProductID               uint                `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Product                 Product             `json:"product"`
	Variation               *string             `gorm:"size:255" json:"variation"`
	Quantity                int                 `gorm:"not null" json:"quantity"`
	FinalPriceAfterDiscount decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"final_price_after_discount"`
}

// LineTotal is quantity times the live product price.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total is the sum of LineTotal over all items.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
