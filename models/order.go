package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // awaiting gateway confirmation
	PaymentStatusComplete PaymentStatus = "complete" // paid
	PaymentStatusFailed   PaymentStatus = "failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentStatusPending:
		return PaymentStatusPending, nil
	case PaymentStatusComplete:
		return PaymentStatusComplete, nil
	case PaymentStatusFailed:
		return PaymentStatusFailed, nil
	default:
		return "", fmt.Errorf("invalid payment status %q", s)
	}
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusComplete || s == PaymentStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal change.
// Staying in the same state is not a transition.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && next.IsTerminal()
}

type Order struct {
	ID                        uint                     `gorm:"primaryKey" json:"id"`
	PlacedAt                  time.Time                `gorm:"autoCreateTime" json:"placed_at"`
	PaymentStatus             PaymentStatus            `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	CustomerID                *uint                    `gorm:"index" json:"customer"`
	BillingAddressID          uint                     `gorm:"not null" json:"billing_address_id"`
	BillingAddress            BillingAddress           `json:"billing_address"`
	OptionalShippingAddressID *uint                    `json:"optional_shipping_address_id"`
	OptionalShippingAddress   *OptionalShippingAddress `json:"optional_shipping_address,omitempty"`
	FinalPrice                decimal.Decimal          `gorm:"type:numeric(8,2);not null" json:"final_price"`
	GatewaySessionID          *string                  `gorm:"size:255;index" json:"-"`
	GatewayChargeID           *string                  `gorm:"size:255" json:"-"`
	Items                     []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// ShippingAddressLine falls back to the billing address when no separate
// shipping address was given.
func (o Order) ShippingAddressLine() string {
	if o.OptionalShippingAddress != nil {
		return o.OptionalShippingAddress.String()
	}
	return o.BillingAddress.String()
}

type OrderItem struct {
	ID                      uint                `gorm:"primaryKey" json:"id"`
	OrderID                 uint                `gorm:"index;not null" json:"-"`
	ProductID               uint                `gorm:"not null" json:"product_id"`
	Product                 Product             `json:"product"`
	Variation               *string             `gorm:"size:255" json:"variation"`
	Quantity                int                 `gorm:"not null" json:"quantity"`
	UnitPrice               decimal.Decimal     `gorm:"type:numeric(8,2);not null" json:"unit_price"`
	FinalPriceAfterDiscount decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"final_price_after_discount"`
}

// ChargeableUnitPrice is the discounted price when one was captured, else the
// unit price.
func (i OrderItem) ChargeableUnitPrice() decimal.Decimal {
	if i.FinalPriceAfterDiscount.Valid {
		return i.FinalPriceAfterDiscount.Decimal
	}
	return i.UnitPrice
}
