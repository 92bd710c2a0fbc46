package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusComplete, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusPending, false},
		{PaymentStatusComplete, PaymentStatusFailed, false},
		{PaymentStatusComplete, PaymentStatusPending, false},
		{PaymentStatusFailed, PaymentStatusComplete, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParsePaymentStatus(t *testing.T) {
	s, err := ParsePaymentStatus(" Complete ")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusComplete, s)

	_, err = ParsePaymentStatus("refunded")
	assert.Error(t, err)
}

func TestParseTargetKind(t *testing.T) {
	k, err := ParseTargetKind("blog_post")
	require.NoError(t, err)
	assert.Equal(t, TargetBlogPost, k)

	_, err = ParseTargetKind("review")
	assert.Error(t, err)
}

func TestCartTotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{Quantity: 2, Product: Product{Price: decimal.RequireFromString("10.00")}},
		{Quantity: 1, Product: Product{Price: decimal.RequireFromString("5.00")}},
	}}
	assert.Equal(t, "25.00", cart.Total().StringFixed(2))
}

func TestOrderShippingAddressLine(t *testing.T) {
	billing := BillingAddress{FirstName: "Ada", LastName: "Lovelace", StreetAddress1: "1 High St", City: "Leeds", Zipcode: "LS1", Country: "UK"}
	order := Order{BillingAddress: billing}
	assert.Equal(t, "Ada Lovelace, 1 High St, Leeds, LS1, UK", order.ShippingAddressLine())

	order.OptionalShippingAddress = &OptionalShippingAddress{FirstName: "Ada", LastName: "Lovelace", StreetAddress1: "2 Low Rd", StreetAddress2: "Flat 3", City: "York", Zipcode: "YO1", Country: "UK"}
	assert.Equal(t, "Ada Lovelace, 2 Low Rd, Flat 3, York, YO1, UK", order.ShippingAddressLine())
}

func TestOrderItemChargeableUnitPrice(t *testing.T) {
	item := OrderItem{UnitPrice: decimal.RequireFromString("10.00")}
	assert.Equal(t, "10.00", item.ChargeableUnitPrice().StringFixed(2))

	item.FinalPriceAfterDiscount = decimal.NewNullDecimal(decimal.RequireFromString("8.50"))
	assert.Equal(t, "8.50", item.ChargeableUnitPrice().StringFixed(2))
}
