package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type MembershipTier string

const (
	MembershipFree   MembershipTier = "Free"
	MembershipBronze MembershipTier = "Bronze"
	MembershipSilver MembershipTier = "Silver"
	MembershipGold   MembershipTier = "Gold"
)

// DefaultMemberships are seeded when the memberships table has no rows for them.
var DefaultMemberships = []Membership{
	{Label: MembershipFree, DiscountPercentage: decimal.NewFromInt(0)},
	{Label: MembershipBronze, DiscountPercentage: decimal.NewFromInt(5)},
	{Label: MembershipSilver, DiscountPercentage: decimal.NewFromInt(10)},
	{Label: MembershipGold, DiscountPercentage: decimal.NewFromInt(15)},
}

type Membership struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Label              MembershipTier  `gorm:"size:32;uniqueIndex;not null" json:"label"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percentage"`
}

// NormalizeLookupKey maps a gateway price lookup key onto the form
// membership labels are compared in.
func NormalizeLookupKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Account is the identity a bearer token refers to. Credentials are managed
// by the identity provider, not here.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"size:150" json:"first_name"`
	LastName  string    `gorm:"size:150" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID                        uint       `gorm:"primaryKey" json:"id"`
	AccountID                 uint       `gorm:"uniqueIndex;not null" json:"account_id"`
	Account                   Account    `json:"account"`
	Phone                     string     `gorm:"size:32" json:"phone"`
	BirthDate                 *time.Time `gorm:"type:date" json:"birth_date"`
	MembershipID              uint       `gorm:"index;not null" json:"-"`
	Membership                Membership `json:"membership"`
	BillingAddressID          *uint      `json:"billing_address_id"`
	OptionalShippingAddressID *uint      `json:"optional_shipping_address_id"`
	GatewayCustomerID         *string    `gorm:"size:255;uniqueIndex" json:"-"`
	Interests                 []Interest `gorm:"many2many:customer_interests" json:"interests"`
	CreatedAt                 time.Time  `json:"created_at"`
}

// Interest is a shared label customers pick to describe what they shop for.
type Interest struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Label string `gorm:"size:255;uniqueIndex;not null" json:"label"`
}

type AddressKind string

const (
	AddressKindBilling  AddressKind = "billing"
	AddressKindShipping AddressKind = "shipping"
)

type BillingAddress struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	CustomerID     *uint  `gorm:"index" json:"customer"`
	FirstName      string `gorm:"size:255;not null" json:"first_name"`
	LastName       string `gorm:"size:255;not null" json:"last_name"`
	Country        string `gorm:"size:255;not null" json:"country"`
	City           string `gorm:"size:255;not null" json:"city"`
	StreetAddress1 string `gorm:"column:street_address_1;size:255;not null" json:"street_address_1"`
	StreetAddress2 string `gorm:"column:street_address_2;size:255" json:"street_address_2"`
	Zipcode        string `gorm:"size:32;not null" json:"zipcode"`
	Email          string `gorm:"size:254;not null" json:"email"`
	Phone          string `gorm:"size:32" json:"phone"`
	OrderNotes     string `json:"order_notes"`
}

func (a BillingAddress) String() string {
	return formatAddress(a.FirstName, a.LastName, a.StreetAddress1, a.StreetAddress2, a.City, a.Zipcode, a.Country)
}

type OptionalShippingAddress struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	CustomerID     *uint  `gorm:"index" json:"customer"`
	FirstName      string `gorm:"size:255;not null" json:"first_name"`
	LastName       string `gorm:"size:255;not null" json:"last_name"`
	Country        string `gorm:"size:255;not null" json:"country"`
	City           string `gorm:"size:255;not null" json:"city"`
	StreetAddress1 string `gorm:"column:street_address_1;size:255;not null" json:"street_address_1"`
	StreetAddress2 string `gorm:"column:street_address_2;size:255" json:"street_address_2"`
	Zipcode        string `gorm:"size:32;not null" json:"zipcode"`
	OrderNotes     string `json:"order_notes"`
}

func (a OptionalShippingAddress) String() string {
	return formatAddress(a.FirstName, a.LastName, a.StreetAddress1, a.StreetAddress2, a.City, a.Zipcode, a.Country)
}

func formatAddress(first, last, street1, street2, city, zip, country string) string {
	parts := []string{strings.TrimSpace(first + " " + last), street1}
	if street2 != "" {
		parts = append(parts, street2)
	}
	parts = append(parts, city, zip, country)
	return strings.Join(parts, ", ")
}

// Address is implemented by both address kinds.
type Address interface {
	AddressKind() AddressKind
	AddressID() uint
	String() string
}

func (BillingAddress) AddressKind() AddressKind { return AddressKindBilling }
func (a BillingAddress) AddressID() uint        { return a.ID }

func (OptionalShippingAddress) AddressKind() AddressKind { return AddressKindShipping }
func (a OptionalShippingAddress) AddressID() uint        { return a.ID }

// ParseAddressKind accepts the kinds used in routes.
func ParseAddressKind(s string) (AddressKind, bool) {
	switch AddressKind(strings.ToLower(s)) {
	case AddressKindBilling:
		return AddressKindBilling, true
	case AddressKindShipping:
		return AddressKindShipping, true
	}
	return "", false
}
