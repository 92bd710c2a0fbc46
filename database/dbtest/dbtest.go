// Package dbtest provides an in-memory sqlite database with the full schema
// for package tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Open returns a migrated and seeded database. A single connection backs the
// pool, so concurrent transactions are serialized.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.AllModels...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	if err := database.SeedMemberships(db); err != nil {
		t.Fatalf("seed memberships: %v", err)
	}
	return db
}

func mustCreate(t testing.TB, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Omit(clause.Associations).Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func Product(t testing.TB, db *gorm.DB, name, price string) models.Product {
	t.Helper()
	var category models.Category
	if err := db.FirstOrCreate(&category, models.Category{Title: "Remedies"}).Error; err != nil {
		t.Fatalf("category: %v", err)
	}
	p := models.Product{
		Name:       name,
		Slug:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      10,
		CategoryID: category.ID,
	}
	mustCreate(t, db, &p)
	return p
}

// CartLine describes one item of a fixture cart.
type CartLine struct {
	Product    models.Product
	Quantity   int
	Discounted string
}

func Cart(t testing.TB, db *gorm.DB, lines ...CartLine) models.Cart {
	t.Helper()
	cart := models.Cart{ID: uuid.NewString()}
	mustCreate(t, db, &cart)
	for _, l := range lines {
		item := models.CartItem{CartID: cart.ID, ProductID: l.Product.ID, Quantity: l.Quantity}
		if l.Discounted != "" {
			item.FinalPriceAfterDiscount = decimal.NewNullDecimal(decimal.RequireFromString(l.Discounted))
		}
		mustCreate(t, db, &item)
		item.Product = l.Product
		cart.Items = append(cart.Items, item)
	}
	return cart
}

func BillingAddress(t testing.TB, db *gorm.DB, customerID *uint) models.BillingAddress {
	t.Helper()
	a := models.BillingAddress{
		CustomerID:     customerID,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Country:        "United Kingdom",
		City:           "London",
		StreetAddress1: "12 St James's Square",
		Zipcode:        "SW1Y 4LB",
		Email:          "ada@example.com",
	}
	mustCreate(t, db, &a)
	return a
}

func ShippingAddress(t testing.TB, db *gorm.DB, customerID *uint) models.OptionalShippingAddress {
	t.Helper()
	a := models.OptionalShippingAddress{
		CustomerID:     customerID,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Country:        "United Kingdom",
		City:           "Leeds",
		StreetAddress1: "1 Park Row",
		Zipcode:        "LS1 5AB",
	}
	mustCreate(t, db, &a)
	return a
}

func Membership(t testing.TB, db *gorm.DB, tier models.MembershipTier) models.Membership {
	t.Helper()
	var m models.Membership
	if err := db.Where("label = ?", tier).First(&m).Error; err != nil {
		t.Fatalf("membership %s: %v", tier, err)
	}
	return m
}

// Customer creates an account and its customer at the given tier.
func Customer(t testing.TB, db *gorm.DB, username string, tier models.MembershipTier) models.Customer {
	t.Helper()
	account := models.Account{Username: username, Email: username + "@example.com", FirstName: username}
	mustCreate(t, db, &account)
	c := models.Customer{AccountID: account.ID, MembershipID: Membership(t, db, tier).ID}
	mustCreate(t, db, &c)
	return Reload(t, db, c.ID)
}

func Reload(t testing.TB, db *gorm.DB, customerID uint) models.Customer {
	t.Helper()
	var c models.Customer
	if err := db.Preload("Account").Preload("Membership").First(&c, customerID).Error; err != nil {
		t.Fatalf("reload customer %d: %v", customerID, err)
	}
	return c
}

func Order(t testing.TB, db *gorm.DB, billing models.BillingAddress, status models.PaymentStatus) models.Order {
	t.Helper()
	o := models.Order{
		BillingAddressID: billing.ID,
		FinalPrice:       decimal.RequireFromString("12.50"),
		PaymentStatus:    status,
	}
	mustCreate(t, db, &o)
	return o
}
