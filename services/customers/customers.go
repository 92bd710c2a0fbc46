// Package customers manages store customers, their memberships and their
// saved billing and shipping addresses.
package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// ProfileInput holds the fields a customer may change. Nil fields are left
// as they are.
type ProfileInput struct {
	Phone     *string
	BirthDate *time.Time
	// Interests replaces the customer's interests by label. Unknown labels
	// are created.
	Interests *[]string
}

type AddressInput struct {
	FirstName      string
	LastName       string
	Country        string
	City           string
	StreetAddress1 string
	StreetAddress2 string
	Zipcode        string
	Email          string
	Phone          string
	OrderNotes     string
}

type Service struct {
	db     *gorm.DB
	events Publisher
	log    *slog.Logger
}

func NewService(db *gorm.DB, pub Publisher, log *slog.Logger) *Service {
	return &Service{db: db, events: pub, log: log}
}

// Register creates an account and its Free-tier customer together.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Customer, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" {
		return nil, apperr.Validationf("username and email are required")
	}

	var customer models.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var free models.Membership
		if err := tx.Where("label = ?", models.MembershipFree).First(&free).Error; err != nil {
			return fmt.Errorf("load free membership: %w", err)
		}

		account := models.Account{
			Username:  in.Username,
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
		}
		if err := tx.Create(&account).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflictf("username or email is already registered")
			}
			return fmt.Errorf("create account: %w", err)
		}

		customer = models.Customer{AccountID: account.ID, MembershipID: free.ID}
		if err := tx.Omit(clause.Associations).Create(&customer).Error; err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		customer.Account = account
		customer.Membership = free
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "customer registered", "customer_id", customer.ID, "account_id", customer.AccountID)
	s.events.Publish(ctx, events.CustomerRegistered{Customer: customer})
	return &customer, nil
}

// Me loads the customer belonging to an authenticated account.
func (s *Service) Me(ctx context.Context, accountID uint) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).
		Preload("Account").
		Preload("Membership").
		Preload("Interests", func(tx *gorm.DB) *gorm.DB { return tx.Order("label") }).
		Where("account_id = ?", accountID).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("no customer for account %d", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return &customer, nil
}

func (s *Service) UpdateProfile(ctx context.Context, accountID uint, in ProfileInput) (*models.Customer, error) {
	customer, err := s.Me(ctx, accountID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.BirthDate != nil {
		if in.BirthDate.After(time.Now()) {
			return nil, apperr.Validationf("birth_date must be in the past")
		}
		updates["birth_date"] = *in.BirthDate
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Customer{}).Where("id = ?", customer.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update customer: %w", err)
			}
		}
		if in.Interests == nil {
			return nil
		}
		interests, err := interestsByLabel(tx, *in.Interests)
		if err != nil {
			return err
		}
		if err := tx.Model(customer).Association("Interests").Replace(interests); err != nil {
			return fmt.Errorf("replace interests: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Me(ctx, accountID)
}

// interestsByLabel looks up each label, creating the missing ones. Labels are
// trimmed and blank or repeated labels dropped.
func interestsByLabel(tx *gorm.DB, labels []string) ([]models.Interest, error) {
	seen := make(map[string]bool, len(labels))
	out := make([]models.Interest, 0, len(labels))
	for _, raw := range labels {
		label := strings.TrimSpace(raw)
		if label == "" || seen[label] {
			continue
		}
		if len(label) > 255 {
			return nil, apperr.Validationf("interest %q is longer than 255 characters", label)
		}
		seen[label] = true
		interest := models.Interest{Label: label}
		if err := tx.Where(models.Interest{Label: label}).FirstOrCreate(&interest).Error; err != nil {
			return nil, fmt.Errorf("interest %q: %w", label, err)
		}
		out = append(out, interest)
	}
	return out, nil
}

// Interests lists every interest label customers have picked so far.
func Interests(ctx context.Context, db *gorm.DB) ([]models.Interest, error) {
	var list []models.Interest
	if err := db.WithContext(ctx).Order("label").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	return list, nil
}

// CreateAddress stores a new address. With an account the address becomes the
// customer's current address of that kind; without one it is a guest address
// usable for a single checkout.
func (s *Service) CreateAddress(ctx context.Context, accountID *uint, kind models.AddressKind, in AddressInput) (models.Address, error) {
	if err := in.validate(kind); err != nil {
		return nil, err
	}

	var customerID *uint
	if accountID != nil {
		customer, err := s.Me(ctx, *accountID)
		if err != nil {
			return nil, err
		}
		customerID = &customer.ID
	}

	addr := in.build(kind, customerID)
	if err := s.db.WithContext(ctx).Create(addr).Error; err != nil {
		return nil, fmt.Errorf("create %s address: %w", kind, err)
	}

	if customerID != nil {
		id := addr.AddressID()
		s.events.Publish(ctx, events.AddressLinked{CustomerID: *customerID, Kind: kind, AddressID: &id})
	}
	return addr, nil
}

// Address returns the customer's current address of the given kind.
func (s *Service) Address(ctx context.Context, accountID uint, kind models.AddressKind) (models.Address, error) {
	customer, err := s.Me(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ref := currentRef(customer, kind)
	if ref == nil {
		return nil, apperr.NotFoundf("no %s address on file", kind)
	}

	addr := newAddress(kind)
	err = s.db.WithContext(ctx).First(addr, *ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("no %s address on file", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s address: %w", kind, err)
	}
	return addr, nil
}

// ReplaceAddress stores a new current address. The previous one is kept,
// since placed orders may still reference it.
func (s *Service) ReplaceAddress(ctx context.Context, accountID uint, kind models.AddressKind, in AddressInput) (models.Address, error) {
	return s.CreateAddress(ctx, &accountID, kind, in)
}

// RemoveAddress unlinks the customer's current address of the given kind.
func (s *Service) RemoveAddress(ctx context.Context, accountID uint, kind models.AddressKind) error {
	customer, err := s.Me(ctx, accountID)
	if err != nil {
		return err
	}
	if currentRef(customer, kind) == nil {
		return apperr.NotFoundf("no %s address on file", kind)
	}
	s.events.Publish(ctx, events.AddressLinked{CustomerID: customer.ID, Kind: kind})
	return nil
}

// LinkAddress applies an AddressLinked event to the customer's address
// reference. It is subscribed to the event bus.
func (s *Service) LinkAddress(ctx context.Context, e events.AddressLinked) error {
	column, err := refColumn(e.Kind)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", e.CustomerID).Update(column, e.AddressID)
	if res.Error != nil {
		return fmt.Errorf("link %s address: %w", e.Kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("no customer with id %d", e.CustomerID)
	}
	return nil
}

func currentRef(c *models.Customer, kind models.AddressKind) *uint {
	if kind == models.AddressKindShipping {
		return c.OptionalShippingAddressID
	}
	return c.BillingAddressID
}

func refColumn(kind models.AddressKind) (string, error) {
	switch kind {
	case models.AddressKindBilling:
		return "billing_address_id", nil
	case models.AddressKindShipping:
		return "optional_shipping_address_id", nil
	}
	return "", apperr.Validationf("unknown address kind %q", kind)
}

func newAddress(kind models.AddressKind) models.Address {
	if kind == models.AddressKindShipping {
		return &models.OptionalShippingAddress{}
	}
	return &models.BillingAddress{}
}

func (in AddressInput) build(kind models.AddressKind, customerID *uint) models.Address {
	if kind == models.AddressKindShipping {
		return &models.OptionalShippingAddress{
			CustomerID:     customerID,
			FirstName:      in.FirstName,
			LastName:       in.LastName,
			Country:        in.Country,
			City:           in.City,
			StreetAddress1: in.StreetAddress1,
			StreetAddress2: in.StreetAddress2,
			Zipcode:        in.Zipcode,
			OrderNotes:     in.OrderNotes,
		}
	}
	return &models.BillingAddress{
		CustomerID:     customerID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Country:        in.Country,
		City:           in.City,
		StreetAddress1: in.StreetAddress1,
		StreetAddress2: in.StreetAddress2,
		Zipcode:        in.Zipcode,
		Email:          in.Email,
		Phone:          in.Phone,
		OrderNotes:     in.OrderNotes,
	}
}

func (in AddressInput) validate(kind models.AddressKind) error {
	if _, err := refColumn(kind); err != nil {
		return err
	}
	var missing []string
	for field, v := range map[string]string{
		"first_name":       in.FirstName,
		"last_name":        in.LastName,
		"country":          in.Country,
		"city":             in.City,
		"street_address_1": in.StreetAddress1,
		"zipcode":          in.Zipcode,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if kind == models.AddressKindBilling && !strings.Contains(in.Email, "@") {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return apperr.Validationf("missing or invalid fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
