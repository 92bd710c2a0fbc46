package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/junaidrashid-git/treatnaturally-api/metrics"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxFinalPrice bounds final_price to six digits with two decimal places.
var maxFinalPrice = decimal.NewFromInt(10000)

type Request struct {
	CartID                    string
	BillingAddressID          uint
	OptionalShippingAddressID *uint
	FinalPrice                decimal.Decimal
	// AccountID is the authenticated caller, nil for guests.
	AccountID *uint
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Engine struct {
	db          *gorm.DB
	events      Publisher
	metrics     *metrics.Metrics
	log         *slog.Logger
	verifyTotal bool
}

type Option func(*Engine)

// WithTotalVerification makes CreateOrder recompute the cart total and
// reject a final_price that does not match it.
func WithTotalVerification(on bool) Option {
	return func(e *Engine) { e.verifyTotal = on }
}

func NewEngine(db *gorm.DB, pub Publisher, m *metrics.Metrics, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{db: db, events: pub, metrics: m, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOrder turns the cart into a pending order and deletes the cart in a
// single transaction, then publishes OrderCreated. On error nothing is
// written and the cart is left as it was.
func (e *Engine) CreateOrder(ctx context.Context, req Request) (*models.Order, error) {
	order, err := e.createOrder(ctx, req)
	if err != nil {
		e.metrics.CheckoutFailures.WithLabelValues(apperr.Kind(err)).Inc()
		e.log.WarnContext(ctx, "checkout rejected", "cart_id", req.CartID, "kind", apperr.Kind(err), "error", err)
		return nil, err
	}

	e.metrics.OrdersCreated.Inc()
	e.log.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"cart_id", req.CartID,
		"items", len(order.Items),
		"final_price", order.FinalPrice.StringFixed(2),
		"guest", order.CustomerID == nil,
	)
	e.events.Publish(ctx, events.OrderCreated{Order: *order})
	return order, nil
}

func (e *Engine) createOrder(ctx context.Context, req Request) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var created models.Order
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := database.ForUpdate(tx).First(&cart, "id = ?", req.CartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("no cart with id %s", req.CartID)
			}
			return fmt.Errorf("load cart: %w", err)
		}

		var items []models.CartItem
		if err := tx.Preload("Product").Where("cart_id = ?", cart.ID).Order("id").Find(&items).Error; err != nil {
			return fmt.Errorf("load cart items: %w", err)
		}
		if len(items) == 0 {
			return fmt.Errorf("cart %s: %w", cart.ID, apperr.ErrEmptyCart)
		}

		if err := exists(tx, &models.BillingAddress{}, req.BillingAddressID, "billing address"); err != nil {
			return err
		}
		if req.OptionalShippingAddressID != nil {
			if err := exists(tx, &models.OptionalShippingAddress{}, *req.OptionalShippingAddressID, "shipping address"); err != nil {
				return err
			}
		}

		customerID, err := resolveCustomer(tx, req.AccountID)
		if err != nil {
			return err
		}

		if e.verifyTotal {
			if expected := cartTotal(items); !expected.Equal(req.FinalPrice) {
				return apperr.Validationf("final_price %s does not match cart total %s",
					req.FinalPrice.StringFixed(2), expected.StringFixed(2))
			}
		}

		order := models.Order{
			PaymentStatus:             models.PaymentStatusPending,
			CustomerID:                customerID,
			BillingAddressID:          req.BillingAddressID,
			OptionalShippingAddressID: req.OptionalShippingAddressID,
			FinalPrice:                req.FinalPrice,
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			orderItems = append(orderItems, models.OrderItem{
				OrderID:                 order.ID,
				ProductID:               item.ProductID,
				Variation:               item.Variation,
				Quantity:                item.Quantity,
				UnitPrice:               item.Product.Price,
				FinalPriceAfterDiscount: item.FinalPriceAfterDiscount,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&orderItems).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("delete cart items: %w", err)
		}
		res := tx.Where("id = ?", cart.ID).Delete(&models.Cart{})
		if res.Error != nil {
			return fmt.Errorf("delete cart: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.NotFoundf("no cart with id %s", req.CartID)
		}

		return tx.
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
			Preload("Items.Product").
			Preload("BillingAddress").
			Preload("OptionalShippingAddress").
			First(&created, order.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r Request) validate() error {
	if _, err := uuid.Parse(r.CartID); err != nil {
		return apperr.Validationf("cart_id must be a valid UUID")
	}
	if r.BillingAddressID == 0 {
		return apperr.Validationf("billing_address_id is required")
	}
	if r.FinalPrice.IsNegative() {
		return apperr.Validationf("final_price must not be negative")
	}
	if !r.FinalPrice.Equal(r.FinalPrice.Round(2)) {
		return apperr.Validationf("final_price must have at most 2 decimal places")
	}
	if r.FinalPrice.GreaterThanOrEqual(maxFinalPrice) {
		return apperr.Validationf("final_price must have at most 6 digits")
	}
	return nil
}

func exists(tx *gorm.DB, model any, id uint, what string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	if count == 0 {
		return apperr.NotFoundf("no %s with id %d", what, id)
	}
	return nil
}

// resolveCustomer returns nil for guests and for accounts without a
// customer record.
func resolveCustomer(tx *gorm.DB, accountID *uint) (*uint, error) {
	if accountID == nil {
		return nil, nil
	}
	var customer models.Customer
	err := tx.Select("id").Where("account_id = ?", *accountID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return &customer.ID, nil
}

func cartTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		unit := item.Product.Price
		if item.FinalPriceAfterDiscount.Valid {
			unit = item.FinalPriceAfterDiscount.Decimal
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
