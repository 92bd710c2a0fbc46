package paymentControllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/gateway"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sessions opens hosted pages on the payment gateway.
type Sessions interface {
	CreateCheckoutSession(ctx context.Context, req gateway.CheckoutSessionRequest) (*gateway.Session, error)
	CreatePortalSession(ctx context.Context, customerID string) (*gateway.Session, error)
}

type CheckoutSessionRequest struct {
	Mode      string `json:"mode" binding:"required,oneof=payment subscription"`
	OrderID   uint   `json:"order_id"`
	LookupKey string `json:"lookup_key"`
}

// POST /checkout/create-checkout-session
func CreateCheckoutSession(db *gorm.DB, sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		accountID, authenticated := middleware.AccountID(c)

		var customer *models.Customer
		if authenticated {
			var err error
			if customer, err = findCustomer(c.Request.Context(), db, accountID); err != nil {
				render.Error(c, err)
				return
			}
		}

		sessReq := gateway.CheckoutSessionRequest{
			Mode:     gateway.SessionMode(req.Mode),
			Metadata: map[string]string{},
		}
		if authenticated {
			sessReq.Metadata[gateway.MetadataUserID] = strconv.FormatUint(uint64(accountID), 10)
		}
		if customer != nil && customer.GatewayCustomerID != nil {
			sessReq.CustomerID = *customer.GatewayCustomerID
		}

		switch sessReq.Mode {
		case gateway.ModePayment:
			order, err := payableOrder(c.Request.Context(), db, req.OrderID, customer)
			if err != nil {
				render.Error(c, err)
				return
			}
			sessReq.Metadata[gateway.MetadataOrderID] = strconv.FormatUint(uint64(order.ID), 10)
			sessReq.LineItems = lineItems(order)
		case gateway.ModeSubscription:
			if !authenticated {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			if req.LookupKey == "" {
				render.BadRequest(c, "lookup_key is required")
				return
			}
			sessReq.LookupKey = req.LookupKey
		}

		sess, err := sessions.CreateCheckoutSession(c.Request.Context(), sessReq)
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": sess.URL})
	}
}

// POST /checkout/create-portal-session
func CreatePortalSession(db *gorm.DB, sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := middleware.AccountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		customer, err := findCustomer(c.Request.Context(), db, accountID)
		if err != nil {
			render.Error(c, err)
			return
		}
		if customer == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		var gatewayID string
		if customer.GatewayCustomerID != nil {
			gatewayID = *customer.GatewayCustomerID
		}
		sess, err := sessions.CreatePortalSession(c.Request.Context(), gatewayID)
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": sess.URL})
	}
}

func findCustomer(ctx context.Context, db *gorm.DB, accountID uint) (*models.Customer, error) {
	var customer models.Customer
	err := db.WithContext(ctx).Where("account_id = ?", accountID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// payableOrder loads a pending order. Orders placed by a customer are only
// visible to that customer.
func payableOrder(ctx context.Context, db *gorm.DB, orderID uint, customer *models.Customer) (*models.Order, error) {
	if orderID == 0 {
		return nil, apperr.Validationf("order_id is required for payment sessions")
	}
	var order models.Order
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("no order with id %d", orderID)
	}
	if err != nil {
		return nil, err
	}
	if order.CustomerID != nil && (customer == nil || customer.ID != *order.CustomerID) {
		return nil, apperr.NotFoundf("no order with id %d", orderID)
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return nil, apperr.Conflictf("order %d is already %s", order.ID, order.PaymentStatus)
	}
	return &order, nil
}

// lineItems prices the order in minor units. The charge is always the
// order's final price: items are listed one by one only when they add up to
// it, otherwise the order is charged as a single line.
func lineItems(order *models.Order) []gateway.LineItem {
	total := minorUnits(order.FinalPrice)
	items := make([]gateway.LineItem, 0, len(order.Items))
	var sum int64
	for _, item := range order.Items {
		name := item.Product.Name
		if item.Variation != nil && *item.Variation != "" {
			name += " (" + *item.Variation + ")"
		}
		li := gateway.LineItem{
			Name:       name,
			UnitAmount: minorUnits(item.ChargeableUnitPrice()),
			Quantity:   int64(item.Quantity),
		}
		sum += li.UnitAmount * li.Quantity
		items = append(items, li)
	}
	if sum == total {
		return items
	}
	return []gateway.LineItem{{
		Name:       fmt.Sprintf("Order #%d", order.ID),
		UnitAmount: total,
		Quantity:   1,
	}}
}

func minorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
