package orderControllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/checkout"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------- Request Structs --------

type CreateOrderRequest struct {
	CartID                    string           `json:"cart_id" binding:"required"`
	BillingAddressID          uint             `json:"billing_address_id" binding:"required"`
	OptionalShippingAddressID *uint            `json:"optional_shipping_address_id"`
	FinalPrice                *decimal.Decimal `json:"final_price" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// PaymentStatusSetter applies a manual payment status change under the same
// transition rules as gateway events.
type PaymentStatusSetter interface {
	SetOrderPaymentStatus(ctx context.Context, orderID uint, to models.PaymentStatus) error
}

// -------- Helpers --------

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		Preload("BillingAddress").
		Preload("OptionalShippingAddress")
}

func customerID(c *gin.Context, db *gorm.DB) (uint, bool) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return 0, false
	}
	var customer models.Customer
	err := db.WithContext(c.Request.Context()).Select("id").Where("account_id = ?", accountID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return 0, false
	}
	if err != nil {
		render.Error(c, err)
		return 0, false
	}
	return customer.ID, true
}

// -------- Handlers --------

// POST /store/orders
func CreateOrder(engine *checkout.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			render.BadRequest(c, err.Error())
			return
		}

		var accountID *uint
		if id, ok := middleware.AccountID(c); ok {
			accountID = &id
		}

		order, err := engine.CreateOrder(c.Request.Context(), checkout.Request{
			CartID:                    req.CartID,
			BillingAddressID:          req.BillingAddressID,
			OptionalShippingAddressID: req.OptionalShippingAddressID,
			FinalPrice:                *req.FinalPrice,
			AccountID:                 accountID,
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

// GET /store/orders
func GetMyOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := customerID(c, db)
		if !ok {
			return
		}
		var orders []models.Order
		if err := withDetails(db.WithContext(c.Request.Context())).
			Where("customer_id = ?", id).
			Order("placed_at DESC").
			Find(&orders).Error; err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /store/orders/:id
func GetMyOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		id, ok := customerID(c, db)
		if !ok {
			return
		}
		var order models.Order
		err := withDetails(db.WithContext(c.Request.Context())).
			Where("id = ? AND customer_id = ?", orderID, id).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /admin/orders?payment_status=
func GetAllOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := withDetails(db.WithContext(c.Request.Context())).Order("placed_at DESC")
		if raw := c.Query("payment_status"); raw != "" {
			status, err := models.ParsePaymentStatus(raw)
			if err != nil {
				render.BadRequest(c, err.Error())
				return
			}
			q = q.Where("payment_status = ?", status)
		}
		var orders []models.Order
		if err := q.Find(&orders).Error; err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /admin/orders/:id
func GetOrderByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var order models.Order
		err := withDetails(db.WithContext(c.Request.Context())).First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// PATCH /admin/orders/:id/payment-status
func UpdatePaymentStatus(setter PaymentStatusSetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var req UpdatePaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		status, err := models.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		if err := setter.SetOrderPaymentStatus(c.Request.Context(), orderID, status); err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment status updated successfully"})
	}
}
