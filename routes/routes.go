package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/payment"
	productcontroller "github.com/junaidrashid-git/treatnaturally-api/controllers/product"
	"github.com/junaidrashid-git/treatnaturally-api/metrics"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/services/carts"
	"github.com/junaidrashid-git/treatnaturally-api/services/checkout"
	"github.com/junaidrashid-git/treatnaturally-api/services/customers"
	"github.com/junaidrashid-git/treatnaturally-api/services/reconcile"
	"gorm.io/gorm"
)

// Deps carries everything the handlers are built from.
type Deps struct {
	DB          *gorm.DB
	Carts       *carts.Service
	Customers   *customers.Service
	Checkout    *checkout.Engine
	Reconciler  *reconcile.Reconciler
	Sessions    paymentControllers.Sessions
	Verifier    middleware.EventVerifier
	OrderFeed   http.Handler
	Metrics     *metrics.Metrics
	Images      productcontroller.ImageStore
	JWTSecret   string
	AdminAPIKey string
	Log         *slog.Logger
}

// SetupRoutes is the single entry-point that wires up every route group.
func SetupRoutes(r *gin.Engine, d Deps) {
	r.GET("/healthz", health(d.DB))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.Static(productcontroller.ImagesPath, d.Images.Dir)

	// Storefront (optional or required bearer token)
	SetupStoreRoutes(r, d)

	// Stripe checkout, portal and webhook
	SetupCheckoutRoutes(r, d)

	// Blog, tags and ailments
	SetupContentRoutes(r, d)

	// Admin routes (API-Key-protected)
	SetupAdminRoutes(r, d)
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
