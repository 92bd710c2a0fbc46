package routes

import (
	"github.com/gin-gonic/gin"
	paymentControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/payment"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
)

func SetupCheckoutRoutes(r *gin.Engine, d Deps) {
	payment := r.Group("/checkout")
	{
		payment.POST("/create-checkout-session",
			middleware.OptionalToken(d.JWTSecret),
			paymentControllers.CreateCheckoutSession(d.DB, d.Sessions),
		)
		payment.POST("/create-portal-session",
			middleware.ValidateToken(d.JWTSecret),
			paymentControllers.CreatePortalSession(d.DB, d.Sessions),
		)

		// Webhook endpoint: middleware verifies the Stripe signature first
		payment.POST("/stripe-webhook",
			middleware.StripeWebhookAuth(d.Verifier, d.Log),
			paymentControllers.StripeWebhook(d.Reconciler),
		)
	}
}
