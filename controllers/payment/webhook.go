package paymentControllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/services/gateway"
	"github.com/junaidrashid-git/treatnaturally-api/services/reconcile"
)

type EventHandler interface {
	Handle(ctx context.Context, ev gateway.Event) (reconcile.Outcome, error)
}

// StripeWebhook runs behind middleware.StripeWebhookAuth. A 404 asks Stripe
// to redeliver later; 422 marks failures redelivery cannot fix.
func StripeWebhook(handler EventHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ev, ok := middleware.PaymentEvent(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing verified event", "retry": false})
			return
		}

		outcome, err := handler.Handle(c.Request.Context(), ev)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"status": outcome.String()})
		case apperr.IsRetry(err):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "retry": true})
		case errors.Is(err, apperr.ErrValidation),
			errors.Is(err, apperr.ErrNotFound),
			errors.Is(err, apperr.ErrConflict):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "retry": false})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
		}
	}
}
