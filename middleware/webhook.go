package middleware

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/services/gateway"
)

const (
	ContextPaymentEvent = "payment_event"

	maxWebhookBody = 65536
)

type EventVerifier interface {
	VerifyEvent(payload []byte, header string) (gateway.Event, error)
}

// StripeWebhookAuth verifies the Stripe-Signature header over the raw body
// and stores the decoded event in the context. Nothing downstream runs for an
// unverified request. Rejections are logged as possible forgeries.
func StripeWebhookAuth(verifier EventVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			log.WarnContext(c.Request.Context(), "webhook body rejected", "client_ip", c.ClientIP(), "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read webhook body", "retry": false})
			return
		}
		ev, err := verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			log.WarnContext(c.Request.Context(), "webhook signature rejected",
				"client_ip", c.ClientIP(), "bytes", len(payload), "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature", "retry": false})
			return
		}
		c.Set(ContextPaymentEvent, ev)
		c.Next()
	}
}

// PaymentEvent returns the event stored by StripeWebhookAuth.
func PaymentEvent(c *gin.Context) (gateway.Event, bool) {
	v, ok := c.Get(ContextPaymentEvent)
	if !ok {
		return gateway.Event{}, false
	}
	ev, ok := v.(gateway.Event)
	return ev, ok
}
