package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/config"
	"github.com/junaidrashid-git/treatnaturally-api/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func testConfig() config.StripeConfig {
	return config.StripeConfig{
		SecretKey:       "sk_test_123",
		WebhookSecret:   testWebhookSecret,
		Currency:        "gbp",
		SuccessURL:      "https://shop.test/success",
		CancelURL:       "https://shop.test/cancel",
		PortalReturnURL: "https://shop.test/account",
	}
}

// newTestStripe points the client at an httptest server.
func newTestStripe(t *testing.T, handler http.HandlerFunc) *Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripe(testConfig(), &stripe.Backends{API: backend, Connect: backend, Uploads: backend}, logging.Discard())
}

func signedPayload(t *testing.T, event map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func event(id, kind string, object map[string]any) map[string]any {
	return map[string]any{
		"id":          id,
		"object":      "event",
		"type":        kind,
		"api_version": "2020-08-27",
		"data":        map[string]any{"object": object},
	}
}

func TestVerifyEventCheckoutSession(t *testing.T) {
	s := NewStripe(testConfig(), nil, logging.Discard())
	payload, header := signedPayload(t, event("evt_1", KindCheckoutSessionCompleted, map[string]any{
		"id":             "cs_test_1",
		"object":         "checkout.session",
		"customer":       "cus_123",
		"payment_status": "paid",
		"payment_intent": "pi_123",
		"metadata":       map[string]string{"user_id": "7", "order_id": "12"},
	}))

	ev, err := s.VerifyEvent(payload, header)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, KindCheckoutSessionCompleted, ev.Kind)
	assert.Equal(t, "cus_123", ev.CustomerID)
	assert.Equal(t, "cs_test_1", ev.SessionID)
	assert.Equal(t, "pi_123", ev.PaymentIntentID)
	assert.Equal(t, "paid", ev.PaymentStatus)
	assert.Equal(t, "7", ev.Metadata[MetadataUserID])
	assert.Equal(t, "12", ev.Metadata[MetadataOrderID])
}

func TestVerifyEventClientReferenceFallback(t *testing.T) {
	s := NewStripe(testConfig(), nil, logging.Discard())
	payload, header := signedPayload(t, event("evt_2", KindCheckoutSessionCompleted, map[string]any{
		"id":                  "cs_test_2",
		"object":              "checkout.session",
		"customer":            "cus_9",
		"client_reference_id": "44",
	}))

	ev, err := s.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "44", ev.Metadata[MetadataUserID])
}

func TestVerifyEventSubscription(t *testing.T) {
	s := NewStripe(testConfig(), nil, logging.Discard())
	payload, header := signedPayload(t, event("evt_3", KindSubscriptionCreated, map[string]any{
		"id":       "sub_1",
		"object":   "subscription",
		"customer": "cus_123",
		"items": map[string]any{
			"object": "list",
			"data": []map[string]any{{
				"id":     "si_1",
				"object": "subscription_item",
				"price":  map[string]any{"id": "price_gold", "object": "price", "lookup_key": "gold"},
			}},
		},
	}))

	ev, err := s.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, KindSubscriptionCreated, ev.Kind)
	assert.Equal(t, "cus_123", ev.CustomerID)
	assert.Equal(t, "gold", ev.LookupKey)
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	s := NewStripe(testConfig(), nil, logging.Discard())
	payload, _ := signedPayload(t, event("evt_4", KindSubscriptionDeleted, map[string]any{"id": "sub_1", "object": "subscription"}))

	tests := map[string]string{
		"missing header": "",
		"wrong secret": webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload: payload, Secret: "whsec_other", Timestamp: time.Now(),
		}).Header,
		"stale timestamp": webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload: payload, Secret: testWebhookSecret, Timestamp: time.Now().Add(-time.Hour),
		}).Header,
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.VerifyEvent(payload, header)
			require.ErrorIs(t, err, apperr.ErrSignature)
		})
	}
}

func TestCreatePaymentSession(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "gbp", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "Lavender Oil", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1050", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "12", r.PostForm.Get("metadata[order_id]"))
		assert.Equal(t, "https://shop.test/success", r.PostForm.Get("success_url"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	})

	sess, err := s.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		Mode:      ModePayment,
		LineItems: []LineItem{{Name: "Lavender Oil", UnitAmount: 1050, Quantity: 2}},
		Metadata:  map[string]string{MetadataOrderID: "12"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
}

func TestCreateSubscriptionSessionResolvesLookupKey(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/prices":
			assert.Equal(t, "gold", r.URL.Query().Get("lookup_keys[0]"))
			_, _ = w.Write([]byte(`{"object":"list","url":"/v1/prices","has_more":false,"data":[{"id":"price_gold","object":"price","lookup_key":"gold"}]}`))
		case "/v1/checkout/sessions":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "subscription", r.PostForm.Get("mode"))
			assert.Equal(t, "price_gold", r.PostForm.Get("line_items[0][price]"))
			assert.Equal(t, "7", r.PostForm.Get("metadata[user_id]"))
			_, _ = w.Write([]byte(`{"id":"cs_sub","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_sub"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sess, err := s.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		Mode:      ModeSubscription,
		LookupKey: "gold",
		Metadata:  map[string]string{MetadataUserID: "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_sub", sess.ID)
}

func TestCreateSubscriptionSessionUnknownLookupKey(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","url":"/v1/prices","has_more":false,"data":[]}`))
	})

	_, err := s.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		Mode:      ModeSubscription,
		LookupKey: "platinum",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreatePortalSession(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing_portal/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		assert.Equal(t, "https://shop.test/account", r.PostForm.Get("return_url"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"bps_1","object":"billing_portal.session","url":"https://billing.stripe.com/p/session/bps_1"}`))
	})

	sess, err := s.CreatePortalSession(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/bps_1", sess.URL)

	_, err = s.CreatePortalSession(context.Background(), "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"internal failure"}}`))
	})

	for i := 0; i < 5; i++ {
		_, err := s.CreatePortalSession(context.Background(), "cus_123")
		require.ErrorIs(t, err, apperr.ErrGateway)
	}
	require.Equal(t, int32(5), hits.Load())

	_, err := s.CreatePortalSession(context.Background(), "cus_123")
	require.ErrorIs(t, err, apperr.ErrGateway)
	assert.Equal(t, int32(5), hits.Load(), "open breaker must not reach the gateway")
}
