package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/junaidrashid-git/treatnaturally-api/logging"
	"github.com/junaidrashid-git/treatnaturally-api/metrics"
	"github.com/junaidrashid-git/treatnaturally-api/services/gateway"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidateAPIKey(t *testing.T) {
	r := gin.New()
	r.GET("/admin", ValidateAPIKey("k3y"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := map[string]struct {
		key  string
		want int
	}{
		"valid":   {"k3y", http.StatusNoContent},
		"wrong":   {"nope", http.StatusUnauthorized},
		"missing": {"", http.StatusUnauthorized},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.key != "" {
				req.Header.Set("X-API-KEY", tt.key)
			}
			assert.Equal(t, tt.want, serve(r, req).Code)
		})
	}
}

func TestValidateToken(t *testing.T) {
	r := gin.New()
	r.GET("/me", ValidateToken(secret), func(c *gin.Context) {
		id, ok := AccountID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"account_id": id})
	})

	tests := map[string]struct {
		header string
		want   int
	}{
		"numeric claim":  {"Bearer " + sign(t, secret, jwt.MapClaims{"user_id": 7}), http.StatusOK},
		"string claim":   {sign(t, secret, jwt.MapClaims{"user_id": "7"}), http.StatusOK},
		"wrong secret":   {"Bearer " + sign(t, "other", jwt.MapClaims{"user_id": 7}), http.StatusUnauthorized},
		"missing claim":  {"Bearer " + sign(t, secret, jwt.MapClaims{"sub": "7"}), http.StatusUnauthorized},
		"expired":        {"Bearer " + sign(t, secret, jwt.MapClaims{"user_id": 7, "exp": 1}), http.StatusUnauthorized},
		"missing header": {"", http.StatusUnauthorized},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"account_id":7}`, w.Body.String())
			}
		})
	}
}

func TestOptionalToken(t *testing.T) {
	r := gin.New()
	r.GET("/cart", OptionalToken(secret), func(c *gin.Context) {
		_, ok := AccountID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, secret, jwt.MapClaims{"user_id": 3}))
	w = serve(r, req)
	assert.JSONEq(t, `{"authenticated":true}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

type fakeVerifier struct {
	calls int
}

func (v *fakeVerifier) VerifyEvent(payload []byte, header string) (gateway.Event, error) {
	v.calls++
	if header != "t=1,v1=good" {
		return gateway.Event{}, errors.New("no signatures found matching the expected signature")
	}
	return gateway.Event{ID: "evt_1", Kind: string(payload)}, nil
}

func TestStripeWebhookAuth(t *testing.T) {
	verifier := &fakeVerifier{}
	reached := false
	var logs bytes.Buffer
	r := gin.New()
	r.POST("/hook", StripeWebhookAuth(verifier, logging.NewWithWriter(&logs, "info")), func(c *gin.Context) {
		reached = true
		ev, ok := PaymentEvent(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"kind": ev.Kind})
	})

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("invoice.paid"))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	w := serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid webhook signature","retry":false}`, w.Body.String())
	assert.False(t, reached)
	assert.Contains(t, logs.String(), "webhook signature rejected")
	assert.Contains(t, logs.String(), "no signatures found matching the expected signature")

	req = httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("invoice.paid"))
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"kind":"invoice.paid"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(strings.Repeat("x", maxWebhookBody+1)))
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	assert.Equal(t, http.StatusBadRequest, serve(r, req).Code)
	assert.Equal(t, 2, verifier.calls, "oversized bodies are rejected before verification")
}

func TestRequestLogger(t *testing.T) {
	m := metrics.NewNop()
	r := gin.New()
	r.Use(RequestLogger(logging.Discard(), m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/items/9", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/items/9", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = serve(r, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/items/:id", "418")))
}
