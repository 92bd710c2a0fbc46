package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OrdersCreated.Inc()
	m.WebhookEvents.WithLabelValues("customer.subscription.created", "applied").Inc()
	m.CheckoutFailures.WithLabelValues("empty_cart").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckoutFailures.WithLabelValues("empty_cart")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "treatnaturally_checkout_orders_created_total 1")
	assert.Contains(t, string(body), `treatnaturally_webhook_events_total{kind="customer.subscription.created",outcome="applied"} 1`)
}

func TestNewNopDoesNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}
