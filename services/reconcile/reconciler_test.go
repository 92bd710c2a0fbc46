package reconcile

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/database/dbtest"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/junaidrashid-git/treatnaturally-api/logging"
	"github.com/junaidrashid-git/treatnaturally-api/metrics"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/gateway"
	"github.com/junaidrashid-git/treatnaturally-api/services/idempotency"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type fixture struct {
	db      *gorm.DB
	pub     *recordingPublisher
	metrics *metrics.Metrics
	r       *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	pub := &recordingPublisher{}
	m := metrics.NewNop()
	store := idempotency.NewGormStore(db, idempotency.DefaultLease)
	return &fixture{db: db, pub: pub, metrics: m, r: New(db, store, pub, m, logging.Discard())}
}

func (f *fixture) linked(t *testing.T, username string, tier models.MembershipTier, gatewayID string) models.Customer {
	t.Helper()
	c := dbtest.Customer(t, f.db, username, tier)
	require.NoError(t, f.db.Model(&models.Customer{}).Where("id = ?", c.ID).Update("gateway_customer_id", gatewayID).Error)
	return dbtest.Reload(t, f.db, c.ID)
}

func (f *fixture) order(t *testing.T, id uint) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, f.db.First(&o, id).Error)
	return o
}

func subscription(id, kind, customer, lookupKey string) gateway.Event {
	return gateway.Event{ID: id, Kind: kind, CustomerID: customer, LookupKey: lookupKey}
}

func idString(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func TestCheckoutCompletedThenSubscriptionGold(t *testing.T) {
	f := newFixture(t)
	c := dbtest.Customer(t, f.db, "alice", models.MembershipFree)
	ctx := context.Background()

	outcome, err := f.r.Handle(ctx, gateway.Event{
		ID:         "evt_1",
		Kind:       gateway.KindCheckoutSessionCompleted,
		CustomerID: "cus_A",
		Metadata:   map[string]string{gateway.MetadataUserID: idString(c.AccountID)},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	reloaded := dbtest.Reload(t, f.db, c.ID)
	require.NotNil(t, reloaded.GatewayCustomerID)
	assert.Equal(t, "cus_A", *reloaded.GatewayCustomerID)

	outcome, err = f.r.Handle(ctx, subscription("evt_2", gateway.KindSubscriptionCreated, "cus_A", "gold"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, models.MembershipGold, dbtest.Reload(t, f.db, c.ID).Membership.Label)

	published := f.pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.CustomerMembershipChanged{CustomerID: c.ID, From: models.MembershipFree, To: models.MembershipGold}, published[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WebhookEvents.WithLabelValues(gateway.KindSubscriptionCreated, "applied")))
}

func TestSubscriptionUpdatedOverwritesTier(t *testing.T) {
	f := newFixture(t)
	c := f.linked(t, "bob", models.MembershipGold, "cus_B")

	_, err := f.r.Handle(context.Background(), subscription("evt_1", gateway.KindSubscriptionUpdated, "cus_B", " Silver "))
	require.NoError(t, err)
	assert.Equal(t, models.MembershipSilver, dbtest.Reload(t, f.db, c.ID).Membership.Label)
}

func TestSubscriptionDeletedResetsToFree(t *testing.T) {
	for _, tier := range []models.MembershipTier{models.MembershipFree, models.MembershipBronze, models.MembershipSilver, models.MembershipGold} {
		t.Run(string(tier), func(t *testing.T) {
			f := newFixture(t)
			c := f.linked(t, "carol", tier, "cus_C")

			outcome, err := f.r.Handle(context.Background(), subscription("evt_del", gateway.KindSubscriptionDeleted, "cus_C", ""))
			require.NoError(t, err)
			assert.Equal(t, OutcomeApplied, outcome)
			assert.Equal(t, models.MembershipFree, dbtest.Reload(t, f.db, c.ID).Membership.Label)

			if tier == models.MembershipFree {
				assert.Empty(t, f.pub.published(), "unchanged tier publishes nothing")
			} else {
				assert.Len(t, f.pub.published(), 1)
			}
		})
	}
}

func TestUnknownIdentityAsksForRetry(t *testing.T) {
	f := newFixture(t)
	c := f.linked(t, "dave", models.MembershipBronze, "cus_D")
	ctx := context.Background()

	_, err := f.r.Handle(ctx, subscription("evt_1", gateway.KindSubscriptionUpdated, "cus_unknown", "gold"))
	require.Error(t, err)
	assert.True(t, apperr.IsRetry(err))

	_, err = f.r.Handle(ctx, gateway.Event{
		ID:       "evt_2",
		Kind:     gateway.KindCheckoutSessionCompleted,
		Metadata: map[string]string{gateway.MetadataUserID: "9999"},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsRetry(err))

	assert.Equal(t, models.MembershipBronze, dbtest.Reload(t, f.db, c.ID).Membership.Label)
	assert.Empty(t, f.pub.published())

	// A released claim lets the redelivery through once the customer exists.
	f.linked(t, "erin", models.MembershipFree, "cus_unknown")
	outcome, err := f.r.Handle(ctx, subscription("evt_1", gateway.KindSubscriptionUpdated, "cus_unknown", "gold"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
}

func TestDuplicateEventIsNotReapplied(t *testing.T) {
	f := newFixture(t)
	c := f.linked(t, "frank", models.MembershipFree, "cus_F")
	ctx := context.Background()
	ev := subscription("evt_dup", gateway.KindSubscriptionCreated, "cus_F", "gold")

	outcome, err := f.r.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	require.NoError(t, f.db.Model(&models.Customer{}).Where("id = ?", c.ID).
		Update("membership_id", dbtest.Membership(t, f.db, models.MembershipBronze).ID).Error)

	outcome, err = f.r.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, models.MembershipBronze, dbtest.Reload(t, f.db, c.ID).Membership.Label)
	assert.Len(t, f.pub.published(), 1)
}

func TestUnknownKindIsIgnored(t *testing.T) {
	f := newFixture(t)
	outcome, err := f.r.Handle(context.Background(), gateway.Event{ID: "evt_1", Kind: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WebhookEvents.WithLabelValues("other", "ignored")))
}

func TestCheckoutWithoutIdentityIsIgnored(t *testing.T) {
	f := newFixture(t)
	outcome, err := f.r.Handle(context.Background(), gateway.Event{ID: "evt_1", Kind: gateway.KindCheckoutSessionCompleted})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestUnresolvableLookupKeyIsTerminal(t *testing.T) {
	f := newFixture(t)
	c := f.linked(t, "gina", models.MembershipSilver, "cus_G")
	ctx := context.Background()

	for name, key := range map[string]string{"unknown": "platinum", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			_, err := f.r.Handle(ctx, subscription("evt_"+name, gateway.KindSubscriptionUpdated, "cus_G", key))
			require.Error(t, err)
			assert.False(t, apperr.IsRetry(err))
		})
	}
	assert.Equal(t, models.MembershipSilver, dbtest.Reload(t, f.db, c.ID).Membership.Label)
}

func TestCheckoutCompletedSettlesOrder(t *testing.T) {
	f := newFixture(t)
	billing := dbtest.BillingAddress(t, f.db, nil)
	order := dbtest.Order(t, f.db, billing, models.PaymentStatusPending)

	outcome, err := f.r.Handle(context.Background(), gateway.Event{
		ID:              "evt_1",
		Kind:            gateway.KindCheckoutSessionCompleted,
		PaymentStatus:   "paid",
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
		Metadata:        map[string]string{gateway.MetadataOrderID: idString(order.ID)},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	got := f.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusComplete, got.PaymentStatus)
	require.NotNil(t, got.GatewaySessionID)
	assert.Equal(t, "cs_1", *got.GatewaySessionID)
	require.NotNil(t, got.GatewayChargeID)
	assert.Equal(t, "pi_1", *got.GatewayChargeID)

	published := f.pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderPaymentStatusChanged{OrderID: order.ID, From: models.PaymentStatusPending, To: models.PaymentStatusComplete}, published[0])
}

func TestUnpaidCheckoutKeepsOrderPending(t *testing.T) {
	f := newFixture(t)
	billing := dbtest.BillingAddress(t, f.db, nil)
	order := dbtest.Order(t, f.db, billing, models.PaymentStatusPending)

	_, err := f.r.Handle(context.Background(), gateway.Event{
		ID:            "evt_1",
		Kind:          gateway.KindCheckoutSessionCompleted,
		PaymentStatus: "unpaid",
		SessionID:     "cs_1",
		Metadata:      map[string]string{gateway.MetadataOrderID: idString(order.ID)},
	})
	require.NoError(t, err)

	got := f.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
	require.NotNil(t, got.GatewaySessionID)
	assert.Empty(t, f.pub.published())
}

func TestAsyncPaymentOutcome(t *testing.T) {
	tests := map[string]models.PaymentStatus{
		gateway.KindCheckoutSessionAsyncPaymentSucceeded: models.PaymentStatusComplete,
		gateway.KindCheckoutSessionAsyncPaymentFailed:    models.PaymentStatusFailed,
	}
	for kind, want := range tests {
		t.Run(kind, func(t *testing.T) {
			f := newFixture(t)
			billing := dbtest.BillingAddress(t, f.db, nil)
			order := dbtest.Order(t, f.db, billing, models.PaymentStatusPending)

			_, err := f.r.Handle(context.Background(), gateway.Event{
				ID:       "evt_async",
				Kind:     kind,
				Metadata: map[string]string{gateway.MetadataOrderID: idString(order.ID)},
			})
			require.NoError(t, err)
			assert.Equal(t, want, f.order(t, order.ID).PaymentStatus)
		})
	}
}

func TestMissingOrderAsksForRetry(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.Handle(context.Background(), gateway.Event{
		ID:       "evt_1",
		Kind:     gateway.KindCheckoutSessionAsyncPaymentSucceeded,
		Metadata: map[string]string{gateway.MetadataOrderID: "4242"},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsRetry(err))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIllegalOrderTransitionIsTerminal(t *testing.T) {
	f := newFixture(t)
	billing := dbtest.BillingAddress(t, f.db, nil)
	order := dbtest.Order(t, f.db, billing, models.PaymentStatusFailed)

	_, err := f.r.Handle(context.Background(), gateway.Event{
		ID:       "evt_1",
		Kind:     gateway.KindCheckoutSessionAsyncPaymentSucceeded,
		Metadata: map[string]string{gateway.MetadataOrderID: idString(order.ID)},
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.False(t, apperr.IsRetry(err))
	assert.Equal(t, models.PaymentStatusFailed, f.order(t, order.ID).PaymentStatus)
}

func TestGatewayCustomerConflicts(t *testing.T) {
	f := newFixture(t)
	taken := f.linked(t, "hana", models.MembershipFree, "cus_H")
	other := dbtest.Customer(t, f.db, "ivan", models.MembershipFree)
	ctx := context.Background()

	checkout := func(id string, accountID uint, gatewayID string) error {
		_, err := f.r.Handle(ctx, gateway.Event{
			ID:         id,
			Kind:       gateway.KindCheckoutSessionCompleted,
			CustomerID: gatewayID,
			Metadata:   map[string]string{gateway.MetadataUserID: idString(accountID)},
		})
		return err
	}

	require.NoError(t, checkout("evt_same", taken.AccountID, "cus_H"), "reattaching the same id is a no-op")
	require.ErrorIs(t, checkout("evt_other", taken.AccountID, "cus_X"), apperr.ErrConflict)
	require.ErrorIs(t, checkout("evt_dup", other.AccountID, "cus_H"), apperr.ErrConflict)

	assert.Nil(t, dbtest.Reload(t, f.db, other.ID).GatewayCustomerID)
}

func TestSetOrderPaymentStatus(t *testing.T) {
	f := newFixture(t)
	billing := dbtest.BillingAddress(t, f.db, nil)
	order := dbtest.Order(t, f.db, billing, models.PaymentStatusPending)
	ctx := context.Background()

	require.NoError(t, f.r.SetOrderPaymentStatus(ctx, order.ID, models.PaymentStatusComplete))
	require.NoError(t, f.r.SetOrderPaymentStatus(ctx, order.ID, models.PaymentStatusComplete))
	assert.Len(t, f.pub.published(), 1)

	require.ErrorIs(t, f.r.SetOrderPaymentStatus(ctx, order.ID, models.PaymentStatusPending), apperr.ErrConflict)
	err := f.r.SetOrderPaymentStatus(ctx, 999, models.PaymentStatusComplete)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.False(t, apperr.IsRetry(err))
}
