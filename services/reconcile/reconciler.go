// Package reconcile applies verified payment gateway events to customers and
// orders. Every event is applied at most once per event id.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/junaidrashid-git/treatnaturally-api/metrics"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/gateway"
	"github.com/junaidrashid-git/treatnaturally-api/services/idempotency"
	"gorm.io/gorm"
)

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

func (o Outcome) String() string { return string(o) }

type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Reconciler struct {
	db      *gorm.DB
	dedup   idempotency.Store
	events  Publisher
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(db *gorm.DB, dedup idempotency.Store, pub Publisher, m *metrics.Metrics, log *slog.Logger) *Reconciler {
	return &Reconciler{db: db, dedup: dedup, events: pub, metrics: m, log: log}
}

// Handle applies ev. Errors for which apperr.IsRetry holds mean the entity the
// event refers to does not exist yet and the gateway should redeliver. Any
// other error is terminal for this delivery. In both cases the event id is
// released, so a later delivery is processed again.
func (r *Reconciler) Handle(ctx context.Context, ev gateway.Event) (Outcome, error) {
	outcome, err := r.handle(ctx, ev)

	label := outcome.String()
	switch {
	case apperr.IsRetry(err):
		label = "retry"
	case err != nil:
		label = "failed"
	}
	r.metrics.WebhookEvents.WithLabelValues(kindLabel(ev.Kind), label).Inc()

	if err != nil {
		r.log.WarnContext(ctx, "payment event not applied",
			"event_id", ev.ID, "kind", ev.Kind, "retry", apperr.IsRetry(err), "error", err)
		return outcome, err
	}
	r.log.InfoContext(ctx, "payment event handled", "event_id", ev.ID, "kind", ev.Kind, "outcome", label)
	return outcome, nil
}

func (r *Reconciler) handle(ctx context.Context, ev gateway.Event) (Outcome, error) {
	if ev.ID == "" {
		return "", apperr.Validationf("event has no id")
	}

	token, claimed, err := r.dedup.Claim(ctx, ev.ID, ev.Kind)
	if err != nil {
		return "", fmt.Errorf("claim event: %w", err)
	}
	if !claimed {
		return OutcomeDuplicate, nil
	}

	outcome, changes, err := r.apply(ctx, ev)
	if err != nil {
		if relErr := r.dedup.Release(ctx, ev.ID, token); relErr != nil {
			r.log.ErrorContext(ctx, "release event claim", "event_id", ev.ID, "error", relErr)
		}
		return "", err
	}
	// Every rule is idempotent, so a claim that fails to complete only costs
	// a harmless reapplication once its lease runs out.
	if err := r.dedup.Complete(ctx, ev.ID, token); err != nil {
		r.log.ErrorContext(ctx, "complete event claim", "event_id", ev.ID, "error", err)
	}

	for _, change := range changes {
		r.events.Publish(ctx, change)
	}
	return outcome, nil
}

func (r *Reconciler) apply(ctx context.Context, ev gateway.Event) (Outcome, []events.Event, error) {
	switch ev.Kind {
	case gateway.KindCheckoutSessionCompleted:
		return r.checkoutCompleted(ctx, ev)
	case gateway.KindCheckoutSessionAsyncPaymentSucceeded:
		return r.settleOrder(ctx, ev, models.PaymentStatusComplete)
	case gateway.KindCheckoutSessionAsyncPaymentFailed:
		return r.settleOrder(ctx, ev, models.PaymentStatusFailed)
	case gateway.KindSubscriptionCreated, gateway.KindSubscriptionUpdated:
		if ev.LookupKey == "" {
			return "", nil, apperr.Validationf("subscription event %s has no price lookup key", ev.ID)
		}
		return r.setMembership(ctx, ev.CustomerID, func(tx *gorm.DB) (models.Membership, error) {
			return membershipByLookupKey(tx, ev.LookupKey)
		})
	case gateway.KindSubscriptionDeleted:
		return r.setMembership(ctx, ev.CustomerID, func(tx *gorm.DB) (models.Membership, error) {
			return membershipByLookupKey(tx, string(models.MembershipFree))
		})
	default:
		return OutcomeIgnored, nil, nil
	}
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, ev gateway.Event) (Outcome, []events.Event, error) {
	userTag := ev.Metadata[gateway.MetadataUserID]
	orderTag := ev.Metadata[gateway.MetadataOrderID]
	if userTag == "" && orderTag == "" {
		return OutcomeIgnored, nil, nil
	}

	var changes []events.Event
	if userTag != "" {
		accountID, err := parseID(gateway.MetadataUserID, userTag)
		if err != nil {
			return "", nil, err
		}
		if err := r.attachGatewayCustomer(ctx, accountID, ev.CustomerID); err != nil {
			return "", nil, err
		}
	}

	if orderTag != "" {
		orderID, err := parseID(gateway.MetadataOrderID, orderTag)
		if err != nil {
			return "", nil, err
		}
		var target models.PaymentStatus
		if ev.PaymentStatus == "paid" || ev.PaymentStatus == "no_payment_required" {
			target = models.PaymentStatusComplete
		}
		change, err := r.updateOrder(ctx, orderID, target, ev)
		if err != nil {
			return "", nil, retryIfMissing(err)
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return OutcomeApplied, changes, nil
}

func (r *Reconciler) settleOrder(ctx context.Context, ev gateway.Event, target models.PaymentStatus) (Outcome, []events.Event, error) {
	orderTag := ev.Metadata[gateway.MetadataOrderID]
	if orderTag == "" {
		return OutcomeIgnored, nil, nil
	}
	orderID, err := parseID(gateway.MetadataOrderID, orderTag)
	if err != nil {
		return "", nil, err
	}
	change, err := r.updateOrder(ctx, orderID, target, ev)
	if err != nil {
		return "", nil, retryIfMissing(err)
	}
	if change == nil {
		return OutcomeApplied, nil, nil
	}
	return OutcomeApplied, []events.Event{*change}, nil
}

// attachGatewayCustomer records the gateway's customer id on the customer
// owning accountID. Reattaching the same id is a no-op.
func (r *Reconciler) attachGatewayCustomer(ctx context.Context, accountID uint, gatewayID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Select("id").First(&account, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Retry(apperr.NotFoundf("no account with id %d", accountID))
			}
			return fmt.Errorf("load account: %w", err)
		}

		var customer models.Customer
		if err := database.ForUpdate(tx).Where("account_id = ?", accountID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Retry(apperr.NotFoundf("no customer for account %d", accountID))
			}
			return fmt.Errorf("load customer: %w", err)
		}

		if gatewayID == "" {
			return nil
		}
		if customer.GatewayCustomerID != nil {
			if *customer.GatewayCustomerID == gatewayID {
				return nil
			}
			return apperr.Conflictf("customer %d is already linked to another gateway customer", customer.ID)
		}

		err := tx.Model(&models.Customer{}).
			Where("id = ? AND gateway_customer_id IS NULL", customer.ID).
			Update("gateway_customer_id", gatewayID).Error
		if database.IsUniqueViolation(err) {
			return apperr.Conflictf("gateway customer %s is linked to another customer", gatewayID)
		}
		if err != nil {
			return fmt.Errorf("link gateway customer: %w", err)
		}
		return nil
	})
}

// updateOrder records the gateway references carried by ev and, when target
// is set, moves the order to it. The returned change is nil when the status
// stayed the same.
func (r *Reconciler) updateOrder(ctx context.Context, orderID uint, target models.PaymentStatus, ev gateway.Event) (*events.OrderPaymentStatusChanged, error) {
	var change *events.OrderPaymentStatusChanged
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := database.ForUpdate(tx).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("no order with id %d", orderID)
			}
			return fmt.Errorf("load order: %w", err)
		}

		updates := map[string]any{}
		if ev.SessionID != "" && order.GatewaySessionID == nil {
			updates["gateway_session_id"] = ev.SessionID
		}
		if ev.PaymentIntentID != "" && order.GatewayChargeID == nil {
			updates["gateway_charge_id"] = ev.PaymentIntentID
		}
		if target != "" && target != order.PaymentStatus {
			if !order.PaymentStatus.CanTransitionTo(target) {
				return apperr.Conflictf("order %d is %s and cannot become %s", order.ID, order.PaymentStatus, target)
			}
			updates["payment_status"] = target
			change = &events.OrderPaymentStatusChanged{OrderID: order.ID, From: order.PaymentStatus, To: target}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// SetOrderPaymentStatus is the manual counterpart of the webhook rules, used
// by staff. It follows the same transition rules.
func (r *Reconciler) SetOrderPaymentStatus(ctx context.Context, orderID uint, to models.PaymentStatus) error {
	change, err := r.updateOrder(ctx, orderID, to, gateway.Event{})
	if err != nil {
		return err
	}
	if change != nil {
		r.log.InfoContext(ctx, "order payment status set manually",
			"order_id", orderID, "from", change.From, "to", change.To)
		r.events.Publish(ctx, *change)
	}
	return nil
}

func (r *Reconciler) setMembership(ctx context.Context, gatewayCustomerID string, resolve func(*gorm.DB) (models.Membership, error)) (Outcome, []events.Event, error) {
	if gatewayCustomerID == "" {
		return "", nil, apperr.Validationf("subscription event has no customer")
	}

	var change *events.CustomerMembershipChanged
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		err := database.ForUpdate(tx).Where("gateway_customer_id = ?", gatewayCustomerID).First(&customer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Retry(apperr.NotFoundf("no customer linked to gateway customer %s", gatewayCustomerID))
		}
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}

		membership, err := resolve(tx)
		if err != nil {
			return err
		}
		if customer.MembershipID == membership.ID {
			return nil
		}

		var previous models.Membership
		if err := tx.First(&previous, customer.MembershipID).Error; err != nil {
			return fmt.Errorf("load current membership: %w", err)
		}
		if err := tx.Model(&models.Customer{}).Where("id = ?", customer.ID).
			Update("membership_id", membership.ID).Error; err != nil {
			return fmt.Errorf("update membership: %w", err)
		}
		change = &events.CustomerMembershipChanged{CustomerID: customer.ID, From: previous.Label, To: membership.Label}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if change == nil {
		return OutcomeApplied, nil, nil
	}
	return OutcomeApplied, []events.Event{*change}, nil
}

func membershipByLookupKey(tx *gorm.DB, key string) (models.Membership, error) {
	var m models.Membership
	err := tx.Where("LOWER(label) = ?", models.NormalizeLookupKey(key)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, apperr.NotFoundf("no membership tier for lookup key %q", key)
	}
	if err != nil {
		return m, fmt.Errorf("load membership: %w", err)
	}
	return m, nil
}

func parseID(field, raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("metadata %s %q is not a valid id", field, raw)
	}
	return uint(id), nil
}

func retryIfMissing(err error) error {
	if errors.Is(err, apperr.ErrNotFound) && !apperr.IsRetry(err) {
		return apperr.Retry(err)
	}
	return err
}

// kindLabel keeps the metric's label set bounded.
func kindLabel(kind string) string {
	switch kind {
	case gateway.KindCheckoutSessionCompleted,
		gateway.KindCheckoutSessionAsyncPaymentSucceeded,
		gateway.KindCheckoutSessionAsyncPaymentFailed,
		gateway.KindSubscriptionCreated,
		gateway.KindSubscriptionUpdated,
		gateway.KindSubscriptionDeleted:
		return kind
	default:
		return "other"
	}
}
