// Package gateway talks to Stripe: hosted checkout and billing portal
// sessions on the way out, signed webhook events on the way in.
package gateway

// Stripe event types the store reacts to.
const (
	KindCheckoutSessionCompleted             = "checkout.session.completed"
	KindCheckoutSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	KindCheckoutSessionAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	KindSubscriptionCreated                  = "customer.subscription.created"
	KindSubscriptionUpdated                  = "customer.subscription.updated"
	KindSubscriptionDeleted                  = "customer.subscription.deleted"
)

// Metadata keys written on sessions and read back from events.
const (
	MetadataUserID  = "user_id"
	MetadataOrderID = "order_id"
)

// Event is a verified webhook event reduced to the fields the store uses.
type Event struct {
	ID              string
	Kind            string
	CustomerID      string
	Metadata        map[string]string
	LookupKey       string
	PaymentStatus   string
	SessionID       string
	PaymentIntentID string
}

type SessionMode string

const (
	ModePayment      SessionMode = "payment"
	ModeSubscription SessionMode = "subscription"
)

// LineItem amounts are in minor currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CheckoutSessionRequest struct {
	Mode       SessionMode
	LineItems  []LineItem
	LookupKey  string
	Metadata   map[string]string
	CustomerID string
}

type Session struct {
	ID  string
	URL string
}
