package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type Stripe struct {
	api     *client.API
	cfg     config.StripeConfig
	breaker *gobreaker.CircuitBreaker[*Session]
	log     *slog.Logger
}

// NewStripe builds a client from injected configuration. backends may be nil
// to use Stripe's production endpoints.
func NewStripe(cfg config.StripeConfig, backends *stripe.Backends, log *slog.Logger) *Stripe {
	s := &Stripe{
		api: client.New(cfg.SecretKey, backends),
		cfg: cfg,
		log: log,
	}
	s.breaker = gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperr.ErrValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*Session, error) {
	return s.execute(func() (*Session, error) {
		params := &stripe.CheckoutSessionParams{
			Params:     stripe.Params{Context: ctx},
			Mode:       stripe.String(string(req.Mode)),
			SuccessURL: stripe.String(s.cfg.SuccessURL),
			CancelURL:  stripe.String(s.cfg.CancelURL),
		}
		for k, v := range req.Metadata {
			params.AddMetadata(k, v)
		}
		if req.CustomerID != "" {
			params.Customer = stripe.String(req.CustomerID)
		}

		switch req.Mode {
		case ModePayment:
			if len(req.LineItems) == 0 {
				return nil, apperr.Validationf("payment session needs at least one line item")
			}
			for _, item := range req.LineItems {
				params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
					PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
						Currency: stripe.String(s.cfg.Currency),
						ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
							Name: stripe.String(item.Name),
						},
						UnitAmount: stripe.Int64(item.UnitAmount),
					},
					Quantity: stripe.Int64(item.Quantity),
				})
			}
			params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
				Metadata: req.Metadata,
			}
		case ModeSubscription:
			priceID, err := s.priceByLookupKey(ctx, req.LookupKey)
			if err != nil {
				return nil, err
			}
			params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			}}
			params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
				Metadata: req.Metadata,
			}
		default:
			return nil, apperr.Validationf("unknown session mode %q", req.Mode)
		}

		sess, err := s.api.CheckoutSessions.New(params)
		if err != nil {
			return nil, err
		}
		return &Session{ID: sess.ID, URL: sess.URL}, nil
	})
}

func (s *Stripe) CreatePortalSession(ctx context.Context, customerID string) (*Session, error) {
	if customerID == "" {
		return nil, apperr.Validationf("customer has no payment gateway account yet")
	}
	return s.execute(func() (*Session, error) {
		sess, err := s.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
			Params:    stripe.Params{Context: ctx},
			Customer:  stripe.String(customerID),
			ReturnURL: stripe.String(s.cfg.PortalReturnURL),
		})
		if err != nil {
			return nil, err
		}
		return &Session{ID: sess.ID, URL: sess.URL}, nil
	})
}

func (s *Stripe) priceByLookupKey(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperr.Validationf("lookup_key is required for subscriptions")
	}
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{key}),
		Active:     stripe.Bool(true),
	}
	params.Context = ctx
	iter := s.api.Prices.List(params)
	if iter.Next() {
		return iter.Price().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", err
	}
	return "", apperr.Validationf("no active price with lookup key %q", key)
}

// execute runs fn behind the circuit breaker. Validation errors pass through;
// everything else is reported as a gateway failure.
func (s *Stripe) execute(fn func() (*Session, error)) (*Session, error) {
	sess, err := s.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return nil, err
		}
		s.log.Error("stripe request failed", "error", err)
		return nil, apperr.Gateway(err)
	}
	return sess, nil
}

// VerifyEvent checks the Stripe-Signature header against the webhook secret
// and decodes the event. Any failure is a signature error.
func (s *Stripe) VerifyEvent(payload []byte, header string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, header, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, apperr.Signature(err)
	}
	out, err := translate(ev)
	if err != nil {
		return Event{}, apperr.Signature(err)
	}
	return out, nil
}

func translate(ev stripe.Event) (Event, error) {
	out := Event{ID: ev.ID, Kind: string(ev.Type)}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}

	switch out.Kind {
	case KindCheckoutSessionCompleted, KindCheckoutSessionAsyncPaymentSucceeded, KindCheckoutSessionAsyncPaymentFailed:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return Event{}, err
		}
		out.SessionID = sess.ID
		out.Metadata = sess.Metadata
		out.PaymentStatus = string(sess.PaymentStatus)
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
		if sess.PaymentIntent != nil {
			out.PaymentIntentID = sess.PaymentIntent.ID
		}
		if out.Metadata[MetadataUserID] == "" && sess.ClientReferenceID != "" {
			if out.Metadata == nil {
				out.Metadata = map[string]string{}
			}
			out.Metadata[MetadataUserID] = sess.ClientReferenceID
		}

	case KindSubscriptionCreated, KindSubscriptionUpdated, KindSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return Event{}, err
		}
		out.Metadata = sub.Metadata
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			out.LookupKey = sub.Items.Data[0].Price.LookupKey
		}
	}
	return out, nil
}
