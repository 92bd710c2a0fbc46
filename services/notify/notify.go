// Package notify sends transactional mail in the background. Mail is a side
// effect: failures are logged and counted, never returned to the request that
// caused them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/junaidrashid-git/treatnaturally-api/config"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/junaidrashid-git/treatnaturally-api/metrics"
	"gopkg.in/gomail.v2"
)

type Message struct {
	Template string
	To       []string
	Subject  string
	Text     string
	HTML     string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}
	return m.dialer.DialAndSend(gm)
}

// LogMailer only logs messages. It is used when no SMTP host is configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.InfoContext(ctx, "mail not sent, smtp disabled", "template", msg.Template, "to", msg.To, "subject", msg.Subject)
	return nil
}

type Worker struct {
	mailer      Mailer
	queue       chan Message
	maxAttempts int
	backoff     time.Duration
	metrics     *metrics.Metrics
	log         *slog.Logger
}

type WorkerOption func(*Worker)

func WithRetries(attempts int, backoff time.Duration) WorkerOption {
	return func(w *Worker) {
		if attempts > 0 {
			w.maxAttempts = attempts
		}
		w.backoff = backoff
	}
}

func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan Message, n)
		}
	}
}

func NewWorker(mailer Mailer, m *metrics.Metrics, log *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		mailer:      mailer,
		queue:       make(chan Message, 256),
		maxAttempts: 3,
		backoff:     2 * time.Second,
		metrics:     m,
		log:         log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enqueue hands msg to the worker without blocking. A full queue drops the
// message.
func (w *Worker) Enqueue(msg Message) bool {
	select {
	case w.queue <- msg:
		return true
	default:
		w.metrics.EmailsSent.WithLabelValues(msg.Template, "dropped").Inc()
		w.log.Error("mail queue full, message dropped", "template", msg.Template, "to", msg.To)
		return false
	}
}

// Run delivers queued messages until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-w.queue:
			w.deliver(ctx, msg)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, msg Message) {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err = w.mailer.Send(ctx, msg); err == nil {
			w.metrics.EmailsSent.WithLabelValues(msg.Template, "sent").Inc()
			return
		}
		w.log.Warn("mail delivery failed", "template", msg.Template, "attempt", attempt, "error", err)
		if attempt < w.maxAttempts {
			if sleepErr := sleepOrDone(ctx, w.backoff*time.Duration(attempt)); sleepErr != nil {
				err = errors.Join(err, sleepErr)
				break
			}
		}
	}
	w.metrics.EmailsSent.WithLabelValues(msg.Template, "failed").Inc()
	w.log.Error("mail abandoned", "template", msg.Template, "to", msg.To, "error", err)
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register subscribes the mail side effects to the bus. Amounts are shown in
// currency, the ISO code charged by the payment gateway.
func Register(bus *events.Bus, w *Worker, cfg config.SMTPConfig, currency string) {
	events.On(bus, func(ctx context.Context, e events.OrderCreated) error {
		var errs []error
		if e.Order.BillingAddress.Email != "" {
			msg, err := OrderConfirmation(e.Order, currency)
			if err == nil {
				w.Enqueue(msg)
			}
			errs = append(errs, err)
		}
		if cfg.OpsEmail != "" {
			msg, err := OrderAlert(e.Order, cfg.OpsEmail, currency)
			if err == nil {
				w.Enqueue(msg)
			}
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	events.On(bus, func(ctx context.Context, e events.CustomerRegistered) error {
		if e.Customer.Account.Email == "" {
			return nil
		}
		msg, err := Welcome(e.Customer.Account, cfg.ShopURL)
		if err != nil {
			return err
		}
		w.Enqueue(msg)
		return nil
	})
}
