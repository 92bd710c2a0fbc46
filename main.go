package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/config"
	productcontroller "github.com/junaidrashid-git/treatnaturally-api/controllers/product"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/junaidrashid-git/treatnaturally-api/logging"
	"github.com/junaidrashid-git/treatnaturally-api/metrics"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/routes"
	"github.com/junaidrashid-git/treatnaturally-api/services/broker"
	"github.com/junaidrashid-git/treatnaturally-api/services/carts"
	"github.com/junaidrashid-git/treatnaturally-api/services/checkout"
	"github.com/junaidrashid-git/treatnaturally-api/services/customers"
	"github.com/junaidrashid-git/treatnaturally-api/services/gateway"
	"github.com/junaidrashid-git/treatnaturally-api/services/idempotency"
	"github.com/junaidrashid-git/treatnaturally-api/services/notify"
	"github.com/junaidrashid-git/treatnaturally-api/services/realtime"
	"github.com/junaidrashid-git/treatnaturally-api/services/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.Prepare(db, cfg.AutoMigrate, log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dedup, closeDedup, err := dedupStore(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer closeDedup()

	bus := events.NewBus(log)

	customerSvc := customers.NewService(db, bus, log)
	events.On(bus, customerSvc.LinkAddress)

	var mailer notify.Mailer = notify.NewLogMailer(log)
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTP)
	} else {
		log.Warn("SMTP_HOST is not set, mail is logged instead of sent")
	}
	mailWorker := notify.NewWorker(mailer, m, log)
	notify.Register(bus, mailWorker, cfg.SMTP, cfg.Stripe.Currency)

	hub := realtime.NewHub(log, cfg.CORSOrigins)
	hub.Register(bus)
	defer hub.Close()

	if len(cfg.KafkaBrokers) > 0 {
		relay := broker.NewRelay(broker.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, log), log)
		relay.Register(bus)
		defer func() {
			if err := relay.Close(); err != nil {
				log.Error("close kafka writer", "error", err)
			}
		}()
		log.Info("relaying events to kafka", "topic", cfg.KafkaTopic)
	}

	stripeGW := gateway.NewStripe(cfg.Stripe, nil, log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log, m))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, routes.Deps{
		DB:          db,
		Carts:       carts.NewService(db),
		Customers:   customerSvc,
		Checkout:    checkout.NewEngine(db, bus, m, log, checkout.WithTotalVerification(cfg.CheckoutVerifyTotal)),
		Reconciler:  reconcile.New(db, dedup, bus, m, log),
		Sessions:    stripeGW,
		Verifier:    stripeGW,
		OrderFeed:   hub,
		Metrics:     m,
		Images:      productcontroller.ImageStore{Dir: cfg.UploadDir, BaseURL: cfg.PublicBaseURL},
		JWTSecret:   cfg.JWTSecret,
		AdminAPIKey: cfg.AdminAPIKey,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return mailWorker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// dedupStore prefers Redis when REDIS_URL is set and falls back to the
// processed_webhook_events table.
func dedupStore(ctx context.Context, cfg config.Config, db *gorm.DB, log *slog.Logger) (idempotency.Store, func(), error) {
	if cfg.RedisURL == "" {
		return idempotency.NewGormStore(db, idempotency.DefaultLease), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("webhook dedup backed by redis")
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Error("close redis", "error", err)
		}
	}
	return idempotency.NewRedisStore(client, idempotency.DefaultLease, idempotency.DefaultRetention), closeFn, nil
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
