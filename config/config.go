package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at start-up and passed to every component that needs it.
type Config struct {
	AppEnv   string
	LogLevel string
	Port     string

	DatabaseURL     string
	AutoMigrate     bool
	ShutdownTimeout time.Duration

	JWTSecret   string
	AdminAPIKey string
	CORSOrigins []string

	Stripe StripeConfig
	SMTP   SMTPConfig

	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	CheckoutVerifyTotal bool

	UploadDir     string
	PublicBaseURL string
}

type StripeConfig struct {
	SecretKey       string
	WebhookSecret   string
	Currency        string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	OpsEmail string
	ShopURL  string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     databaseURL(),
		AutoMigrate:     getBool("DB_AUTO_MIGRATE", true),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
		CORSOrigins: getList("CORS_ORIGINS", []string{"*"}),

		Stripe: StripeConfig{
			SecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:        getEnv("STRIPE_CURRENCY", "gbp"),
			SuccessURL:      getEnv("STRIPE_SUCCESS_URL", "https://treatnaturally.co.uk"),
			CancelURL:       getEnv("STRIPE_CANCEL_URL", "https://treatnaturally.co.uk"),
			PortalReturnURL: getEnv("STRIPE_PORTAL_RETURN_URL", "https://treatnaturally.co.uk"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("DEFAULT_FROM_EMAIL", "no-reply@treatnaturally.co.uk"),
			OpsEmail: getEnv("OPS_EMAIL", "info@treatnaturally.co.uk"),
			ShopURL:  getEnv("SHOP_URL", "https://treatnaturally.co.uk"),
		},

		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: getList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "store.events"),

		CheckoutVerifyTotal: getBool("CHECKOUT_VERIFY_TOTAL", false),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL or DB_HOST/DB_NAME must be set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.AdminAPIKey == "" {
		errs = append(errs, errors.New("ADMIN_API_KEY is not set"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is not set"))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is not set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DB_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host,
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		name,
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getList(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
