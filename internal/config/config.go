package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr      string
	DBDSN     string
	ClientURL string

	JWT       JWTConfig
	Payments  PaymentsConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type PaymentsConfig struct {
	Provider          string // stripe|mock
	StripeSecretKey   string
	WebhookSecret     string
	MockWebhookSecret string
	Currency          string
	Timeout           time.Duration
}

type StorageConfig struct {
	Driver          string // local|s3
	LocalDir        string
	LocalURLPrefix  string
	S3Region        string
	S3Bucket        string
	S3Prefix        string
	S3PublicBaseURL string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	RedisURL string
}

// Load reads the process environment. Callers load .env beforehand.
func Load() (Config, error) {
	cfg := Config{
		Addr:      envOr("HTTP_ADDR", ":8080"),
		DBDSN:     os.Getenv("DB_DSN"),
		ClientURL: strings.TrimRight(envOr("CLIENT_URL", "http://localhost:5173"), "/"),
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		Payments: PaymentsConfig{
			Provider:          strings.ToLower(envOr("PAYMENT_PROVIDER", "stripe")),
			StripeSecretKey:   os.Getenv("STRIPE_SECRET"),
			WebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
			MockWebhookSecret: os.Getenv("MOCK_WEBHOOK_SECRET"),
			Currency:          strings.ToLower(envOr("PAYMENT_CURRENCY", "usd")),
		},
		Storage: StorageConfig{
			Driver:          envOr("STORAGE_DRIVER", "local"),
			LocalDir:        envOr("LOCAL_UPLOAD_DIR", "./uploads"),
			LocalURLPrefix:  envOr("LOCAL_UPLOAD_URL_PREFIX", "/uploads"),
			S3Region:        os.Getenv("S3_REGION"),
			S3Bucket:        os.Getenv("S3_BUCKET"),
			S3Prefix:        envOr("S3_PREFIX", "uploads"),
			S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		RateLimit: RateLimitConfig{
			RedisURL: os.Getenv("REDIS_URL"),
		},
	}

	var err error
	if cfg.JWT.TTL, err = durationOr("JWT_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Payments.Timeout, err = durationOr("PAYMENT_PROVIDER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.Window, err = durationOr("RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.Requests, err = intOr("RATE_LIMIT_REQUESTS", 100); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks startup requirements. Webhook secrets are deliberately not
// required here: a missing secret is reported per webhook request.
func (c Config) Validate() error {
	var errs []error
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Payments.Provider {
	case "stripe":
		if c.Payments.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET is required when PAYMENT_PROVIDER=stripe"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_PROVIDER: %s", c.Payments.Provider))
	}
	if len(c.Payments.Currency) != 3 {
		errs = append(errs, fmt.Errorf("PAYMENT_CURRENCY must be a 3-letter code, got %q", c.Payments.Currency))
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	return errors.Join(errs...)
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func durationOr(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func intOr(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
