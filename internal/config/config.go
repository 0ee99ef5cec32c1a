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

// PricingPolicy decides what happens to Order.Price when the quantity changes.
type PricingPolicy string

const (
	// PricingLive refreshes the order price from the current product price on every quantity update.
	PricingLive PricingPolicy = "live"
	// PricingSnapshot keeps the price captured when the order was created.
	PricingSnapshot PricingPolicy = "snapshot"
)

// AppConfig holds runtime settings. Everything comes from the environment.
type AppConfig struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// RedisAddr empty disables rate limiting, webhook dedup and the event outbox stream.
	RedisAddr string
	RedisDB   int

	// KafkaBrokers empty disables event delivery to Kafka.
	KafkaBrokers []string
	KafkaTopic   string

	// KafkaAuditGroup is the consumer group that records events into order_events.
	KafkaAuditGroup string

	// Redis stream outbox (handlers XADD, Relay forwards to Kafka)
	OrderEventStream   string
	OrderEventGroup    string
	OrderEventConsumer string

	JWTSecret []byte

	MidtransServerKey  string
	MidtransProduction bool

	PricingPolicy PricingPolicy

	RateLimit       int
	RateWindow      time.Duration
	WebhookDedupTTL time.Duration

	LogLevel string
}

// Load reads a .env file when present, then the environment, falling back to defaults.
func Load() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		DBDSN:              getEnv("DB_DSN", "storefront.db"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            0,
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "storefront-order-events"),
		KafkaAuditGroup:    getEnv("KAFKA_AUDIT_GROUP", "storefront-audit"),
		OrderEventStream:   getEnv("ORDER_EVENT_STREAM", "storefront:order_events"),
		OrderEventGroup:    getEnv("ORDER_EVENT_GROUP", "storefront-relay-group"),
		OrderEventConsumer: getEnv("ORDER_EVENT_CONSUMER", "storefront-relay-1"),
		JWTSecret:          []byte(getEnv("JWT_SECRET", "")),
		MidtransServerKey:  getEnv("MT_SERVER_KEY", ""),
		PricingPolicy:      PricingPolicy(strings.ToLower(getEnv("PRICING_POLICY", string(PricingLive)))),
		RateLimit:          100,
		RateWindow:         time.Second,
		WebhookDedupTTL:    24 * time.Hour,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	production, err := getEnvBool("MT_PRODUCTION", false)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid MT_PRODUCTION: %w", err)
	}
	cfg.MidtransProduction = production

	rateLimit, err := getEnvInt("RATE_LIMIT", cfg.RateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("RATE_LIMIT must be > 0")
	}
	cfg.RateLimit = rateLimit

	rateWindowSec, err := getEnvInt("RATE_WINDOW_SEC", int(cfg.RateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("RATE_WINDOW_SEC must be > 0")
	}
	cfg.RateWindow = time.Duration(rateWindowSec) * time.Second

	dedupHours, err := getEnvInt("WEBHOOK_DEDUP_TTL_HOUR", int(cfg.WebhookDedupTTL.Hours()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid WEBHOOK_DEDUP_TTL_HOUR: %w", err)
	}
	if dedupHours <= 0 {
		return AppConfig{}, fmt.Errorf("WEBHOOK_DEDUP_TTL_HOUR must be > 0")
	}
	cfg.WebhookDedupTTL = time.Duration(dedupHours) * time.Hour

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN must not be empty")
	}
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.MidtransServerKey == "" {
		return fmt.Errorf("MT_SERVER_KEY must not be empty")
	}
	switch c.PricingPolicy {
	case PricingLive, PricingSnapshot:
	default:
		return fmt.Errorf("PRICING_POLICY must be live or snapshot, got %q", c.PricingPolicy)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaAuditGroup == "" {
		return fmt.Errorf("KAFKA_AUDIT_GROUP must not be empty")
	}
	if c.RedisAddr != "" {
		if c.OrderEventStream == "" {
			return fmt.Errorf("ORDER_EVENT_STREAM must not be empty")
		}
		if c.OrderEventGroup == "" {
			return fmt.Errorf("ORDER_EVENT_GROUP must not be empty")
		}
		if c.OrderEventConsumer == "" {
			return fmt.Errorf("ORDER_EVENT_CONSUMER must not be empty")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
