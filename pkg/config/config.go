// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chris/transaction-orchestrator/pkg/fraud"
)

// Store backends.
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Event backends.
const (
	EventsSQS   = "sqs"
	EventsKafka = "kafka"
	EventsNone  = "none"
)

// Config holds every setting the binaries need.
type Config struct {
	HTTPPort string
	LogLevel slog.Level

	StoreBackend      string
	TransactionsTable string
	IdempotencyTable  string
	PostgresDSN       string

	RedisAddr string
	CacheTTL  time.Duration

	LedgerBaseURL string
	LedgerTimeout time.Duration

	FraudBaseURL string
	FraudPolicy  fraud.Policy
	FraudTimeout time.Duration

	EventsBackend string
	SQSQueueURL   string
	KafkaBrokers  []string
	KafkaTopic    string

	JWTSecret string

	StuckTransactionThreshold time.Duration
	ReconciliationWindow      time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment and validates it.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		HTTPPort:          getenv("HTTP_PORT", "8080"),
		StoreBackend:      strings.ToLower(getenv("STORE_BACKEND", StoreDynamoDB)),
		TransactionsTable: os.Getenv("DYNAMODB_TRANSACTIONS_TABLE_NAME"),
		IdempotencyTable:  os.Getenv("DYNAMODB_IDEMPOTENCY_TABLE_NAME"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		LedgerBaseURL:     os.Getenv("LEDGER_BASE_URL"),
		FraudBaseURL:      os.Getenv("FRAUD_BASE_URL"),
		EventsBackend:     strings.ToLower(getenv("EVENTS_BACKEND", EventsNone)),
		SQSQueueURL:       os.Getenv("SQS_QUEUE_URL"),
		KafkaTopic:        getenv("KAFKA_TOPIC", "transactions"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "INFO"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	policy, err := fraud.ParsePolicy(getenv("FRAUD_POLICY", string(fraud.FailOpen)))
	if err != nil {
		errs = append(errs, fmt.Errorf("FRAUD_POLICY: %w", err))
	}
	cfg.FraudPolicy = policy

	for _, d := range []struct {
		name     string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"LEDGER_TIMEOUT", 5 * time.Second, &cfg.LedgerTimeout},
		{"FRAUD_TIMEOUT", 2 * time.Second, &cfg.FraudTimeout},
		{"CACHE_TTL", 24 * time.Hour, &cfg.CacheTTL},
		{"STUCK_TRANSACTION_THRESHOLD", 20 * time.Minute, &cfg.StuckTransactionThreshold},
		{"RECONCILIATION_WINDOW", 24 * time.Hour, &cfg.ReconciliationWindow},
	} {
		v, err := getDuration(d.name, d.fallback)
		if err != nil {
			errs = append(errs, err)
		}
		*d.dst = v
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error

	switch c.StoreBackend {
	case StoreDynamoDB:
		if c.TransactionsTable == "" || c.IdempotencyTable == "" {
			errs = append(errs, errors.New("DYNAMODB_TRANSACTIONS_TABLE_NAME and DYNAMODB_IDEMPOTENCY_TABLE_NAME must be set"))
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN must be set"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.EventsBackend {
	case EventsSQS:
		if c.SQSQueueURL == "" {
			errs = append(errs, errors.New("SQS_QUEUE_URL must be set"))
		}
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS must be set"))
		}
	case EventsNone:
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend))
	}

	if c.LedgerBaseURL == "" {
		errs = append(errs, errors.New("LEDGER_BASE_URL must be set"))
	}
	return errs
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
