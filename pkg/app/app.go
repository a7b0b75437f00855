// Package app assembles the orchestrator and its collaborators from a Config.
// The HTTP server and the lambdas share it so every binary is wired the same way.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/chris/transaction-orchestrator/pkg/api"
	"github.com/chris/transaction-orchestrator/pkg/config"
	"github.com/chris/transaction-orchestrator/pkg/events"
	"github.com/chris/transaction-orchestrator/pkg/fraud"
	"github.com/chris/transaction-orchestrator/pkg/handlers"
	"github.com/chris/transaction-orchestrator/pkg/ledger"
	"github.com/chris/transaction-orchestrator/pkg/middleware"
	"github.com/chris/transaction-orchestrator/pkg/orchestrator"
	"github.com/chris/transaction-orchestrator/pkg/storage"
	"github.com/chris/transaction-orchestrator/pkg/storage/cache"
	"github.com/chris/transaction-orchestrator/pkg/storage/dynamodb"
	"github.com/chris/transaction-orchestrator/pkg/storage/memory"
	"github.com/chris/transaction-orchestrator/pkg/storage/postgres"
)

// App holds the wired dependencies of a binary.
type App struct {
	Config    *config.Config
	Store     storage.TransactionStore
	Publisher events.Publisher
	Service   *orchestrator.Orchestrator

	aws     *aws.Config
	closers []func() error
}

// NewLogger installs a JSON slog handler at the configured level as the default logger.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return logger
}

// New builds the store, the event publisher, the ledger and fraud clients and the orchestrator.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := a.newStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = a.withCache(ctx, store)

	publisher, err := a.newPublisher(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Publisher = publisher

	var checker fraud.Checker = fraud.AllowAll{}
	if cfg.FraudBaseURL != "" {
		checker = fraud.NewHTTPClient(cfg.FraudBaseURL, cfg.FraudPolicy, cfg.FraudTimeout)
	}
	ledgerClient := ledger.NewHTTPClient(cfg.LedgerBaseURL, cfg.LedgerTimeout, ledger.DefaultBreakerConfig)

	a.Service = orchestrator.New(a.Store, ledgerClient, checker, publisher)
	return a, nil
}

// Close releases connections opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.aws != nil {
		return *a.aws, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	a.aws = &cfg
	return cfg, nil
}

func (a *App) newStore(ctx context.Context) (storage.TransactionStore, error) {
	switch a.Config.StoreBackend {
	case config.StoreDynamoDB:
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return dynamodb.New(awsdynamodb.NewFromConfig(awsCfg), a.Config.TransactionsTable, a.Config.IdempotencyTable), nil
	case config.StorePostgres:
		db, err := postgres.Open(ctx, a.Config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return postgres.New(db), nil
	case config.StoreMemory:
		slog.Warn("using in-memory transaction store, data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.Config.StoreBackend)
	}
}

// withCache fronts the store with Redis when REDIS_ADDR is set. An unreachable Redis disables
// the cache instead of failing startup.
func (a *App) withCache(ctx context.Context, store storage.TransactionStore) storage.TransactionStore {
	if a.Config.RedisAddr == "" {
		return store
	}
	client := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, transaction cache disabled", "addr", a.Config.RedisAddr, "error", err)
		_ = client.Close()
		return store
	}
	a.closers = append(a.closers, client.Close)
	slog.Info("transaction cache enabled", "addr", a.Config.RedisAddr, "ttl", a.Config.CacheTTL.String())
	return cache.New(store, client, a.Config.CacheTTL)
}

func (a *App) newPublisher(ctx context.Context) (events.Publisher, error) {
	switch a.Config.EventsBackend {
	case config.EventsSQS:
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), a.Config.SQSQueueURL), nil
	case config.EventsKafka:
		p := events.NewKafkaPublisher(a.Config.KafkaBrokers, a.Config.KafkaTopic)
		a.closers = append(a.closers, p.Close)
		return p, nil
	case config.EventsNone:
		return &events.NoOpPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", a.Config.EventsBackend)
	}
}

// NewRouter mounts the API on a chi router with request IDs, panic recovery, request logging
// and, when a JWT secret is configured, the bearer gate.
func NewRouter(cfg *config.Config, service orchestrator.Service, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.NewStructuredLogger(logger))
	if cfg.JWTSecret != "" {
		router.Use(middleware.BearerAuth([]byte(cfg.JWTSecret)))
	}

	return api.HandlerWithOptions(handlers.NewApiHandler(service), api.ChiServerOptions{
		BaseRouter:       router,
		ErrorHandlerFunc: handlers.ParamErrorHandler,
	})
}
