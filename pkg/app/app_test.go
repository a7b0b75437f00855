package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/transaction-orchestrator/pkg/config"
	"github.com/chris/transaction-orchestrator/pkg/events"
	"github.com/chris/transaction-orchestrator/pkg/fraud"
	"github.com/chris/transaction-orchestrator/pkg/storage/cache"
	"github.com/chris/transaction-orchestrator/pkg/storage/memory"
)

func memoryConfig(ledgerURL string) *config.Config {
	return &config.Config{
		StoreBackend:  config.StoreMemory,
		EventsBackend: config.EventsNone,
		LedgerBaseURL: ledgerURL,
		LedgerTimeout: time.Second,
		FraudPolicy:   fraud.FailOpen,
		FraudTimeout:  time.Second,
	}
}

func TestNew(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		a, err := New(context.Background(), memoryConfig("http://ledger.invalid"))
		require.NoError(t, err)
		defer a.Close()

		assert.IsType(t, &memory.Store{}, a.Store)
		assert.IsType(t, &events.NoOpPublisher{}, a.Publisher)
		assert.NotNil(t, a.Service)
	})

	t.Run("Kafka", func(t *testing.T) {
		cfg := memoryConfig("http://ledger.invalid")
		cfg.EventsBackend = config.EventsKafka
		cfg.KafkaBrokers = []string{"localhost:9092"}
		cfg.KafkaTopic = "transactions"

		a, err := New(context.Background(), cfg)
		require.NoError(t, err)

		assert.IsType(t, &events.KafkaPublisher{}, a.Publisher)
		assert.NoError(t, a.Close())
	})

	t.Run("Redis Cache", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := memoryConfig("http://ledger.invalid")
		cfg.RedisAddr = mr.Addr()
		cfg.CacheTTL = time.Hour

		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		defer a.Close()

		assert.IsType(t, &cache.Store{}, a.Store)
	})

	t.Run("Redis Unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		cfg := memoryConfig("http://ledger.invalid")
		cfg.RedisAddr = addr

		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		defer a.Close()

		assert.IsType(t, &memory.Store{}, a.Store)
	})

	t.Run("Unknown Backend", func(t *testing.T) {
		cfg := memoryConfig("http://ledger.invalid")
		cfg.StoreBackend = "cassandra"

		_, err := New(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestRouter(t *testing.T) {
	var debits atomic.Int32
	ledgerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/accounts/acc-1/balance":
			_, _ = io.WriteString(w, `{"balance": 500}`)
		case r.Method == http.MethodPost && r.URL.Path == "/accounts/acc-1/debit":
			debits.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ledgerServer.Close()

	cfg := memoryConfig(ledgerServer.URL)
	cfg.JWTSecret = "secret"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	router := NewRouter(cfg, a.Service, slog.New(slog.NewTextHandler(io.Discard, nil)))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tests",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	withdraw := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/transactions/withdraw", strings.NewReader(`{"accountId":"acc-1","amount":"40.00"}`))
		req.Header.Set("Idempotency-Key", "withdraw-1")
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Health Without Token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		rr := withdraw("")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Withdraw Then Replay", func(t *testing.T) {
		first := withdraw("Bearer " + token)
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
		assert.Contains(t, first.Body.String(), `"status":"SUCCESS"`)

		second := withdraw("Bearer " + token)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, int32(1), debits.Load())
	})
}
