package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/numgame/risk-engine/internal/api"
	"github.com/numgame/risk-engine/internal/capital"
	"github.com/numgame/risk-engine/internal/exposure"
	"github.com/numgame/risk-engine/internal/limits"
	"github.com/numgame/risk-engine/internal/metrics"
	"github.com/numgame/risk-engine/internal/money"
	"github.com/numgame/risk-engine/internal/settle"
	"github.com/numgame/risk-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)

		if err := store.EnsureSchema(context.Background(), pool); err != nil {
			slog.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 2*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Limit calculator ---
	minLimit := envCents("MIN_LIMIT", money.FromUnits(limits.DefaultMinUnits))
	maxLimit := envCents("MAX_LIMIT", money.FromUnits(limits.DefaultMaxUnits))
	calc, err := limits.NewCalculator(minLimit, maxLimit)
	if err != nil {
		slog.Error("invalid limit bounds", "err", err)
		os.Exit(1)
	}

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run()

	// --- Engine components ---
	tracker := exposure.NewTracker(st)
	gate := exposure.NewGate(tracker, st)
	engine := settle.NewEngine(st, calc)
	capSvc := capital.NewService(st, calc)
	svc := api.NewService(st, tracker, gate, engine, capSvc, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"risk-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", svc.Routes)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("risk-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down risk-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("risk-engine stopped")
}

// envCents parses a decimal currency amount from the environment,
// falling back to def when unset or unparsable.
func envCents(name string, def money.Cents) money.Cents {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		slog.Warn("invalid env amount, using default", "name", name, "value", v)
		return def
	}
	c, err := money.FromDecimal(d)
	if err != nil {
		slog.Warn("invalid env amount, using default", "name", name, "value", v)
		return def
	}
	return c
}
