package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"spotcheck/internal/platform/config"
	"spotcheck/internal/platform/httpserver"
	"spotcheck/internal/platform/logger"
	"spotcheck/internal/platform/metrics"
	"spotcheck/internal/platform/middleware"
	"spotcheck/internal/platform/postgres"
	platredis "spotcheck/internal/platform/redis"
	"spotcheck/internal/spotcheck/handler"
	"spotcheck/internal/spotcheck/notify"
	"spotcheck/internal/spotcheck/service"
	"spotcheck/internal/spotcheck/store/ignore"
	"spotcheck/internal/spotcheck/store/issue"
	"spotcheck/internal/spotcheck/store/ledger"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Reconciliation logic lives in the service package. Without a postgres URL
// the engine runs on in-memory stores, which is enough for local development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		ledgerStore ledger.Store
		ignoreStore ignore.Store
		issueStore  issue.Store
	)
	if db != nil {
		defer db.Close()
		ledgerStore = ledger.NewPostgres(db)
		ignoreStore = ignore.NewPostgres(db)
		issueStore = issue.NewPostgres(db)
	} else {
		log.Warn("no postgres URL configured, using in-memory stores")
		memIgnores := ignore.NewMemory()
		memIssues := issue.NewMemory()
		ledgerStore = ledger.NewMemory(memIgnores, memIssues)
		ignoreStore = memIgnores
		issueStore = memIssues
	}

	var opts []service.Option

	cache, err := platredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
		opts = append(opts, service.WithSummaryCache(cache))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		if err := publisher.EnsureTopic(context.Background(), 3); err != nil {
			log.Error("kafka topic setup failed", "error", err)
			os.Exit(1)
		}
		opts = append(opts, service.WithNotifier(publisher))
	}

	m := metrics.New()
	engine := service.New(log, ledgerStore, ignoreStore, issueStore, m, opts...)

	router := chi.NewRouter()
	handler.New(engine, log, middleware.NewAdminValidator(cfg.JWTSigningKey)).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting spotcheck server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
