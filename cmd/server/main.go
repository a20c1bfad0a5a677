package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"audittrail/internal/actor"
	"audittrail/internal/audit"
	"audittrail/internal/audit/handler"
	auditmetrics "audittrail/internal/audit/metrics"
	"audittrail/internal/audit/sink"
	memstore "audittrail/internal/audit/store/memory"
	pgstore "audittrail/internal/audit/store/postgres"
	"audittrail/internal/entity"
	"audittrail/internal/platform/config"
	"audittrail/internal/platform/httpserver"
	"audittrail/internal/platform/logger"
	platformredis "audittrail/internal/platform/redis"
)

// main wires the audit service: store selection, recorder configuration,
// actor resolution, the HTTP read/write surface, and the optional Kafka
// forwarder. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("open audit store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	entities := entity.NewInMemoryStore()

	recorderOpts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New()),
	}

	var sinkWorker *sink.Worker
	var inbox chan audit.Record
	if len(cfg.KafkaBrokers) > 0 {
		inbox = make(chan audit.Record, 256)
		sinkWorker, err = sink.NewWorker(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, inbox, log)
		if err != nil {
			log.Error("start kafka sink", "error", err)
			os.Exit(1)
		}
		defer sinkWorker.Close()
		recorderOpts = append(recorderOpts, audit.WithSink(inbox))
	}

	recorder, err := audit.NewRecorder(store, entities, audit.Config{
		Disabled:           cfg.NoAudit,
		LooseStringCompare: cfg.LooseStringCompare,
	}, recorderOpts...)
	if err != nil {
		log.Error("build recorder", "error", err)
		os.Exit(1)
	}

	var sessions actor.SessionLookup
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = actor.NewRedisSessionSource(redisClient.Client, cfg.SessionTTL)
	}

	router := chi.NewRouter()
	router.Use(actor.Middleware([]byte(cfg.JWTSigningKey), sessions, log))
	router.Mount("/", handler.New(store, recorder, log).Routes())
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting audittrail", "addr", cfg.Addr, "no_audit", cfg.NoAudit)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sinkWorker != nil {
		g.Go(func() error {
			if err := sinkWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (audit.Store, func(), error) {
	if cfg.PostgresURL == "" {
		return memstore.New(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if _, err := db.ExecContext(ctx, pgstore.Schema); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pgstore.New(db), func() { db.Close() }, nil
}
