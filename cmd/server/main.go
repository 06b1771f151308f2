package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	alerthandler "yatra/internal/alert/handler"
	alertmetrics "yatra/internal/alert/metrics"
	alertservice "yatra/internal/alert/service"
	alertstore "yatra/internal/alert/store"
	"yatra/internal/audit"
	audithandler "yatra/internal/audit/handler"
	"yatra/internal/geofence"
	geofencehandler "yatra/internal/geofence/handler"
	"yatra/internal/ledger"
	ledgerhandler "yatra/internal/ledger/handler"
	"yatra/internal/notify"
	notifyhandler "yatra/internal/notify/handler"
	"yatra/internal/platform/config"
	"yatra/internal/platform/httpserver"
	"yatra/internal/platform/logger"
	"yatra/internal/platform/middleware"
	"yatra/internal/platform/redis"
	"yatra/internal/safety"
	safetyhandler "yatra/internal/safety/handler"
	httptransport "yatra/internal/transport/http"
)

const (
	auditSinkBuffer = 256
	shutdownTimeout = 10 * time.Second
)

// main wires dependencies and runs the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "yatra: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional Postgres. Without it the engine runs on in-memory stores,
	// which is the mode used in development and most tests.
	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		log.Info("postgres connected")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	// Audit trail: synchronous store write, async Kafka fan-out when brokers
	// are configured.
	var auditStore audit.Store = audit.NewInMemoryStore()
	if db != nil {
		auditStore = audit.NewPostgresStore(db)
	}
	publisher := audit.NewPublisher(auditStore, log)

	var worker *audit.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer sink.Close()

		inbox := make(chan audit.Event, auditSinkBuffer)
		publisher.WithSink(inbox)
		worker = audit.NewWorker(sink, inbox, log)
		log.Info("kafka audit sink attached", "topic", cfg.Kafka.Topic)
	}

	// Identity ledger.
	var ledgerStore ledger.Store = ledger.NewInMemoryStore()
	if db != nil {
		ledgerStore = ledger.NewPostgresStore(db)
	}
	identities, err := ledger.NewService(ledgerStore,
		ledger.WithAudit(publisher),
		ledger.WithMetrics(ledger.NewMetrics()),
		ledger.WithMaxTripDays(cfg.MaxTripDurationDays),
	)
	if err != nil {
		return fmt.Errorf("build ledger service: %w", err)
	}

	// Geofence index.
	fences := geofence.NewIndex()

	// Alert lifecycle, with Redis change notifications when available.
	notifyMetrics := notify.NewMetrics()
	alertOpts := []alertservice.Option{
		alertservice.WithAudit(publisher),
		alertservice.WithMetrics(alertmetrics.New()),
	}
	if redisClient != nil {
		alertOpts = append(alertOpts, alertservice.WithNotifier(notify.NewRedisNotifier(redisClient, log, notifyMetrics)))
	}
	var alertStore alertservice.Store = alertstore.NewInMemory()
	if db != nil {
		alertStore = alertstore.NewPostgres(db)
	}
	alerts, err := alertservice.New(alertStore, alertOpts...)
	if err != nil {
		return fmt.Errorf("build alert service: %w", err)
	}

	// Safety state.
	safetySvc, err := safety.NewService(safety.NewInMemoryStore(), identities, fences, alerts,
		safety.WithAudit(publisher),
		safety.WithMetrics(safety.NewMetrics()),
	)
	if err != nil {
		return fmt.Errorf("build safety service: %w", err)
	}
	alerts.SetStatusClearer(safetySvc)

	// Notification targeting.
	notifySvc, err := notify.NewService(safetySvc, fences, notify.NewLogDispatcher(log),
		notify.WithAudit(publisher),
		notify.WithMetrics(notifyMetrics),
	)
	if err != nil {
		return fmt.Errorf("build notify service: %w", err)
	}

	healthChecks := map[string]func(context.Context) error{}
	if db != nil {
		healthChecks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		healthChecks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		OperatorAuth: middleware.NewHMACValidator(cfg.JWTSigningKey),
		Identity:     ledgerhandler.New(identities, safetySvc, log),
		Safety:       safetyhandler.New(safetySvc, log),
		Fences:       geofencehandler.New(fences, publisher, log),
		Alerts:       alerthandler.New(alerts, log),
		Broadcasts:   notifyhandler.New(notifySvc, log),
		Audit:        audithandler.New(publisher, log),
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
