// Command server runs the croptrace custody service: participant registry,
// crop unit ledger, and the event publishing pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpapi "croptrace/internal/http"
	"croptrace/internal/jwttoken"
	"croptrace/internal/ledger"
	ledgermetrics "croptrace/internal/ledger/metrics"
	ledgerservice "croptrace/internal/ledger/service"
	ledgerstore "croptrace/internal/ledger/store"
	"croptrace/internal/ledger/store/cache"
	"croptrace/internal/platform/config"
	"croptrace/internal/platform/httpserver"
	"croptrace/internal/platform/logger"
	"croptrace/internal/platform/postgres"
	platformredis "croptrace/internal/platform/redis"
	"croptrace/internal/registry"
	registrymetrics "croptrace/internal/registry/metrics"
	registryservice "croptrace/internal/registry/service"
	registrystore "croptrace/internal/registry/store"
	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/eventlog/publisher"
	eventpg "croptrace/pkg/platform/eventlog/store/postgres"
	"croptrace/pkg/platform/eventlog/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	var (
		registryStore registryservice.Store
		ledgerStore   ledgerservice.Store
		eventReader   eventlog.Reader
		memoryLog     *eventlog.Log
		health        = make(map[string]httpapi.HealthChecker)
		relay         func(context.Context) error
	)

	if cfg.Postgres.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		events := eventpg.New(pool)
		registryStore = registrystore.NewPostgres(pool, events)
		ledgerStore = ledgerstore.NewPostgres(pool, events)
		eventReader = events
		health["postgres"] = poolHealth{pool: pool}

		if len(cfg.Kafka.Brokers) > 0 {
			kafka, err := publisher.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
			if err != nil {
				log.Error("kafka connection failed", "error", err)
				os.Exit(1)
			}
			defer kafka.Close()

			relayDB, err := postgres.NewRelayDB(cfg.Postgres.URL)
			if err != nil {
				log.Error("relay db connection failed", "error", err)
				os.Exit(1)
			}
			defer relayDB.Close()

			relay = worker.NewOutboxRelay(relayDB, kafka, log, cfg.Kafka.PollInterval).Run
		}
	} else {
		memoryLog = eventlog.NewLog()
		registryStore = registrystore.NewInMemory(memoryLog)
		ledgerStore = ledgerstore.NewInMemory(memoryLog)
		eventReader = memoryLog
		log.Warn("DATABASE_URL not set, using in-memory stores")

		if len(cfg.Kafka.Brokers) > 0 {
			kafka, err := publisher.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
			if err != nil {
				log.Error("kafka connection failed", "error", err)
				os.Exit(1)
			}
			defer kafka.Close()

			relay = worker.NewStreamRelay(memoryLog, kafka, log).Run
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var unitCache *cache.UnitCache
	if redisClient != nil {
		defer redisClient.Close()
		unitCache = cache.New(redisClient.Client, cfg.Redis.CacheTTL)
		health["redis"] = redisClient
	}

	registryService := registry.NewService(registryStore,
		registryservice.WithLogger(log),
		registryservice.WithMetrics(registrymetrics.New()),
	)
	ledgerService := ledger.NewService(ledgerStore, registryService,
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithCache(unitCache),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Tokens:         tokens,
		Registry:       registry.NewHandler(registryService, log),
		Ledger:         ledger.NewHandler(ledgerService, log),
		AdminTokenHash: cfg.AdminTokenHash,
		EventReader:    eventReader,
		Health:         health,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting croptrace", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if relay != nil {
		group.Go(func() error {
			if err := relay(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// poolHealth adapts a pgx pool to the router's health check interface.
type poolHealth struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p poolHealth) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
