// Command server wires the product lifecycle services behind a single HTTP
// API. Storage, caching and event delivery are all optional backends: with no
// environment configured the process runs fully in-memory, which is the mode
// the integration tests and local development use.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"custodia/internal/accesscontrol"
	"custodia/internal/assetregistry"
	"custodia/internal/assetregistry/cache"
	"custodia/internal/jwtauth"
	"custodia/internal/marketplace"
	"custodia/internal/notify"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	platformredis "custodia/internal/platform/redis"
	httptransport "custodia/internal/transport/http"
	"custodia/internal/warranty"
	"custodia/pkg/secrets"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		assetStore    assetregistry.Store = assetregistry.NewInMemoryStore()
		accessStore   accesscontrol.Store = accesscontrol.NewInMemoryStore()
		warrantyStore warranty.Store      = warranty.NewInMemoryStore()
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		pg := assetregistry.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		assetStore = pg
		log.Info("using postgres asset store")
	}

	// Verification cache: Redis when configured, process-local otherwise.
	var verifyCache assetregistry.VerificationCache = cache.NewMemory(cfg.VerifyCacheTTL)
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		verifyCache = cache.NewRedis(redisClient.Client, cfg.VerifyCacheTTL, log)
		log.Info("using redis verification cache")
	}

	access := accesscontrol.NewService(accessStore, cfg.AdminIdentity, log)

	// Coordinator capabilities are minted per process; the services only
	// ever see the bcrypt hash.
	registrySecret, err := secrets.Generate()
	if err != nil {
		return err
	}
	registryHash, err := secrets.Hash(registrySecret)
	if err != nil {
		return err
	}
	warrantySecret, err := secrets.Generate()
	if err != nil {
		return err
	}
	warrantyHash, err := secrets.Hash(warrantySecret)
	if err != nil {
		return err
	}

	publisher := notify.NewChannelPublisher(log)
	notifications := notify.NewInMemoryStore()
	sinks := []notify.Sink{notify.NewStoreSink(notifications)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := notify.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("publishing notifications to kafka", "topic", cfg.KafkaTopic)
	}
	worker := notify.NewWorker(publisher.Inbox(), log, sinks...)

	registry := assetregistry.NewService(assetStore, access, registryHash, log,
		assetregistry.WithCache(verifyCache),
		assetregistry.WithMetrics(m),
		assetregistry.WithConsumerTransfers(cfg.AllowConsumerTransfers),
	)
	warranties := warranty.NewService(warrantyStore, access, warrantyHash, log,
		warranty.WithPublisher(publisher),
		warranty.WithMetrics(m),
	)
	if err := warranties.BindRegistry(registry); err != nil {
		return err
	}

	funds := marketplace.NewInMemoryFunds()
	coordinator := marketplace.NewCoordinator(registry, warranties, access, funds, log,
		marketplace.WithPublisher(publisher),
		marketplace.WithMetrics(m),
	)
	if err := coordinator.Bind(registrySecret, warrantySecret); err != nil {
		return err
	}

	tokens := jwtauth.NewService(cfg.JWTSigningKey, "custodia", "custodia-clients")
	handler := httptransport.NewHandler(access, registry, coordinator, warranties, notifications, tokens, log)
	router := httptransport.NewRouter(handler, tokens, m, cfg.RequestTimeout)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
