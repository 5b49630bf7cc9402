// cmd/entitlement-api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hiring-entitlements/internal/api"
	"hiring-entitlements/internal/common/aws"
	"hiring-entitlements/internal/common/camunda"
	"hiring-entitlements/internal/common/config"
	"hiring-entitlements/internal/common/database"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/common/observability"
	"hiring-entitlements/internal/engine/disclosure"
	"hiring-entitlements/internal/engine/entitlement"
	"hiring-entitlements/internal/engine/gateway"
	"hiring-entitlements/internal/notify"
	"hiring-entitlements/internal/repository/postgres"
	"hiring-entitlements/pkg/plancatalog"
)

const serviceName = "entitlement-api"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting entitlement API...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if err := run(cfg, zapLog, log); err != nil {
		zapLog.Fatal("entitlement API stopped with error", zap.Error(err))
	}
	zapLog.Info("entitlement API stopped")
}

func run(cfg *config.Config, zapLog *zap.Logger, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.New(serviceName)
	defer obs.Shutdown()
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(serviceName, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio); err != nil {
			return err
		}
		zapLog.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.JaegerEndpoint))
	}

	catalog, err := plancatalog.Load(cfg.Entitlements.CatalogPath)
	if err != nil {
		return fmt.Errorf("load plan catalog: %w", err)
	}
	zapLog.Info("Plan catalog loaded", zap.Int("plans", len(catalog.Plans)))

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pg.DB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		zapLog.Info("Database schema up to date")
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		return err
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	store := postgres.NewStore(pg, log)
	cache := entitlement.NewSubscriptionCache(rdb.Client, config.GetDuration(cfg.Entitlements.SubscriptionCacheTTL), log)
	resolver := entitlement.NewResolver(catalog, store, store, store, cache, log)
	ledger := disclosure.NewLedger(store, store, resolver, disclosure.Config{
		CommitTimeout: config.GetDuration(cfg.Entitlements.CommitTimeout),
	}, log)

	hooks, closeHooks, err := buildHooks(ctx, cfg, store, zapLog, log)
	if err != nil {
		closeHooks()
		return err
	}
	dispatcher := notify.NewDispatcher(config.GetDuration(cfg.Notifications.Timeout), log, hooks...)

	gw := gateway.New(store, resolver, ledger, dispatcher, obs, gateway.Config{
		OverrideConcurrency: cfg.Entitlements.OverrideConcurrency,
	}, log)

	server := api.NewServer(gw,
		api.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		map[string]api.Check{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		},
		api.Config{
			RequestTimeout:      config.GetDuration(cfg.Server.RequestTimeout),
			RevealRatePerMinute: cfg.Entitlements.RevealRatePerMinute,
			RevealBurst:         cfg.Entitlements.RevealBurst,
			Version:             cfg.App.Version,
		}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: metricsMux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		zapLog.Info("Metrics server listening", zap.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		if derr := dispatcher.Close(shutdownCtx); derr != nil {
			zapLog.Warn("hook deliveries still in flight at shutdown", zap.Error(derr))
		}
		closeHooks()
		if merr := metricsServer.Shutdown(shutdownCtx); err == nil {
			err = merr
		}
		return err
	})

	return g.Wait()
}

// buildHooks creates the post-commit hooks that are enabled in config. The
// returned func releases their clients.
func buildHooks(ctx context.Context, cfg *config.Config, store *postgres.Store, zapLog *zap.Logger, log logger.Logger) ([]notify.Hook, func(), error) {
	var (
		hooks   []notify.Hook
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var (
			email notify.EmailSender
			sms   notify.SMSSender
		)
		if cfg.Notifications.Email.Enabled {
			ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
			if err != nil {
				return nil, closeAll, err
			}
			email = ses
		}
		if cfg.Notifications.SMS.Enabled {
			sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				return nil, closeAll, err
			}
			sms = sns
		}
		hooks = append(hooks, notify.NewEmployeeNotifier(store, email, sms, log))
		zapLog.Info("Employee notifications enabled",
			zap.Bool("email", email != nil),
			zap.Bool("sms", sms != nil),
		)
	}

	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err := retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
				MessageTTL:             config.GetDuration(cfg.Camunda.MessageTTL),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = zeebe.Close() })
		hooks = append(hooks, notify.NewWorkflowPublisher(zeebe))
		zapLog.Info("Zeebe client connected successfully")
	}

	if cfg.Audit.Enabled {
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, closeAll, err
		}
		hooks = append(hooks, notify.NewAuditIndexer(es.Client, cfg.Audit.Index))
		zapLog.Info("Audit indexing enabled", zap.String("index", cfg.Audit.Index))
	}

	return hooks, closeAll, nil
}
