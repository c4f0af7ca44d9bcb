// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"

	"github.com/carterperez-dev/storefront-api/internal/admin"
	"github.com/carterperez-dev/storefront-api/internal/auth"
	"github.com/carterperez-dev/storefront-api/internal/config"
	"github.com/carterperez-dev/storefront-api/internal/core"
	"github.com/carterperez-dev/storefront-api/internal/health"
	"github.com/carterperez-dev/storefront-api/internal/product"
	"github.com/carterperez-dev/storefront-api/internal/server"
	"github.com/carterperez-dev/storefront-api/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// storeBackend is whichever primary store the config selected.
type storeBackend struct {
	name     string
	users    user.Repository
	products product.Repository
	ping     func(ctx context.Context) error
	close    func(ctx context.Context) error
	database *core.Database
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath, envPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envPath, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, flush := core.NewLogger(cfg.Log)
	defer flush()
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"store", cfg.Database.Driver,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized",
			"endpoint", cfg.Otel.Endpoint,
		)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		//nolint:errcheck // already failing
		_ = store.close(context.Background())
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	tokens, err := auth.NewTokenManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("token manager initialized",
		"algorithm", "HS256",
		"access_expiry", tokens.AccessExpiry(),
	)

	sessions := auth.NewSessionRepository(redis.Client)
	userSvc := user.NewService(store.users, sessions)
	authSvc := auth.NewService(tokens, sessions, userSvc)
	productSvc := product.NewService(
		store.products,
		core.NewCache(redis.Client, "product", cfg.Cache.ProductTTL),
	)

	healthHandler := health.NewHandler(health.Config{
		StoreName:   store.name,
		Store:       checkerFunc(store.ping),
		Redis:       redis,
		Environment: cfg.App.Environment,
	})

	adminCfg := admin.HandlerConfig{
		StoreName:     store.name,
		StorePing:     store.ping,
		RedisPing:     redis.Ping,
		RedisStats:    redis.PoolStats,
		CountUsers:    userSvc.Count,
		CountProducts: productSvc.CountActive,
		Sessions:      userSvc,
	}
	if store.database != nil {
		adminCfg.DBStats = store.database.Stats
	}

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	registerRoutes(srv.Router(), routeDeps{
		cfg:      cfg,
		logger:   logger,
		redis:    redis.Client,
		auth:     auth.NewHandler(authSvc),
		verifier: authSvc,
		users:    user.NewHandler(userSvc),
		products: product.NewHandler(productSvc),
		health:   healthHandler,
		admin:    admin.NewHandler(adminCfg),
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := store.close(shutdownCtx); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func openStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*storeBackend, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := core.NewDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, err
		}
		logger.Info("postgres connected",
			"max_open_conns", cfg.Database.MaxOpenConns,
			"max_idle_conns", cfg.Database.MaxIdleConns,
		)

		return &storeBackend{
			name:     config.DriverPostgres,
			users:    user.NewPostgresRepository(db.DB),
			products: product.NewPostgresRepository(db.DB),
			ping:     db.Ping,
			close:    func(context.Context) error { return db.Close() },
			database: db,
		}, nil

	default:
		m, err := core.NewMongo(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := user.EnsureIndexes(ctx, m.DB); err != nil {
			_ = m.Close(context.Background()) //nolint:errcheck // already failing
			return nil, err
		}
		if err := product.EnsureIndexes(ctx, m.DB); err != nil {
			_ = m.Close(context.Background()) //nolint:errcheck // already failing
			return nil, err
		}
		logger.Info("mongo connected",
			"database", cfg.Database.MongoDatabase,
		)

		return &storeBackend{
			name:     config.DriverMongo,
			users:    user.NewMongoRepository(m.DB),
			products: product.NewMongoRepository(m.DB),
			ping:     m.Ping,
			close:    m.Close,
		}, nil
	}
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Ping(ctx context.Context) error { return f(ctx) }
