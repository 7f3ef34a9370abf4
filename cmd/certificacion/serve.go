package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/config"
	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/handler"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/cache"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/client"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/filestore"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/memstore"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/postgres"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/resilience"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/seed"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
	"github.com/boddenberg/certificacion-calidad-go/internal/service"
)

func serveCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

With DATABASE_URL set the service runs on Postgres. Without it, the service
runs on the in-memory store, loading reference data from SEED_FILE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// --- Load .env file (for local development) ---
			_ = config.LoadDotEnv(envFile)
			return runServe(config.Load())
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}

func runServe(cfg *config.Config) error {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int64("biosecurity_module_from", cfg.BiosecurityModuleFrom),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "certificacion-calidad")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	rules := service.RulesFromConfig(cfg)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// --- Storage ---
	var (
		store   port.Store
		uow     port.UnitOfWork
		backend string
		ping    func(ctx context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(startCtx, postgres.Options{
			URL:          cfg.DatabaseURL,
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		store = postgres.NewStore(db)
		uow = postgres.NewTxRunner(db, resilienceCfg, cfg.DBTxTimeout, metrics, logger)
		backend = "postgres"
		ping = db.PingContext
		logger.Info("using Postgres as data backend")
	} else {
		mem := memstore.New()
		if cfg.SeedFile != "" {
			fx, err := seed.LoadInto(cfg.SeedFile, mem)
			if err != nil {
				return err
			}
			logger.Info("reference data seeded",
				zap.String("seed_file", cfg.SeedFile),
				zap.Int("typologies", len(fx.Typologies)),
				zap.Int("questions", len(fx.Questions)),
				zap.Int("companies", len(fx.Companies)),
			)
		} else {
			logger.Warn("in-memory backend without SEED_FILE: reference data is empty")
		}
		store, uow, backend = mem, mem, "memory"
	}

	// --- Cache ---
	var treeCache port.Cache[*domain.QuestionnaireTree]
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(startCtx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		treeCache = cache.NewRedis[*domain.QuestionnaireTree](rdb, "certificacion:tree:", cfg.CacheTTL, logger)
		logger.Info("questionnaire trees cached in Redis")
	} else {
		mem := cache.New[*domain.QuestionnaireTree](cfg.CacheTTL)
		defer mem.Close()
		treeCache = mem
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var notifier port.NotificationService
	if cfg.NotificationAPIURL != "" {
		notifier = client.NewNotificationClient(httpClient, cfg.NotificationAPIURL, resilience.NewCircuitBreaker("notifications"), resilienceCfg)
	} else {
		logger.Warn("notification service not configured, expiration alerts are not sent")
	}

	var reopening port.ReopeningService
	if cfg.ReopeningAPIURL != "" {
		reopening = client.NewReopeningClient(httpClient, cfg.ReopeningAPIURL, resilience.NewCircuitBreaker("reopening"), resilienceCfg)
	} else {
		reopening = client.NewLocalReopening(logger)
	}

	files, err := filestore.NewLocal(cfg.FileStorageDir)
	if err != nil {
		return err
	}

	// --- Services ---
	tree := service.NewTreeBuilder(store, treeCache, rules, metrics, logger)
	services := handler.Services{
		Tree:            tree,
		Certification:   service.NewCertificationService(uow, store, tree, reopening, rules, metrics, logger),
		Ledger:          service.NewResponseLedger(uow, store, files, rules, metrics, logger),
		Dashboard:       service.NewDashboardService(store, notifier, rules, metrics, logger),
		ReadModel:       service.NewReadModelService(store, tree, rules, logger),
		DefaultLanguage: rules.DefaultLanguage,
		Backend:         backend,
		Ping:            ping,
	}

	// --- Router ---
	router := handler.NewRouter(services, []byte(cfg.JWTSecret), metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("backend", backend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
