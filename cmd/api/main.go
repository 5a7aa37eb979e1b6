package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-retail-stores/internal/config"
	"github.com/ariefcatur/go-retail-stores/internal/httpx"
	"github.com/ariefcatur/go-retail-stores/internal/inventory"
	kafkax "github.com/ariefcatur/go-retail-stores/internal/kafka"
	"github.com/ariefcatur/go-retail-stores/internal/logging"
	"github.com/ariefcatur/go-retail-stores/internal/notify"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/ariefcatur/go-retail-stores/internal/postgres"
	"github.com/ariefcatur/go-retail-stores/internal/redisx"
	"github.com/ariefcatur/go-retail-stores/internal/search"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(logging.Config{
		ServiceName: cfg.ServiceName,
		Env:         cfg.AppEnv,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logging.Sync(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.MigrateOnRun {
		if err := postgres.Migrate(ctx, cfg.PostgresDSN); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.MaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderConfirmed, 1024, logger)
	prod.Start(ctx)

	// Engines
	orderEngine := orders.NewEngine(
		&postgres.OrderRepo{DB: db, LockTimeout: cfg.LockTimeout},
		&notify.Publisher{Out: prod, Service: cfg.ServiceName, Log: logger},
		logger,
	)
	searchEngine := search.NewEngine(
		&postgres.SearchRepo{DB: db},
		redisx.NewCache(rdb, redisx.PrefixCache),
		cfg.SuggestCacheTTL,
		logger,
	)
	inventorySvc := &inventory.Service{Repo: &postgres.InventoryRepo{DB: db}}

	router := httpx.NewRouter(logger)
	(&httpx.OrdersHandler{Engine: orderEngine, Log: logger}).Register(router)
	(&httpx.InventoryHandler{Service: inventorySvc, Log: logger}).Register(router)
	(&httpx.SearchHandler{
		Engine:  searchEngine,
		Log:     logger,
		Limiter: redisx.NewLimiter(rdb, redisx.PrefixRateLimit),
		Limit:   cfg.SuggestRateLimit,
		Window:  cfg.SuggestRateWindow,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	prod.Close() // flush pending notifications
	prod.WaitClosed()
	cancel()
}
