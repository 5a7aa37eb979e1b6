package main

import (
	"context"
	"github.com/ariefcatur/go-retail-stores/internal/config"
	kafkax "github.com/ariefcatur/go-retail-stores/internal/kafka"
	"github.com/ariefcatur/go-retail-stores/internal/logging"
	"github.com/ariefcatur/go-retail-stores/internal/notify"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/ariefcatur/go-retail-stores/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	service := cfg.ServiceName + "-notifier"
	logger, err := logging.New(logging.Config{
		ServiceName: service,
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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	h := &notify.Handler{
		Dedup:  redisx.NewDedup(rdb, service, redisx.TTLDedup),
		Sender: notify.LogSender{Log: logger, Delay: 2 * time.Second},
		Log:    logger,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderConfirmed, cfg.NotifierWorkers, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.String("topic", orders.TopicOrderConfirmed),
			zap.Int("workers", cfg.NotifierWorkers),
		)
		if err := cons.Start(ctx, h.Handle); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()

	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn("consumer did not stop in time")
	}
}
