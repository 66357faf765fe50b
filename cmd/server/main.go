package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/config"
	"github.com/hongminglow/paygate/internal/gateway"
	"github.com/hongminglow/paygate/internal/notify"
	"github.com/hongminglow/paygate/internal/server"
	"github.com/hongminglow/paygate/internal/storage"
	"github.com/hongminglow/paygate/internal/storage/memory"
	postgres "github.com/hongminglow/paygate/internal/storage/postgres"
	"github.com/hongminglow/paygate/internal/storage/redisstore"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("init store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	var refresh storage.RefreshStore = store
	if cfg.RefreshBackend == config.RefreshBackendRedis {
		rs, err := redisstore.Dial(ctx, redisstore.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Fatal("init redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer func() { _ = rs.Close() }()
		refresh = rs
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(cfg, server.Deps{
		Store:     store,
		Refresh:   refresh,
		Processor: gateway.NewRazorpayProcessor(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		Mailer:    newMailer(cfg, logger),
		Registry:  registry,
		Logger:    logger,
	})
	srv.StartWorkers(ctx)

	go func() {
		logger.Info("paygate listening", zap.String("addr", cfg.HTTPAddress()), zap.String("env", cfg.AppEnv))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return memory.New(), nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL)
}

func newMailer(cfg config.Config, logger *zap.Logger) notify.Mailer {
	if cfg.SMTPHost == "" {
		return notify.NewLogMailer(logger.Named("mail"))
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.MailFrom,
	})
}

func newLogger(cfg config.Config) *zap.Logger {
	build := zap.NewProduction
	if cfg.Development() {
		build = zap.NewDevelopment
	}
	logger, err := build()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
