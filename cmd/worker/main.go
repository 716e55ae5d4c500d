// Package main runs the background job worker (mail delivery, audit sink,
// magic link housekeeping).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/craftlane/backend/config"
	"github.com/craftlane/backend/internal/audit"
	"github.com/craftlane/backend/internal/auth"
	"github.com/craftlane/backend/internal/email"
	"github.com/craftlane/backend/internal/magiclink"
	"github.com/craftlane/backend/internal/tenants"
	"github.com/craftlane/backend/internal/worker"
	"github.com/craftlane/backend/pkg/database"
	"github.com/craftlane/backend/pkg/queue"
	"github.com/craftlane/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	mailer := email.NewSender(email.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPass,
		From:     cfg.Email.FromAddress,
	}, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	sink := audit.NewRepository(pool)
	issuer := magiclink.NewIssuer(magiclink.NewRepository(pool), auth.NewRepository(pool), tenants.NewRepository(pool), logger)
	w := worker.New(jobQueue, mailer, sink, issuer, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
