// Package main runs the background worker: transactional email delivery and
// the scheduled-to-waiting-room lifecycle transition.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pipecast/backend/config"
	"github.com/pipecast/backend/internal/realtime"
	"github.com/pipecast/backend/internal/webinars"
	"github.com/pipecast/backend/internal/worker"
	"github.com/pipecast/backend/pkg/database"
	"github.com/pipecast/backend/pkg/email"
	"github.com/pipecast/backend/pkg/queue"
	"github.com/pipecast/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sender := email.NewSendGridSender(cfg.Email.APIKey, cfg.Email.FromAddress, cfg.Email.FromName, logger)
	logs := worker.NewLogRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	emailProcessor := worker.NewEmailProcessor(sender, logs, jobQueue, logger)

	// Status changes made here still reach connected viewers through the
	// Redis bridge shared with the API instances.
	bridge := realtime.NewRedisBridge(rdb.Client, logger)
	hub := realtime.NewHub(logger, bridge, bridge)

	webinarRepo := webinars.NewRepository(pool)
	advancer := worker.NewStatusAdvancer(
		webinarRepo,
		hub,
		time.Duration(cfg.Webinar.WaitingRoomLeadMinutes)*time.Minute,
		time.Duration(cfg.Webinar.AdvancePollSeconds)*time.Second,
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go emailProcessor.Run(workerCtx)
	go advancer.Run(workerCtx)
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
