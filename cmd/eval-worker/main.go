// Package main 异步评估任务执行器入口（eval-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/eino/callback"
	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/messaging"
	"github.com/sapogeth/qylysh-higgsfiled/internal/wire"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/tracer"
)

// dlqAlertThreshold 死信数量告警阈值
const dlqAlertThreshold = 10

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "eval-worker",
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	// 关键短语向量的 token 用量
	callback.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	if worker.Service == nil {
		logger.Fatal(ctx, "evaluation service unavailable", fmt.Errorf("image generators and reference index are required"))
	}

	worker.Consumer.RegisterHandler(messaging.TypeEvaluationRequested, evaluationHandler(worker.Service))
	if err := worker.Consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go worker.Consumer.MonitorDLQ(ctx, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("eval-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("eval-worker shutting down")
	worker.Consumer.Stop()
	cancel()
}
