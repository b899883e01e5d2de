package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bookreport-backend/internal/bootstrap"
	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	sweeper, err := startSweeper(app.OrdersService, cfg.Sweep)
	if err != nil {
		log.Fatalf("start sweeper: %v", err)
	}
	defer stopSweeper(sweeper)

	switch cfg.Queue.Backend {
	case config.QueueSQS:
		api, err := sqsReceiver(ctx, cfg)
		if err != nil {
			log.Fatalf("load sqs client: %v", err)
		}
		runSQS(ctx, api, cfg.Queue.SQSQueueURL, app.OrdersService, sqsOptionsFromEnv(cfg.Queue))
	case config.QueueAsynq:
		if err := runAsynq(ctx, cfg.Queue, app.OrdersService); err != nil {
			log.Fatalf("asynq worker: %v", err)
		}
	default:
		telemetry.Info("worker.sweep_only", map[string]any{"schedule": cfg.Sweep.Schedule})
		<-ctx.Done()
	}
}
