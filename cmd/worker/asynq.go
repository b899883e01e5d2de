package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"bookreport-backend/internal/bootstrap"
	"bookreport-backend/internal/queue"
	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/metrics"
	"bookreport-backend/internal/shared/telemetry"
	"bookreport-backend/internal/workerproc"
)

func runAsynq(ctx context.Context, cfg config.QueueConfig, processor workerproc.Processor) error {
	srv := asynq.NewServer(
		bootstrap.RedisClientOpt(cfg),
		asynq.Config{
			Queues:          map[string]int{queue.QueueName(): 1},
			Concurrency:     max(1, cfg.WorkerConcurrency),
			ShutdownTimeout: bootstrap.ShutdownTimeout,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				telemetry.Error("worker.task_failed", map[string]any{
					"task_type": task.Type(),
					"error":     err.Error(),
				})
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessOrder, processTaskHandler(processor))

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	telemetry.Info("worker.started", map[string]any{
		"backend":     config.QueueAsynq,
		"queue":       queue.QueueName(),
		"concurrency": cfg.WorkerConcurrency,
	})

	<-ctx.Done()
	telemetry.Info("worker.shutdown", map[string]any{"timeout": bootstrap.ShutdownTimeout.String()})
	srv.Shutdown()
	return nil
}

// processTaskHandler adapts the order processor to asynq. Unprocessable
// payloads and settled orders skip asynq's retries.
func processTaskHandler(processor workerproc.Processor) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		metrics.IncQueueJobsReceived()
		body := string(task.Payload())

		msg, meta, err := workerproc.ParseMessage(body)
		if err != nil {
			telemetry.Error("worker.order.unprocessable", map[string]any{
				"body_len":    meta.BodyLen,
				"body_sha256": meta.BodySHA,
				"error":       err.Error(),
			})
			metrics.IncQueueJobsDropped()
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		fields := map[string]any{"order_id": msg.OrderID, "request_id": msg.RequestID}
		telemetry.Info("worker.order.received", fields)

		err = workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, msg), processor, body)
		if err == nil {
			metrics.IncQueueJobsCompleted()
			telemetry.Info("worker.order.completed", fields)
			return nil
		}

		metrics.IncQueueJobsFailed()
		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) && !procErr.Retryable {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
}
