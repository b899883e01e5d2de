package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"bookreport-backend/internal/bootstrap"
	"bookreport-backend/internal/queue"
	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/metrics"
	"bookreport-backend/internal/shared/telemetry"
	"bookreport-backend/internal/workerproc"
)

const (
	defaultVisibilitySeconds = 1200
	defaultRegion            = "us-east-1"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type sqsOptions struct {
	VisibilitySeconds int
	Concurrency       int
	ShutdownTimeout   time.Duration
}

func sqsOptionsFromEnv(cfg config.QueueConfig) sqsOptions {
	return sqsOptions{
		VisibilitySeconds: envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds),
		Concurrency:       max(1, cfg.WorkerConcurrency),
		ShutdownTimeout:   bootstrap.ShutdownTimeout,
	}
}

func sqsReceiver(ctx context.Context, cfg config.Config) (sqsAPI, error) {
	region := cfg.AWSRegion
	if strings.TrimSpace(region) == "" {
		region = defaultRegion
	}
	return queue.LoadSQSAPI(ctx, region)
}

func runSQS(ctx context.Context, client sqsAPI, queueURL string, processor workerproc.Processor, opts sqsOptions) {
	sem := make(chan struct{}, max(1, opts.Concurrency))
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"backend":     config.QueueSQS,
		"queue":       queueURL,
		"concurrency": opts.Concurrency,
		"visibility":  opts.VisibilitySeconds,
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(opts.VisibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncQueueJobsReceived()
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(ctx, client, queueURL, processor, m)
			}(msg)
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout": opts.ShutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(opts.ShutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": opts.ShutdownTimeout.String()})
	}
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, processor workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.OrderID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.order.unprocessable", fields)
		if deleteMessage(ctx, client, queueURL, msg, decoded.OrderID, decoded.RequestID) {
			metrics.IncQueueJobsDropped()
		}
		return
	}

	telemetry.Info("worker.order.received", baseFields(msg, decoded.OrderID, decoded.RequestID))

	ctxWithParsed := workerproc.WithParsedMessage(ctx, decoded)
	if err := workerproc.HandleMessage(ctxWithParsed, processor, body); err != nil {
		fields := baseFields(msg, decoded.OrderID, decoded.RequestID)
		fields["error"] = err.Error()
		metrics.IncQueueJobsFailed()

		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) && !procErr.Retryable {
			fields["retryable"] = false
			telemetry.Warn("worker.order.failed", fields)
			deleteMessage(ctx, client, queueURL, msg, decoded.OrderID, decoded.RequestID)
			return
		}
		fields["retryable"] = true
		telemetry.Error("worker.order.failed", fields)
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.OrderID, decoded.RequestID) {
		telemetry.Info("worker.order.completed", baseFields(msg, decoded.OrderID, decoded.RequestID))
		metrics.IncQueueJobsCompleted()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, orderID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, orderID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.order.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, orderID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.order.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, orderID, requestID string) map[string]any {
	fields := map[string]any{
		"order_id":       orderID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
