package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/hibiken/asynq"

	"bookreport-backend/internal/orders"
	"bookreport-backend/internal/queue"
	"bookreport-backend/internal/shared/config"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) ProcessOrder(ctx context.Context, orderID string) error {
	f.calls++
	return f.err
}

func sqsMessage(t *testing.T, id string, msg queue.Message) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}
	msg := sqsMessage(t, "m1", queue.Message{OrderID: "order-1", RequestID: "req-1", Version: queue.MessageVersion})

	handleMessage(context.Background(), client, "queue", proc, msg)

	if proc.calls != 1 {
		t.Fatalf("expected one process call, got %d", proc.calls)
	}
	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerKeepsMessageOnRetryableFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: &orders.Error{Kind: orders.KindStorage, Err: errors.New("connection reset")}}
	msg := sqsMessage(t, "m2", queue.Message{OrderID: "order-2", RequestID: "req-2"})

	handleMessage(context.Background(), client, "queue", proc, msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesWhenOrderAlreadyFailed(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: &orders.Error{Kind: orders.KindSynthesis, Message: "Failed to generate report"}}
	msg := sqsMessage(t, "m3", queue.Message{OrderID: "order-3"})

	handleMessage(context.Background(), client, "queue", proc, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), client, "queue", proc, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
	if proc.calls != 0 {
		t.Fatalf("expected no processing")
	}
}

func TestRunSQSStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runSQS(ctx, &fakeSQS{}, "queue", &fakeProcessor{}, sqsOptions{Concurrency: 1, ShutdownTimeout: time.Second})
}

func TestProcessTaskHandler(t *testing.T) {
	task, err := queue.NewProcessTask(queue.NewMessage("order-5", "req-5", time.Now()))
	if err != nil {
		t.Fatalf("NewProcessTask: %v", err)
	}

	ok := &fakeProcessor{}
	if err := processTaskHandler(ok)(context.Background(), task); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	settled := &fakeProcessor{err: orders.ErrStatusConflict}
	err = processTaskHandler(settled)(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	transient := &fakeProcessor{err: errors.New("db down")}
	err = processTaskHandler(transient)(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	bad := asynq.NewTask(queue.TaskProcessOrder, []byte("{"))
	if err := processTaskHandler(ok)(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for bad payload, got %v", err)
	}
}

type countingSweeper struct {
	calls      int
	staleAfter time.Duration
}

func (c *countingSweeper) SweepStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	c.calls++
	c.staleAfter = staleAfter
	return 0, nil
}

func TestSweepJobUsesStaleAfter(t *testing.T) {
	sweeper := &countingSweeper{}
	sweepJob(sweeper, 15*time.Minute)()
	if sweeper.calls != 1 || sweeper.staleAfter != 15*time.Minute {
		t.Fatalf("unexpected sweep: %+v", sweeper)
	}
}

func TestStartSweeperRejectsBadSchedule(t *testing.T) {
	if _, err := startSweeper(&countingSweeper{}, config.SweepConfig{Schedule: "not a schedule", StaleAfter: time.Minute}); err == nil {
		t.Fatalf("expected schedule error")
	}
	c, err := startSweeper(&countingSweeper{}, config.SweepConfig{Schedule: "@every 1h", StaleAfter: time.Minute})
	if err != nil {
		t.Fatalf("startSweeper: %v", err)
	}
	stopSweeper(c)
}
