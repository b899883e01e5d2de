package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	asynqQueueName   = "orders"
	asynqMaxRetry    = 2
	asynqTaskTimeout = 10 * time.Minute
)

// AsynqClient enqueues order processing tasks on a Redis-backed asynq queue.
type AsynqClient struct {
	client *asynq.Client
}

// NewAsynqClient connects an asynq client to Redis.
func NewAsynqClient(opt asynq.RedisClientOpt) *AsynqClient {
	return &AsynqClient{client: asynq.NewClient(opt)}
}

// Send enqueues msg as an order:process task.
func (a *AsynqClient) Send(ctx context.Context, msg Message) error {
	task, err := NewProcessTask(msg)
	if err != nil {
		return err
	}
	if _, err := a.client.EnqueueContext(ctx, task, TaskOptions()...); err != nil {
		return fmt.Errorf("asynq enqueue order=%s: %w", msg.OrderID, err)
	}
	return nil
}

// Close releases the Redis connection.
func (a *AsynqClient) Close() error {
	return a.client.Close()
}

// NewProcessTask wraps msg in an asynq task.
func NewProcessTask(msg Message) (*asynq.Task, error) {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("encode asynq payload: %w", err)
	}
	return asynq.NewTask(TaskProcessOrder, payload), nil
}

// TaskOptions are applied to every order:process task.
func TaskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(asynqQueueName),
		asynq.MaxRetry(asynqMaxRetry),
		asynq.Timeout(asynqTaskTimeout),
	}
}

// QueueName is the asynq queue order tasks are placed on.
func QueueName() string { return asynqQueueName }

var _ Client = (*AsynqClient)(nil)
