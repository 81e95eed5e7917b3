package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Producer appends tasks to a redis stream. Every entry carries a "type"
// field the worker's processor dispatches on.
type Producer struct {
	client redis.Cmdable
	stream string
}

func NewProducer(client redis.Cmdable, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

func (p *Producer) Enqueue(ctx context.Context, taskType string, values map[string]any) (string, error) {
	fields := make(map[string]any, len(values)+1)
	for k, v := range values {
		fields[k] = v
	}
	fields["type"] = taskType

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Result()
	if err != nil {
		return "", oops.Code("QUEUE_ENQUEUE_FAILED").
			With("stream", p.stream).
			With("type", taskType).
			Wrap(err)
	}
	return id, nil
}
