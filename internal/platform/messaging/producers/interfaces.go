package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Publisher sends keyed JSON events to the topic it was built for.
// Closure requests and payout events both go through one.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterSink parks messages the closure consumer gave up on, together
// with the reason they failed.
type DeadLetterSink interface {
	PublishToDLQ(ctx context.Context, key string, payload []byte, reason string) error
	Close() error
}

// Writer is the subset of *kafka.Writer the producers use
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ Publisher      = (*TopicProducer)(nil)
	_ DeadLetterSink = (*DLQProducer)(nil)
	_ Writer         = (*kafka.Writer)(nil)
)
