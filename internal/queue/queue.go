// Package queue is the message transport boundary between issue producers and
// the ingestion consumer.
package queue

import "context"

const (
	// IssuesTopic carries new-issue requests from every caller, web UI and
	// services alike.
	IssuesTopic = "issuetracker.issues"
	// ConsumerGroup is the fixed group id shared by worker instances so the
	// broker splits partitions across them instead of fanning out.
	ConsumerGroup = "issuetracker-consumer"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Value     []byte
}

// Consumer drains one topic on behalf of a consumer group. Poll returns up to
// max messages, bounded by the context deadline; fetched messages stay
// uncommitted until Commit acknowledges everything polled so far.
type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context) error
	Close() error
}

// Producer publishes opaque payloads to a topic.
type Producer interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Available() bool
	Close() error
}
