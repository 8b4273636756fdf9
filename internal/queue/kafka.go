package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer implements Consumer over a kafka-go group reader with manual
// offset commits.
type KafkaConsumer struct {
	reader  *kafka.Reader
	pending []kafka.Message
}

// NewKafkaConsumer joins the consumer group for topic. A broker dial runs
// first so an unreachable cluster surfaces here instead of on the first poll.
func NewKafkaConsumer(brokers []string, topic, groupID string) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if err := dialBroker(brokers[0]); err != nil {
		return nil, fmt.Errorf("dial kafka broker %s: %w", brokers[0], err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &KafkaConsumer{reader: reader}, nil
}

// Poll fetches up to max messages, returning early once the context deadline
// passes. Fetched messages are retained for the next Commit.
func (c *KafkaConsumer) Poll(ctx context.Context, max int) ([]Message, error) {
	messages := make([]Message, 0, max)
	for len(messages) < max {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return messages, nil
			}
			return messages, fmt.Errorf("fetch message: %w", err)
		}
		c.pending = append(c.pending, m)
		messages = append(messages, Message{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Value:     m.Value,
		})
	}
	return messages, nil
}

// Commit acknowledges every message fetched since the previous commit.
func (c *KafkaConsumer) Commit(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, c.pending...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	c.pending = nil
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

// KafkaProducer implements Producer over a shared kafka-go writer. The topic
// is chosen per message, so one writer serves every publish site.
type KafkaProducer struct {
	writer  *kafka.Writer
	brokers []string
}

func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		brokers: brokers,
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Value: payload})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaProducer) Available() bool {
	if len(p.brokers) == 0 {
		return false
	}
	return dialBroker(p.brokers[0]) == nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func dialBroker(addr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}
