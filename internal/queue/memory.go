package queue

import (
	"context"
	"errors"
	"sync"
)

// Broker is an in-process, single-partition queue used by tests. Committed
// offsets are tracked per consumer group, so a consumer built after an
// uncommitted poll re-reads the same messages, the same redelivery window a
// real broker exposes.
type Broker struct {
	mu          sync.Mutex
	topics      map[string][]Message
	committed   map[string]int64
	publishFail bool
}

func NewBroker() *Broker {
	return &Broker{
		topics:    make(map[string][]Message),
		committed: make(map[string]int64),
	}
}

// SetPublishFailing makes every producer built from this broker report
// unavailable and fail publishes.
func (b *Broker) SetPublishFailing(failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishFail = failing
}

func (b *Broker) Producer() *MemoryProducer {
	return &MemoryProducer{broker: b}
}

// Consumer joins the group on topic, resuming from the group's committed
// offset.
func (b *Broker) Consumer(topic, group string) *MemoryConsumer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &MemoryConsumer{
		broker: b,
		topic:  topic,
		group:  group,
		cursor: b.committed[group+"/"+topic],
	}
}

func (b *Broker) append(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic] = append(b.topics[topic], Message{
		Topic:  topic,
		Offset: int64(len(b.topics[topic])),
		Value:  payload,
	})
}

type MemoryProducer struct {
	broker *Broker
}

func (p *MemoryProducer) Publish(_ context.Context, topic string, payload []byte) error {
	if !p.Available() {
		return errors.New("broker unavailable")
	}
	p.broker.append(topic, payload)
	return nil
}

func (p *MemoryProducer) Available() bool {
	p.broker.mu.Lock()
	defer p.broker.mu.Unlock()
	return !p.broker.publishFail
}

func (p *MemoryProducer) Close() error {
	return nil
}

type MemoryConsumer struct {
	broker *Broker
	topic  string
	group  string
	cursor int64
	closed bool
}

func (c *MemoryConsumer) Poll(_ context.Context, max int) ([]Message, error) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if c.closed {
		return nil, errors.New("consumer closed")
	}

	backlog := c.broker.topics[c.topic]
	messages := make([]Message, 0, max)
	for c.cursor < int64(len(backlog)) && len(messages) < max {
		messages = append(messages, backlog[c.cursor])
		c.cursor++
	}
	return messages, nil
}

func (c *MemoryConsumer) Commit(_ context.Context) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if c.closed {
		return errors.New("consumer closed")
	}
	c.broker.committed[c.group+"/"+c.topic] = c.cursor
	return nil
}

func (c *MemoryConsumer) Close() error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	c.closed = true
	return nil
}
