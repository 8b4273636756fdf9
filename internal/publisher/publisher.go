// Package publisher is the single entry point for turning a "create issue"
// intent into a queue message, decoupling request latency from persistence.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"issuetracker/api/internal/queue"
)

// IssueMessage is the wire schema of the issues topic. Optional fields are
// defaulted by the consumer, not here, so every producer serializes the same
// minimal shape.
type IssueMessage struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        string         `json:"type,omitempty"`
	Priority    string         `json:"priority,omitempty"`
	ReporterID  string         `json:"reporter_id,omitempty"`
	AssigneeID  string         `json:"assignee_id,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Component   string         `json:"component,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

type Publisher struct {
	producer queue.Producer
	topic    string
	log      zerolog.Logger
}

func New(producer queue.Producer, log zerolog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: queue.IssuesTopic, log: log}
}

func (p *Publisher) Available() bool {
	return p.producer.Available()
}

// PublishIssue enqueues the request. On success the issue is accepted but not
// yet queryable; the consumer materializes it asynchronously. Retrying after
// an ambiguous failure can enqueue a duplicate; there is no idempotency key
// on this path.
func (p *Publisher) PublishIssue(ctx context.Context, msg IssueMessage) error {
	if msg.Title == "" {
		return fmt.Errorf("issue title is required")
	}
	if !p.producer.Available() {
		p.log.Warn().Msg("queue transport unavailable, cannot publish issue")
		return fmt.Errorf("queue transport unavailable")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal issue message: %w", err)
	}
	if err := p.producer.Publish(ctx, p.topic, payload); err != nil {
		p.log.Error().Err(err).Str("title", msg.Title).Msg("failed to publish issue")
		return err
	}
	p.log.Info().Str("title", msg.Title).Msg("published issue request")
	return nil
}
