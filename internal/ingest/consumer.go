// Package ingest runs the background worker that drains the issues topic and
// materializes each queued request into the durable store, the recency cache,
// and the search index.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"issuetracker/api/internal/cache"
	"issuetracker/api/internal/publisher"
	"issuetracker/api/internal/queue"
	"issuetracker/api/internal/search"
	"issuetracker/api/internal/store"
)

// State is the consumer lifecycle phase.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Defaults applied when a queued message omits a field.
const (
	defaultTitle    = "Untitled Issue"
	defaultReporter = "system"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 10
	pollPause           = 100 * time.Millisecond
	errorBackoff        = time.Second
	stopTimeout         = 5 * time.Second
)

// ConsumerFactory builds the queue transport when the consumer starts, so a
// broker that is down at startup degrades the worker instead of crashing it.
type ConsumerFactory func(ctx context.Context) (queue.Consumer, error)

type Options struct {
	NewConsumer ConsumerFactory
	Store       *store.Store
	Cache       *cache.IssueCache // optional
	Search      *search.Service   // optional
	Logger      zerolog.Logger

	PollInterval time.Duration // defaults to 1s
	BatchSize    int           // defaults to 10
}

// Consumer drains the issues topic in a single background goroutine. Offsets
// commit once per batch, after every message in it was attempted, so a crash
// mid-batch redelivers the whole batch: processing is at-least-once and a
// retried publish or redelivered message can create a duplicate issue.
type Consumer struct {
	newConsumer  ConsumerFactory
	store        *store.Store
	cache        *cache.IssueCache
	search       *search.Service
	log          zerolog.Logger
	pollInterval time.Duration
	batchSize    int

	state     atomic.Int32
	transport queue.Consumer
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(opts Options) *Consumer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Consumer{
		newConsumer:  opts.NewConsumer,
		store:        opts.Store,
		cache:        opts.Cache,
		search:       opts.Search,
		log:          opts.Logger,
		pollInterval: opts.PollInterval,
		batchSize:    opts.BatchSize,
	}
}

// State returns the current lifecycle phase.
func (c *Consumer) State() State {
	return State(c.state.Load())
}

// Running reports whether the drain loop is active.
func (c *Consumer) Running() bool {
	return c.State() == StateRunning
}

// Start subscribes to the topic and launches the drain loop. A second Start
// while running is an error; a failed subscription returns the consumer to
// stopped so a later Start can retry.
func (c *Consumer) Start() error {
	if !c.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("consumer is %s, not stopped", c.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	transport, err := c.newConsumer(ctx)
	if err != nil {
		cancel()
		c.state.Store(int32(StateStopped))
		return fmt.Errorf("subscribe to issues topic: %w", err)
	}

	c.transport = transport
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state.Store(int32(StateRunning))
	go c.run(ctx)

	c.log.Info().Msg("issue consumer started")
	return nil
}

// Stop signals the drain loop and waits up to five seconds for it to finish
// its current batch. A Stop racing a Start waits for the subscription to
// settle and then tears the consumer down; stopping an already stopped
// consumer is a no-op.
func (c *Consumer) Stop() {
	for !c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		if State(c.state.Load()) != StateStarting {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	c.cancel()
	select {
	case <-c.done:
	case <-time.After(stopTimeout):
		c.log.Warn().Msg("consumer loop did not exit before stop timeout")
	}
	if err := c.transport.Close(); err != nil {
		c.log.Warn().Err(err).Msg("failed to close queue consumer")
	}
	c.state.Store(int32(StateStopped))
	c.log.Info().Msg("issue consumer stopped")
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		if ctx.Err() != nil {
			return
		}

		pollCtx, cancel := context.WithTimeout(ctx, c.pollInterval)
		messages, err := c.transport.Poll(pollCtx, c.batchSize)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error().Err(err).Msg("poll failed")
			sleep(ctx, errorBackoff)
			continue
		}

		if len(messages) > 0 {
			// The batch runs on a context Stop does not cancel: a stop
			// request interrupts the poll wait, never an in-flight
			// persist or its commit. The bounded join in Stop covers a
			// batch that refuses to finish.
			batchCtx := context.Background()
			for _, m := range messages {
				c.process(batchCtx, m)
			}
			// Commit after the whole batch regardless of per-message
			// outcome: failed messages are logged and dropped rather
			// than poisoning the partition.
			if err := c.transport.Commit(batchCtx); err != nil {
				c.log.Error().Err(err).Msg("offset commit failed")
			}
		}

		sleep(ctx, pollPause)
	}
}

func (c *Consumer) process(ctx context.Context, m queue.Message) {
	issue, err := decodeIssue(m.Value)
	if err != nil {
		c.log.Error().Err(err).Int64("offset", m.Offset).Msg("dropping malformed issue message")
		return
	}

	id, err := c.store.CreateIssue(ctx, issue)
	if err != nil {
		c.log.Error().Err(err).Str("title", issue.Title).Msg("failed to persist issue")
		return
	}
	c.log.Info().Str("issue", id).Str("title", issue.Title).Msg("issue created")

	if _, err := c.store.EnsureUser(ctx, issue.ReporterID, issue.ReporterID, store.RoleService); err != nil {
		c.log.Warn().Err(err).Str("user", issue.ReporterID).Msg("failed to provision reporter")
	}

	if c.cache != nil {
		if err := c.cache.StoreIssue(ctx, *issue); err != nil {
			c.log.Warn().Err(err).Str("issue", id).Msg("cache mirror failed")
		}
	}
	if c.search != nil {
		c.search.IndexIssue(*issue)
	}
}

// decodeIssue parses a queued message, applying defaults for omitted fields.
// Unknown enum values make the message undecodable; the caller drops it.
func decodeIssue(payload []byte) (*store.Issue, error) {
	var msg publisher.IssueMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal issue message: %w", err)
	}

	issue := &store.Issue{
		Title:       msg.Title,
		Description: msg.Description,
		Status:      store.StatusOpen,
		Priority:    store.PriorityMedium,
		Type:        store.TypeBug,
		ReporterID:  msg.ReporterID,
		AssigneeID:  msg.AssigneeID,
		Tags:        msg.Tags,
	}
	if issue.Title == "" {
		issue.Title = defaultTitle
	}
	if issue.ReporterID == "" {
		issue.ReporterID = defaultReporter
	}
	if issue.Tags == nil {
		issue.Tags = []string{}
	}

	if msg.Type != "" {
		typ, err := store.ParseIssueType(msg.Type)
		if err != nil {
			return nil, err
		}
		issue.Type = typ
	}
	if msg.Priority != "" {
		priority, err := store.ParsePriority(msg.Priority)
		if err != nil {
			return nil, err
		}
		issue.Priority = priority
	}
	// Component and context travel on the wire for routing and debugging but
	// are not part of the stored issue.
	return issue, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
