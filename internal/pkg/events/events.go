// Package events publishes pipeline transitions to downstream collaborators
// after the owning transaction has committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	KindApplicationCreated Kind = "application.created"
	KindStageAdvanced      Kind = "stage.advanced"
	KindStageHeld          Kind = "stage.held"
	KindStageReopened      Kind = "stage.reopened"
	KindApplicationClosed  Kind = "application.closed"
)

// TransitionEvent describes one committed change to an application.
type TransitionEvent struct {
	Kind          Kind      `json:"kind"`
	ApplicationID string    `json:"application_id"`
	FromStage     string    `json:"from_stage,omitempty"`
	ToStage       string    `json:"to_stage"`
	Decision      string    `json:"decision,omitempty"`
	Score         *float64  `json:"score,omitempty"`
	ReviewerID    string    `json:"reviewer_id,omitempty"`
	FinalDecision string    `json:"final_decision,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers transition events. Delivery is best effort; callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event TransitionEvent) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, TransitionEvent) error { return nil }

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
}

// NewRedisPublisher returns nil when client is nil, so callers can fall back
// to Noop.
func NewRedisPublisher(client *redis.Client, stream string, maxLen int64) *RedisPublisher {
	if client == nil {
		return nil
	}
	return &RedisPublisher{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: 500 * time.Millisecond,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event TransitionEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transition event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"kind":           string(event.Kind),
			"application_id": event.ApplicationID,
			"payload":        payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}
