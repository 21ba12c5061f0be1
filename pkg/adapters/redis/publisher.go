package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/ports"
)

const defaultPrefix = "sakura:"

var _ ports.SnapshotFeed = (*Publisher)(nil)

// Publisher implements ports.SnapshotFeed over Redis Pub/Sub, so readers connected to any
// replica see the snapshots of sessions parsed on another one.
type Publisher struct {
	client *backend.Client
	prefix string
	buffer int
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a Publisher with its own client.
func New(address, password string, db int, opts ...Option) *Publisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		prefix: defaultPrefix,
		buffer: 64,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client returns the underlying client.
func (p *Publisher) Client() *backend.Client {
	return p.client
}

func (p *Publisher) channel(sessionID string) string {
	return p.prefix + "events:" + sessionID
}

// Publish sends the event as JSON on the session channel.
func (p *Publisher) Publish(ctx context.Context, event domain.SnapshotEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel(event.SessionID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot event: %w", err)
	}
	return nil
}

// Subscribe listens on the session channel. The subscription is confirmed before returning,
// so events published afterwards are never missed.
func (p *Publisher) Subscribe(ctx context.Context, sessionID string) (<-chan domain.SnapshotEvent, func(), error) {
	ps := p.client.Subscribe(ctx, p.channel(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to session %s: %w", sessionID, err)
	}

	out := make(chan domain.SnapshotEvent, p.buffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			if err := ps.Close(); err != nil {
				p.logger.Warn("failed to close subscription", "session_id", sessionID, "err", err)
			}
		})
	}

	msgs := ps.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.SnapshotEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.logger.Warn("discarding malformed snapshot event", "session_id", sessionID, "err", err)
					continue
				}
				select {
				case out <- ev:
				default:
					p.logger.Warn("subscriber buffer full, dropping event", "session_id", sessionID, "sequence", ev.Sequence)
				}
			}
		}
	}()

	return out, cancel, nil
}
