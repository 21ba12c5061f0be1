// Package memory provides in-process adapters.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/ports"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

var _ ports.SnapshotFeed = (*Broadcaster)(nil)

// Broadcaster fans snapshot events out to in-process subscribers.
// Slow subscribers lose events instead of blocking the publisher.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscription]struct{} // SessionID -> set of subscriptions
	buffer      int
	logger      *slog.Logger
}

type subscription struct {
	ch   chan domain.SnapshotEvent
	done chan struct{}
	once sync.Once
}

// Option configures the Broadcaster.
type Option func(*Broadcaster)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subscribers: make(map[string]map[*subscription]struct{}),
		buffer:      DefaultBuffer,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a reader for one session.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan domain.SnapshotEvent, func(), error) {
	sub := &subscription{
		ch:   make(chan domain.SnapshotEvent, b.buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[*subscription]struct{})
	}
	b.subscribers[sessionID][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[sessionID]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(b.subscribers, sessionID)
			}
		}
		sub.once.Do(func() {
			close(sub.ch)
			close(sub.done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.ch, cancel, nil
}

// Publish delivers event to the subscribers of event.SessionID.
func (b *Broadcaster) Publish(ctx context.Context, event domain.SnapshotEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers[event.SessionID] {
		select {
		case sub.ch <- event:
		default:
			// Drop message if channel is full (slow client)
			b.logger.Warn("subscriber buffer full, dropping event",
				"session_id", event.SessionID,
				"sequence", event.Sequence)
		}
	}
	return nil
}

// Subscribers returns the number of readers of a session.
func (b *Broadcaster) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
