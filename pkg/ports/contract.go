package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura/pkg/domain"
)

// RunFeedContract runs a suite of tests to verify that a SnapshotFeed implementation
// adheres to the defined interface contract.
func RunFeedContract(t *testing.T, feed SnapshotFeed) {
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000000")

	t.Run("Delivers events of the subscribed session in order", func(t *testing.T) {
		events, cancel, err := feed.Subscribe(ctx, sessionID)
		require.NoError(t, err)
		defer cancel()

		art := domain.NewArtifact("a", "Demo")
		require.NoError(t, feed.Publish(ctx, domain.SnapshotEvent{SessionID: "other-" + sessionID, Sequence: 1}))
		require.NoError(t, feed.Publish(ctx, domain.SnapshotEvent{SessionID: sessionID, Sequence: 1, Artifact: art, Diff: domain.Diff(nil, art)}))
		require.NoError(t, feed.Publish(ctx, domain.SnapshotEvent{SessionID: sessionID, Sequence: 2, Reset: true}))

		first := receive(t, events)
		assert.Equal(t, uint64(1), first.Sequence)
		require.NotNil(t, first.Artifact)
		assert.Equal(t, "Demo", first.Artifact.Title)
		require.NotNil(t, first.Diff)
		assert.Equal(t, "a", first.Diff.ArtifactID)

		second := receive(t, events)
		assert.Equal(t, uint64(2), second.Sequence)
		assert.True(t, second.Reset)
		assert.Nil(t, second.Artifact)
	})

	t.Run("Cancel closes the channel", func(t *testing.T) {
		events, cancel, err := feed.Subscribe(ctx, sessionID)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-drain(events):
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed after cancel")
		}

		// Publishing without readers never blocks.
		require.NoError(t, feed.Publish(ctx, domain.SnapshotEvent{SessionID: sessionID, Sequence: 3}))
	})

	t.Run("Context cancellation closes the channel", func(t *testing.T) {
		subCtx, stop := context.WithCancel(ctx)
		events, cancel, err := feed.Subscribe(subCtx, sessionID)
		require.NoError(t, err)
		defer cancel()
		stop()

		select {
		case _, ok := <-drain(events):
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed after context cancellation")
		}
	})
}

func receive(t *testing.T, events <-chan domain.SnapshotEvent) domain.SnapshotEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "channel closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.SnapshotEvent{}
}

// drain discards buffered events and reports the close.
func drain(events <-chan domain.SnapshotEvent) <-chan domain.SnapshotEvent {
	out := make(chan domain.SnapshotEvent)
	go func() {
		for range events {
		}
		close(out)
	}()
	return out
}
