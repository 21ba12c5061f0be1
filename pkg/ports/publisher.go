package ports

import (
	"context"

	"github.com/aretw0/sakura/pkg/domain"
)

// SnapshotPublisher receives the snapshot events produced by session workspaces.
type SnapshotPublisher interface {
	// Publish hands off one event. Implementations must not block on slow readers.
	Publish(ctx context.Context, event domain.SnapshotEvent) error
}

// SnapshotFeed is a SnapshotPublisher that readers can subscribe to.
type SnapshotFeed interface {
	SnapshotPublisher

	// Subscribe returns the events of one session, in publish order, until cancel is called
	// or ctx is done. The channel is closed afterwards.
	Subscribe(ctx context.Context, sessionID string) (events <-chan domain.SnapshotEvent, cancel func(), err error)
}
