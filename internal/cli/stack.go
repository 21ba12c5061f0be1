package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/internal/config"
	"github.com/aretw0/sakura/internal/metrics"
	"github.com/aretw0/sakura/pkg/adapters/memory"
	"github.com/aretw0/sakura/pkg/adapters/redis"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/ports"
	"github.com/aretw0/sakura/pkg/session"
)

// Stack is the set of long-lived components the servers share.
type Stack struct {
	Sessions *session.Manager
	Feed     ports.SnapshotFeed
	closers  []func() error
}

// NewFactory builds workspaces from the configuration. Metrics hooks are attached when
// metrics are enabled; parser events are logged at debug level.
func NewFactory(cfg config.Config, logger *slog.Logger) session.Factory {
	hooks := DebugHooks(logger)
	if cfg.Metrics.Enabled {
		hooks = domain.MergeHooks(metrics.Hooks(), hooks)
	}
	return func() (*sakura.Workspace, error) {
		return sakura.New(
			sakura.WithGrammar(cfg.Grammar),
			sakura.WithFollowWriting(cfg.Workspace.FollowWriting),
			sakura.WithLifecycleHooks(hooks),
			sakura.WithLogger(logger),
		)
	}
}

// NewStack wires the session manager to its snapshot feed. With a Redis address the feed
// and the session locks go through Redis, otherwise an in-process broadcaster is used.
func NewStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Session.LockTTL),
	}

	if cfg.Redis.Addr != "" {
		pub := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithLogger(logger),
		)
		client := pub.Client()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		s.closers = append(s.closers, client.Close)
		s.Feed = pub
		opts = append(opts,
			session.WithPublisher(pub),
			session.WithLocker(redis.NewLocker(client, cfg.Redis.Prefix)),
		)
		logger.Info("using redis snapshot feed", "addr", cfg.Redis.Addr)
	} else {
		b := memory.NewBroadcaster(memory.WithLogger(logger))
		s.Feed = b
		opts = append(opts, session.WithPublisher(b))
	}

	s.Sessions = session.NewManager(NewFactory(cfg, logger), opts...)
	return s, nil
}

// Close releases the external connections.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
