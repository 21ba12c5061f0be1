package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/sakura/internal/config"
	"github.com/aretw0/sakura/internal/metrics"
	httpadapter "github.com/aretw0/sakura/pkg/adapters/http"
)

// NewServers builds the API server and, when metrics live on their own address, the
// metrics server.
func NewServers(cfg config.Config, stack *Stack, logger *slog.Logger) ([]*http.Server, error) {
	separateMetrics := cfg.Metrics.Enabled && cfg.Metrics.Addr != ""
	handler, err := httpadapter.NewHandler(stack.Sessions,
		httpadapter.WithFeed(stack.Feed),
		httpadapter.WithLogger(logger),
		httpadapter.WithCORS(cfg.HTTP.CORS),
		httpadapter.WithMetricsRoute(cfg.Metrics.Enabled && !separateMetrics),
	)
	if err != nil {
		return nil, err
	}

	servers := []*http.Server{{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}}
	if separateMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		})
	}
	return servers, nil
}

// Serve runs the servers until ctx is done or one of them fails, then shuts all of them
// down within the configured timeout.
func Serve(ctx context.Context, cfg config.Config, stack *Stack, logger *slog.Logger) error {
	servers, err := NewServers(cfg, stack, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "addr", srv.Addr, "err", err)
				errs = append(errs, srv.Close())
			}
		}
		logger.Info("servers stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}
