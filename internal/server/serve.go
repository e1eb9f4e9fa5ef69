package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tckz/portfolio-visits/internal/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Serve serves h on ln until ctx is done, then shuts down within timeout.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, timeout time.Duration, zl *zap.Logger) error {
	zl = log.OrNop(zl)
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		zl.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.Serve: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		zl.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("srv.Shutdown: %w", err)
		}
		return nil
	})

	return eg.Wait()
}
