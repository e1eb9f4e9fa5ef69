package counter

import (
	"context"
	"errors"

	"github.com/tckz/portfolio-visits/internal/log"
	"go.uber.org/zap"
)

var _ Counter = (*FallbackCounter)(nil)

// FallbackCounter prefers availability over an exact count. When the primary
// store fails, Get answers the local count and Up increments the local count,
// so callers never see an error. The two counts may drift apart across
// restarts or outages.
//
// With strict enabled the primary's errors are returned unchanged and the
// local count is not touched.
type FallbackCounter struct {
	primary Counter
	local   *LocalCounter
	strict  bool
	logger  *zap.Logger
}

type FallbackOption func(c *FallbackCounter)

func WithStrict(strict bool) FallbackOption {
	return FallbackOption(func(c *FallbackCounter) {
		c.strict = strict
	})
}

func WithLogger(zl *zap.Logger) FallbackOption {
	return FallbackOption(func(c *FallbackCounter) {
		c.logger = zl
	})
}

func NewFallbackCounter(primary Counter, local *LocalCounter, opts ...FallbackOption) *FallbackCounter {
	c := &FallbackCounter{
		primary: primary,
		local:   local,
	}
	for _, e := range opts {
		e(c)
	}
	c.logger = log.OrNop(c.logger)
	if c.local == nil {
		c.local = &LocalCounter{}
	}
	return c
}

func (c *FallbackCounter) Get(ctx context.Context) (int64, error) {
	n, err := c.primary.Get(ctx)
	if err == nil {
		return n, nil
	}
	if c.strict {
		return 0, err
	}

	v, _ := c.local.Get(ctx)
	c.logger.Warn("backing store get failed, answering local count", zap.Error(err), zap.Int64("count", v))
	return v, nil
}

func (c *FallbackCounter) Up(ctx context.Context) (int64, error) {
	n, err := c.primary.Up(ctx)
	if err == nil {
		return n, nil
	}
	if c.strict {
		return 0, err
	}

	var v int64
	if errors.Is(err, ErrNoResult) {
		// the store took the request; count it there only
		v, _ = c.local.Get(ctx)
	} else {
		v, _ = c.local.Up(ctx)
	}
	c.logger.Warn("backing store incr failed, answering local count", zap.Error(err), zap.Int64("count", v))
	return v, nil
}
