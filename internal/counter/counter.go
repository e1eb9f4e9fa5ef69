// Package counter owns the authoritative visit count.
//
// A Counter is backed either by an external key-value store (REST, Redis or
// Datastore) or by a LocalCounter that lives as long as the process. Backed
// counters are wrapped in a FallbackCounter so that a failing store degrades
// to the in-memory count instead of failing the request.
package counter

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
)

type Counter interface {
	// Get returns the current count. Absent count is 0.
	Get(ctx context.Context) (int64, error)
	// Up adds exactly 1 and returns the new count.
	Up(ctx context.Context) (int64, error)
}

var (
	// ErrUnexpectedStatus is returned when a REST backing store answers with a non-success status.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrNoResult is returned when a backing store accepted an increment but its reply carried no count.
	ErrNoResult = errors.New("no result in reply")
)

var _ Counter = (*LocalCounter)(nil)

// LocalCounter is the process scoped count. It starts at 0 on every start.
type LocalCounter struct {
	count int64
}

func (c *LocalCounter) Get(ctx context.Context) (int64, error) {
	return atomic.LoadInt64(&c.count), nil
}

func (c *LocalCounter) Up(ctx context.Context) (int64, error) {
	return atomic.AddInt64(&c.count, 1), nil
}

// parseCount reads a stored count. Anything unparsable counts as 0.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
