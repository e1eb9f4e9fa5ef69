// Package reporter decides once per browsing session whether a page load is a
// new visit, and keeps the count to display.
//
// A mount in a session that has not been counted yet increments the count
// and marks the session. Later mounts only read it. A failed increment leaves
// the session unmarked so the next mount tries again.
package reporter

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/visits"
	"go.uber.org/zap"
)

type Status int

const (
	Idle Status = iota
	Loading
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type State struct {
	Status Status
	// Count is nil until a request succeeds.
	Count *int64
}

// Session is the client-local store of the counted flag.
type Session interface {
	Flag(key string) bool
	SetFlag(key string)
}

type VisitsAPI interface {
	Get(ctx context.Context) (int64, error)
	Up(ctx context.Context) (int64, error)
}

type Reporter struct {
	api     VisitsAPI
	session Session
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	mounted bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type Option func(r *Reporter)

func WithLogger(zl *zap.Logger) Option {
	return Option(func(r *Reporter) {
		r.logger = zl
	})
}

func New(api VisitsAPI, session Session, opts ...Option) *Reporter {
	r := &Reporter{
		api:     api,
		session: session,
	}
	for _, e := range opts {
		e(r)
	}
	r.logger = log.OrNop(r.logger)
	return r
}

// Mount starts the request for this page load and returns immediately.
// Mounting an already mounted Reporter is a no-op.
func (r *Reporter) Mount(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mounted {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.gen++
	r.mounted = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.state = State{Status: Loading}

	go r.run(ctx, r.gen, r.done)
}

// Unmount aborts the in-flight request. Its outcome is dropped.
func (r *Reporter) Unmount() {
	r.mu.Lock()
	cancel := r.cancel
	r.mounted = false
	r.cancel = nil
	r.gen++
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the latest mount's request has returned.
func (r *Reporter) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Run mounts and waits for the outcome.
func (r *Reporter) Run(ctx context.Context) State {
	r.Mount(ctx)
	r.Wait()
	return r.State()
}

func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state
	if st.Count != nil {
		n := *st.Count
		st.Count = &n
	}
	return st
}

// Render returns the text shown for the current state.
func (r *Reporter) Render() string {
	st := r.State()
	switch {
	case st.Status == Error:
		return "Visitor count unavailable"
	case st.Status == Loading || st.Count == nil:
		return "Loading…"
	default:
		return FormatCount(*st.Count) + " visitors"
	}
}

func (r *Reporter) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	counted := r.session.Flag(visits.SessionKey)
	var n int64
	var err error
	if counted {
		n, err = r.api.Get(ctx)
	} else {
		n, err = r.api.Up(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || !r.mounted {
		return
	}
	if err != nil {
		r.logger.Warn("visit count request failed", zap.Bool("counted", counted), zap.Error(err))
		r.state = State{Status: Error}
		return
	}

	if !counted {
		r.session.SetFlag(visits.SessionKey)
	}
	r.state = State{Status: Idle, Count: &n}
}

// FormatCount renders 999 as "999", 12345 as "12.3k" and 2500000 as "2.5M".
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return humanize.Comma(n)
	}
}
