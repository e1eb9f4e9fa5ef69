// Package server exposes the visit count over HTTP.
//
//	GET  /api/visits   200 {"count": n}, read only
//	POST /api/visits   200 {"count": n}, counts one visit
//	*    /api/visits   405 Method Not Allowed
//	GET  /api/health   200 liveness report
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tckz/portfolio-visits/internal/counter"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/notify"
	"github.com/tckz/portfolio-visits/internal/visits"
	"go.uber.org/zap"
)

const HealthPath = "/api/health"

type Handler struct {
	counter  counter.Counter
	notifier notify.Notifier
	logger   *zap.Logger
	started  time.Time
}

type Option func(h *Handler)

func WithNotifier(n notify.Notifier) Option {
	return Option(func(h *Handler) {
		h.notifier = n
	})
}

func WithLogger(zl *zap.Logger) Option {
	return Option(func(h *Handler) {
		h.logger = zl
	})
}

func New(c counter.Counter, opts ...Option) *Handler {
	h := &Handler{
		counter:  c,
		notifier: notify.Nop{},
		started:  time.Now(),
	}
	for _, e := range opts {
		e(h)
	}
	h.logger = log.OrNop(h.logger)
	return h
}

// Engine returns the router serving all routes.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), accessLog(h.logger))
	r.NoMethod(methodNotAllowed)

	r.GET(visits.Path, h.getVisits)
	r.POST(visits.Path, h.upVisits)
	r.GET(HealthPath, h.health)
	return r
}

// storeContext detaches backing store calls from the client connection: a
// call already in flight completes even when the client goes away.
func storeContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *Handler) getVisits(c *gin.Context) {
	n, err := h.counter.Get(storeContext(c))
	if err != nil {
		h.unavailable(c, err)
		return
	}
	writeCount(c, n)
}

func (h *Handler) upVisits(c *gin.Context) {
	ctx := storeContext(c)
	n, err := h.counter.Up(ctx)
	if err != nil {
		h.unavailable(c, err)
		return
	}
	h.notifier.Notify(ctx, notify.NewEvent(n))
	writeCount(c, n)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

// unavailable answers 503. Only a strict counter reports errors.
func (h *Handler) unavailable(c *gin.Context, err error) {
	h.logger.Error("counter", zap.String("method", c.Request.Method), zap.Error(err))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusServiceUnavailable, "text/plain; charset=utf-8", []byte(http.StatusText(http.StatusServiceUnavailable)))
}

func writeCount(c *gin.Context, n int64) {
	b, err := json.Marshal(visits.Response{Count: n})
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/json", b)
}

func methodNotAllowed(c *gin.Context) {
	c.Data(http.StatusMethodNotAllowed, "text/plain; charset=utf-8", []byte(http.StatusText(http.StatusMethodNotAllowed)))
}

func accessLog(zl *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		c.Next()

		zl.Info("access",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(now)),
			zap.String("remote", c.ClientIP()),
		)
	}
}
