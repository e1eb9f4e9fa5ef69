package counter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/redis/go-redis/v9"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/visits"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendREST      Backend = "rest"
	BackendRedis     Backend = "redis"
	BackendDatastore Backend = "datastore"
)

type Config struct {
	// Both must be set to use the REST store.
	BackingStoreURL   string
	BackingStoreToken string

	RedisAddr string

	DatastoreProject     string
	DatastoreNamespace   string
	DatastoreKind        string
	DatastoreCredentials string

	Key     string
	Timeout time.Duration
	Strict  bool
}

// Backend reports which store Open would use.
func (c Config) Backend() Backend {
	switch {
	case c.BackingStoreURL != "" && c.BackingStoreToken != "":
		return BackendREST
	case c.RedisAddr != "":
		return BackendRedis
	case c.DatastoreProject != "":
		return BackendDatastore
	default:
		return BackendMemory
	}
}

func (c Config) key() string {
	if c.Key == "" {
		return visits.Key
	}
	return c.Key
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 2 * time.Second
	}
	return c.Timeout
}

// Open builds the counter described by cfg. The returned func releases the
// backend client.
func Open(ctx context.Context, cfg Config, zl *zap.Logger) (Counter, func() error, error) {
	zl = log.OrNop(zl)
	nop := func() error { return nil }

	var primary Counter
	closer := nop
	switch cfg.Backend() {
	case BackendREST:
		primary = NewRESTCounter(ctx, cfg.BackingStoreURL, cfg.BackingStoreToken, cfg.key(), &http.Client{Timeout: cfg.timeout()})
	case BackendRedis:
		cl := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        []string{cfg.RedisAddr},
			DialTimeout:  cfg.timeout(),
			ReadTimeout:  cfg.timeout(),
			WriteTimeout: cfg.timeout(),
			PoolSize:     200,
			PoolTimeout:  time.Second * 5,
		})
		primary = NewRedisCounter(cl, cfg.key())
		closer = cl.Close
	case BackendDatastore:
		var opts []option.ClientOption
		if cfg.DatastoreCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.DatastoreCredentials))
		}
		cl, err := datastore.NewClient(ctx, cfg.DatastoreProject, opts...)
		if err != nil {
			return nil, nop, fmt.Errorf("datastore.NewClient: %w", err)
		}
		kind := cfg.DatastoreKind
		if kind == "" {
			kind = "VisitCounter"
		}
		primary = NewDatastoreCounter(cl, kind, cfg.key(), cfg.DatastoreNamespace)
		closer = cl.Close
	default:
		zl.Info("no backing store configured, count lives in memory only")
		return &LocalCounter{}, nop, nil
	}

	zl.Info("backing store configured", zap.String("backend", string(cfg.Backend())), zap.Bool("strict", cfg.Strict))
	return NewFallbackCounter(primary, &LocalCounter{}, WithStrict(cfg.Strict), WithLogger(zl)), closer, nil
}
