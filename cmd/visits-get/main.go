package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/tckz/portfolio-visits/internal/counter"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/visits"
	"go.uber.org/zap"
)

// Prints the count held by the backing store, bypassing the server.

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optLogLevel  = flag.String("log-level", "info", "info|warn|error")
	optRedis     = flag.String("redis", "", "addr:port of redis")
	optDatastore = flag.Bool("datastore", false, "read from datastore of $PROJECT_ID")
	optNameSpace = flag.String("ns", "", "datastore namespace")
	optKey       = flag.String("counter-key", visits.Key, "key of the count")
	optTimeout   = flag.Duration("timeout", 5*time.Second, "timeout")
)

func init() {
	godotenv.Load()

	flag.Parse()

	logger = log.Must(log.NewLogger(log.WithLogLevel(*optLogLevel))).Sugar().With(zap.String("app", myName))
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)

	ctx, cancel := context.WithTimeout(context.Background(), *optTimeout)
	defer cancel()

	cfg := counter.Config{
		BackingStoreURL:    os.Getenv("UPSTASH_REDIS_REST_URL"),
		BackingStoreToken:  os.Getenv("UPSTASH_REDIS_REST_TOKEN"),
		RedisAddr:          *optRedis,
		DatastoreNamespace: *optNameSpace,
		Key:                *optKey,
		Timeout:            *optTimeout,
		Strict:             true,
	}
	if *optDatastore {
		cfg.DatastoreProject = os.Getenv("PROJECT_ID")
	}
	if cfg.Backend() == counter.BackendMemory {
		logger.Fatalf("*** no backing store configured.")
	}

	c, closer, err := counter.Open(ctx, cfg, nil)
	if err != nil {
		logger.Fatalf("*** counter.Open: %v", err)
	}
	defer closer()

	n, err := c.Get(ctx)
	if err != nil {
		logger.Fatalf("*** Get: %v", err)
	}

	fmt.Fprintf(os.Stdout, "backend=%s count=%d\n", cfg.Backend(), n)
}
