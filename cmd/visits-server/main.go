package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/tckz/portfolio-visits/internal/counter"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/notify"
	"github.com/tckz/portfolio-visits/internal/server"
	"github.com/tckz/portfolio-visits/internal/visits"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	zl      *zap.Logger
	version string
)

var (
	optListen            = flag.String("listen", ":8080", "addr:port to listen")
	optLogLevel          = flag.String("log-level", "info", "info|warn|error")
	optBackingStoreURL   = flag.String("backing-store-url", "", "base URL of the REST key-value store (default $UPSTASH_REDIS_REST_URL)")
	optBackingStoreToken = flag.String("backing-store-token", "", "bearer token of the REST key-value store (default $UPSTASH_REDIS_REST_TOKEN)")
	optRedis             = flag.String("redis", "", "addr:port of redis")
	optDatastoreProject  = flag.String("datastore-project", "", "project ID of datastore (default $PROJECT_ID when --datastore is set)")
	optDatastore         = flag.Bool("datastore", false, "use datastore as backing store")
	optDatastoreNS       = flag.String("datastore-ns", "", "datastore namespace")
	optCredentials       = flag.String("credentials", "", "/path/to/service-account.json for GCP clients")
	optCounterKey        = flag.String("counter-key", visits.Key, "key of the count in the backing store")
	optStoreTimeout      = flag.Duration("store-timeout", 2*time.Second, "timeout of each backing store call")
	optStrict            = flag.Bool("strict-backing-store", false, "answer 503 instead of the in-memory count when the backing store fails")
	optTopic             = flag.String("topic", "", "pubsub topic receiving visit events")
	optShutdownTimeout   = flag.Duration("shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
)

func init() {
	godotenv.Load()

	flag.Parse()

	zl = log.Must(log.NewLogger(log.WithLogLevel(*optLogLevel), log.WithApp(myName)))
	logger = zl.Sugar()
}

func envOr(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)
	defer logger.Infof("done")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := counter.Config{
		BackingStoreURL:      envOr(*optBackingStoreURL, "UPSTASH_REDIS_REST_URL"),
		BackingStoreToken:    envOr(*optBackingStoreToken, "UPSTASH_REDIS_REST_TOKEN"),
		RedisAddr:            *optRedis,
		DatastoreNamespace:   *optDatastoreNS,
		DatastoreCredentials: *optCredentials,
		Key:                  *optCounterKey,
		Timeout:              *optStoreTimeout,
		Strict:               *optStrict,
	}
	if *optDatastore {
		cfg.DatastoreProject = envOr(*optDatastoreProject, "PROJECT_ID")
		if cfg.DatastoreProject == "" {
			logger.Fatalf("*** --datastore-project or PROJECT_ID must be specified with --datastore.")
		}
	}

	cnt, closeCounter, err := counter.Open(ctx, cfg, zl)
	if err != nil {
		logger.Fatalf("*** counter.Open: %v", err)
	}
	defer closeCounter()

	opts := []server.Option{server.WithLogger(zl)}
	if *optTopic != "" {
		var copts []option.ClientOption
		if *optCredentials != "" {
			copts = append(copts, option.WithCredentialsFile(*optCredentials))
		}
		cl, err := pubsub.NewClient(ctx, os.Getenv("PROJECT_ID"), copts...)
		if err != nil {
			logger.Fatalf("*** pubsub.NewClient: %v", err)
		}
		defer cl.Close()

		n := notify.NewPubsubNotifier(cl.Topic(*optTopic), zl)
		defer n.Stop()
		opts = append(opts, server.WithNotifier(n))
	}

	gin.SetMode(gin.ReleaseMode)
	h := server.New(cnt, opts...)

	ln, err := net.Listen("tcp", *optListen)
	if err != nil {
		logger.Fatalf("*** net.Listen: %v", err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sig:
			logger.Infof("Received signal: %v", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := server.Serve(ctx, ln, h.Engine(), *optShutdownTimeout, zl); err != nil {
		logger.Errorf("Serve: %v", err)
	}
}
