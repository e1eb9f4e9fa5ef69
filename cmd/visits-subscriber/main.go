package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/notify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optWorkers      = flag.Int("workers", 4, "Number of workers")
	optLogLevel     = flag.String("log-level", "info", "info|warn|error")
	optSubscription = flag.String("subscription", "", "subscription name")
	optRedis        = flag.String("redis", "", "addr:port of redis shared by subscribers")
	optMarkTTL      = flag.Duration("mark-ttl", time.Minute, "how long a processed event ID is remembered")
)

func init() {
	godotenv.Load()

	flag.Parse()

	logger = log.Must(log.NewLogger(log.WithLogLevel(*optLogLevel))).Sugar().With(zap.String("app", myName))
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)
	defer logger.Infof("done")

	if *optSubscription == "" {
		logger.Fatalf("*** --subscription must be specified.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pjID := os.Getenv("PROJECT_ID")

	cl, err := pubsub.NewClient(ctx, pjID)
	if err != nil {
		logger.Fatalf("*** pubsub.NewClient: %v", err)
	}
	defer cl.Close()

	var marker notify.Marker
	if *optRedis == "" {
		marker = notify.NewLocalMarker(*optMarkTTL)
	} else {
		rc := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        []string{*optRedis},
			DialTimeout:  time.Second * 2,
			ReadTimeout:  time.Second * 2,
			WriteTimeout: time.Second * 2,
			PoolSize:     200,
			PoolTimeout:  time.Second * 5,
		})
		defer rc.Close()
		marker = notify.NewRedisMarker(rc, "visit-event-processed:", *optMarkTTL)
	}

	var lastCount int64
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *optWorkers; i++ {
		eg.Go(func() error {
			subs := cl.Subscription(*optSubscription)
			return subs.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
				if msg.Attributes[notify.AttrType] != notify.TypeVisit {
					logger.Warnf("msgID=%s is not a visit event, type=%s", msg.ID, msg.Attributes[notify.AttrType])
					msg.Ack()
					return
				}

				ev, err := notify.Decode(msg)
				if err != nil {
					logger.Errorf("Decode: msgID=%s, %v", msg.ID, err)
					msg.Ack()
					return
				}

				if got, err := marker.Acquire(ctx, ev.ID); err != nil {
					logger.Errorf("Acquire: %v", err)
					msg.Nack()
					return
				} else if !got {
					logger.Infof("event=%s already processed by other", ev.ID)
					msg.Ack()
					return
				}

				for {
					prev := atomic.LoadInt64(&lastCount)
					if ev.Count <= prev || atomic.CompareAndSwapInt64(&lastCount, prev, ev.Count) {
						break
					}
				}
				logger.Infof("visit event=%s, count=%d, at=%s", ev.ID, ev.Count, ev.At.Format(time.RFC3339))
				msg.Ack()
			})
		})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Infof("Received signal: %v", s)
	case <-ctx.Done():
	}
	cancel()

	logger.Infof("Waiting goroutines exit")
	if err := eg.Wait(); err != nil {
		logger.Errorf("Wait: %v", err)
	}

	logger.Infof("highest count seen=%d", atomic.LoadInt64(&lastCount))
}
