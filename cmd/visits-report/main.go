package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/reporter"
	"go.uber.org/zap"
)

// Replays page loads of one browsing session against a visits server and
// prints what the counter would display after each.

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optLogLevel   = flag.String("log-level", "warn", "info|warn|error")
	optURL        = flag.String("url", "http://localhost:8080", "base URL of visits server")
	optMounts     = flag.Int("mounts", 2, "page loads in the session")
	optSessionTTL = flag.Duration("session-ttl", 30*time.Minute, "session lifetime")
	optTimeout    = flag.Duration("timeout", 10*time.Second, "timeout of each request")
)

func init() {
	godotenv.Load()

	flag.Parse()

	logger = log.Must(log.NewLogger(log.WithLogLevel(*optLogLevel))).Sugar().With(zap.String("app", myName))
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cl := reporter.NewClient(*optURL, nil)
	session := reporter.NewCacheSession(*optSessionTTL)

	for i := 0; i < *optMounts; i++ {
		r := reporter.New(cl, session, reporter.WithLogger(logger.Desugar()))

		mctx, mcancel := context.WithTimeout(ctx, *optTimeout)
		st := r.Run(mctx)
		mcancel()
		if ctx.Err() != nil {
			return
		}

		fmt.Printf("mount=%d status=%s %s\n", i+1, st.Status, r.Render())
	}
}
