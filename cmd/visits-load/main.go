package main

import (
	"context"
	"flag"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/tckz/portfolio-visits/internal/log"
	"github.com/tckz/portfolio-visits/internal/reporter"
	vh "github.com/tckz/vegetahelper"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optRate = &vh.RateFlag{
		Rate: &vegeta.Rate{
			Freq: 30,
			Per:  1 * time.Second,
		}}
	optDuration = flag.Duration("duration", 10*time.Second, "Duration of the test [0 = forever]")
	optOutput   = flag.String("output", "", "/path/to/results.bin or 'stdout'")
	optWorkers  = flag.Uint64("workers", vegeta.DefaultWorkers, "Number of workers")
	optLogLevel = flag.String("log-level", "info", "info|warn|error")
	optURL      = flag.String("url", "http://localhost:8080", "base URL of visits server")
	optUpRatio  = flag.Float64("up-ratio", 0.2, "share of hits that count a visit (POST), the rest read (GET)")
)

func init() {
	godotenv.Load()

	flag.Var(optRate, "rate", "Number of requests per time unit")
	flag.Parse()

	logger = log.Must(log.NewLogger(log.WithLogLevel(*optLogLevel))).Sugar().With(zap.String("app", myName))
}

type nopWriteCloser struct {
	io.Writer
}

func (c nopWriteCloser) Close() error {
	return nil
}

func openResultFile(out string) (io.WriteCloser, error) {
	switch out {
	case "stdout":
		return &nopWriteCloser{os.Stdout}, nil
	default:
		return os.Create(out)
	}
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)

	if *optOutput == "" {
		logger.Fatalf("*** --output must be specified.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cl := reporter.NewClient(*optURL, &http.Client{Timeout: 10 * time.Second})

	atk := vh.NewAttacker(func(ctx context.Context) (result *vh.HitResult, retErr error) {
		call := lo.Ternary(rand.Float64() < *optUpRatio, cl.Up, cl.Get)
		if _, err := call(ctx); err != nil {
			return nil, err
		}
		return result, nil
	}, vh.WithWorkers(*optWorkers))
	res := atk.Attack(ctx, *optRate.Rate, *optDuration, "visits")

	out, err := openResultFile(*optOutput)
	if err != nil {
		logger.Fatal(err)
	}
	defer out.Close()
	enc := vegeta.NewEncoder(out)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)

	var metrics vegeta.Metrics
loop:
	for {
		select {
		case s := <-sig:
			logger.Infof("Received signal: %s", s)
			cancel()
			// keep loop until 'res' is closed.
		case r, ok := <-res:
			if !ok {
				break loop
			}
			metrics.Add(r)
			if err := enc.Encode(r); err != nil {
				logger.Errorf("*** Encode: %v", err)
				break loop
			}
		}
	}
	metrics.Close()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		n, err := cl.Get(ctx)
		if err != nil {
			logger.Errorf("Get: %v", err)
		}
		logger.Infof("requests=%s, success=%.2f, p99=%s, count=%s",
			humanize.Comma(int64(metrics.Requests)), metrics.Success, metrics.Latencies.P99, humanize.Comma(n))
	}

	cancel()
}
