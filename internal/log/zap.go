package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	logLevel    string
	outputPaths []string
	app         string
}

type Option func(o *options)

func WithLogLevel(lv string) Option {
	return Option(func(o *options) {
		o.logLevel = lv
	})
}

// WithOutputPaths replaces the default "stderr" sink.
func WithOutputPaths(paths ...string) Option {
	return Option(func(o *options) {
		o.outputPaths = paths
	})
}

// WithApp tags every entry with app=name.
func WithApp(name string) Option {
	return Option(func(o *options) {
		o.app = name
	})
}

func NewLogger(opts ...Option) (*zap.Logger, error) {
	options := options{
		logLevel:    "info",
		outputPaths: []string{"stderr"},
	}

	for _, e := range opts {
		e(&options)
	}

	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var al zap.AtomicLevel
	err := al.UnmarshalText([]byte(options.logLevel))
	if err != nil {
		return nil, fmt.Errorf("al.UnmarshalText: level=%s, %w", options.logLevel, err)
	}

	zc := zap.Config{
		DisableCaller:     true,
		DisableStacktrace: true,
		Level:             al,
		Development:       false,
		Encoding:          "json",
		EncoderConfig:     encConfig,
		OutputPaths:       options.outputPaths,
		ErrorOutputPaths:  []string{"stderr"},
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("zap.Build: %w", err)
	}
	if options.app != "" {
		zl = zl.With(zap.String("app", options.app))
	}
	return zl, nil
}

func Must(zl *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return zl
}

// OrNop returns zl, or a no-op logger when zl is nil.
func OrNop(zl *zap.Logger) *zap.Logger {
	if zl == nil {
		return zap.NewNop()
	}
	return zl
}
