package intent

import (
	"context"
	"log/slog"
	"time"
)

// Options selects and configures a classifier backend.
type Options struct {
	GRPCAddr  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	CacheSize int
}

// Configured reports whether any backend is set.
func (o Options) Configured() bool {
	return o.GRPCAddr != "" || o.APIKey != ""
}

// New builds the configured classifier. The remote service takes precedence
// over Gemini. It returns ErrUnavailable when nothing is configured. The
// returned close func is never nil.
func New(ctx context.Context, o Options, logger *slog.Logger) (Classifier, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}

	var (
		c       Classifier
		closeFn = noop
	)
	switch {
	case o.GRPCAddr != "":
		cfg := DefaultGRPCConfig(o.GRPCAddr)
		if o.Timeout > 0 {
			cfg.RequestTimeout = o.Timeout
		}
		g, err := NewGRPC(cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		c, closeFn = g, g.Close
		logger.Info("Using remote intent classifier", "address", o.GRPCAddr)
	case o.APIKey != "":
		g, err := NewGemini(ctx, GeminiConfig{APIKey: o.APIKey, Model: o.Model, Timeout: o.Timeout}, logger)
		if err != nil {
			return nil, noop, err
		}
		c = g
		logger.Info("Using Gemini intent classifier", "model", g.model)
	default:
		return nil, noop, ErrUnavailable
	}

	if o.CacheSize > 0 {
		cached, err := NewCached(c, o.CacheSize)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		c = cached
	}
	return c, closeFn, nil
}
