// Package app assembles the coaching core shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crickmate/coach/internal/catalogue"
	"github.com/crickmate/coach/internal/config"
	"github.com/crickmate/coach/internal/intent"
	"github.com/crickmate/coach/internal/knowledge"
	"github.com/crickmate/coach/internal/router"
	"github.com/crickmate/coach/internal/session"
)

// Core holds the catalogues, session store and dispatcher.
type Core struct {
	Technical  *catalogue.Technical
	Exercises  *catalogue.Exercises
	Shots      *catalogue.Shots
	Sessions   *session.Store
	Dispatcher *router.Dispatcher

	closers []func()
}

// Close releases the classifier connection and the knowledge index.
func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build loads the catalogues and wires the dispatcher for cfg. An
// unconfigured classifier is not an error; assisted mode then falls back
// to segmented. mode overrides cfg.DispatchMode when non-empty.
func Build(ctx context.Context, cfg *config.Config, mode string, logger *slog.Logger) (*Core, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = cfg.DispatchMode
	}
	m, err := router.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	core := &Core{}
	if core.Technical, err = catalogue.NewTechnical(); err != nil {
		return nil, fmt.Errorf("load technical catalogue: %w", err)
	}
	if core.Exercises, err = catalogue.NewExercises(); err != nil {
		return nil, fmt.Errorf("load exercise catalogue: %w", err)
	}
	if core.Shots, err = catalogue.NewShots(); err != nil {
		return nil, fmt.Errorf("load shot catalogue: %w", err)
	}
	core.Sessions = session.New(cfg.Session.IdleTTL, logger)

	rcfg := router.Config{
		Mode:      m,
		Technical: core.Technical,
		Exercises: core.Exercises,
		Shots:     core.Shots,
		Sessions:  core.Sessions,
		Logger:    logger,
	}

	if m == router.ModeAssisted {
		opts := cfg.IntentOptions()
		if !opts.Configured() {
			logger.Info("No intent classifier configured")
		} else if classifier, closeFn, err := intent.New(ctx, opts, logger); err != nil {
			logger.Warn("Intent classifier unavailable", "error", err)
		} else {
			rcfg.Classifier = classifier
			core.closers = append(core.closers, closeFn)
		}

		lib, err := knowledge.Load(cfg.KnowledgeDir, logger)
		if err != nil {
			logger.Warn("Knowledge library unavailable", "error", err)
		} else {
			rcfg.Knowledge = lib
			core.closers = append(core.closers, func() {
				if err := lib.Close(); err != nil {
					logger.Debug("Failed to close knowledge index", "error", err)
				}
			})
		}
	}

	if core.Dispatcher, err = router.New(rcfg); err != nil {
		core.Close()
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}
	return core, nil
}
