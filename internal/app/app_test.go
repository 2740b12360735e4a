package app

import (
	"context"
	"testing"

	"github.com/crickmate/coach/internal/config"
	"github.com/crickmate/coach/internal/domain"
	"github.com/crickmate/coach/internal/router"
)

func TestBuildSegmented(t *testing.T) {
	t.Parallel()
	core, err := Build(context.Background(), &config.Config{DispatchMode: "segmented"}, "", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer core.Close()

	if core.Dispatcher.Mode() != router.ModeSegmented {
		t.Fatalf("mode = %s", core.Dispatcher.Mode())
	}
	env := core.Dispatcher.Process(context.Background(), "USER0001", &domain.Profile{PlayingRole: "top order batsman"}, "timing")
	if len(env.OrderedResponses) != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestBuildAssistedWithoutClassifierFallsBack(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{DispatchMode: "segmented", KnowledgeDir: t.TempDir()}
	core, err := Build(context.Background(), cfg, "assisted", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer core.Close()

	if core.Dispatcher.Mode() != router.ModeSegmented {
		t.Fatalf("assisted without a classifier should fall back, got %s", core.Dispatcher.Mode())
	}
}

func TestBuildRejectsUnknownMode(t *testing.T) {
	t.Parallel()
	if _, err := Build(context.Background(), &config.Config{}, "psychic", nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
