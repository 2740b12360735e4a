// Package router turns a chat message into an ordered list of coaching
// results. It owns the fast-path shortcuts, message segmentation, the
// detector cascade and the per-user session memory updates.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/crickmate/coach/internal/catalogue"
	"github.com/crickmate/coach/internal/domain"
	"github.com/crickmate/coach/internal/intent"
)

// Mode selects the dispatch strategy.
type Mode string

// Dispatch strategies.
const (
	ModeSegmented Mode = "segmented"
	ModeAssisted  Mode = "assisted"
)

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSegmented, ModeAssisted:
		return m, nil
	case "":
		return ModeSegmented, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q", s)
	}
}

// TechnicalCatalogue is the technical drills lookup used by the router.
type TechnicalCatalogue interface {
	FindCategory(text string) (*catalogue.Category, bool)
	Category(id string) (*catalogue.Category, bool)
	SubAreas(categoryName string) []catalogue.AreaSummary
	Drills(areaID string, start, count int) catalogue.DrillPage
	SearchArea(text string) (*catalogue.Area, bool)
	FormatArea(a *catalogue.Area) catalogue.AreaDetail
	RolePriority(role string) catalogue.RolePriority
}

// ExerciseCatalogue is the exercise lookup used by the router.
type ExerciseCatalogue interface {
	ForGoal(p *domain.Profile, text string) catalogue.ExercisePlan
}

// ShotCatalogue is the shot and fundamentals lookup used by the router.
type ShotCatalogue interface {
	DetectShot(text string) (string, bool)
	DetectFundamental(text string) (string, bool)
	FormatFundamental(key string) string
	Answer(text string) string
}

// KnowledgeRetriever searches a document library.
type KnowledgeRetriever interface {
	Search(ctx context.Context, query string) (string, bool)
}

// SessionStore hands out per-user memory under a per-user lock.
type SessionStore interface {
	Acquire(userID string) (*domain.SessionMemory, func())
}

// Config wires a Dispatcher. Classifier and Knowledge are optional.
type Config struct {
	Mode       Mode
	Technical  TechnicalCatalogue
	Exercises  ExerciseCatalogue
	Shots      ShotCatalogue
	Sessions   SessionStore
	Classifier intent.Classifier
	Knowledge  KnowledgeRetriever
	Vocab      *catalogue.Vocab
	Logger     *slog.Logger
}

// Dispatcher processes chat messages. It is safe for concurrent use;
// messages from the same user are serialised through the session store.
type Dispatcher struct {
	mode       Mode
	tech       TechnicalCatalogue
	exercises  ExerciseCatalogue
	shots      ShotCatalogue
	sessions   SessionStore
	classifier intent.Classifier
	knowledge  KnowledgeRetriever
	vocab      *catalogue.Vocab
	logger     *slog.Logger

	cascade  []detector
	strategy strategy
}

var errMissingCollaborator = errors.New("router: missing collaborator")

// New builds a Dispatcher. Assisted mode without a classifier falls back to
// segmented mode with a warning.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Technical == nil || cfg.Exercises == nil || cfg.Shots == nil || cfg.Sessions == nil {
		return nil, errMissingCollaborator
	}
	if cfg.Vocab == nil {
		cfg.Vocab = catalogue.Vocabulary()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSegmented
	}
	if cfg.Mode == ModeAssisted && cfg.Classifier == nil {
		cfg.Logger.Warn("Assisted dispatch requested without a classifier, using segmented mode")
		cfg.Mode = ModeSegmented
	}

	d := &Dispatcher{
		mode:       cfg.Mode,
		tech:       cfg.Technical,
		exercises:  cfg.Exercises,
		shots:      cfg.Shots,
		sessions:   cfg.Sessions,
		classifier: cfg.Classifier,
		knowledge:  cfg.Knowledge,
		vocab:      cfg.Vocab,
		logger:     cfg.Logger,
	}
	d.cascade = d.segmentCascade()

	switch cfg.Mode {
	case ModeSegmented:
		d.strategy = segmented{d}
	case ModeAssisted:
		d.strategy = assisted{d}
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.Mode)
	}
	cfg.Logger.Info("Dispatcher ready", "mode", d.mode, "knowledge", d.knowledge != nil)
	return d, nil
}

// Mode returns the active strategy.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// request carries the per-message inputs shared by all detectors.
type request struct {
	ctx     context.Context
	userID  string
	profile *domain.Profile
	mem     *domain.SessionMemory
}

// strategy is one of the two dispatch variants.
type strategy interface {
	route(r *request, msg string) Envelope
}

// Process handles one message for userID. It never fails: every problem is
// reported as an entry in the returned envelope.
func (d *Dispatcher) Process(ctx context.Context, userID string, profile *domain.Profile, text string) (env Envelope) {
	if profile == nil {
		profile = &domain.Profile{UserID: userID}
	}
	mem, release := d.sessions.Acquire(userID)
	defer release()

	msg := strings.ToLower(strings.TrimSpace(text))
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("Dispatcher recovered from panic", "user_id", userID, "panic", rec)
			env = Envelope{Chat: ChatDefault, OrderedResponses: []Entry{d.unknownEntry(msg)}}
		}
	}()

	r := &request{ctx: ctx, userID: userID, profile: profile, mem: mem}
	if out, ok := d.fastPath(r, msg); ok {
		return out
	}
	return d.strategy.route(r, msg)
}

var (
	codePattern   = regexp.MustCompile(`^[a-z]\d+$`)
	codePrefix    = regexp.MustCompile(`^([a-z]\d+)`)
	letterPattern = regexp.MustCompile(`^[a-z]$`)
)

// fastPath checks the stateful shortcuts in order: "more", a drill code, a
// category letter. Shortcuts that do not resolve fall through.
func (d *Dispatcher) fastPath(r *request, msg string) (Envelope, bool) {
	mem := r.mem

	if msg == "more" && mem.HasArea() {
		area := mem.LastTechnicalArea
		page := d.tech.Drills(area, mem.DrillCursor, domain.DrillPageSize)
		mem.Advance(domain.DrillPageSize)
		return drillsEnvelope(fmt.Sprintf("More drills for %s 👇", area), area, page), true
	}

	if codePattern.MatchString(msg) {
		area := strings.ToUpper(msg)
		page := d.tech.Drills(area, 0, domain.DrillPageSize)
		if page.Found {
			mem.SelectArea(area)
			return drillsEnvelope(fmt.Sprintf("Here are the drills for %s 👇", area), area, page), true
		}
	}

	if letterPattern.MatchString(msg) {
		if cat, ok := d.tech.Category(strings.ToUpper(msg)); ok {
			mem.SelectCategory(cat.ID)
			return Envelope{
				Chat:             ChatDefault,
				OrderedResponses: []Entry{d.categoryEntry(msg, cat)},
			}, true
		}
	}
	return Envelope{}, false
}

func drillsEnvelope(chat, area string, page catalogue.DrillPage) Envelope {
	return Envelope{
		Chat: chat,
		TechnicalDrills: &DrillsPage{
			AreaID:    area,
			Returned:  page.Returned,
			Remaining: page.Remaining,
		},
	}
}

func (d *Dispatcher) categoryEntry(input string, cat *catalogue.Category) Entry {
	return Entry{
		Type:  TypeTechnicalCategory,
		Input: input,
		Result: CategoryResult{
			CategoryID:  cat.ID,
			Category:    cat.Name,
			Instruction: InstructionPickArea,
			SubAreas:    d.tech.SubAreas(cat.Name),
		},
	}
}

func (d *Dispatcher) unknownEntry(input string) Entry {
	return Entry{Type: TypeUnknown, Input: input, Result: d.vocab.UnknownHelp}
}
