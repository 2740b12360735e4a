package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/crickmate/coach/internal/catalogue"
	"github.com/crickmate/coach/internal/domain"
	"github.com/crickmate/coach/internal/intent"
	"github.com/crickmate/coach/internal/session"
)

type fixture struct {
	d        *Dispatcher
	sessions *session.Store
}

func newFixture(t *testing.T, mode Mode, c intent.Classifier, k KnowledgeRetriever) fixture {
	t.Helper()
	tech, err := catalogue.NewTechnical()
	if err != nil {
		t.Fatal(err)
	}
	ex, err := catalogue.NewExercises()
	if err != nil {
		t.Fatal(err)
	}
	shots, err := catalogue.NewShots()
	if err != nil {
		t.Fatal(err)
	}
	store := session.New(0, nil)
	cfg := Config{
		Mode:       mode,
		Technical:  tech,
		Exercises:  ex,
		Shots:      shots,
		Sessions:   store,
		Classifier: c,
		Knowledge:  k,
	}
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fixture{d: d, sessions: store}
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		UserID:      "USER0001",
		Age:         24,
		HeightCM:    178,
		WeightKG:    72,
		SkillLevel:  domain.SkillIntermediate,
		PlayingRole: "top order batsman",
	}
}

func types(env Envelope) []string {
	var out []string
	for _, e := range env.OrderedResponses {
		out = append(out, e.Type)
	}
	return out
}

func drillNames(ds []catalogue.DrillDetail) []string {
	out := []string{}
	for _, d := range ds {
		out = append(out, d.DrillName)
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}); !errors.Is(err, errMissingCollaborator) {
		t.Fatalf("expected errMissingCollaborator, got %v", err)
	}
}

func TestNewAssistedWithoutClassifierFallsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeAssisted, nil, nil)
	if f.d.Mode() != ModeSegmented {
		t.Fatalf("Mode() = %s, want segmented", f.d.Mode())
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Mode{"": ModeSegmented, "Assisted": ModeAssisted, " segmented ": ModeSegmented} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseMode("llm"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()
	seps := catalogue.Vocabulary().SplitKeys
	tests := []struct {
		in   string
		want []string
	}{
		{"timing and exercises for power", []string{"timing", "exercises for power"}},
		{"pull shot, grip; footwork plus mindset", []string{"pull shot", "grip", "footwork", "mindset"}},
		{"a and b & c also d with e", []string{"a", "b", "c", "d", "e"}},
		{"timing and ", []string{"timing"}},
		{" , ; ", []string{}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, Split(tc.in, seps)); diff != "" {
			t.Errorf("Split(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestPaginationMonotonic(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	ctx := context.Background()
	p := testProfile()

	first := f.d.Process(ctx, "u1", p, "A2")
	if first.TechnicalDrills == nil {
		t.Fatalf("expected drills shortcut, got %+v", first)
	}
	if first.OrderedResponses != nil {
		t.Fatal("shortcut envelope must not carry ordered responses")
	}

	got := drillNames(first.TechnicalDrills.Returned)
	remaining := []int{first.TechnicalDrills.Remaining}
	for range 3 {
		env := f.d.Process(ctx, "u1", p, "More")
		if env.TechnicalDrills == nil {
			t.Fatalf("expected drills page, got %+v", env)
		}
		got = append(got, drillNames(env.TechnicalDrills.Returned)...)
		remaining = append(remaining, env.TechnicalDrills.Remaining)
	}

	want := []string{"Off Stump Gate", "Shadow Leave Ladder", "Late Swing Leaves", "Leave and Score Game", "New Ball Survival Over"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("drill sequence mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3, 1, 0, 0}, remaining); diff != "" {
		t.Fatalf("remaining mismatch (-want +got):\n%s", diff)
	}
}

func TestMoreWithoutAreaFallsThrough(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	env := f.d.Process(context.Background(), "u1", testProfile(), "more")
	if env.TechnicalDrills != nil {
		t.Fatal("more without an area must not paginate")
	}
	if diff := cmp.Diff([]string{TypeUnknown}, types(env)); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestCursorResetOnAreaChange(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	ctx := context.Background()
	p := testProfile()

	f.d.Process(ctx, "u1", p, "a2")
	f.d.Process(ctx, "u1", p, "more")
	env := f.d.Process(ctx, "u1", p, "c1")

	if env.TechnicalDrills == nil || env.TechnicalDrills.AreaID != "C1" {
		t.Fatalf("expected C1 drills, got %+v", env)
	}
	if env.TechnicalDrills.Remaining != 1 {
		t.Fatalf("remaining = %d, want total-2 = 1", env.TechnicalDrills.Remaining)
	}
	mem, _ := f.sessions.Snapshot("u1")
	if mem.LastTechnicalArea != "C1" || mem.DrillCursor != domain.DrillPageSize {
		t.Fatalf("memory not reset: %+v", mem)
	}
}

func TestUnknownDrillCodeFallsThrough(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	env := f.d.Process(context.Background(), "u1", testProfile(), "z9")
	if env.TechnicalDrills != nil {
		t.Fatal("unknown code must not take the shortcut")
	}
	if len(env.OrderedResponses) != 1 {
		t.Fatalf("expected one entry, got %+v", env)
	}
	res, ok := env.OrderedResponses[0].Result.(DrillsResult)
	if !ok || res.Found || res.Message == "" {
		t.Fatalf("expected not-found drills result, got %+v", env.OrderedResponses[0])
	}
	mem, _ := f.sessions.Snapshot("u1")
	if mem.HasArea() {
		t.Fatal("a missing area must not be remembered")
	}
}

func TestSegmentOrderPreserved(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	env := f.d.Process(context.Background(), "u1", testProfile(), "timing and exercises for power")

	if diff := cmp.Diff([]string{TypeTechnicalCategory, TypeExercise}, types(env)); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	if env.OrderedResponses[0].Input != "timing" || env.OrderedResponses[1].Input != "exercises for power" {
		t.Fatalf("inputs out of order: %+v", env.OrderedResponses)
	}
	plan := env.OrderedResponses[1].Result.(catalogue.ExercisePlan)
	if plan.GoalDetected != catalogue.GoalPowerHitting {
		t.Fatalf("goal = %s", plan.GoalDetected)
	}
	mem, _ := f.sessions.Snapshot("u1")
	if mem.LastTechnicalCategory != "B" || mem.LastExerciseGoal != catalogue.GoalPowerHitting {
		t.Fatalf("memory not updated: %+v", mem)
	}
}

func TestFastPathPrecedence(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	env := f.d.Process(context.Background(), "u1", testProfile(), "  A2 ")
	if env.TechnicalDrills == nil || env.TechnicalDrills.AreaID != "A2" {
		t.Fatalf("expected A2 drills, got %+v", env)
	}
	if env.Chat != "Here are the drills for A2 👇" {
		t.Fatalf("chat = %q", env.Chat)
	}
}

func TestUnknownIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	ctx := context.Background()
	f.d.Process(ctx, "u1", testProfile(), "b1")
	before, _ := f.sessions.Snapshot("u1")

	for range 2 {
		env := f.d.Process(ctx, "u1", testProfile(), "asdkjalksd")
		want := Envelope{
			Chat:             ChatDefault,
			OrderedResponses: []Entry{{Type: TypeUnknown, Input: "asdkjalksd", Result: catalogue.Vocabulary().UnknownHelp}},
		}
		if diff := cmp.Diff(want, env); diff != "" {
			t.Fatalf("envelope mismatch (-want +got):\n%s", diff)
		}
	}
	after, _ := f.sessions.Snapshot("u1")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("memory changed (-before +after):\n%s", diff)
	}
}

func TestCategoryLetterShortcut(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	ctx := context.Background()
	f.d.Process(ctx, "u1", testProfile(), "a2")

	env := f.d.Process(ctx, "u1", testProfile(), "A")
	if diff := cmp.Diff([]string{TypeTechnicalCategory}, types(env)); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	res := env.OrderedResponses[0].Result.(CategoryResult)
	if res.CategoryID != "A" || len(res.SubAreas) != 3 || res.Instruction != InstructionPickArea {
		t.Fatalf("unexpected category result: %+v", res)
	}
	mem, _ := f.sessions.Snapshot("u1")
	want := domain.SessionMemory{UserID: "u1", LastTechnicalCategory: "A"}
	if diff := cmp.Diff(want, mem); diff != "" {
		t.Fatalf("memory mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectorCascade(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)

	tests := []struct {
		msg  string
		want []string
	}{
		{"pull shot drills", []string{TypeShot}},
		{"how do i grip the bat", []string{TypeFundamental}},
		{"gym work for footwork", []string{TypeExercise}},
		{"a2 drills", []string{TypeTechnicalDrills}},
		{"how to improve gap finding", []string{TypeTechnicalDirect}},
		{"improve batting", []string{TypeBattingOverview}},
		{"mindset, stance, c", []string{TypeTechnicalCategory, TypeFundamental, TypeTechnicalCategory}},
	}
	for _, tc := range tests {
		t.Run(tc.msg, func(t *testing.T) {
			env := f.d.Process(context.Background(), "cascade-"+tc.msg, testProfile(), tc.msg)
			if diff := cmp.Diff(tc.want, types(env)); diff != "" {
				t.Fatalf("types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAreaCodeSegmentSelectsArea(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	ctx := context.Background()
	env := f.d.Process(ctx, "u1", testProfile(), "a2 drills please")
	res := env.OrderedResponses[0].Result.(DrillsResult)
	if !res.Found || res.Remaining != 3 || res.Instruction != InstructionMore {
		t.Fatalf("unexpected drills result: %+v", res)
	}
	next := f.d.Process(ctx, "u1", testProfile(), "more")
	if next.TechnicalDrills == nil || next.Chat != "More drills for A2 👇" {
		t.Fatalf("expected pagination after code segment, got %+v", next)
	}
}

func TestBattingOverviewUsesRole(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	p := testProfile()
	p.PlayingRole = "Unknown Role"
	env := f.d.Process(context.Background(), "u1", p, "improve batting")
	rp := env.OrderedResponses[0].Result.(catalogue.RolePriority)
	if rp.Structured {
		t.Fatal("unknown role must not be structured")
	}
}

func TestNilProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	env := f.d.Process(context.Background(), "u1", nil, "exercises for stamina")
	if diff := cmp.Diff([]string{TypeExercise}, types(env)); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentMoreIsSerialised(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	ctx := context.Background()
	f.d.Process(ctx, "u1", testProfile(), "a2")

	var (
		mu   sync.Mutex
		seen []string
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env := f.d.Process(ctx, "u1", testProfile(), "more")
			mu.Lock()
			seen = append(seen, drillNames(env.TechnicalDrills.Returned)...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 3 {
		t.Fatalf("pages overlapped or skipped: %v", seen)
	}
	uniq := map[string]bool{}
	for _, s := range seen {
		uniq[s] = true
	}
	if len(uniq) != 3 {
		t.Fatalf("duplicate drills across pages: %v", seen)
	}
	mem, _ := f.sessions.Snapshot("u1")
	if mem.DrillCursor != 2+8*domain.DrillPageSize {
		t.Fatalf("cursor = %d", mem.DrillCursor)
	}
}

// panickyShots fails every lookup.
type panickyShots struct{ ShotCatalogue }

func (panickyShots) DetectShot(string) (string, bool) { panic("boom") }

func TestProcessRecoversFromPanics(t *testing.T) {
	t.Parallel()
	f := newFixture(t, ModeSegmented, nil, nil)
	f.d.shots = panickyShots{}
	f.d.cascade = f.d.segmentCascade()

	env := f.d.Process(context.Background(), "u1", testProfile(), "pull shot")
	if diff := cmp.Diff([]string{TypeUnknown}, types(env)); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	// The session lock must have been released.
	env = f.d.Process(context.Background(), "u1", testProfile(), "b1")
	if env.TechnicalDrills == nil {
		t.Fatal("expected the next message to be processed")
	}
}
