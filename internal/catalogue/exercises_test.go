package catalogue

import (
	"errors"
	"testing"

	"github.com/crickmate/coach/internal/domain"
)

func newExercises(t *testing.T) *Exercises {
	t.Helper()
	ex, err := NewExercises()
	if err != nil {
		t.Fatalf("NewExercises: %v", err)
	}
	return ex
}

func TestDetectGoal(t *testing.T) {
	ex := newExercises(t)
	tests := map[string]string{
		"exercises for power":     GoalPowerHitting,
		"stamina workout":         GoalEnduranceFitness,
		"gym work for timing":     GoalTimingControl,
		"agility exercises":       GoalFootworkAgility,
		"something else entirely": GoalPowerHitting,
	}
	for text, want := range tests {
		if got := ex.DetectGoal(text); got != want {
			t.Errorf("DetectGoal(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestForGoalPersonalises(t *testing.T) {
	ex := newExercises(t)
	adult := &domain.Profile{Age: 25, HeightCM: 180, WeightKG: 75, SkillLevel: "intermediate", PlayingRole: "Finisher"}

	plan := ex.ForGoal(adult, "exercises for power")
	if plan.Error {
		t.Fatalf("unexpected error plan: %+v", plan)
	}
	if plan.GoalDetected != GoalPowerHitting || plan.TotalExercisesFound != len(plan.Exercises) {
		t.Fatalf("unexpected plan header: %+v", plan)
	}
	if plan.Warning != "" {
		t.Errorf("expected no warning for an intermediate adult, got %q", plan.Warning)
	}

	var sawAll bool
	for _, e := range plan.Exercises {
		if e.ExerciseName == "Plank With Shoulder Taps" {
			sawAll = true
		}
		if e.ExerciseName == "Medicine Ball Rotational Throw" {
			if !e.RecommendedForRole || e.Sets != 3 || e.DosageWarning != "" {
				t.Errorf("unexpected personalisation: %+v", e)
			}
		}
	}
	if !sawAll {
		t.Error("exercises tagged ALL should be included for every goal")
	}
}

func TestForGoalDosageWarningAndSafety(t *testing.T) {
	ex := newExercises(t)
	junior := &domain.Profile{Age: 12, HeightCM: 160, WeightKG: 40, SkillLevel: "beginner", PlayingRole: "top order batsman"}

	plan := ex.ForGoal(junior, "strength")
	if plan.Warning != "You are underweight. Avoid heavy overload training." {
		t.Fatalf("unexpected warning: %q", plan.Warning)
	}
	for _, e := range plan.Exercises {
		if e.ExerciseName == "Goblet Squat" && e.DosageWarning == "" {
			t.Fatalf("expected dosage warning for U13 goblet squat: %+v", e)
		}
	}

	beginner := &domain.Profile{Age: 20, HeightCM: 175, WeightKG: 68, SkillLevel: "beginner", PlayingRole: "finisher"}
	if w := ex.ForGoal(beginner, "power").Warning; w != "Start with controlled movement before heavy resistance." {
		t.Fatalf("unexpected beginner warning: %q", w)
	}
	if w := ex.ForGoal(beginner, "endurance").Warning; w != "" {
		t.Fatalf("warnings apply to power hitting only, got %q", w)
	}
}

func TestForGoalNoExercises(t *testing.T) {
	vocab := Vocabulary()
	ex, err := ParseExercises([]byte(`{"batting_exercises":[{"name":"x","goals":["TIMING_CONTROL"]}]}`), vocab)
	if err != nil {
		t.Fatal(err)
	}
	plan := ex.ForGoal(&domain.Profile{Age: 20, HeightCM: 175, WeightKG: 68}, "power")
	if !plan.Error || plan.Message != "No exercises exist for this goal." {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestDetails(t *testing.T) {
	ex := newExercises(t)
	p := &domain.Profile{Age: 30, HeightCM: 175, WeightKG: 70, SkillLevel: "advanced", PlayingRole: "all rounder"}

	got, err := ex.Details(p, "  shuttle runs ")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if got.ExerciseName != "Shuttle Runs" || got.Reps != "6 shuttles" {
		t.Fatalf("unexpected detail: %+v", got)
	}
	if _, err := ex.Details(p, "bench press"); !errors.Is(err, ErrExerciseNotFound) {
		t.Fatalf("expected ErrExerciseNotFound, got %v", err)
	}
}
