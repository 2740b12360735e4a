package catalogue

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/crickmate/coach/internal/domain"
)

//go:embed data/batting_exercises.json
var exercisesJSON []byte

// Exercise goals.
const (
	GoalPowerHitting     = "POWER_HITTING"
	GoalEnduranceFitness = "ENDURANCE_FITNESS"
	GoalTimingControl    = "TIMING_CONTROL"
	GoalFootworkAgility  = "FOOTWORK_AGILITY"

	goalAll = "ALL"
	bmiAll  = "All"
)

// ErrExerciseNotFound is returned by Details for an unknown exercise name.
var ErrExerciseNotFound = errors.New("exercise not found")

// Prescription is the dosage of an exercise for an age group and BMI groups.
type Prescription struct {
	AgeGroup    string   `json:"age_group"`
	BMIGroups   []string `json:"bmi_groups"`
	Sets        int      `json:"sets"`
	Reps        string   `json:"reps"`
	RestSeconds int      `json:"rest_seconds"`
	Notes       string   `json:"notes"`
}

// Exercise is a conditioning exercise as stored in the catalogue.
type Exercise struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Goals         []string       `json:"goals"`
	Equipment     string         `json:"equipment"`
	Benefits      []string       `json:"benefits"`
	HowTo         []string       `json:"how_to"`
	SafetyNotes   string         `json:"safety_notes"`
	RolePriority  []string       `json:"role_priority"`
	Prescriptions []Prescription `json:"prescriptions"`
}

// PersonalisedExercise is an exercise with the dosage for one player.
type PersonalisedExercise struct {
	ExerciseName       string   `json:"exercise_name"`
	ExerciseType       string   `json:"exercise_type"`
	Equipment          string   `json:"equipment"`
	Benefits           []string `json:"benefits"`
	HowToDo            []string `json:"how_to_do"`
	SafetyNotes        string   `json:"safety_notes"`
	RecommendedForRole bool     `json:"recommended_for_role"`
	Sets               int      `json:"sets,omitempty"`
	Reps               string   `json:"reps,omitempty"`
	RestSeconds        int      `json:"rest_seconds,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	DosageWarning      string   `json:"dosage_warning,omitempty"`
}

// ExercisePlan is the result of a goal lookup. Error plans carry only a
// message.
type ExercisePlan struct {
	Error               bool                   `json:"error,omitempty"`
	Message             string                 `json:"message,omitempty"`
	GoalDetected        string                 `json:"goal_detected,omitempty"`
	TotalExercisesFound int                    `json:"total_exercises_found,omitempty"`
	Warning             string                 `json:"warning,omitempty"`
	Exercises           []PersonalisedExercise `json:"exercises,omitempty"`
}

// Exercises is the batting exercise catalogue.
type Exercises struct {
	exercises []Exercise
	goals     []KeywordGoal
}

// NewExercises loads the embedded exercise catalogue.
func NewExercises() (*Exercises, error) {
	return ParseExercises(exercisesJSON, Vocabulary())
}

// ParseExercises builds a catalogue from a batting_exercises document.
func ParseExercises(data []byte, vocab *Vocab) (*Exercises, error) {
	var doc struct {
		Exercises []Exercise `json:"batting_exercises"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse exercise catalogue: %w", err)
	}
	return &Exercises{exercises: doc.Exercises, goals: vocab.ExerciseGoals}, nil
}

// DetectGoal maps text to a goal. Unmatched text defaults to power hitting.
func (e *Exercises) DetectGoal(text string) string {
	text = strings.ToLower(text)
	for _, g := range e.goals {
		if strings.Contains(text, g.Keyword) {
			return g.Goal
		}
	}
	return GoalPowerHitting
}

// ForGoal returns every exercise for the goal found in text, personalised
// for the player.
func (e *Exercises) ForGoal(p *domain.Profile, text string) ExercisePlan {
	goal := e.DetectGoal(text)

	var matches []Exercise
	for _, ex := range e.exercises {
		if slices.Contains(ex.Goals, goal) || slices.Contains(ex.Goals, goalAll) {
			matches = append(matches, ex)
		}
	}
	if len(matches) == 0 {
		return ExercisePlan{Error: true, Message: "No exercises exist for this goal."}
	}

	out := make([]PersonalisedExercise, 0, len(matches))
	for _, ex := range matches {
		out = append(out, personalise(p, ex))
	}
	return ExercisePlan{
		GoalDetected:        goal,
		TotalExercisesFound: len(matches),
		Warning:             goalWarning(p, goal),
		Exercises:           out,
	}
}

// Details returns one exercise by name, ignoring case.
func (e *Exercises) Details(p *domain.Profile, name string) (PersonalisedExercise, error) {
	for _, ex := range e.exercises {
		if strings.EqualFold(ex.Name, strings.TrimSpace(name)) {
			return personalise(p, ex), nil
		}
	}
	return PersonalisedExercise{}, fmt.Errorf("%w: %s", ErrExerciseNotFound, name)
}

func personalise(p *domain.Profile, ex Exercise) PersonalisedExercise {
	out := PersonalisedExercise{
		ExerciseName:       ex.Name,
		ExerciseType:       ex.Type,
		Equipment:          ex.Equipment,
		Benefits:           ex.Benefits,
		HowToDo:            ex.HowTo,
		SafetyNotes:        ex.SafetyNotes,
		RecommendedForRole: slices.Contains(ex.RolePriority, p.Role()),
	}
	if pres, ok := findPrescription(p, ex); ok {
		out.Sets = pres.Sets
		out.Reps = pres.Reps
		out.RestSeconds = pres.RestSeconds
		out.Notes = pres.Notes
	} else {
		out.DosageWarning = "Exercise exists but no matching dosage for your age/BMI profile."
	}
	return out
}

func findPrescription(p *domain.Profile, ex Exercise) (Prescription, bool) {
	age, bmi := p.AgeGroup(), p.BMIGroup()
	for _, pres := range ex.Prescriptions {
		if pres.AgeGroup != age {
			continue
		}
		if slices.Contains(pres.BMIGroups, bmiAll) || slices.Contains(pres.BMIGroups, bmi) {
			return pres, true
		}
	}
	return Prescription{}, false
}

func goalWarning(p *domain.Profile, goal string) string {
	if goal != GoalPowerHitting {
		return ""
	}
	if p.BMIGroup() == "Underweight" {
		return "You are underweight. Avoid heavy overload training."
	}
	if strings.EqualFold(p.SkillLevel, domain.SkillBeginner) {
		return "Start with controlled movement before heavy resistance."
	}
	return ""
}
