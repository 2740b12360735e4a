package router

import (
	"fmt"
	"strings"

	"github.com/crickmate/coach/internal/catalogue"
	"github.com/crickmate/coach/internal/domain"
)

// outcome is a detector match. apply, when set, records the match in
// session memory and runs only for the winning detector.
type outcome struct {
	entry Entry
	apply func(m *domain.SessionMemory)
}

// detector is one rung of the cascade.
type detector struct {
	name  string
	match func(r *request, seg string) (outcome, bool)
}

// detect runs the cascade over seg and returns the first match. The last
// rung always matches.
func (d *Dispatcher) detect(r *request, seg string, cascade []detector) Entry {
	for _, det := range cascade {
		out, ok := det.match(r, seg)
		if !ok {
			continue
		}
		if out.apply != nil {
			out.apply(r.mem)
		}
		d.logger.Debug("Segment matched", "user_id", r.userID, "detector", det.name, "segment", seg)
		return out.entry
	}
	return d.unknownEntry(seg)
}

// segmentCascade is the priority order used by segmented dispatch.
func (d *Dispatcher) segmentCascade() []detector {
	return []detector{
		{"exercise", d.matchExercise},
		{"shot", d.matchShot},
		{"fundamental", d.matchFundamental},
		{"category", d.matchCategory},
		{"category_letter", d.matchCategoryLetter},
		{"area_code", d.matchAreaCode},
		{"area_search", d.matchAreaSearch},
		{"improve_batting", d.matchImproveBatting},
		{"unknown", d.matchUnknown},
	}
}

func (d *Dispatcher) matchExercise(r *request, seg string) (outcome, bool) {
	if !catalogue.ContainsAny(seg, d.vocab.ExerciseWords) {
		return outcome{}, false
	}
	return d.exerciseOutcome(r, seg), true
}

func (d *Dispatcher) exerciseOutcome(r *request, text string) outcome {
	plan := d.exercises.ForGoal(r.profile, text)
	goal := plan.GoalDetected
	if goal == "" {
		goal = strings.ToUpper(text)
	}
	return outcome{
		entry: Entry{Type: TypeExercise, Input: text, Result: plan},
		apply: func(m *domain.SessionMemory) { m.LastExerciseGoal = goal },
	}
}

func (d *Dispatcher) matchShot(_ *request, seg string) (outcome, bool) {
	key, ok := d.shots.DetectShot(seg)
	if !ok {
		return outcome{}, false
	}
	return outcome{
		entry: Entry{Type: TypeShot, Input: seg, Result: d.shots.Answer(seg)},
		apply: func(m *domain.SessionMemory) { m.LastShot = key },
	}, true
}

func (d *Dispatcher) matchFundamental(_ *request, seg string) (outcome, bool) {
	key, ok := d.shots.DetectFundamental(seg)
	if !ok {
		return outcome{}, false
	}
	return outcome{
		entry: Entry{Type: TypeFundamental, Input: seg, Result: d.shots.FormatFundamental(key)},
		apply: func(m *domain.SessionMemory) { m.LastFundamental = key },
	}, true
}

func (d *Dispatcher) matchCategory(_ *request, seg string) (outcome, bool) {
	cat, ok := d.tech.FindCategory(seg)
	if !ok {
		return outcome{}, false
	}
	return d.categoryOutcome(seg, cat), true
}

func (d *Dispatcher) matchCategoryLetter(_ *request, seg string) (outcome, bool) {
	if !letterPattern.MatchString(seg) {
		return outcome{}, false
	}
	cat, ok := d.tech.Category(strings.ToUpper(seg))
	if !ok {
		return outcome{}, false
	}
	return d.categoryOutcome(seg, cat), true
}

func (d *Dispatcher) categoryOutcome(input string, cat *catalogue.Category) outcome {
	id := cat.ID
	return outcome{
		entry: d.categoryEntry(input, cat),
		apply: func(m *domain.SessionMemory) { m.SelectCategory(id) },
	}
}

// matchAreaCode handles "a2 drills" style segments. An unknown code still
// matches and reports the miss without touching memory.
func (d *Dispatcher) matchAreaCode(_ *request, seg string) (outcome, bool) {
	code := codePrefix.FindString(seg)
	if code == "" {
		return outcome{}, false
	}
	area := strings.ToUpper(code)
	page := d.tech.Drills(area, 0, domain.DrillPageSize)
	if !page.Found {
		return outcome{entry: Entry{
			Type:  TypeTechnicalDrills,
			Input: seg,
			Result: DrillsResult{
				AreaID:  area,
				Found:   false,
				Drills:  []catalogue.DrillDetail{},
				Message: fmt.Sprintf(msgAreaNotFoundTemplate, area),
			},
		}}, true
	}
	return outcome{
		entry: Entry{
			Type:  TypeTechnicalDrills,
			Input: seg,
			Result: DrillsResult{
				AreaID:      area,
				Found:       true,
				Drills:      page.Returned,
				Remaining:   page.Remaining,
				Instruction: InstructionMore,
			},
		},
		apply: func(m *domain.SessionMemory) { m.SelectArea(area) },
	}, true
}

func (d *Dispatcher) matchAreaSearch(_ *request, seg string) (outcome, bool) {
	area, ok := d.tech.SearchArea(seg)
	if !ok {
		return outcome{}, false
	}
	return outcome{entry: Entry{Type: TypeTechnicalDirect, Input: seg, Result: d.tech.FormatArea(area)}}, true
}

func (d *Dispatcher) matchImproveBatting(r *request, seg string) (outcome, bool) {
	if !strings.Contains(seg, "improve") || !strings.Contains(seg, "batting") {
		return outcome{}, false
	}
	return outcome{entry: Entry{
		Type:   TypeBattingOverview,
		Input:  seg,
		Result: d.tech.RolePriority(r.profile.Role()),
	}}, true
}

func (d *Dispatcher) matchUnknown(_ *request, seg string) (outcome, bool) {
	return outcome{entry: d.unknownEntry(seg)}, true
}
