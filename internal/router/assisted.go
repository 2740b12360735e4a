package router

import (
	"strings"

	"github.com/crickmate/coach/internal/catalogue"
	"github.com/crickmate/coach/internal/intent"
)

// assisted classifies the whole message once and answers a single topic.
type assisted struct {
	d *Dispatcher
}

func (a assisted) route(r *request, msg string) Envelope {
	d := a.d
	res := intent.Guard(r.ctx, d.classifier, msg, d.logger)
	subject := strings.ToLower(strings.TrimSpace(res.Subject))
	if subject == "" {
		subject = msg
	}

	kind := res.Intent
	if kind == intent.Unknown && catalogue.ContainsAny(msg, d.vocab.GeneralKnowledgeTriggers) {
		if _, ok := d.tech.SearchArea(subject); !ok {
			kind = intent.GeneralKnowledge
		}
	}
	d.logger.Debug("Message classified", "user_id", r.userID, "intent", kind, "subject", subject)

	return Envelope{Chat: ChatDefault, OrderedResponses: []Entry{a.handle(r, kind, subject)}}
}

func (a assisted) handle(r *request, kind intent.Intent, subject string) Entry {
	d := a.d
	switch kind {
	case intent.Exercise:
		return d.detect(r, subject, []detector{{"exercise", func(r *request, seg string) (outcome, bool) {
			return d.exerciseOutcome(r, seg), true
		}}})
	case intent.TechnicalDrill:
		return d.detect(r, subject, []detector{
			{"category", d.matchCategory},
			{"area_search", d.matchAreaSearch},
			{"role_priority", d.matchRolePriority},
		})
	case intent.FundamentalInfo, intent.ShotInfo:
		return d.detect(r, subject, []detector{
			{"fundamental", d.matchFundamental},
			{"shot", d.matchShot},
			{"roadmap", d.matchRoadmap},
			{"unknown", d.matchUnknown},
		})
	case intent.GeneralKnowledge:
		return d.generalKnowledge(r, subject)
	case intent.CodeInput:
		if env, ok := d.fastPath(r, subject); ok {
			return codeEntry(subject, env)
		}
		return d.detect(r, subject, d.cascade)
	default:
		return d.detect(r, subject, d.cascade)
	}
}

// codeEntry folds a fast-path envelope into a single entry so the assisted
// reply keeps the ordered_responses shape.
func codeEntry(subject string, env Envelope) Entry {
	if env.TechnicalDrills != nil {
		return Entry{Type: TypeTechnicalDrills, Input: subject, Result: DrillsResult{
			AreaID:      env.TechnicalDrills.AreaID,
			Found:       true,
			Drills:      env.TechnicalDrills.Returned,
			Remaining:   env.TechnicalDrills.Remaining,
			Instruction: InstructionMore,
		}}
	}
	return env.OrderedResponses[0]
}

func (d *Dispatcher) matchRolePriority(r *request, seg string) (outcome, bool) {
	return outcome{entry: Entry{
		Type:   TypeBattingRolePriority,
		Input:  seg,
		Result: d.tech.RolePriority(r.profile.Role()),
	}}, true
}

func (d *Dispatcher) matchRoadmap(_ *request, seg string) (outcome, bool) {
	answer := d.shots.Answer(seg)
	if answer == catalogue.MsgShotNotIdentified {
		return outcome{}, false
	}
	return outcome{entry: Entry{Type: TypeShot, Input: seg, Result: answer}}, true
}

func (d *Dispatcher) generalKnowledge(r *request, subject string) (entry Entry) {
	entry = Entry{Type: TypeGeneralKnowledge, Input: subject, Result: MsgNoGeneralKnowledge}
	if d.knowledge == nil {
		return entry
	}
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("Knowledge retriever panicked", "user_id", r.userID, "panic", rec)
			entry.Result = MsgNoGeneralKnowledge
		}
	}()
	if text, ok := d.knowledge.Search(r.ctx, subject); ok {
		entry.Result = text
	}
	return entry
}
