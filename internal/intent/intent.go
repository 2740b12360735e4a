// Package intent classifies chat messages into coaching intents using an
// external model. Classification is optional: callers degrade to Unknown.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Intent is a coarse label for what a message asks for.
type Intent string

// Recognised intents.
const (
	TechnicalDrill   Intent = "TECHNICAL_DRILL"
	Exercise         Intent = "EXERCISE"
	FundamentalInfo  Intent = "FUNDAMENTAL_INFO"
	ShotInfo         Intent = "SHOT_INFO"
	GeneralKnowledge Intent = "GENERAL_KNOWLEDGE"
	CodeInput        Intent = "CODE_INPUT"
	Unknown          Intent = "UNKNOWN"
)

// ErrUnavailable is returned when no classifier backend can be reached.
var ErrUnavailable = errors.New("intent classifier unavailable")

var errEmptyReply = errors.New("empty classifier reply")

// ParseIntent maps a label to an Intent. Unrecognised labels map to Unknown.
func ParseIntent(label string) Intent {
	switch in := Intent(strings.ToUpper(strings.TrimSpace(label))); in {
	case TechnicalDrill, Exercise, FundamentalInfo, ShotInfo, GeneralKnowledge, CodeInput:
		return in
	default:
		return Unknown
	}
}

// Result is the outcome of classifying one message.
type Result struct {
	Intent  Intent `json:"intent"`
	Subject string `json:"subject"`
}

// Fallback is the result used when classification fails.
func Fallback(text string) Result {
	return Result{Intent: Unknown, Subject: text}
}

// Classifier labels a message with an intent and a cleaned-up subject.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Guard calls c and converts any error or panic into Fallback(text).
// A nil classifier also yields the fallback.
func Guard(ctx context.Context, c Classifier, text string, logger *slog.Logger) (res Result) {
	if logger == nil {
		logger = slog.Default()
	}
	res = Fallback(text)
	if c == nil {
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Intent classifier panicked", "panic", r)
			res = Fallback(text)
		}
	}()

	out, err := c.Classify(ctx, text)
	if err != nil {
		logger.Warn("Intent classification failed, using raw text", "error", err)
		return Fallback(text)
	}
	if strings.TrimSpace(out.Subject) == "" {
		out.Subject = text
	}
	out.Intent = ParseIntent(string(out.Intent))
	return out
}

// parseReply decodes a model reply of the form {"intent": "...", "subject": "..."}.
// Markdown code fences around the JSON are tolerated.
func parseReply(reply, text string) (Result, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Result{}, errEmptyReply
	}

	var raw struct {
		Intent  string `json:"intent"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return Result{}, fmt.Errorf("decode classifier reply: %w", err)
	}
	res := Result{Intent: ParseIntent(raw.Intent), Subject: strings.TrimSpace(raw.Subject)}
	if res.Subject == "" {
		res.Subject = text
	}
	return res, nil
}
