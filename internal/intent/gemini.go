package intent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

const systemPrompt = `You are the intent router of a cricket coaching app.
Analyse the user's message and return a JSON object with:
- "intent": one of [TECHNICAL_DRILL, EXERCISE, FUNDAMENTAL_INFO, SHOT_INFO, GENERAL_KNOWLEDGE, CODE_INPUT]
- "subject": the specific cricket topic, corrected for typos.

GUIDELINES:
1. TECHNICAL_DRILL: the user wants to improve or practise a skill (batting, footwork, timing).
2. EXERCISE: fitness or gym work (strength, stamina, warm up).
3. FUNDAMENTAL_INFO: "what is" or "how to hold" questions.
4. GENERAL_KNOWLEDGE: history, rules, records or player facts.
5. CODE_INPUT: short codes like "A1", "B2" or "more".
6. SHOT_INFO: how to play a specific shot (cut shot, cover drive, pull shot).

EXAMPLES:
- "improve powet hitting" -> {"intent": "TECHNICAL_DRILL", "subject": "power hitting"}
- "drils for foot wrk" -> {"intent": "TECHNICAL_DRILL", "subject": "footwork"}
- "fitness for batting" -> {"intent": "EXERCISE", "subject": "batting fitness"}
- "who is sachin?" -> {"intent": "GENERAL_KNOWLEDGE", "subject": "Sachin Tendulkar"}
- "A2" -> {"intent": "CODE_INPUT", "subject": "A2"}
- "drills for cut shot" -> {"intent": "SHOT_INFO", "subject": "cut shot"}

Return ONLY raw JSON.`

// generator is the subset of *genai.Models used by Gemini.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures the Gemini classifier.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini classifies messages with a Gemini model.
type Gemini struct {
	models  generator
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGemini creates a Gemini classifier.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY is required", ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGemini(client.Models, cfg, logger), nil
}

func newGemini(models generator, cfg GeminiConfig, logger *slog.Logger) *Gemini {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	return &Gemini{models: models, model: cfg.Model, timeout: cfg.Timeout, logger: logger}
}

// Classify implements Classifier.
func (g *Gemini) Classify(ctx context.Context, text string) (Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text("User Query: "+text), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return Result{}, fmt.Errorf("gemini classify: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return Result{}, fmt.Errorf("gemini classify: %w", errEmptyReply)
	}

	res, err := parseReply(resp.Text(), text)
	if err != nil {
		return Result{}, fmt.Errorf("gemini classify: %w", err)
	}
	g.logger.Debug("Gemini classified message", "intent", res.Intent, "duration", time.Since(start))
	return res, nil
}
