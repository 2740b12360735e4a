package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/crickmate/coach/internal/catalogue"
	"github.com/crickmate/coach/internal/convlog"
	"github.com/crickmate/coach/internal/domain"
	"github.com/crickmate/coach/internal/identity"
	"github.com/crickmate/coach/internal/router"
	"github.com/crickmate/coach/internal/store"
)

// User-facing messages.
const (
	msgChatRequired   = "user_id & message required"
	msgUserNotFound   = "User not found"
	msgRegistered     = "User registered successfully"
	msgNoTechnicalHit = "Sorry, I couldn't match that to a technical area. Try asking more specific like 'improve timing' or 'fix footwork'."
)

// Dispatcher answers chat messages.
type Dispatcher interface {
	Process(ctx context.Context, userID string, p *domain.Profile, text string) router.Envelope
	Mode() router.Mode
}

// TechnicalLookup is the part of the technical catalogue the API serves directly.
type TechnicalLookup interface {
	SearchArea(text string) (*catalogue.Area, bool)
	FormatArea(a *catalogue.Area) catalogue.AreaDetail
	RolePriority(role string) catalogue.RolePriority
}

// ExerciseLookup is the exercise catalogue.
type ExerciseLookup interface {
	ForGoal(p *domain.Profile, text string) catalogue.ExercisePlan
	Details(p *domain.Profile, name string) (catalogue.PersonalisedExercise, error)
}

// ShotLookup answers free-text shot and fundamentals questions.
type ShotLookup interface {
	Answer(text string) string
}

// SessionViewer exposes read-only session memory.
type SessionViewer interface {
	Snapshot(userID string) (domain.SessionMemory, bool)
}

// Deps wires a CoachHandler. Transcripts and Limiter are optional.
type Deps struct {
	Repo         store.Repository
	Dispatcher   Dispatcher
	Technical    TechnicalLookup
	Exercises    ExerciseLookup
	Shots        ShotLookup
	Sessions     SessionViewer
	Transcripts  convlog.Logger
	Limiter      *RateLimiter
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// CoachHandler serves the coaching endpoints.
type CoachHandler struct {
	Deps
}

// NewCoachHandler creates a handler from deps.
func NewCoachHandler(d Deps) *CoachHandler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Transcripts == nil {
		d.Transcripts = convlog.Noop{}
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = defaultMaxRequestBodySize
	}
	return &CoachHandler{Deps: d}
}

// RegisterRoutes registers coaching routes.
func (h *CoachHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/register-user", h.RegisterUser)
		r.Get("/get-user/{user_id}", h.GetUser)
		r.Post("/chat", h.Chat)
		r.Post("/ask", h.Ask)
		r.Post("/ask-tech", h.AskTech)
		r.Post("/get-batting-exercises", h.BattingExercises)
		r.Post("/get-exercise-details", h.ExerciseDetails)
		r.Post("/get-technical-drills", h.TechnicalDrills)
		r.Post("/recommend-training", h.RecommendTraining)
		r.Get("/session/{user_id}", h.Session)
	})
}

// Home reports that the service is up.
func (h *CoachHandler) Home(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"message": "Crickmate AI Agent backend is live",
	})
}

// profileView is a stored profile with its derived groups.
type profileView struct {
	*domain.Profile
	AgeGroup string  `json:"age_group"`
	BMI      float64 `json:"bmi"`
	BMIGroup string  `json:"bmi_group"`
}

func viewOf(p *domain.Profile) profileView {
	return profileView{Profile: p, AgeGroup: p.AgeGroup(), BMI: p.BMI(), BMIGroup: p.BMIGroup()}
}

// RegisterUser validates and stores a new profile.
func (h *CoachHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var p domain.Profile
	if err := decodeJSON(w, r, h.MaxBodyBytes, &p); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := domain.ValidateProfile(&p); domain.IsInvalidProfile(err) {
		JSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	id, err := h.Repo.RegisterUser(r.Context(), &p)
	if err != nil {
		h.Logger.Error("Failed to register user", "error", err)
		JSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "failed to register user"})
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"user_id": id,
		"message": msgRegistered,
	})
}

// GetUser returns a stored profile.
func (h *CoachHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookupUser(w, r, chi.URLParam(r, "user_id"), func(w http.ResponseWriter) {
		JSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": msgUserNotFound})
	})
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "profile": viewOf(p)})
}

// lookupUser loads userID, writing notFound or a 500 on failure.
func (h *CoachHandler) lookupUser(w http.ResponseWriter, r *http.Request, userID string, notFound func(http.ResponseWriter)) (*domain.Profile, bool) {
	p, err := h.Repo.GetUser(r.Context(), userID)
	if errors.Is(err, store.ErrUserNotFound) {
		notFound(w)
		return nil, false
	}
	if err != nil {
		h.Logger.Error("Failed to load user", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load user")
		return nil, false
	}
	return p, true
}

func userNotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, msgUserNotFound)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Chat runs one message through the dispatcher.
func (h *CoachHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	userID := identity.Resolve(r.Context(), req.UserID)
	if userID == "" || strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, msgChatRequired)
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	p, ok := h.lookupUser(w, r, userID, userNotFound)
	if !ok {
		return
	}

	reqID := chiMiddleware.GetReqID(r.Context())
	h.Logger.Info("Chat request", "user_id", userID, "message_length", len(req.Message), "request_id", reqID)
	env := Converse(r.Context(), h.Dispatcher, h.Transcripts, "chat_http", userID, p, req.Message, reqID)
	JSON(w, http.StatusOK, env)
}

// Converse processes text for userID and records both sides of the
// exchange in the transcript log.
func Converse(ctx context.Context, d Dispatcher, log convlog.Logger, channel, userID string, p *domain.Profile, text, requestID string) router.Envelope {
	meta := map[string]any{"request_id": requestID, "mode": string(d.Mode())}
	log.Log(convlog.Event{
		UserID:     userID,
		Channel:    channel,
		Direction:  "inbound",
		EventType:  "chat_user_message",
		ContentRaw: text,
		Meta:       meta,
	})

	env := d.Process(ctx, userID, p, text)

	raw, err := json.Marshal(env)
	if err != nil {
		raw = []byte(env.Chat)
	}
	log.Log(convlog.Event{
		UserID:     userID,
		Channel:    channel,
		Direction:  "outbound",
		EventType:  "chat_assistant_message",
		ContentRaw: string(raw),
		Content:    env.Chat,
		Meta:       map[string]any{"request_id": requestID, "entries": len(env.OrderedResponses)},
	})
	return env
}

// Ask answers a shot or fundamentals question without a profile.
func (h *CoachHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message *string `json:"message"`
	}
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil || req.Message == nil {
		Error(w, http.StatusBadRequest, "Missing message field")
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"user_input":     *req.Message,
		"agent_response": h.Shots.Answer(*req.Message),
	})
}

type userRequest struct {
	UserID       string `json:"user_id"`
	Question     string `json:"question"`
	Goal         string `json:"goal"`
	ExerciseName string `json:"exercise_name"`
}

// decodeUserRequest decodes req, resolves the user id and loads the
// profile. missing is the 400 message when the user id is absent.
func (h *CoachHandler) decodeUserRequest(w http.ResponseWriter, r *http.Request, missing string) (userRequest, *domain.Profile, bool) {
	var req userRequest
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		Error(w, http.StatusBadRequest, missing)
		return req, nil, false
	}
	req.UserID = identity.Resolve(r.Context(), req.UserID)
	if req.UserID == "" {
		Error(w, http.StatusBadRequest, missing)
		return req, nil, false
	}
	p, ok := h.lookupUser(w, r, req.UserID, userNotFound)
	return req, p, ok
}

// AskTech maps a free-text question to a technical area.
func (h *CoachHandler) AskTech(w http.ResponseWriter, r *http.Request) {
	req, _, ok := h.decodeUserRequest(w, r, "Missing user_id or question")
	if !ok {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		Error(w, http.StatusBadRequest, "Missing user_id or question")
		return
	}
	area, found := h.Technical.SearchArea(strings.ToLower(req.Question))
	if !found {
		JSON(w, http.StatusOK, map[string]string{"response": msgNoTechnicalHit})
		return
	}
	JSON(w, http.StatusOK, h.Technical.FormatArea(area))
}

// BattingExercises returns the personalised plan for a goal.
func (h *CoachHandler) BattingExercises(w http.ResponseWriter, r *http.Request) {
	req, p, ok := h.decodeUserRequest(w, r, "Missing user_id or goal")
	if !ok {
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		Error(w, http.StatusBadRequest, "Missing user_id or goal")
		return
	}
	JSON(w, http.StatusOK, h.Exercises.ForGoal(p, req.Goal))
}

// ExerciseDetails returns one personalised exercise.
func (h *CoachHandler) ExerciseDetails(w http.ResponseWriter, r *http.Request) {
	req, p, ok := h.decodeUserRequest(w, r, "Missing user_id or exercise_name")
	if !ok {
		return
	}
	if strings.TrimSpace(req.ExerciseName) == "" {
		Error(w, http.StatusBadRequest, "Missing user_id or exercise_name")
		return
	}
	ex, err := h.Exercises.Details(p, req.ExerciseName)
	if errors.Is(err, catalogue.ErrExerciseNotFound) {
		Error(w, http.StatusNotFound, "Exercise not found.")
		return
	}
	if err != nil {
		h.Logger.Error("Failed to load exercise", "exercise", req.ExerciseName, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load exercise")
		return
	}
	JSON(w, http.StatusOK, ex)
}

// TechnicalDrills returns the category priorities for the user's role.
func (h *CoachHandler) TechnicalDrills(w http.ResponseWriter, r *http.Request) {
	_, p, ok := h.decodeUserRequest(w, r, "Missing user_id")
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.Technical.RolePriority(p.Role()))
}

// RecommendTraining returns the baseline plan.
func (h *CoachHandler) RecommendTraining(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"training_plan": map[string]any{
			"drills":    []string{"Basic conditioning drills", "Light skill practice"},
			"intensity": "Medium",
			"frequency": "3 days per week",
		},
	})
}

// Session returns a copy of a user's conversation memory.
func (h *CoachHandler) Session(w http.ResponseWriter, r *http.Request) {
	mem, ok := h.Sessions.Snapshot(chi.URLParam(r, "user_id"))
	if !ok {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, mem)
}
