package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/crickmate/coach/internal/api"
	"github.com/crickmate/coach/internal/convlog"
	"github.com/crickmate/coach/internal/identity"
	"github.com/crickmate/coach/internal/store"
)

const (
	writeTimeout = 10 * time.Second
	readLimit    = 64 << 10
)

// Config wires a Handler. Transcripts and Limiter are optional.
type Config struct {
	Repo           store.Repository
	Dispatcher     api.Dispatcher
	Conns          *ConnManager
	Transcripts    convlog.Logger
	Limiter        *api.RateLimiter
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Handler serves /ws/chat. Each text frame {"message": "..."} is answered
// with one dispatcher envelope.
type Handler struct {
	cfg      Config
	patterns []string
	nextID   atomic.Uint64
}

// NewHandler creates a chat websocket handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transcripts == nil {
		cfg.Transcripts = convlog.Noop{}
	}
	if cfg.Conns == nil {
		cfg.Conns = NewConnManager(cfg.Logger)
	}
	return &Handler{cfg: cfg, patterns: originPatterns(cfg.AllowedOrigins)}
}

// originPatterns converts allowed origin URLs to the host patterns the
// websocket library matches against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}

type inbound struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// ServeHTTP upgrades the request and runs the read loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.cfg.Logger
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user_id required")
		return
	}

	profile, err := h.cfg.Repo.GetUser(r.Context(), userID)
	if errors.Is(err, store.ErrUserNotFound) {
		api.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Error("Failed to load user for chat socket", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.patterns})
	if err != nil {
		log.Warn("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(readLimit)
	log.Info("Chat socket opened", "user_id", userID, "ip", identity.IPFromRequest(r))
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			log.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	connID := strconv.FormatUint(h.nextID.Add(1), 10)
	h.cfg.Conns.Register(userID, connID, ws)
	defer h.cfg.Conns.Unregister(userID, connID, ws)

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				log.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			msg.Message = string(data)
		}

		var reply any
		switch {
		case msg.Type == "ping":
			reply = map[string]string{"type": "pong"}
		case strings.TrimSpace(msg.Message) == "":
			reply = map[string]string{"error": "message required"}
		case h.cfg.Limiter != nil && !h.cfg.Limiter.Allow(userID):
			reply = map[string]string{"error": "rate limit exceeded"}
		default:
			reply = api.Converse(ctx, h.cfg.Dispatcher, h.cfg.Transcripts, "chat_ws", userID, profile, msg.Message, "ws-"+connID)
		}

		if err := writeJSON(ctx, ws, reply); err != nil {
			log.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
