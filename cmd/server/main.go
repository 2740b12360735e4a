// Crickmate - cricket coaching chat server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/crickmate/coach/internal/api"
	"github.com/crickmate/coach/internal/app"
	"github.com/crickmate/coach/internal/chatws"
	"github.com/crickmate/coach/internal/config"
	"github.com/crickmate/coach/internal/convlog"
	"github.com/crickmate/coach/internal/identity"
	"github.com/crickmate/coach/internal/middleware"
	"github.com/crickmate/coach/internal/store"
	"github.com/crickmate/coach/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "dispatch_mode", cfg.DispatchMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.NewSQLite(cfg.DBPath, logger)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	core, err := app.Build(ctx, cfg, "", logger)
	if err != nil {
		slog.Error("Failed to initialize dispatcher", "error", err)
		os.Exit(1)
	}
	defer core.Close()

	sweeperDone := core.Sessions.StartSweeper(ctx, cfg.Session.SweepInterval)

	transcripts, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
		MaxOpenFiles:  cfg.ConversationLog.MaxOpenFiles,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Close()

	allowedOrigins := middleware.AllowedOrigins(cfg.FrontendURL, cfg.IsDevelopment())

	coachHandler := api.NewCoachHandler(api.Deps{
		Repo:         repo,
		Dispatcher:   core.Dispatcher,
		Technical:    core.Technical,
		Exercises:    core.Exercises,
		Shots:        core.Shots,
		Sessions:     core.Sessions,
		Transcripts:  transcripts,
		Limiter:      limiter,
		MaxBodyBytes: cfg.MaxRequestBodyBytes,
		Logger:       logger,
	})

	conns := chatws.NewConnManager(logger)
	wsHandler := chatws.NewHandler(chatws.Config{
		Repo:           repo,
		Dispatcher:     core.Dispatcher,
		Conns:          conns,
		Transcripts:    transcripts,
		Limiter:        limiter,
		AllowedOrigins: allowedOrigins,
		Logger:         logger,
	})

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins, identity.UserHeaderName))
	r.Use(identity.Middleware)

	coachHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Embedded chat page.
	chatPage := web.Handler()
	r.Method(http.MethodGet, "/chat", chatPage)
	r.Method(http.MethodHead, "/chat", chatPage)

	// WebSocket connections are long lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conns.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	<-sweeperDone

	slog.Info("Server stopped successfully")
}
