// speaklab - Foreign Language Assessment API server
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
	"github.com/speaklab-io/speaklab/internal/api"
	"github.com/speaklab-io/speaklab/internal/audio"
	"github.com/speaklab-io/speaklab/internal/config"
	"github.com/speaklab-io/speaklab/internal/conversation"
	"github.com/speaklab-io/speaklab/internal/emailer"
	"github.com/speaklab-io/speaklab/internal/evaluation"
	"github.com/speaklab-io/speaklab/internal/middleware"
	"github.com/speaklab-io/speaklab/internal/report"
	"github.com/speaklab-io/speaklab/internal/session"
	"github.com/speaklab-io/speaklab/internal/store"
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
	manager := config.NewManager(cfg)

	slog.Info("Starting server", "port", cfg.Port, "standard", cfg.DefaultStandard)

	// Initialize dependencies.
	archive, err := store.NewSQLite(cfg.ArchiveDBPath)
	if err != nil {
		slog.Error("Failed to initialize archive database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := archive.Close(); closeErr != nil {
			slog.Error("Failed to close archive", "error", closeErr)
		}
	}()

	if err := archive.Ping(context.Background()); err != nil {
		slog.Error("Archive health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Archive database connected")

	reports, err := report.NewRegistry(cfg.ReportsDir, cfg.AppBaseURL)
	if err != nil {
		slog.Error("Failed to initialize report registry", "error", err)
		os.Exit(1)
	}

	audioStore, err := audio.NewStore(cfg.AudioDir)
	if err != nil {
		slog.Error("Failed to initialize audio store", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	sessions := session.NewStore()
	bank := conversation.NewBank(cfg.QuestionsPath, cfg.StandardConfigRoot)
	planner := conversation.NewPlanner(bank, cfg.DefaultStandard)
	engine := evaluation.NewOpenAIEngine(manager)
	evaluator := evaluation.NewDispatcher(sessions, engine)
	mailer := emailer.NewDispatcher(manager)

	handler := api.NewHandler(manager, sessions, planner, evaluator, reports, mailer, audioStore, archive)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.TrustedOrigins))

	handler.RegisterRoutes(r)

	// Serve the built frontend when present (SPA catch-all).
	if info, err := os.Stat(cfg.FrontendDir); err == nil && info.IsDir() {
		slog.Info("Serving frontend assets", "dir", cfg.FrontendDir)
		r.Handle("/*", http.FileServer(http.Dir(cfg.FrontendDir)))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // evaluation and email calls run inline
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
