package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/futebolada/internal/api/handler"
	"github.com/mcoot/futebolada/internal/api/middleware"
	"github.com/mcoot/futebolada/internal/notify"
	"github.com/mcoot/futebolada/internal/services/auth"
	"github.com/mcoot/futebolada/internal/services/enrollment"
	"github.com/mcoot/futebolada/internal/services/games"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	AuthService       *auth.Service
	GamesService      *games.Service
	EnrollmentService *enrollment.Service
	// Notifier announces roster changes; nil disables announcements
	Notifier notify.Notifier
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	adminHandler := handler.NewAdminHandler(cfg.AuthService)
	gameHandler := handler.NewGameHandler(cfg.GamesService, cfg.EnrollmentService)
	enrollmentHandler := handler.NewEnrollmentHandler(cfg.GamesService, cfg.EnrollmentService, cfg.Notifier, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequestID)
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Account routes (no auth required for registering/logging in)
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	// Public game routes
	api.HandleFunc("/games", gameHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/games/past", gameHandler.Past).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/positions", gameHandler.Positions).Methods(http.MethodGet)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/me", authHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/me", authHandler.UpdateMe).Methods(http.MethodPatch)
	protected.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/games/{id}/guests", gameHandler.Guests).Methods(http.MethodGet)
	protected.HandleFunc("/games/{id}/guests", enrollmentHandler.EnrollGuest).Methods(http.MethodPost)
	protected.HandleFunc("/games/{id}/enrollments", enrollmentHandler.EnrollSelf).Methods(http.MethodPost)
	protected.HandleFunc("/games/{id}/enrollments/{playerId}", enrollmentHandler.Unenroll).Methods(http.MethodDelete)
	protected.HandleFunc("/games/{id}/enrollments/{enrollmentId}/team", enrollmentHandler.AssignTeam).Methods(http.MethodPut)
	protected.HandleFunc("/games/{id}/winner", enrollmentHandler.DeclareWinner).Methods(http.MethodPut)
	protected.HandleFunc("/admin/promote", adminHandler.Promote).Methods(http.MethodPost)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
