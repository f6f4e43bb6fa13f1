package handlers

import (
	"net/http"

	"harmonia/internal/events"
	"harmonia/internal/security"
	"harmonia/internal/service"
	"harmonia/internal/world"
)

// Dependencies are the services the HTTP API is built on
type Dependencies struct {
	Auth       *service.AuthService
	Difficulty *service.DifficultyService
	Death      *service.DeathPenaltyService
	Currency   *service.CurrencyService
	Backup     *service.BackupService
	World      *world.Registry
	Bus        *events.Bus
	Limiter    *security.RateLimiter
	// CheckOrigin overrides the websocket origin check; nil allows same-origin only
	CheckOrigin func(r *http.Request) bool
}

// NewRouter builds the API routes wrapped in request logging
func NewRouter(d Dependencies) http.Handler {
	middleware := NewMiddleware(d.Auth, d.Limiter)
	authHandler := NewAuthHandler(d.Auth)
	gameHandler := NewGameHandler(d.Difficulty, d.Death, d.Currency)
	worldHandler := NewWorldHandler(d.World)
	adminHandler := NewAdminHandler(d.Auth, d.Difficulty, d.Death, d.Currency, d.Backup)
	eventsHandler := NewEventsHandler(d.Bus, d.CheckOrigin)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/login", middleware.RateLimit(authHandler.Login))

	// Difficulty
	mux.HandleFunc("GET /api/difficulty", middleware.RequireAuth(gameHandler.GetDifficulty))
	mux.HandleFunc("POST /api/difficulty/recalculate", middleware.RequireAuth(gameHandler.Recalculate))
	mux.HandleFunc("POST /api/reports/{kind}", middleware.RequireAuth(gameHandler.Report))

	// Death penalty
	mux.HandleFunc("POST /api/death", middleware.RequireAuth(gameHandler.Death))
	mux.HandleFunc("GET /api/death-state", middleware.RequireAuth(gameHandler.GetDeathState))
	mux.HandleFunc("GET /api/echoes/{id}", middleware.RequireAuth(gameHandler.GetEcho))
	mux.HandleFunc("POST /api/echoes/{id}/recover", middleware.RequireAuth(gameHandler.RecoverEcho))

	// Currency
	mux.HandleFunc("GET /api/wallet", middleware.RequireAuth(gameHandler.GetWallet))
	mux.HandleFunc("POST /api/wallet/grant", middleware.RequireAdmin(adminHandler.Grant))

	// World
	mux.HandleFunc("GET /api/world/hostiles", middleware.RequireAuth(worldHandler.ListHostiles))
	mux.HandleFunc("PUT /api/world/hostiles/{id}", middleware.RequireAuth(worldHandler.PutHostile))
	mux.HandleFunc("DELETE /api/world/hostiles/{id}", middleware.RequireAuth(worldHandler.DeleteHostile))

	// Admin routes
	mux.HandleFunc("POST /api/admin/players/{id}/reset", middleware.RequireAdmin(adminHandler.ResetDeathPenalty))
	mux.HandleFunc("POST /api/admin/players/{id}/new-game", middleware.RequireAdmin(adminHandler.NewGame))
	mux.HandleFunc("GET /api/admin/backup", middleware.RequireAdmin(adminHandler.ExportDatabase))

	// Live events
	mux.HandleFunc("GET /api/events", middleware.RequireAuth(eventsHandler.Stream))

	return Logging(mux)
}
