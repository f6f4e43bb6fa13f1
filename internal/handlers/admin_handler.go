package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"harmonia/internal/models"
	"harmonia/internal/service"
)

// AdminHandler handles administrator operations
type AdminHandler struct {
	authService   *service.AuthService
	difficulty    *service.DifficultyService
	death         *service.DeathPenaltyService
	currency      *service.CurrencyService
	backupService *service.BackupService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *service.AuthService, difficulty *service.DifficultyService, death *service.DeathPenaltyService, currency *service.CurrencyService, backupService *service.BackupService) *AdminHandler {
	return &AdminHandler{
		authService:   authService,
		difficulty:    difficulty,
		death:         death,
		currency:      currency,
		backupService: backupService,
	}
}

type grantRequest struct {
	PlayerID string              `json:"player_id"`
	Currency models.CurrencyType `json:"currency"`
	Amount   int64               `json:"amount"`
}

type resetResponse struct {
	PlayerID   string            `json:"player_id"`
	Reset      bool              `json:"reset"`
	DeathState models.DeathState `json:"death_state"`
}

// Grant credits currency to any player
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	admin := GetPlayerFromContext(r.Context())
	var req grantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.authService.GetPlayer(req.PlayerID); err != nil {
		respondServiceError(w, "Error loading player", err)
		return
	}

	balances, err := h.currency.Grant(req.PlayerID, req.Currency, req.Amount)
	if err != nil {
		respondServiceError(w, "Error granting currency", err)
		return
	}
	log.Printf("Admin %s granted %d %s to player %s", admin.Name, req.Amount, req.Currency, req.PlayerID)
	respondJSON(w, http.StatusOK, walletResponse{PlayerID: req.PlayerID, Balances: balances})
}

// ResetDeathPenalty destroys a player's echo without payout and clears their state
func (h *AdminHandler) ResetDeathPenalty(w http.ResponseWriter, r *http.Request) {
	player, err := h.authService.GetPlayer(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading player", err)
		return
	}
	reset := h.death.ResetPlayer(player.ID)
	respondJSON(w, http.StatusOK, resetResponse{
		PlayerID:   player.ID,
		Reset:      reset,
		DeathState: h.death.State(player.ID),
	})
}

// NewGame clears a player's difficulty metrics and death penalty state
func (h *AdminHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	player, err := h.authService.GetPlayer(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading player", err)
		return
	}
	snap, err := h.difficulty.NewGame(player.ID)
	if err != nil {
		respondServiceError(w, "Error resetting metrics", err)
		return
	}
	h.death.ResetPlayer(player.ID)
	respondJSON(w, http.StatusOK, snap)
}

// ExportDatabase exports the database to JSON for download
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	admin := GetPlayerFromContext(r.Context())

	// Set headers for file download
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("harmonia_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	// Export directly to response writer
	if _, err := h.backupService.ExportToWriter(w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export database", "Error exporting database", err)
		return
	}

	log.Printf("Database exported by admin %s", admin.Name)
}
