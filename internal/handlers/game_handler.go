package handlers

import (
	"net/http"

	"harmonia/internal/deathpenalty"
	"harmonia/internal/models"
	"harmonia/internal/service"
)

// GameHandler serves the per-player difficulty, death penalty and wallet endpoints
type GameHandler struct {
	difficulty *service.DifficultyService
	death      *service.DeathPenaltyService
	currency   *service.CurrencyService
}

// NewGameHandler creates a new game handler
func NewGameHandler(difficulty *service.DifficultyService, death *service.DeathPenaltyService, currency *service.CurrencyService) *GameHandler {
	return &GameHandler{difficulty: difficulty, death: death, currency: currency}
}

type locationRequest struct {
	Location models.Vector `json:"location"`
}

type deathResponse struct {
	deathpenalty.DeathResult
	Wallet []models.CurrencyAmount `json:"wallet"`
}

type recoveryResponse struct {
	deathpenalty.RecoveryResult
	Wallet []models.CurrencyAmount `json:"wallet"`
}

type walletResponse struct {
	PlayerID string                  `json:"player_id"`
	Balances []models.CurrencyAmount `json:"balances"`
}

// GetDifficulty returns the caller's difficulty snapshot
func (h *GameHandler) GetDifficulty(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())
	snap, err := h.difficulty.Snapshot(player.ID)
	if err != nil {
		respondServiceError(w, "Error loading difficulty", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Recalculate forces a difficulty recalculation for the caller
func (h *GameHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())
	snap, err := h.difficulty.Recalculate(player.ID)
	if err != nil {
		respondServiceError(w, "Error recalculating difficulty", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Report records one gameplay observation of the kind named in the path
func (h *GameHandler) Report(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())
	var report service.Report
	if !decodeJSON(w, r, &report) {
		return
	}
	report.Kind = r.PathValue("kind")

	snap, err := h.difficulty.Report(player.ID, report)
	if err != nil {
		respondServiceError(w, "Error recording report", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Death applies the death penalty at the given location and counts the death for difficulty
func (h *GameHandler) Death(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())
	var req locationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.death.OnPlayerDeath(player.ID, req.Location)
	if err != nil {
		respondServiceError(w, "Error applying death penalty", err)
		return
	}
	if _, err := h.difficulty.Report(player.ID, service.Report{Kind: service.ReportDeath}); err != nil {
		respondServiceError(w, "Error recording death", err)
		return
	}

	balances, err := h.currency.Balances(player.ID)
	if err != nil {
		respondServiceError(w, "Error loading wallet", err)
		return
	}
	respondJSON(w, http.StatusOK, deathResponse{DeathResult: result, Wallet: balances})
}

// GetDeathState returns the caller's penalty state
func (h *GameHandler) GetDeathState(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())
	respondJSON(w, http.StatusOK, h.death.State(player.ID))
}

// GetEcho returns a live memory echo
func (h *GameHandler) GetEcho(w http.ResponseWriter, r *http.Request) {
	echo, err := h.death.Echo(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Error loading echo", err)
		return
	}
	respondJSON(w, http.StatusOK, echo)
}

// RecoverEcho pays out an echo to the caller
func (h *GameHandler) RecoverEcho(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())
	var req locationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.death.Recover(player.ID, r.PathValue("id"), req.Location)
	if err != nil {
		respondServiceError(w, "Error recovering echo", err)
		return
	}
	balances, err := h.currency.Balances(player.ID)
	if err != nil {
		respondServiceError(w, "Error loading wallet", err)
		return
	}
	respondJSON(w, http.StatusOK, recoveryResponse{RecoveryResult: result, Wallet: balances})
}

// GetWallet returns the caller's balances
func (h *GameHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	player := GetPlayerFromContext(r.Context())
	balances, err := h.currency.Balances(player.ID)
	if err != nil {
		respondServiceError(w, "Error loading wallet", err)
		return
	}
	respondJSON(w, http.StatusOK, walletResponse{PlayerID: player.ID, Balances: balances})
}
