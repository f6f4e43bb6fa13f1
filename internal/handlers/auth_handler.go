package handlers

import (
	"log"
	"net/http"
	"time"

	"harmonia/internal/service"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type playerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Player    playerResponse `json:"player"`
}

// Register creates a player account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	player, err := h.authService.Register(req.Name, req.Password)
	if err != nil {
		respondServiceError(w, "Error registering player", err)
		return
	}

	log.Printf("Player registered: %s (%s)", player.Name, player.ID)
	respondJSON(w, http.StatusCreated, playerResponse{
		ID:        player.ID,
		Name:      player.Name,
		IsAdmin:   player.IsAdmin,
		CreatedAt: player.CreatedAt,
	})
}

// Login exchanges credentials for a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Login(req.Name, req.Password)
	if err != nil {
		respondServiceError(w, "Error logging in", err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Player: playerResponse{
			ID:        session.Player.ID,
			Name:      session.Player.Name,
			IsAdmin:   session.Player.IsAdmin,
			CreatedAt: session.Player.CreatedAt,
		},
	})
}
