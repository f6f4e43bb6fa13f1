package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"harmonia/internal/models"
	"harmonia/internal/repository"
	"harmonia/internal/security"
	"harmonia/internal/validation"
)

var (
	ErrPlayerExists       = errors.New("player name already taken")
	ErrInvalidCredentials = errors.New("invalid name or password")
	ErrPlayerNotFound     = errors.New("player not found")
)

// Session is an issued bearer token and the player it belongs to
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Player    *models.Player `json:"-"`
}

// AuthService handles authentication business logic
type AuthService struct {
	playerRepo *repository.PlayerRepository
	tokens     *security.TokenManager
	isAdmin    func(name string) bool
}

// NewAuthService creates a new auth service. isAdmin decides whether a newly
// registered name is granted administrator rights; nil grants none.
func NewAuthService(playerRepo *repository.PlayerRepository, tokens *security.TokenManager, isAdmin func(name string) bool) *AuthService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthService{
		playerRepo: playerRepo,
		tokens:     tokens,
		isAdmin:    isAdmin,
	}
}

// Register creates a new player account
func (s *AuthService) Register(name, password string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidatePlayerName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.playerRepo.GetPlayerByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing player: %w", err)
	}
	if existing != nil {
		return nil, ErrPlayerExists
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	player := &models.Player{
		ID:           security.NewID(),
		Name:         name,
		PasswordHash: passwordHash,
		IsAdmin:      s.isAdmin(name),
	}
	if err := s.playerRepo.CreatePlayer(player); err != nil {
		return nil, err
	}
	return player, nil
}

// Login checks credentials and issues a bearer token
func (s *AuthService) Login(name, password string) (*Session, error) {
	player, err := s.playerRepo.GetPlayerByName(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || !security.CheckPassword(password, player.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Admin rights follow the configured list on every login
	if admin := s.isAdmin(player.Name); admin && !player.IsAdmin {
		if err := s.playerRepo.SetAdmin(player.ID, true); err != nil {
			return nil, err
		}
		player.IsAdmin = true
	}

	token, expiresAt, err := s.tokens.Issue(player.ID, player.Name, player.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Player: player}, nil
}

// Authenticate validates a bearer token and returns the player it was issued to
func (s *AuthService) Authenticate(token string) (*models.Player, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	player, err := s.playerRepo.GetPlayerByID(claims.PlayerID())
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// GetPlayer returns a player by id
func (s *AuthService) GetPlayer(id string) (*models.Player, error) {
	player, err := s.playerRepo.GetPlayerByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}
