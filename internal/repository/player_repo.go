package repository

import (
	"database/sql"
	"fmt"
	"time"

	"harmonia/internal/database"
	"harmonia/internal/models"
)

// PlayerRepository handles database operations for players
type PlayerRepository struct {
	db database.DBTX
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db database.DBTX) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// CreatePlayer inserts a new player
func (r *PlayerRepository) CreatePlayer(p *models.Player) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO players (id, name, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.Exec(query, p.ID, p.Name, p.PasswordHash, p.IsAdmin, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

// GetPlayerByID retrieves a player by ID. It returns nil when none exists.
func (r *PlayerRepository) GetPlayerByID(id string) (*models.Player, error) {
	return r.getPlayer("SELECT id, name, password_hash, is_admin, created_at FROM players WHERE id = ?", id)
}

// GetPlayerByName retrieves a player by name. It returns nil when none exists.
func (r *PlayerRepository) GetPlayerByName(name string) (*models.Player, error) {
	return r.getPlayer("SELECT id, name, password_hash, is_admin, created_at FROM players WHERE name = ?", name)
}

func (r *PlayerRepository) getPlayer(query string, arg interface{}) (*models.Player, error) {
	p := &models.Player{}
	err := r.db.QueryRow(query, arg).Scan(&p.ID, &p.Name, &p.PasswordHash, &p.IsAdmin, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// ListPlayers returns every player ordered by name
func (r *PlayerRepository) ListPlayers() ([]models.Player, error) {
	rows, err := r.db.Query("SELECT id, name, password_hash, is_admin, created_at FROM players ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.PasswordHash, &p.IsAdmin, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// SetAdmin grants or revokes administrator rights
func (r *PlayerRepository) SetAdmin(id string, isAdmin bool) error {
	if _, err := r.db.Exec("UPDATE players SET is_admin = ? WHERE id = ?", isAdmin, id); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	return nil
}

// DeletePlayer removes a player and, by cascade, all their state
func (r *PlayerRepository) DeletePlayer(id string) error {
	if _, err := r.db.Exec("DELETE FROM players WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return nil
}
