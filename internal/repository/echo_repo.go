package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"harmonia/internal/database"
	"harmonia/internal/models"
)

var echoColumns = []string{"id", "owner_id", "x", "y", "z", "currencies", "total_decay", "created_at"}

// EchoRepository stores live memory echoes
type EchoRepository struct {
	db database.DBTX
}

// NewEchoRepository creates a new echo repository
func NewEchoRepository(db database.DBTX) *EchoRepository {
	return &EchoRepository{db: db}
}

// SaveEcho inserts or replaces an echo
func (r *EchoRepository) SaveEcho(e models.EchoRecord) error {
	currencies, err := json.Marshal(e.Currencies)
	if err != nil {
		return fmt.Errorf("failed to encode currencies: %w", err)
	}
	query := r.db.GetDialect().Upsert("memory_echoes", []string{"id"}, echoColumns)
	_, err = r.db.Exec(query, e.ID, e.OwnerID, e.Location.X, e.Location.Y, e.Location.Z,
		string(currencies), e.TotalDecayPercentage, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save echo: %w", err)
	}
	return nil
}

// GetEcho returns an echo, or nil when none exists
func (r *EchoRepository) GetEcho(id string) (*models.EchoRecord, error) {
	row := r.db.QueryRow("SELECT id, owner_id, x, y, z, currencies, total_decay, created_at FROM memory_echoes WHERE id = ?", id)
	e, err := scanEcho(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get echo: %w", err)
	}
	return e, nil
}

// ListEchoes returns every stored echo, oldest first
func (r *EchoRepository) ListEchoes() ([]models.EchoRecord, error) {
	rows, err := r.db.Query("SELECT id, owner_id, x, y, z, currencies, total_decay, created_at FROM memory_echoes ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query echoes: %w", err)
	}
	defer rows.Close()

	var out []models.EchoRecord
	for rows.Next() {
		e, err := scanEcho(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan echo: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// DeleteEcho removes an echo
func (r *EchoRepository) DeleteEcho(id string) error {
	if _, err := r.db.Exec("DELETE FROM memory_echoes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete echo: %w", err)
	}
	return nil
}

func scanEcho(s scanner) (*models.EchoRecord, error) {
	var e models.EchoRecord
	var currencies string
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Location.X, &e.Location.Y, &e.Location.Z,
		&currencies, &e.TotalDecayPercentage, &e.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(currencies), &e.Currencies); err != nil {
		return nil, fmt.Errorf("invalid currencies for echo %s: %w", e.ID, err)
	}
	return &e, nil
}
