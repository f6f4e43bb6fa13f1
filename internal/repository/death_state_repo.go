package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"harmonia/internal/database"
	"harmonia/internal/models"
)

var deathStateColumns = []string{"player_id", "state", "consecutive_deaths", "echo_id", "penalty", "updated_at"}

// DeathStateRepository stores each player's death-penalty state
type DeathStateRepository struct {
	db database.DBTX
}

// NewDeathStateRepository creates a new death state repository
func NewDeathStateRepository(db database.DBTX) *DeathStateRepository {
	return &DeathStateRepository{db: db}
}

// SaveState inserts or replaces a player's state
func (r *DeathStateRepository) SaveState(st models.DeathState) error {
	penalty, err := json.Marshal(st.Penalty)
	if err != nil {
		return fmt.Errorf("failed to encode penalty: %w", err)
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	query := r.db.GetDialect().Upsert("death_states", []string{"player_id"}, deathStateColumns)
	_, err = r.db.Exec(query, st.PlayerID, string(st.State), st.ConsecutiveDeaths,
		nullIfEmpty(st.EchoID), string(penalty), st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save death state: %w", err)
	}
	return nil
}

// GetState returns a player's state, or nil when none is stored
func (r *DeathStateRepository) GetState(playerID string) (*models.DeathState, error) {
	row := r.db.QueryRow("SELECT player_id, state, consecutive_deaths, echo_id, penalty, updated_at FROM death_states WHERE player_id = ?", playerID)
	st, err := scanDeathState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get death state: %w", err)
	}
	return st, nil
}

// ListStates returns every stored state
func (r *DeathStateRepository) ListStates() ([]models.DeathState, error) {
	rows, err := r.db.Query("SELECT player_id, state, consecutive_deaths, echo_id, penalty, updated_at FROM death_states ORDER BY player_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query death states: %w", err)
	}
	defer rows.Close()

	var out []models.DeathState
	for rows.Next() {
		st, err := scanDeathState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan death state: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDeathState(s scanner) (*models.DeathState, error) {
	var st models.DeathState
	var state, penalty string
	var echoID sql.NullString
	if err := s.Scan(&st.PlayerID, &state, &st.ConsecutiveDeaths, &echoID, &penalty, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.State = models.PenaltyState(state)
	st.EchoID = echoID.String
	st.Penalty = models.NoPenalty()
	if penalty != "" {
		if err := json.Unmarshal([]byte(penalty), &st.Penalty); err != nil {
			return nil, fmt.Errorf("invalid penalty for %s: %w", st.PlayerID, err)
		}
	}
	return &st, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
