package repository

import (
	"database/sql"
	"fmt"
	"time"

	"harmonia/internal/database"
	"harmonia/internal/models"
)

var metricsColumns = []string{"player_id", "data", "skill_rating", "updated_at"}

// MetricsRepository stores per-player performance metrics as JSON documents
type MetricsRepository struct {
	db database.DBTX
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(db database.DBTX) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// SaveMetrics inserts or replaces a player's metrics
func (r *MetricsRepository) SaveMetrics(rec models.MetricsRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	query := r.db.GetDialect().Upsert("performance_metrics", []string{"player_id"}, metricsColumns)
	if _, err := r.db.Exec(query, rec.PlayerID, string(rec.Data), rec.SkillRating, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}
	return nil
}

// GetMetrics returns a player's metrics, or nil when none are stored
func (r *MetricsRepository) GetMetrics(playerID string) (*models.MetricsRecord, error) {
	query := "SELECT player_id, data, skill_rating, updated_at FROM performance_metrics WHERE player_id = ?"
	var rec models.MetricsRecord
	var data string
	err := r.db.QueryRow(query, playerID).Scan(&rec.PlayerID, &data, &rec.SkillRating, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	rec.Data = []byte(data)
	return &rec, nil
}

// ListMetrics returns every stored metrics record
func (r *MetricsRepository) ListMetrics() ([]models.MetricsRecord, error) {
	rows, err := r.db.Query("SELECT player_id, data, skill_rating, updated_at FROM performance_metrics ORDER BY player_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var out []models.MetricsRecord
	for rows.Next() {
		var rec models.MetricsRecord
		var data string
		if err := rows.Scan(&rec.PlayerID, &data, &rec.SkillRating, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metrics: %w", err)
		}
		rec.Data = []byte(data)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteMetrics removes a player's metrics
func (r *MetricsRepository) DeleteMetrics(playerID string) error {
	if _, err := r.db.Exec("DELETE FROM performance_metrics WHERE player_id = ?", playerID); err != nil {
		return fmt.Errorf("failed to delete metrics: %w", err)
	}
	return nil
}
