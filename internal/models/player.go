package models

import "time"

// Player represents a registered game account
type Player struct {
	ID           string
	Name         string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// MetricsRecord is the persisted form of a player's performance metrics
type MetricsRecord struct {
	PlayerID    string
	Data        []byte // JSON-encoded difficulty.Metrics
	SkillRating float64
	UpdatedAt   time.Time
}

// WalletEntry is one persisted currency balance
type WalletEntry struct {
	PlayerID string
	Currency CurrencyType
	Amount   int64
}
