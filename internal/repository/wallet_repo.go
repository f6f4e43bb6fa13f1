package repository

import (
	"fmt"

	"harmonia/internal/database"
	"harmonia/internal/models"
)

// WalletRepository stores currency balances, one row per player and currency
type WalletRepository struct {
	db database.DBTX
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db database.DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// SaveBalances writes every given balance for the player
func (r *WalletRepository) SaveBalances(playerID string, balances []models.CurrencyAmount) error {
	query := r.db.GetDialect().Upsert("wallets", []string{"player_id", "currency"}, []string{"player_id", "currency", "amount"})
	for _, b := range balances {
		if _, err := r.db.Exec(query, playerID, string(b.Type), b.Amount); err != nil {
			return fmt.Errorf("failed to save %s balance: %w", b.Type, err)
		}
	}
	return nil
}

// GetBalances returns the stored balances of a player
func (r *WalletRepository) GetBalances(playerID string) ([]models.CurrencyAmount, error) {
	rows, err := r.db.Query("SELECT currency, amount FROM wallets WHERE player_id = ? ORDER BY currency", playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}
	defer rows.Close()

	var out []models.CurrencyAmount
	for rows.Next() {
		var currency string
		var amount int64
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		out = append(out, models.CurrencyAmount{Type: models.CurrencyType(currency), Amount: amount})
	}
	return out, rows.Err()
}

// ListEntries returns every stored balance
func (r *WalletRepository) ListEntries() ([]models.WalletEntry, error) {
	rows, err := r.db.Query("SELECT player_id, currency, amount FROM wallets ORDER BY player_id, currency")
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	var out []models.WalletEntry
	for rows.Next() {
		var e models.WalletEntry
		var currency string
		if err := rows.Scan(&e.PlayerID, &currency, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		e.Currency = models.CurrencyType(currency)
		out = append(out, e)
	}
	return out, rows.Err()
}
