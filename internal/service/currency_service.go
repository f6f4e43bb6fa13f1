package service

import (
	"fmt"
	"log"
	"sync"

	"harmonia/internal/currency"
	"harmonia/internal/deathpenalty"
	"harmonia/internal/models"
	"harmonia/internal/repository"
	"harmonia/internal/validation"
)

// CurrencyService keeps player wallets in memory and writes them through to the database
type CurrencyService struct {
	bank       *currency.Bank
	walletRepo *repository.WalletRepository

	// serializes first loads so a wallet is read from the database once
	loadMu sync.Mutex
}

// NewCurrencyService creates a new currency service
func NewCurrencyService(bank *currency.Bank, walletRepo *repository.WalletRepository) *CurrencyService {
	return &CurrencyService{bank: bank, walletRepo: walletRepo}
}

// Wallet returns the player's wallet, loading stored balances on first use
func (s *CurrencyService) Wallet(playerID string) (*currency.Wallet, error) {
	if w, ok := s.bank.Wallet(playerID); ok {
		return w, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if w, ok := s.bank.Wallet(playerID); ok {
		return w, nil
	}

	balances, err := s.walletRepo.GetBalances(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	w := s.bank.Open(playerID)
	if w == nil {
		return nil, ErrPlayerNotFound
	}
	for _, b := range balances {
		if !w.Set(b.Type, b.Amount) {
			log.Printf("Warning: ignoring stored %s balance for player %s", b.Type, playerID)
		}
	}
	return w, nil
}

// LedgerFor adapts a wallet to the death penalty ledger contract
func (s *CurrencyService) LedgerFor(playerID string) (deathpenalty.Ledger, bool) {
	w, err := s.Wallet(playerID)
	if err != nil {
		log.Printf("Warning: no ledger for player %s: %v", playerID, err)
		return nil, false
	}
	return w, true
}

// Balances returns every currency balance of the player
func (s *CurrencyService) Balances(playerID string) ([]models.CurrencyAmount, error) {
	w, err := s.Wallet(playerID)
	if err != nil {
		return nil, err
	}
	return w.Balances(), nil
}

// Grant credits currency to a player and saves the wallet
func (s *CurrencyService) Grant(playerID string, t models.CurrencyType, amount int64) ([]models.CurrencyAmount, error) {
	if err := validation.ValidateCurrency(t, amount); err != nil {
		return nil, err
	}
	w, err := s.Wallet(playerID)
	if err != nil {
		return nil, err
	}
	if !w.Add(t, amount) {
		return nil, fmt.Errorf("failed to credit %d %s", amount, t)
	}
	if err := s.Save(playerID); err != nil {
		return nil, err
	}
	return w.Balances(), nil
}

// Save writes the player's in-memory balances; a player without an open wallet is a no-op
func (s *CurrencyService) Save(playerID string) error {
	w, ok := s.bank.Wallet(playerID)
	if !ok {
		return nil
	}
	if err := s.walletRepo.SaveBalances(playerID, w.Balances()); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

// Forget drops the in-memory wallet, for example after an import replaced the stored one
func (s *CurrencyService) Forget(playerID string) {
	s.bank.Close(playerID)
}
