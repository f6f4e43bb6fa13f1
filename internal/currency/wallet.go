// Package currency holds player currency balances
package currency

import (
	"sort"
	"sync"

	"harmonia/internal/models"
)

// Wallet is one player's balances. Amounts never go negative.
type Wallet struct {
	mu       sync.Mutex
	playerID string
	balances map[models.CurrencyType]int64
}

// NewWallet creates an empty wallet for playerID
func NewWallet(playerID string) *Wallet {
	return &Wallet{
		playerID: playerID,
		balances: make(map[models.CurrencyType]int64),
	}
}

// PlayerID returns the owner of the wallet
func (w *Wallet) PlayerID() string {
	return w.playerID
}

// Amount returns the balance of one currency
func (w *Wallet) Amount(t models.CurrencyType) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[t]
}

// Add credits n of t. It fails for unknown currencies and non-positive amounts.
func (w *Wallet) Add(t models.CurrencyType, n int64) bool {
	if !t.IsValid() || n <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[t] += n
	return true
}

// Remove debits n of t. It fails without change when the balance is short.
func (w *Wallet) Remove(t models.CurrencyType, n int64) bool {
	if !t.IsValid() || n <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[t] < n {
		return false
	}
	w.balances[t] -= n
	return true
}

// Set overwrites a balance, used when loading from storage. Negative values become zero.
func (w *Wallet) Set(t models.CurrencyType, n int64) bool {
	if !t.IsValid() {
		return false
	}
	if n < 0 {
		n = 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[t] = n
	return true
}

// Balances returns every currency in display order, zero balances included
func (w *Wallet) Balances() []models.CurrencyAmount {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.CurrencyAmount, 0, len(models.AllCurrencyTypes))
	for _, t := range models.AllCurrencyTypes {
		out = append(out, models.CurrencyAmount{Type: t, Amount: w.balances[t]})
	}
	return out
}

// Bank maps players to wallets
type Bank struct {
	mu      sync.RWMutex
	wallets map[string]*Wallet
}

// NewBank creates an empty bank
func NewBank() *Bank {
	return &Bank{wallets: make(map[string]*Wallet)}
}

// Wallet returns the player's wallet if one is open
func (b *Bank) Wallet(playerID string) (*Wallet, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	w, ok := b.wallets[playerID]
	return w, ok
}

// Open returns the player's wallet, creating an empty one if needed
func (b *Bank) Open(playerID string) *Wallet {
	if playerID == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.wallets[playerID]; ok {
		return w
	}
	w := NewWallet(playerID)
	b.wallets[playerID] = w
	return w
}

// Close forgets the player's wallet
func (b *Bank) Close(playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.wallets, playerID)
}

// Players lists players with an open wallet, sorted
func (b *Bank) Players() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.wallets))
	for id := range b.wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
