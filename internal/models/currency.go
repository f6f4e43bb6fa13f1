package models

// CurrencyType identifies one of the player-held currencies
type CurrencyType string

const (
	CurrencyGold               CurrencyType = "gold"
	CurrencyMemoryEssence      CurrencyType = "memory_essence"
	CurrencySoulCrystals       CurrencyType = "soul_crystals"
	CurrencyForgottenKnowledge CurrencyType = "forgotten_knowledge"
	CurrencyTimeFragments      CurrencyType = "time_fragments"
)

// AllCurrencyTypes lists every known currency in display order
var AllCurrencyTypes = []CurrencyType{
	CurrencyGold,
	CurrencyMemoryEssence,
	CurrencySoulCrystals,
	CurrencyForgottenKnowledge,
	CurrencyTimeFragments,
}

// IsValid reports whether c is a known currency type
func (c CurrencyType) IsValid() bool {
	for _, known := range AllCurrencyTypes {
		if c == known {
			return true
		}
	}
	return false
}

// CurrencyAmount is a non-negative quantity of a single currency
type CurrencyAmount struct {
	Type   CurrencyType `json:"type"`
	Amount int64        `json:"amount"`
}

// SumAmounts returns the total of all amounts regardless of type
func SumAmounts(amounts []CurrencyAmount) int64 {
	var total int64
	for _, a := range amounts {
		total += a.Amount
	}
	return total
}
