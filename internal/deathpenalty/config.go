// Package deathpenalty implements currency drop on death, memory echoes,
// their decay and resonance, and recovery or permanent loss.
package deathpenalty

import (
	"time"

	"harmonia/internal/models"
)

// CurrencyRule sets how much of one currency drops on death and how much
// of an unclaimed echo is lost on a second death
type CurrencyRule struct {
	Currency                models.CurrencyType `json:"currency"`
	DropPercentage          float64             `json:"drop_percentage"`
	PermanentLossPercentage float64             `json:"permanent_loss_percentage"`
}

// DecayConfig controls the periodic shrinking of unclaimed echoes
type DecayConfig struct {
	Enabled         bool            `json:"enabled"`
	Interval        models.Duration `json:"interval"`
	DecayPercentage float64         `json:"decay_percentage"`
}

// ResonanceConfig controls the buff given to hostiles near an unclaimed echo
type ResonanceConfig struct {
	Enabled                   bool            `json:"enabled"`
	Radius                    float64         `json:"radius"`
	TickInterval              models.Duration `json:"tick_interval"`
	EnemyDamageBuffPercentage float64         `json:"enemy_damage_buff_percentage"`
	EnemyHealthBuffPercentage float64         `json:"enemy_health_buff_percentage"`
}

// Config is the death penalty tuning surface, loaded once
type Config struct {
	Currencies []CurrencyRule `json:"currencies"`

	EtherealPenalty          models.AttributePenalty `json:"ethereal_penalty"`
	MaxHealthPenaltyPerDeath float64                 `json:"max_health_penalty_per_death"`
	MaxHealthPenaltyStacks   int                     `json:"max_health_penalty_stacks"`
	// CorruptionThreshold > 0 turns the ethereal state into corrupted at that many consecutive deaths
	CorruptionThreshold int `json:"corruption_threshold"`

	FastRecoveryWindow models.Duration `json:"fast_recovery_window"`
	FastRecoveryBonus  float64         `json:"fast_recovery_bonus"`

	AllowOtherPlayerRecovery      bool    `json:"allow_other_player_recovery"`
	OtherPlayerRecoveryPercentage float64 `json:"other_player_recovery_percentage"`
	// RecoveryRadius > 0 requires the recovering player to stand within range of the echo
	RecoveryRadius float64 `json:"recovery_radius"`

	// CarryOverUnlostCurrency moves what survives a double death into the new echo
	CarryOverUnlostCurrency bool `json:"carry_over_unlost_currency"`

	Decay     DecayConfig     `json:"decay"`
	Resonance ResonanceConfig `json:"resonance"`
}

// DefaultConfig returns the built-in tuning
func DefaultConfig() Config {
	return Config{
		Currencies: []CurrencyRule{
			{Currency: models.CurrencyGold, DropPercentage: 0.5, PermanentLossPercentage: 1.0},
			{Currency: models.CurrencyMemoryEssence, DropPercentage: 1.0, PermanentLossPercentage: 1.0},
			{Currency: models.CurrencySoulCrystals, DropPercentage: 0.25, PermanentLossPercentage: 0.5},
		},
		EtherealPenalty: models.AttributePenalty{
			HealthMultiplier:        0.75,
			DamageMultiplier:        0.85,
			StaminaRegenMultiplier:  0.8,
			MovementSpeedMultiplier: 0.9,
		},
		MaxHealthPenaltyPerDeath:      0.05,
		MaxHealthPenaltyStacks:        3,
		FastRecoveryWindow:            models.Duration(2 * time.Minute),
		FastRecoveryBonus:             0.1,
		OtherPlayerRecoveryPercentage: 0.1,
		RecoveryRadius:                300,
		Decay: DecayConfig{
			Enabled:         true,
			Interval:        models.Duration(time.Minute),
			DecayPercentage: 0.02,
		},
		Resonance: ResonanceConfig{
			Enabled:                   true,
			Radius:                    1500,
			TickInterval:              models.Duration(time.Second),
			EnemyDamageBuffPercentage: 0.1,
			EnemyHealthBuffPercentage: 0.15,
		},
	}
}

// rule returns the configured rule for a currency
func (c Config) rule(t models.CurrencyType) (CurrencyRule, bool) {
	for _, r := range c.Currencies {
		if r.Currency == t {
			return r, true
		}
	}
	return CurrencyRule{}, false
}
