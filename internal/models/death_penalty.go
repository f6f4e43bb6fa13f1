package models

import "time"

// PenaltyState is the death-penalty status of a player
type PenaltyState string

const (
	PenaltyStateNormal    PenaltyState = "normal"
	PenaltyStateEthereal  PenaltyState = "ethereal"
	PenaltyStateCorrupted PenaltyState = "corrupted"
)

// AttributePenalty holds the multipliers applied to a player while ethereal.
// MaxHealthPenalty is the stacked fraction removed from max health on repeated deaths.
type AttributePenalty struct {
	HealthMultiplier        float64 `json:"health_multiplier"`
	DamageMultiplier        float64 `json:"damage_multiplier"`
	StaminaRegenMultiplier  float64 `json:"stamina_regen_multiplier"`
	MovementSpeedMultiplier float64 `json:"movement_speed_multiplier"`
	MaxHealthPenalty        float64 `json:"max_health_penalty"`
}

// NoPenalty is the identity penalty applied in the normal state
func NoPenalty() AttributePenalty {
	return AttributePenalty{
		HealthMultiplier:        1.0,
		DamageMultiplier:        1.0,
		StaminaRegenMultiplier:  1.0,
		MovementSpeedMultiplier: 1.0,
	}
}

// EffectiveMaxHealthMultiplier combines the health multiplier with the stacked max-health penalty
func (p AttributePenalty) EffectiveMaxHealthMultiplier() float64 {
	m := p.HealthMultiplier * (1 - p.MaxHealthPenalty)
	if m < 0 {
		return 0
	}
	return m
}

// DeathState is the per-player death-penalty record
type DeathState struct {
	PlayerID          string           `json:"player_id"`
	State             PenaltyState     `json:"state"`
	ConsecutiveDeaths int              `json:"consecutive_deaths"`
	EchoID            string           `json:"echo_id,omitempty"`
	Penalty           AttributePenalty `json:"penalty"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsPenalized reports whether the player is ethereal or corrupted
func (s DeathState) IsPenalized() bool {
	return s.State == PenaltyStateEthereal || s.State == PenaltyStateCorrupted
}

// EchoRecord is the persisted and reported form of a memory echo
type EchoRecord struct {
	ID                   string           `json:"id"`
	OwnerID              string           `json:"owner_id"`
	Location             Vector           `json:"location"`
	Currencies           []CurrencyAmount `json:"currencies"`
	TotalDecayPercentage float64          `json:"total_decay_percentage"`
	CreatedAt            time.Time        `json:"created_at"`
	BuffedHostiles       []string         `json:"buffed_hostiles,omitempty"`
}

// IsEmpty reports whether every stored currency is zero
func (e EchoRecord) IsEmpty() bool {
	return SumAmounts(e.Currencies) == 0
}
