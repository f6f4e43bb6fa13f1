// Package difficulty implements dynamic difficulty adjustment: performance tracking,
// skill rating, profile selection, frustration assist and the per-player controller.
package difficulty

import "math"

// Parameters is the flat set of multipliers consumed by combat and AI code.
// Values are always derived by a recalculation and never mutated in place.
type Parameters struct {
	EnemyHealthMultiplier          float64 `json:"enemy_health_multiplier"`
	EnemyDamageMultiplier          float64 `json:"enemy_damage_multiplier"`
	EnemyAggressionMultiplier      float64 `json:"enemy_aggression_multiplier"`
	EnemyReactionTimeMultiplier    float64 `json:"enemy_reaction_time_multiplier"`
	EnemyAttackFrequencyMultiplier float64 `json:"enemy_attack_frequency_multiplier"`

	PlayerDamageMultiplier  float64 `json:"player_damage_multiplier"`
	PlayerDefenseMultiplier float64 `json:"player_defense_multiplier"`
	ParryWindowMultiplier   float64 `json:"parry_window_multiplier"`
	DodgeIFrameMultiplier   float64 `json:"dodge_iframe_multiplier"`
	HealingMultiplier       float64 `json:"healing_multiplier"`

	ItemDropMultiplier     float64 `json:"item_drop_multiplier"`
	ResourceGainMultiplier float64 `json:"resource_gain_multiplier"`

	AIInterAttackDelayMultiplier float64 `json:"ai_inter_attack_delay_multiplier"`
	AIAccuracyPenalty            float64 `json:"ai_accuracy_penalty"`
	AIGroupAggression            bool    `json:"ai_group_aggression"`
}

// NeutralParameters returns ×1.0 everywhere and no AI modifiers
func NeutralParameters() Parameters {
	return Parameters{
		EnemyHealthMultiplier:          1.0,
		EnemyDamageMultiplier:          1.0,
		EnemyAggressionMultiplier:      1.0,
		EnemyReactionTimeMultiplier:    1.0,
		EnemyAttackFrequencyMultiplier: 1.0,
		PlayerDamageMultiplier:         1.0,
		PlayerDefenseMultiplier:        1.0,
		ParryWindowMultiplier:          1.0,
		DodgeIFrameMultiplier:          1.0,
		HealingMultiplier:              1.0,
		ItemDropMultiplier:             1.0,
		ResourceGainMultiplier:         1.0,
		AIInterAttackDelayMultiplier:   1.0,
	}
}

// fields exposes the numeric multipliers for element-wise operations
func (p *Parameters) fields() []*float64 {
	return []*float64{
		&p.EnemyHealthMultiplier,
		&p.EnemyDamageMultiplier,
		&p.EnemyAggressionMultiplier,
		&p.EnemyReactionTimeMultiplier,
		&p.EnemyAttackFrequencyMultiplier,
		&p.PlayerDamageMultiplier,
		&p.PlayerDefenseMultiplier,
		&p.ParryWindowMultiplier,
		&p.DodgeIFrameMultiplier,
		&p.HealingMultiplier,
		&p.ItemDropMultiplier,
		&p.ResourceGainMultiplier,
		&p.AIInterAttackDelayMultiplier,
		&p.AIAccuracyPenalty,
	}
}

// Clamped returns a copy with every multiplier forced non-negative and finite
// and the accuracy penalty limited to [0,1]
func (p Parameters) Clamped() Parameters {
	for _, f := range p.fields() {
		if math.IsNaN(*f) || *f < 0 {
			*f = 0
		}
		if math.IsInf(*f, 1) {
			*f = math.MaxFloat32
		}
	}
	if p.AIAccuracyPenalty > 1 {
		p.AIAccuracyPenalty = 1
	}
	return p
}

// Lerp blends a toward b by t in [0,1]. The boolean flag follows b once t reaches 0.5.
func Lerp(a, b Parameters, t float64) Parameters {
	t = clamp01(t)
	out := a
	af := out.fields()
	bf := b.fields()
	for i := range af {
		*af[i] = *af[i] + (*bf[i]-*af[i])*t
	}
	if t >= 0.5 {
		out.AIGroupAggression = b.AIGroupAggression
	}
	return out
}

// WithPlayerAssist multiplies the player-favouring multipliers by m
func (p Parameters) WithPlayerAssist(m float64) Parameters {
	p.PlayerDamageMultiplier *= m
	p.PlayerDefenseMultiplier *= m
	p.ParryWindowMultiplier *= m
	p.DodgeIFrameMultiplier *= m
	return p
}

// ScaleMaxHealth applies the enemy health multiplier to base, never going below 1
func (p Parameters) ScaleMaxHealth(base float64) float64 {
	v := base * p.EnemyHealthMultiplier
	if v < 1 || math.IsNaN(v) {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
