package difficulty

import (
	"math"
	"time"
)

// SubScores are the five independently normalized components of the skill rating
type SubScores struct {
	Death         float64 `json:"death"`
	VictoryHealth float64 `json:"victory_health"`
	Parry         float64 `json:"parry"`
	Dodge         float64 `json:"dodge"`
	Accuracy      float64 `json:"accuracy"`
}

// Normalized returns weights scaled to sum to 1. ok is false when the sum is not positive.
func (w Weights) Normalized() (Weights, bool) {
	for _, v := range []float64{w.Death, w.VictoryHealth, w.Parry, w.Dodge, w.Accuracy} {
		if v < 0 || math.IsNaN(v) {
			return Weights{}, false
		}
	}
	sum := w.Death + w.VictoryHealth + w.Parry + w.Dodge + w.Accuracy
	if sum <= 0 || math.IsInf(sum, 0) {
		return Weights{}, false
	}
	if math.Abs(sum-1) < 1e-9 {
		return w, true
	}
	return Weights{
		Death:         w.Death / sum,
		VictoryHealth: w.VictoryHealth / sum,
		Parry:         w.Parry / sum,
		Dodge:         w.Dodge / sum,
		Accuracy:      w.Accuracy / sum,
	}, true
}

// Calculator reduces metrics to a 0-100 target rating
type Calculator struct {
	weights    Weights
	weightsOK  bool
	retention  time.Duration
	saturation float64
}

// NewCalculator builds a calculator from the tuning config
func NewCalculator(cfg Config) *Calculator {
	w, ok := cfg.Weights.Normalized()
	saturation := cfg.DeathScoreSaturation
	if saturation <= 0 {
		saturation = DefaultConfig().DeathScoreSaturation
	}
	retention := cfg.MetricsRetentionTime.Std()
	if retention <= 0 {
		retention = DefaultConfig().MetricsRetentionTime.Std()
	}
	return &Calculator{weights: w, weightsOK: ok, retention: retention, saturation: saturation}
}

// SubScores computes the bounded components for m at now
func (c *Calculator) SubScores(m *Metrics, now time.Time) SubScores {
	recent := float64(m.RecentDeaths(now, c.retention))

	accuracy := m.Accuracy()
	damageShare := 0.0
	if total := m.DamageDealt + m.DamageTaken; total > 0 {
		damageShare = m.DamageDealt / total
	}

	return SubScores{
		Death:         clamp01(1 - recent/c.saturation),
		VictoryHealth: clamp01(m.AverageVictoryHealth()),
		Parry:         clamp01(ratio(m.ParrySuccesses, m.ParryAttempts)),
		Dodge:         clamp01(ratio(m.DodgeSuccesses, m.DodgeAttempts)),
		Accuracy:      clamp01(0.5*accuracy + 0.5*damageShare),
	}
}

// CalculateSkillRating returns the target rating in [0,100].
// Unusable weights yield NeutralSkillRating.
func (c *Calculator) CalculateSkillRating(m *Metrics, now time.Time) float64 {
	if !c.weightsOK {
		return NeutralSkillRating
	}
	s := c.SubScores(m, now)
	w := c.weights
	score := s.Death*w.Death +
		s.VictoryHealth*w.VictoryHealth +
		s.Parry*w.Parry +
		s.Dodge*w.Dodge +
		s.Accuracy*w.Accuracy
	return clampRating(score * 100)
}

// SmoothRating moves current toward target by speed (exponential smoothing).
// speed is clamped to [0,1]; 0 freezes the rating.
func SmoothRating(current, target, speed float64) float64 {
	if math.IsNaN(current) {
		current = NeutralSkillRating
	}
	return clampRating(current + (target-current)*clamp01(speed))
}

func clampRating(r float64) float64 {
	if math.IsNaN(r) {
		return NeutralSkillRating
	}
	return math.Max(0, math.Min(100, r))
}
