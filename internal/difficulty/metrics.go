package difficulty

import (
	"time"
)

// NeutralSkillRating is the starting rating and the fallback for unusable weights
const NeutralSkillRating = 50.0

// Metrics accumulates raw play statistics for one player session.
// It is persisted as JSON across saves and reset on a new game.
type Metrics struct {
	TotalDeaths       int         `json:"total_deaths"`
	ConsecutiveDeaths int         `json:"consecutive_deaths"`
	KillsWithoutDeath int         `json:"kills_without_death"`
	TotalVictories    int         `json:"total_victories"`
	DeathTimes        []time.Time `json:"death_times"`

	VictoryHealth   []float64 `json:"victory_health"`
	CombatDurations []float64 `json:"combat_durations"` // seconds

	ParryAttempts  int `json:"parry_attempts"`
	ParrySuccesses int `json:"parry_successes"`
	PerfectParries int `json:"perfect_parries"`
	DodgeAttempts  int `json:"dodge_attempts"`
	DodgeSuccesses int `json:"dodge_successes"`
	PerfectDodges  int `json:"perfect_dodges"`

	AttackAttempts int `json:"attack_attempts"`
	AttackHits     int `json:"attack_hits"`

	DamageDealt float64 `json:"damage_dealt"`
	DamageTaken float64 `json:"damage_taken"`

	OverallSkillRating float64 `json:"overall_skill_rating"`

	CurrentBossID       string `json:"current_boss_id,omitempty"`
	BossEncounterDeaths int    `json:"boss_encounter_deaths"`
	BossesDefeated      int    `json:"bosses_defeated"`

	FrustrationAssistActive bool `json:"frustration_assist_active"`
	WinsSinceFrustration    int  `json:"wins_since_frustration"`
}

// NewMetrics creates empty metrics at the neutral rating
func NewMetrics() *Metrics {
	return &Metrics{OverallSkillRating: NeutralSkillRating}
}

// Reset clears everything for a new game
func (m *Metrics) Reset() {
	*m = Metrics{OverallSkillRating: NeutralSkillRating}
}

// Clone returns a deep copy
func (m *Metrics) Clone() *Metrics {
	c := *m
	c.DeathTimes = append([]time.Time(nil), m.DeathTimes...)
	c.VictoryHealth = append([]float64(nil), m.VictoryHealth...)
	c.CombatDurations = append([]float64(nil), m.CombatDurations...)
	return &c
}

// RecordDeath registers a death at now
func (m *Metrics) RecordDeath(now time.Time) {
	m.TotalDeaths++
	m.ConsecutiveDeaths++
	m.KillsWithoutDeath = 0
	m.DeathTimes = append(m.DeathTimes, now)
	if m.CurrentBossID != "" {
		m.BossEncounterDeaths++
	}
}

// RecordVictory registers a kill with the player's remaining health fraction and the fight length
func (m *Metrics) RecordVictory(healthFraction float64, combatDuration time.Duration, window int) {
	m.TotalVictories++
	m.KillsWithoutDeath++
	m.ConsecutiveDeaths = 0
	m.VictoryHealth = pushWindow(m.VictoryHealth, clamp01(healthFraction), window)
	secs := combatDuration.Seconds()
	if secs < 0 {
		secs = 0
	}
	m.CombatDurations = pushWindow(m.CombatDurations, secs, window)
}

// RecordParry registers a parry attempt
func (m *Metrics) RecordParry(success, perfect bool) {
	m.ParryAttempts++
	if success {
		m.ParrySuccesses++
		if perfect {
			m.PerfectParries++
		}
	}
}

// RecordDodge registers a dodge attempt
func (m *Metrics) RecordDodge(success, perfect bool) {
	m.DodgeAttempts++
	if success {
		m.DodgeSuccesses++
		if perfect {
			m.PerfectDodges++
		}
	}
}

// RecordAttack registers an attack attempt
func (m *Metrics) RecordAttack(hit bool) {
	m.AttackAttempts++
	if hit {
		m.AttackHits++
	}
}

// RecordDamage adds to the dealt and taken totals; negative values are ignored
func (m *Metrics) RecordDamage(dealt, taken float64) {
	if dealt > 0 {
		m.DamageDealt += dealt
	}
	if taken > 0 {
		m.DamageTaken += taken
	}
}

// RecentDeaths counts deaths within window before now
func (m *Metrics) RecentDeaths(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, t := range m.DeathTimes {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// DeathsInLastHour counts deaths in the hour before now
func (m *Metrics) DeathsInLastHour(now time.Time) int {
	return m.RecentDeaths(now, time.Hour)
}

// Prune drops death timestamps older than both retention and one hour
func (m *Metrics) Prune(now time.Time, retention time.Duration) {
	keep := retention
	if keep < time.Hour {
		keep = time.Hour
	}
	cutoff := now.Add(-keep)
	kept := m.DeathTimes[:0]
	for _, t := range m.DeathTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	m.DeathTimes = kept
}

// AverageVictoryHealth is the mean remaining-health fraction over the window, 0 if empty
func (m *Metrics) AverageVictoryHealth() float64 {
	return mean(m.VictoryHealth)
}

// AverageCombatDuration is the mean fight length over the window
func (m *Metrics) AverageCombatDuration() time.Duration {
	return time.Duration(mean(m.CombatDurations) * float64(time.Second))
}

// Accuracy is hits over attacks, 0 without attempts
func (m *Metrics) Accuracy() float64 {
	return ratio(m.AttackHits, m.AttackAttempts)
}

// DamageRatio is dealt / taken; taken == 0 returns dealt (or 0 with no damage at all)
func (m *Metrics) DamageRatio() float64 {
	if m.DamageTaken == 0 {
		return m.DamageDealt
	}
	return m.DamageDealt / m.DamageTaken
}

func pushWindow(values []float64, v float64, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	values = append(values, v)
	if len(values) > window {
		values = append(values[:0], values[len(values)-window:]...)
	}
	return values
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
