package difficulty

import (
	"log"
	"math"
	"sync"
	"time"

	"harmonia/internal/clock"
)

// Change describes a recalculation that altered the output parameters
type Change struct {
	PlayerID   string       `json:"player_id"`
	Previous   Parameters   `json:"previous"`
	Current    Parameters   `json:"current"`
	Rating     float64      `json:"rating"`
	Profile    ProfileLevel `json:"profile"`
	Frustrated bool         `json:"frustrated"`
}

// Snapshot is a read-only view of a controller
type Snapshot struct {
	PlayerID         string       `json:"player_id"`
	SkillRating      float64      `json:"skill_rating"`
	TargetRating     float64      `json:"target_rating"`
	Profile          ProfileLevel `json:"profile"`
	Frustrated       bool         `json:"frustrated"`
	AssistActive     bool         `json:"assist_active"`
	Parameters       Parameters   `json:"parameters"`
	SubScores        SubScores    `json:"sub_scores"`
	LastRecalculated time.Time    `json:"last_recalculated"`
}

// Controller owns one player's metrics and the parameters derived from them.
// Reports update metrics immediately; recalculation is rate limited by the cooldown.
type Controller struct {
	mu sync.Mutex

	playerID string
	cfg      Config
	clock    clock.Clock

	metrics  *Metrics
	calc     *Calculator
	interp   *Interpolator
	detector *FrustrationDetector

	params       Parameters
	level        ProfileLevel
	targetRating float64
	lastRecalc   time.Time
	dirty        bool

	listeners []func(Change)
}

// NewController creates a controller for playerID around existing metrics (nil starts fresh).
// Initial parameters are derived from the stored rating without notifying listeners.
func NewController(playerID string, cfg Config, clk clock.Clock, metrics *Metrics) *Controller {
	if clk == nil {
		clk = clock.Real{}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	c := &Controller{
		playerID: playerID,
		cfg:      cfg,
		clock:    clk,
		metrics:  metrics,
		calc:     NewCalculator(cfg),
		interp:   NewInterpolator(cfg.Thresholds, cfg.Profiles, cfg.BlendWidth),
		detector: NewFrustrationDetector(cfg.Frustration),
	}
	c.targetRating = metrics.OverallSkillRating
	c.level = c.interp.LevelForRating(metrics.OverallSkillRating)
	c.params = c.derive(metrics.OverallSkillRating)
	return c
}

// OnChange registers a listener called after a recalculation changes the output
func (c *Controller) OnChange(fn func(Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// ReportDeath records a player death
func (c *Controller) ReportDeath() {
	c.report(func(now time.Time) {
		c.metrics.RecordDeath(now)
		if !c.metrics.FrustrationAssistActive && c.detector.IsFrustrated(c.metrics, now) {
			c.metrics.FrustrationAssistActive = true
			log.Printf("Player %s is frustrated (consecutive=%d, last hour=%d), enabling assist",
				c.playerID, c.metrics.ConsecutiveDeaths, c.metrics.DeathsInLastHour(now))
		}
		c.metrics.WinsSinceFrustration = 0
	})
}

// ReportVictory records a kill with the remaining health fraction and fight length
func (c *Controller) ReportVictory(healthFraction float64, combatDuration time.Duration) {
	c.report(func(time.Time) {
		c.metrics.RecordVictory(healthFraction, combatDuration, c.windowSize())
		if c.metrics.FrustrationAssistActive {
			c.metrics.WinsSinceFrustration++
			if c.metrics.WinsSinceFrustration >= c.detector.RecoveryWinsRequired() {
				c.metrics.FrustrationAssistActive = false
				c.metrics.WinsSinceFrustration = 0
				log.Printf("Player %s recovered from frustration", c.playerID)
			}
		}
	})
}

// ReportParry records a parry attempt
func (c *Controller) ReportParry(success, perfect bool) {
	c.report(func(time.Time) { c.metrics.RecordParry(success, perfect) })
}

// ReportDodge records a dodge attempt
func (c *Controller) ReportDodge(success, perfect bool) {
	c.report(func(time.Time) { c.metrics.RecordDodge(success, perfect) })
}

// ReportAttack records an attack attempt
func (c *Controller) ReportAttack(hit bool) {
	c.report(func(time.Time) { c.metrics.RecordAttack(hit) })
}

// ReportDamage records damage dealt and taken
func (c *Controller) ReportDamage(dealt, taken float64) {
	c.report(func(time.Time) { c.metrics.RecordDamage(dealt, taken) })
}

// ReportBossEncounterStarted begins per-encounter death tracking and forces a recalculation
func (c *Controller) ReportBossEncounterStarted(bossID string) {
	c.mu.Lock()
	c.metrics.CurrentBossID = bossID
	c.metrics.BossEncounterDeaths = 0
	c.dirty = true
	change, changed := c.recalculateLocked(c.clock.Now())
	c.mu.Unlock()
	c.notify(change, changed)
}

// ReportBossDefeated ends the encounter; the boss bias is dropped on the forced recalculation
func (c *Controller) ReportBossDefeated(bossID string) {
	c.mu.Lock()
	if c.metrics.CurrentBossID != "" && (bossID == "" || bossID == c.metrics.CurrentBossID) {
		c.metrics.BossesDefeated++
	}
	c.metrics.CurrentBossID = ""
	c.metrics.BossEncounterDeaths = 0
	c.dirty = true
	change, changed := c.recalculateLocked(c.clock.Now())
	c.mu.Unlock()
	c.notify(change, changed)
}

// Update recalculates if the cooldown has elapsed. It returns true when the output changed.
func (c *Controller) Update() bool {
	c.mu.Lock()
	now := c.clock.Now()
	if !c.cooldownElapsed(now) {
		c.mu.Unlock()
		return false
	}
	change, changed := c.recalculateLocked(now)
	c.mu.Unlock()
	c.notify(change, changed)
	return changed
}

// ForceRecalculate recalculates regardless of the cooldown
func (c *Controller) ForceRecalculate() bool {
	c.mu.Lock()
	change, changed := c.recalculateLocked(c.clock.Now())
	c.mu.Unlock()
	c.notify(change, changed)
	return changed
}

// ResetMetrics clears all metrics for a new game and re-derives parameters
func (c *Controller) ResetMetrics() {
	c.mu.Lock()
	c.metrics.Reset()
	c.targetRating = NeutralSkillRating
	c.dirty = true
	change, changed := c.recalculateLocked(c.clock.Now())
	c.mu.Unlock()
	c.notify(change, changed)
}

// Parameters returns the current output
func (c *Controller) Parameters() Parameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SkillRating returns the smoothed rating
func (c *Controller) SkillRating() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics.OverallSkillRating
}

// Profile returns the band selected by the last recalculation
func (c *Controller) Profile() ProfileLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// IsFrustrated reports whether the frustration assist is active
func (c *Controller) IsFrustrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics.FrustrationAssistActive
}

// Metrics returns a copy of the current metrics
func (c *Controller) Metrics() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics.Clone()
}

// Dirty reports whether metrics changed since the last call to MarkClean
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// MarkClean records that the current metrics have been persisted
func (c *Controller) MarkClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}

// Snapshot returns a consistent view of the controller
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	return Snapshot{
		PlayerID:         c.playerID,
		SkillRating:      c.metrics.OverallSkillRating,
		TargetRating:     c.targetRating,
		Profile:          c.level,
		Frustrated:       c.detector.IsFrustrated(c.metrics, now),
		AssistActive:     c.metrics.FrustrationAssistActive,
		Parameters:       c.params,
		SubScores:        c.calc.SubScores(c.metrics, now),
		LastRecalculated: c.lastRecalc,
	}
}

// report applies a metrics mutation and attempts a rate-limited recalculation
func (c *Controller) report(mutate func(now time.Time)) {
	c.mu.Lock()
	now := c.clock.Now()
	mutate(now)
	c.metrics.Prune(now, c.cfg.MetricsRetentionTime.Std())
	c.dirty = true
	var change Change
	changed := false
	if c.cooldownElapsed(now) {
		change, changed = c.recalculateLocked(now)
	}
	c.mu.Unlock()
	c.notify(change, changed)
}

func (c *Controller) cooldownElapsed(now time.Time) bool {
	if c.lastRecalc.IsZero() {
		return true
	}
	return now.Sub(c.lastRecalc) >= c.cfg.RecalculationCooldown.Std()
}

func (c *Controller) recalculateLocked(now time.Time) (Change, bool) {
	c.lastRecalc = now
	c.targetRating = c.calc.CalculateSkillRating(c.metrics, now)
	rating := SmoothRating(c.metrics.OverallSkillRating, c.targetRating, c.cfg.SkillRatingChangeSpeed)
	if rating != c.metrics.OverallSkillRating {
		c.metrics.OverallSkillRating = rating
		c.dirty = true
	}

	target := c.derive(rating)
	next := target
	if speed := c.cfg.ParameterBlendSpeed; speed > 0 && speed < 1 {
		next = Lerp(c.params, target, speed).Clamped()
	}

	prev := c.params
	c.params = next
	c.level = c.interp.LevelForRating(rating)
	if prev == next {
		return Change{}, false
	}
	return Change{
		PlayerID:   c.playerID,
		Previous:   prev,
		Current:    next,
		Rating:     rating,
		Profile:    c.level,
		Frustrated: c.metrics.FrustrationAssistActive,
	}, true
}

// derive computes the unsmoothed parameters for rating under the current metrics
func (c *Controller) derive(rating float64) Parameters {
	p := c.interp.GetParametersForRating(rating)
	if c.metrics.FrustrationAssistActive {
		p = p.WithPlayerAssist(c.detector.AssistMultiplier())
	}
	if c.cfg.BossDeathBias > 0 && c.metrics.CurrentBossID != "" && c.metrics.BossEncounterDeaths > 0 {
		f := math.Max(c.cfg.MinBossBias, 1-c.cfg.BossDeathBias*float64(c.metrics.BossEncounterDeaths))
		p.EnemyHealthMultiplier *= f
		p.EnemyDamageMultiplier *= f
	}
	return p.Clamped()
}

func (c *Controller) windowSize() int {
	if c.cfg.MetricsWindowSize > 0 {
		return c.cfg.MetricsWindowSize
	}
	return DefaultConfig().MetricsWindowSize
}

func (c *Controller) notify(change Change, changed bool) {
	if !changed {
		return
	}
	c.mu.Lock()
	listeners := append([]func(Change){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(change)
	}
}
