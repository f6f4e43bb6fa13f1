package difficulty

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"harmonia/internal/clock"
	"harmonia/internal/models"
)

func newTestController(cfg Config) (*Controller, *clock.Mock) {
	clk := clock.NewMock(t0)
	return NewController("p1", cfg, clk, nil), clk
}

func TestControllerRecalculationIsRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 1
	c, clk := newTestController(cfg)

	changes := 0
	c.OnChange(func(Change) { changes++ })

	// first report recalculates immediately: 1 recent death, nothing else -> 22.5 (learning)
	c.ReportDeath()
	if changes != 1 {
		t.Fatalf("changes = %d after first report, want 1", changes)
	}
	if got := c.SkillRating(); math.Abs(got-22.5) > 1e-9 {
		t.Errorf("SkillRating() = %v, want 22.5", got)
	}
	if c.Profile() != ProfileLearning {
		t.Errorf("Profile() = %v, want learning", c.Profile())
	}
	first := c.Snapshot().LastRecalculated

	// inside the cooldown the metrics move but the output does not
	clk.Advance(5 * time.Second)
	c.ReportDeath()
	if c.Metrics().TotalDeaths != 2 {
		t.Errorf("TotalDeaths = %d, want 2", c.Metrics().TotalDeaths)
	}
	if !c.Snapshot().LastRecalculated.Equal(first) {
		t.Error("recalculated inside the cooldown")
	}
	if c.Update() {
		t.Error("Update() inside cooldown reported a change")
	}

	clk.Advance(30 * time.Second)
	c.Update()
	if c.Snapshot().LastRecalculated.Equal(first) {
		t.Error("Update() after cooldown did not recalculate")
	}
	if got := c.SkillRating(); math.Abs(got-20) > 1e-9 {
		t.Errorf("SkillRating() = %v, want 20 after two deaths", got)
	}
}

func TestControllerNotifiesOnlyOnChange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 0
	c, _ := newTestController(cfg)

	changes := 0
	c.OnChange(func(Change) { changes++ })

	if c.ForceRecalculate() {
		t.Error("ForceRecalculate() reported a change with a frozen rating")
	}
	c.ReportParry(true, true)
	if changes != 0 {
		t.Errorf("changes = %d, want 0", changes)
	}
	if c.Parameters() != NeutralParameters() {
		t.Errorf("Parameters() = %+v, want standard profile", c.Parameters())
	}
}

func TestRatingMovesGradually(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 0.5
	c, _ := newTestController(cfg)

	// target: death 1*0.25 + victory health 1*0.20 = 45
	c.ReportVictory(1.0, 10*time.Second)
	if got := c.SkillRating(); math.Abs(got-47.5) > 1e-9 {
		t.Errorf("SkillRating() = %v, want 47.5", got)
	}
	if got := c.Snapshot().TargetRating; math.Abs(got-45) > 1e-9 {
		t.Errorf("TargetRating = %v, want 45", got)
	}
}

func TestFrustrationAssistCompoundsAndReleases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 0
	cfg.Frustration = FrustrationConfig{
		ConsecutiveDeathThreshold:   2,
		DeathsPerHourThreshold:      0,
		FrustrationAssistMultiplier: 1.5,
		RecoveryWinsRequired:        2,
	}
	c, _ := newTestController(cfg)

	c.ReportDeath()
	if c.IsFrustrated() {
		t.Fatal("frustrated after a single death")
	}
	c.ReportDeath()
	if !c.IsFrustrated() {
		t.Fatal("expected frustration after two consecutive deaths")
	}

	c.ForceRecalculate()
	p := c.Parameters()
	if p.PlayerDamageMultiplier != 1.5 || p.ParryWindowMultiplier != 1.5 || p.DodgeIFrameMultiplier != 1.5 {
		t.Errorf("assist not applied: %+v", p)
	}
	if p.EnemyHealthMultiplier != 1.0 {
		t.Errorf("assist must not touch enemy multipliers, got %v", p.EnemyHealthMultiplier)
	}

	c.ReportVictory(0.5, time.Minute)
	if !c.IsFrustrated() {
		t.Fatal("assist released after one win, want two")
	}
	c.ReportVictory(0.5, time.Minute)
	if c.IsFrustrated() {
		t.Fatal("assist still active after required wins")
	}
	c.ForceRecalculate()
	if got := c.Parameters().PlayerDamageMultiplier; got != 1.0 {
		t.Errorf("PlayerDamageMultiplier = %v after release, want 1.0", got)
	}
}

func TestBossDeathBiasIsScopedToEncounter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 0
	cfg.BossDeathBias = 0.1
	c, _ := newTestController(cfg)

	c.ReportBossEncounterStarted("warden")
	c.ReportDeath()
	c.ReportDeath()
	c.ForceRecalculate()
	if got := c.Parameters().EnemyHealthMultiplier; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("EnemyHealthMultiplier = %v during encounter, want 0.8", got)
	}
	if c.Metrics().BossEncounterDeaths != 2 {
		t.Errorf("BossEncounterDeaths = %d, want 2", c.Metrics().BossEncounterDeaths)
	}

	c.ReportBossDefeated("warden")
	if got := c.Parameters().EnemyHealthMultiplier; got != 1.0 {
		t.Errorf("EnemyHealthMultiplier = %v after defeat, want 1.0", got)
	}
	if c.Metrics().BossesDefeated != 1 {
		t.Errorf("BossesDefeated = %d, want 1", c.Metrics().BossesDefeated)
	}
}

func TestBossBiasDisabledByDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 0
	c, _ := newTestController(cfg)

	c.ReportBossEncounterStarted("warden")
	c.ReportDeath()
	c.ForceRecalculate()
	if got := c.Parameters().EnemyHealthMultiplier; got != 1.0 {
		t.Errorf("EnemyHealthMultiplier = %v, want 1.0 without bias", got)
	}
}

func TestControllerWithoutProfilesIsNeutral(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiles = nil
	cfg.SkillRatingChangeSpeed = 1
	c, _ := newTestController(cfg)

	c.ReportDeath()
	c.ForceRecalculate()
	if c.Parameters() != NeutralParameters() {
		t.Errorf("Parameters() = %+v, want neutral", c.Parameters())
	}
}

func TestParameterBlendSpeedEasesTransitions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 1
	cfg.ParameterBlendSpeed = 0.5
	c, _ := newTestController(cfg)

	// standard (1.0) -> learning (0.85) half way
	c.ReportDeath()
	if got := c.Parameters().EnemyHealthMultiplier; math.Abs(got-0.925) > 1e-9 {
		t.Errorf("EnemyHealthMultiplier = %v, want 0.925", got)
	}
}

func TestResetMetricsStartsOver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 1
	c, _ := newTestController(cfg)

	c.ReportDeath()
	c.ReportParry(true, false)
	c.ResetMetrics()

	m := c.Metrics()
	if m.TotalDeaths != 0 || m.ParryAttempts != 0 {
		t.Errorf("metrics not reset: %+v", m)
	}
	if !c.Dirty() {
		t.Error("reset should mark the controller dirty")
	}
	c.MarkClean()
	if c.Dirty() {
		t.Error("MarkClean() did not clear dirty flag")
	}
}

func TestMetricsSurviveJSONRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillRatingChangeSpeed = 1
	c, clk := newTestController(cfg)
	c.ReportDeath()
	c.ReportVictory(0.75, 45*time.Second)

	data, err := json.Marshal(c.Metrics())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Metrics
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	again := NewController("p1", cfg, clk, &restored)
	if again.SkillRating() != c.SkillRating() {
		t.Errorf("restored rating %v, want %v", again.SkillRating(), c.SkillRating())
	}
	if again.Parameters() != c.Parameters() {
		t.Errorf("restored parameters differ")
	}
}

func TestScaleMaxHealthNeverBelowOne(t *testing.T) {
	p := NeutralParameters()
	p.EnemyHealthMultiplier = 0
	if got := p.ScaleMaxHealth(500); got != 1 {
		t.Errorf("ScaleMaxHealth() = %v, want 1", got)
	}
	p.EnemyHealthMultiplier = -3
	if got := p.Clamped().EnemyHealthMultiplier; got != 0 {
		t.Errorf("Clamped() left negative multiplier %v", got)
	}
}

func TestDurationConfigRoundTrip(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{"recalculation_cooldown":"45s","metrics_retention_time":600}`), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.RecalculationCooldown != models.Duration(45*time.Second) {
		t.Errorf("RecalculationCooldown = %v", cfg.RecalculationCooldown.Std())
	}
	if cfg.MetricsRetentionTime.Std() != 10*time.Minute {
		t.Errorf("MetricsRetentionTime = %v", cfg.MetricsRetentionTime.Std())
	}
}
