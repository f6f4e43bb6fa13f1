package difficulty

import (
	"fmt"
	"strings"
	"time"

	"harmonia/internal/models"
)

// ProfileLevel names one of the five difficulty bands
type ProfileLevel int

const (
	ProfileBeginner ProfileLevel = iota
	ProfileLearning
	ProfileStandard
	ProfileSkilled
	ProfileMaster
)

var profileNames = []string{"beginner", "learning", "standard", "skilled", "master"}

func (l ProfileLevel) String() string {
	if l < ProfileBeginner || l > ProfileMaster {
		return fmt.Sprintf("profile(%d)", int(l))
	}
	return profileNames[l]
}

func (l ProfileLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *ProfileLevel) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range profileNames {
		if n == name {
			*l = ProfileLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown difficulty profile %q", name)
}

// Profile is a named preset of base parameters
type Profile struct {
	Level          ProfileLevel `json:"level"`
	BaseParameters Parameters   `json:"base_parameters"`
}

// Weights sets the contribution of each sub-score to the skill rating
type Weights struct {
	Death         float64 `json:"death"`
	VictoryHealth float64 `json:"victory_health"`
	Parry         float64 `json:"parry"`
	Dodge         float64 `json:"dodge"`
	Accuracy      float64 `json:"accuracy"`
}

// Thresholds are the four ascending band boundaries on the 0-100 rating scale
type Thresholds struct {
	Beginner float64 `json:"beginner"`
	Learning float64 `json:"learning"`
	Standard float64 `json:"standard"`
	Skilled  float64 `json:"skilled"`
}

// FrustrationConfig controls the frustration assist
type FrustrationConfig struct {
	ConsecutiveDeathThreshold   int     `json:"consecutive_death_threshold"`
	DeathsPerHourThreshold      int     `json:"deaths_per_hour_threshold"`
	FrustrationAssistMultiplier float64 `json:"frustration_assist_multiplier"`
	RecoveryWinsRequired        int     `json:"recovery_wins_required"`
}

// Config is the complete difficulty tuning surface, loaded once
type Config struct {
	Weights     Weights           `json:"weights"`
	Thresholds  Thresholds        `json:"thresholds"`
	Frustration FrustrationConfig `json:"frustration"`
	Profiles    []Profile         `json:"profiles"`

	SkillRatingChangeSpeed float64         `json:"skill_rating_change_speed"`
	MetricsRetentionTime   models.Duration `json:"metrics_retention_time"`
	RecalculationCooldown  models.Duration `json:"recalculation_cooldown"`

	// MetricsWindowSize caps the rolling victory-health and combat-duration windows
	MetricsWindowSize int `json:"metrics_window_size"`
	// DeathScoreSaturation is the number of recent deaths at which the death sub-score reaches 0
	DeathScoreSaturation float64 `json:"death_score_saturation"`
	// BlendWidth > 0 blends adjacent profiles across each threshold
	BlendWidth float64 `json:"blend_width"`
	// ParameterBlendSpeed in (0,1) eases parameters toward each new target; 1 switches instantly
	ParameterBlendSpeed float64 `json:"parameter_blend_speed"`
	// BossDeathBias reduces enemy health and damage per death inside a boss encounter
	BossDeathBias float64 `json:"boss_death_bias"`
	MinBossBias   float64 `json:"min_boss_bias"`
}

// DefaultConfig returns the built-in tuning
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Death:         0.25,
			VictoryHealth: 0.20,
			Parry:         0.20,
			Dodge:         0.15,
			Accuracy:      0.20,
		},
		Thresholds: Thresholds{Beginner: 20, Learning: 40, Standard: 60, Skilled: 80},
		Frustration: FrustrationConfig{
			ConsecutiveDeathThreshold:   3,
			DeathsPerHourThreshold:      5,
			FrustrationAssistMultiplier: 1.15,
			RecoveryWinsRequired:        2,
		},
		Profiles:               DefaultProfiles(),
		SkillRatingChangeSpeed: 0.1,
		MetricsRetentionTime:   models.Duration(30 * time.Minute),
		RecalculationCooldown:  models.Duration(30 * time.Second),
		MetricsWindowSize:      20,
		DeathScoreSaturation:   10,
		ParameterBlendSpeed:    1.0,
		MinBossBias:            0.5,
	}
}

// DefaultProfiles returns the five built-in presets
func DefaultProfiles() []Profile {
	return []Profile{
		{Level: ProfileBeginner, BaseParameters: Parameters{
			EnemyHealthMultiplier: 0.7, EnemyDamageMultiplier: 0.6, EnemyAggressionMultiplier: 0.7,
			EnemyReactionTimeMultiplier: 1.3, EnemyAttackFrequencyMultiplier: 0.7,
			PlayerDamageMultiplier: 1.3, PlayerDefenseMultiplier: 1.3, ParryWindowMultiplier: 1.5,
			DodgeIFrameMultiplier: 1.4, HealingMultiplier: 1.3,
			ItemDropMultiplier: 1.2, ResourceGainMultiplier: 1.2,
			AIInterAttackDelayMultiplier: 1.4, AIAccuracyPenalty: 0.3,
		}},
		{Level: ProfileLearning, BaseParameters: Parameters{
			EnemyHealthMultiplier: 0.85, EnemyDamageMultiplier: 0.8, EnemyAggressionMultiplier: 0.85,
			EnemyReactionTimeMultiplier: 1.15, EnemyAttackFrequencyMultiplier: 0.85,
			PlayerDamageMultiplier: 1.15, PlayerDefenseMultiplier: 1.15, ParryWindowMultiplier: 1.25,
			DodgeIFrameMultiplier: 1.2, HealingMultiplier: 1.15,
			ItemDropMultiplier: 1.1, ResourceGainMultiplier: 1.1,
			AIInterAttackDelayMultiplier: 1.2, AIAccuracyPenalty: 0.15,
		}},
		{Level: ProfileStandard, BaseParameters: NeutralParameters()},
		{Level: ProfileSkilled, BaseParameters: Parameters{
			EnemyHealthMultiplier: 1.15, EnemyDamageMultiplier: 1.2, EnemyAggressionMultiplier: 1.15,
			EnemyReactionTimeMultiplier: 0.9, EnemyAttackFrequencyMultiplier: 1.15,
			PlayerDamageMultiplier: 0.95, PlayerDefenseMultiplier: 0.95, ParryWindowMultiplier: 0.9,
			DodgeIFrameMultiplier: 0.9, HealingMultiplier: 0.95,
			ItemDropMultiplier: 1.0, ResourceGainMultiplier: 1.0,
			AIInterAttackDelayMultiplier: 0.85, AIGroupAggression: true,
		}},
		{Level: ProfileMaster, BaseParameters: Parameters{
			EnemyHealthMultiplier: 1.3, EnemyDamageMultiplier: 1.4, EnemyAggressionMultiplier: 1.3,
			EnemyReactionTimeMultiplier: 0.8, EnemyAttackFrequencyMultiplier: 1.3,
			PlayerDamageMultiplier: 0.9, PlayerDefenseMultiplier: 0.9, ParryWindowMultiplier: 0.8,
			DodgeIFrameMultiplier: 0.8, HealingMultiplier: 0.9,
			ItemDropMultiplier: 0.9, ResourceGainMultiplier: 0.9,
			AIInterAttackDelayMultiplier: 0.7, AIGroupAggression: true,
		}},
	}
}
