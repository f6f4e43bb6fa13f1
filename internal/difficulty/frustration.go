package difficulty

import "time"

// FrustrationDetector flags players whose death cadence suggests they are stuck
type FrustrationDetector struct {
	cfg FrustrationConfig
}

// NewFrustrationDetector creates a detector; non-positive thresholds disable that criterion
func NewFrustrationDetector(cfg FrustrationConfig) *FrustrationDetector {
	return &FrustrationDetector{cfg: cfg}
}

// IsFrustrated reports whether consecutive deaths or deaths in the last hour reach their thresholds
func (d *FrustrationDetector) IsFrustrated(m *Metrics, now time.Time) bool {
	if d.cfg.ConsecutiveDeathThreshold > 0 && m.ConsecutiveDeaths >= d.cfg.ConsecutiveDeathThreshold {
		return true
	}
	if d.cfg.DeathsPerHourThreshold > 0 && m.DeathsInLastHour(now) >= d.cfg.DeathsPerHourThreshold {
		return true
	}
	return false
}

// AssistMultiplier returns the configured boost, or 1 when unset or below 1
func (d *FrustrationDetector) AssistMultiplier() float64 {
	if d.cfg.FrustrationAssistMultiplier < 1 {
		return 1
	}
	return d.cfg.FrustrationAssistMultiplier
}

// RecoveryWinsRequired is the win streak that releases the assist, at least 1
func (d *FrustrationDetector) RecoveryWinsRequired() int {
	if d.cfg.RecoveryWinsRequired < 1 {
		return 1
	}
	return d.cfg.RecoveryWinsRequired
}
