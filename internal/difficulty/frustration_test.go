package difficulty

import (
	"testing"
	"time"
)

func TestIsFrustrated(t *testing.T) {
	cfg := FrustrationConfig{ConsecutiveDeathThreshold: 100, DeathsPerHourThreshold: 5}

	tests := []struct {
		name   string
		deaths []time.Duration // offsets before t0
		want   bool
	}{
		{
			name:   "five deaths in the last hour",
			deaths: []time.Duration{50 * time.Minute, 40 * time.Minute, 30 * time.Minute, 20 * time.Minute, time.Minute},
			want:   true,
		},
		{
			name:   "four deaths in the last hour",
			deaths: []time.Duration{40 * time.Minute, 30 * time.Minute, 20 * time.Minute, time.Minute},
			want:   false,
		},
		{
			name:   "old deaths do not count",
			deaths: []time.Duration{3 * time.Hour, 2 * time.Hour, 90 * time.Minute, 20 * time.Minute, time.Minute},
			want:   false,
		},
	}

	d := NewFrustrationDetector(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			for _, off := range tt.deaths {
				m.RecordDeath(t0.Add(-off))
			}
			if got := d.IsFrustrated(m, t0); got != tt.want {
				t.Errorf("IsFrustrated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFrustratedByConsecutiveDeaths(t *testing.T) {
	d := NewFrustrationDetector(FrustrationConfig{ConsecutiveDeathThreshold: 3})
	m := NewMetrics()
	m.ConsecutiveDeaths = 3
	if !d.IsFrustrated(m, t0) {
		t.Error("expected frustration at the consecutive death threshold")
	}

	disabled := NewFrustrationDetector(FrustrationConfig{})
	if disabled.IsFrustrated(m, t0) {
		t.Error("zero thresholds should disable detection")
	}
	if disabled.AssistMultiplier() != 1 || disabled.RecoveryWinsRequired() != 1 {
		t.Error("unset assist config should fall back to 1")
	}
}
