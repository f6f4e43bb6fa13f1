package difficulty

import (
	"math"
	"testing"
)

func TestLevelForRatingBands(t *testing.T) {
	ip := NewInterpolator(DefaultConfig().Thresholds, DefaultProfiles(), 0)

	tests := []struct {
		rating float64
		want   ProfileLevel
	}{
		{0, ProfileBeginner},
		{20, ProfileBeginner},
		{20.01, ProfileLearning},
		{40, ProfileLearning},
		{59.9, ProfileStandard},
		{60, ProfileStandard},
		{80, ProfileSkilled},
		{80.5, ProfileMaster},
		{100, ProfileMaster},
	}
	for _, tt := range tests {
		if got := ip.LevelForRating(tt.rating); got != tt.want {
			t.Errorf("LevelForRating(%v) = %v, want %v", tt.rating, got, tt.want)
		}
	}
}

func TestGetParametersForRatingReturnsExactProfile(t *testing.T) {
	profiles := DefaultProfiles()
	ip := NewInterpolator(DefaultConfig().Thresholds, profiles, 0)

	for r := 0.0; r <= 100; r += 0.5 {
		got := ip.GetParametersForRating(r)
		want := profiles[ip.LevelForRating(r)].BaseParameters
		if got != want {
			t.Fatalf("rating %v: got %+v, want profile %v", r, got, ip.LevelForRating(r))
		}
	}
}

func TestMissingProfilesAreNeutral(t *testing.T) {
	ip := NewInterpolator(DefaultConfig().Thresholds, nil, 0)
	if got := ip.GetParametersForRating(10); got != NeutralParameters() {
		t.Errorf("expected neutral parameters, got %+v", got)
	}

	partial := NewInterpolator(DefaultConfig().Thresholds, DefaultProfiles()[:1], 0)
	if got := partial.GetParametersForRating(95); got != NeutralParameters() {
		t.Errorf("expected neutral parameters for unregistered master profile, got %+v", got)
	}
}

func TestUnsortedThresholdsAreSorted(t *testing.T) {
	ip := NewInterpolator(Thresholds{Beginner: 80, Learning: 20, Standard: 60, Skilled: 40}, DefaultProfiles(), 0)
	if got := ip.LevelForRating(30); got != ProfileLearning {
		t.Errorf("LevelForRating(30) = %v, want learning", got)
	}
}

func TestBlendWidthInterpolatesAtEdges(t *testing.T) {
	ip := NewInterpolator(DefaultConfig().Thresholds, DefaultProfiles(), 10)

	mid := ip.GetParametersForRating(20)
	if math.Abs(mid.EnemyHealthMultiplier-0.775) > 1e-9 {
		t.Errorf("EnemyHealthMultiplier at threshold = %v, want 0.775", mid.EnemyHealthMultiplier)
	}

	inside := ip.GetParametersForRating(30)
	if inside != DefaultProfiles()[ProfileLearning].BaseParameters {
		t.Errorf("rating inside a band should be the band profile, got %+v", inside)
	}
}

func TestProfileLevelText(t *testing.T) {
	var l ProfileLevel
	if err := l.UnmarshalText([]byte("Skilled")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if l != ProfileSkilled {
		t.Errorf("got %v, want skilled", l)
	}
	if err := l.UnmarshalText([]byte("godlike")); err == nil {
		t.Error("expected error for unknown profile")
	}
}
