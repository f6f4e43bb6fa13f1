package world

import (
	"math"
	"testing"

	"harmonia/internal/models"
)

func TestHostilesWithin(t *testing.T) {
	r := NewRegistry()
	r.Upsert("wolf", models.Vector{X: 3, Y: 4})
	r.Upsert("bear", models.Vector{X: 10})
	r.Upsert("crow", models.Vector{Z: -5})

	tests := []struct {
		name   string
		radius float64
		want   []string
	}{
		{"boundary inclusive", 5, []string{"crow", "wolf"}},
		{"everything", 100, []string{"bear", "crow", "wolf"}},
		{"nothing", 1, nil},
		{"negative radius", -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.HostilesWithin(models.Vector{}, tt.radius)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestResonanceBuffStacks(t *testing.T) {
	r := NewRegistry()
	r.Upsert("wolf", models.Vector{})

	r.ApplyResonanceBuff("echo-1", "wolf", 0.1, 0.15)
	r.ApplyResonanceBuff("echo-2", "wolf", 0.1, 0.15)
	r.ApplyResonanceBuff("echo-2", "wolf", 0.1, 0.15)
	h, _ := r.Get("wolf")
	if h.ResonanceStacks != 2 {
		t.Errorf("stacks = %d, want 2", h.ResonanceStacks)
	}
	if math.Abs(h.DamageMultiplier-1.2) > 1e-9 || math.Abs(h.HealthMultiplier-1.3) > 1e-9 {
		t.Errorf("multipliers = %v/%v, want 1.2/1.3", h.DamageMultiplier, h.HealthMultiplier)
	}

	r.RemoveResonanceBuff("echo-3", "wolf")
	if h, _ = r.Get("wolf"); h.ResonanceStacks != 2 {
		t.Errorf("removing a stack that was never applied changed stacks to %d", h.ResonanceStacks)
	}

	r.RemoveResonanceBuff("echo-1", "wolf")
	r.RemoveResonanceBuff("echo-2", "wolf")
	r.RemoveResonanceBuff("echo-2", "wolf")
	h, _ = r.Get("wolf")
	if h.ResonanceStacks != 0 || h.DamageMultiplier != 1 || h.HealthMultiplier != 1 {
		t.Errorf("after removal = %+v", h)
	}

	r.ApplyResonanceBuff("echo-1", "ghost", 0.1, 0.1)
	if _, ok := r.Get("ghost"); ok {
		t.Error("buffing an unknown hostile created it")
	}
}

func TestUpsertKeepsBuffs(t *testing.T) {
	r := NewRegistry()
	r.Upsert("wolf", models.Vector{})
	r.ApplyResonanceBuff("echo-1", "wolf", 0.1, 0.1)

	h := r.Upsert("wolf", models.Vector{X: 50})
	if h.ResonanceStacks != 1 || h.Position.X != 50 {
		t.Errorf("after move = %+v", h)
	}
	if !r.Remove("wolf") || r.Remove("wolf") {
		t.Error("Remove should succeed once")
	}
	if len(r.All()) != 0 {
		t.Error("registry not empty")
	}

	h = r.Upsert("wolf", models.Vector{})
	if h.ResonanceStacks != 0 {
		t.Errorf("re-registered hostile kept %d stacks", h.ResonanceStacks)
	}
}
