package clock

import (
	"testing"
	"time"
)

func TestMockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMock(start)

	m.Advance(90 * time.Second)
	if got := m.Now().Sub(start); got != 90*time.Second {
		t.Errorf("Advance() moved clock by %v, want 90s", got)
	}

	m.Set(start)
	if !m.Now().Equal(start) {
		t.Errorf("Set() = %v, want %v", m.Now(), start)
	}
}
