package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestCurrencyTypeIsValid(t *testing.T) {
	tests := []struct {
		name     string
		currency CurrencyType
		want     bool
	}{
		{name: "gold", currency: CurrencyGold, want: true},
		{name: "time fragments", currency: CurrencyTimeFragments, want: true},
		{name: "empty", currency: "", want: false},
		{name: "unknown", currency: "doubloons", want: false},
		{name: "wrong case", currency: "Gold", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.currency.IsValid(); got != tt.want {
				t.Errorf("CurrencyType(%q).IsValid() = %v, want %v", tt.currency, got, tt.want)
			}
		})
	}
}

func TestEchoRecordIsEmpty(t *testing.T) {
	tests := []struct {
		name       string
		currencies []CurrencyAmount
		want       bool
	}{
		{name: "no currencies", currencies: nil, want: true},
		{name: "all zero", currencies: []CurrencyAmount{{CurrencyGold, 0}, {CurrencySoulCrystals, 0}}, want: true},
		{name: "one left", currencies: []CurrencyAmount{{CurrencyGold, 0}, {CurrencySoulCrystals, 1}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			echo := EchoRecord{ID: "echo", Currencies: tt.currencies}
			if got := echo.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveMaxHealthMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		penalty AttributePenalty
		want    float64
	}{
		{name: "no penalty", penalty: NoPenalty(), want: 1},
		{name: "health only", penalty: AttributePenalty{HealthMultiplier: 0.75}, want: 0.75},
		{name: "stacked", penalty: AttributePenalty{HealthMultiplier: 0.8, MaxHealthPenalty: 0.1}, want: 0.72},
		{name: "floored", penalty: AttributePenalty{HealthMultiplier: 1, MaxHealthPenalty: 1.5}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.penalty.EffectiveMaxHealthMultiplier(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EffectiveMaxHealthMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeathStateIsPenalized(t *testing.T) {
	for state, want := range map[PenaltyState]bool{
		PenaltyStateNormal:    false,
		PenaltyStateEthereal:  true,
		PenaltyStateCorrupted: true,
	} {
		if got := (DeathState{State: state}).IsPenalized(); got != want {
			t.Errorf("IsPenalized() for %s = %v, want %v", state, got, want)
		}
	}
}

func TestVectorDistanceTo(t *testing.T) {
	a := Vector{X: 1, Y: 2, Z: 3}
	b := Vector{X: 4, Y: 6, Z: 3}
	if got := a.DistanceTo(b); got != 5 {
		t.Errorf("DistanceTo() = %v, want 5", got)
	}
	if got := b.DistanceTo(a); got != 5 {
		t.Errorf("DistanceTo() is not symmetric: %v", got)
	}
}

func TestDurationUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", input: `"90s"`, want: 90 * time.Second},
		{name: "minutes", input: `"2m"`, want: 2 * time.Minute},
		{name: "bare seconds", input: `1.5`, want: 1500 * time.Millisecond},
		{name: "bad string", input: `"soon"`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && d.Std() != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, d.Std(), tt.want)
			}
		})
	}
}

func TestDurationMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Duration(2 * time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"2m0s"` {
		t.Errorf("Marshal = %s, want \"2m0s\"", data)
	}
}
