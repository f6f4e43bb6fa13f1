package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"harmonia/internal/deathpenalty"
	"harmonia/internal/difficulty"
)

// Tuning is the game balance loaded from the JSON file at TUNING_PATH
type Tuning struct {
	Difficulty   difficulty.Config   `json:"difficulty"`
	DeathPenalty deathpenalty.Config `json:"death_penalty"`
}

// DefaultTuning returns the built-in balance, including the five difficulty profiles
func DefaultTuning() Tuning {
	return Tuning{
		Difficulty:   difficulty.DefaultConfig(),
		DeathPenalty: deathpenalty.DefaultConfig(),
	}
}

// LoadTuning reads the tuning file. An empty path or a missing file gives the defaults.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: tuning file %s not found, using defaults", path)
		return DefaultTuning(), nil
	}
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read tuning file: %w", err)
	}
	t, err := ParseTuning(data)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	log.Printf("Loaded tuning from %s", path)
	return t, nil
}

// ParseTuning decodes tuning JSON over the defaults. Sections and fields absent from the
// document keep their default values; profiles are merged by level.
func ParseTuning(data []byte) (Tuning, error) {
	t := DefaultTuning()
	if err := json.Unmarshal(data, &t); err != nil {
		return Tuning{}, err
	}

	var raw struct {
		Difficulty struct {
			Profiles []json.RawMessage `json:"profiles"`
		} `json:"difficulty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tuning{}, err
	}
	profiles, err := mergeProfiles(raw.Difficulty.Profiles)
	if err != nil {
		return Tuning{}, err
	}
	t.Difficulty.Profiles = profiles
	return t, nil
}

// mergeProfiles overlays each profile from the file onto the default of the same level
func mergeProfiles(raw []json.RawMessage) ([]difficulty.Profile, error) {
	profiles := difficulty.DefaultProfiles()
	index := make(map[difficulty.ProfileLevel]int, len(profiles))
	for i, p := range profiles {
		index[p.Level] = i
	}
	for _, r := range raw {
		var head struct {
			Level *difficulty.ProfileLevel `json:"level"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return nil, fmt.Errorf("invalid profile: %w", err)
		}
		if head.Level == nil {
			return nil, errors.New("profile is missing its level")
		}
		i, ok := index[*head.Level]
		if !ok {
			log.Printf("Warning: ignoring profile with unknown level %s", *head.Level)
			continue
		}
		p := profiles[i]
		if err := json.Unmarshal(r, &p); err != nil {
			return nil, fmt.Errorf("invalid %s profile: %w", *head.Level, err)
		}
		profiles[i] = p
	}
	return profiles, nil
}
