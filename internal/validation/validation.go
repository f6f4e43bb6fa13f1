// Package validation checks request input before it reaches the services
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"harmonia/internal/models"
)

var playerNameRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// identifiers from game clients: hostile ids, boss ids
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{1,64}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePlayerName checks a display/login name
func ValidatePlayerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 3 || len(name) > 32 {
		return ValidationError{Field: "name", Message: "name must be 3 to 32 characters"}
	}
	if !playerNameRegex.MatchString(name) {
		return ValidationError{Field: "name", Message: "name may only contain letters, digits, '-' and '_'"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if len(password) > 72 {
		return ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
	}
	return nil
}

// ValidateFraction checks a value in [0, 1], such as remaining health
func ValidateFraction(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return ValidationError{Field: field, Message: "must be between 0 and 1"}
	}
	return nil
}

// ValidateNonNegative checks a finite value >= 0, such as damage or a duration
func ValidateNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ValidationError{Field: field, Message: "must be a non-negative number"}
	}
	return nil
}

// ValidateIdentifier checks an id supplied by a game client
func ValidateIdentifier(field, id string) error {
	if !identifierRegex.MatchString(id) {
		return ValidationError{Field: field, Message: "invalid identifier"}
	}
	return nil
}

// ValidateCurrency checks a currency type and a positive amount
func ValidateCurrency(t models.CurrencyType, amount int64) error {
	if !t.IsValid() {
		return ValidationError{Field: "currency", Message: fmt.Sprintf("unknown currency %q", t)}
	}
	if amount <= 0 {
		return ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	return nil
}

// ValidateLocation rejects non-finite coordinates
func ValidateLocation(v models.Vector) error {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return ValidationError{Field: "location", Message: "coordinates must be finite"}
		}
	}
	return nil
}
