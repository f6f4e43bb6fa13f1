package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"harmonia/internal/repository"
	"harmonia/internal/security"
	"harmonia/internal/validation"
)

func newAuth(t *testing.T) *AuthService {
	db := openTestDB(t)
	return NewAuthService(repository.NewPlayerRepository(db), security.NewTokenManager("test-secret", time.Hour),
		func(name string) bool { return strings.EqualFold(name, "root_admin") })
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newAuth(t)

	player, err := auth.Register("  ash_walker ", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if player.Name != "ash_walker" || player.IsAdmin || player.ID == "" {
		t.Errorf("player = %+v", player)
	}
	if player.PasswordHash == "password123" {
		t.Error("password stored in plain text")
	}

	if _, err := auth.Register("ash_walker", "password456"); !errors.Is(err, ErrPlayerExists) {
		t.Errorf("duplicate Register error = %v, want ErrPlayerExists", err)
	}

	session, err := auth.Login("ash_walker", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	got, err := auth.Authenticate(session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != player.ID {
		t.Errorf("Authenticate() player = %s, want %s", got.ID, player.ID)
	}
}

func TestLoginRejections(t *testing.T) {
	auth := newAuth(t)
	if _, err := auth.Register("ash_walker", "password123"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		player   string
		password string
	}{
		{"wrong password", "ash_walker", "password124"},
		{"unknown player", "nobody", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.Login(tt.player, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login error = %v, want ErrInvalidCredentials", err)
			}
		})
	}

	if _, err := auth.Authenticate("not-a-token"); !errors.Is(err, security.ErrInvalidToken) {
		t.Errorf("Authenticate error = %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuth(t)
	_, err := auth.Register("x", "password123")
	var verr validation.ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Errorf("short name error = %v", err)
	}
	_, err = auth.Register("ash_walker", "short")
	if !errors.As(err, &verr) || verr.Field != "password" {
		t.Errorf("short password error = %v", err)
	}
}

func TestConfiguredAdmin(t *testing.T) {
	auth := newAuth(t)
	player, err := auth.Register("root_admin", "password123")
	if err != nil {
		t.Fatal(err)
	}
	if !player.IsAdmin {
		t.Error("configured admin not granted admin rights")
	}
	session, err := auth.Login("root_admin", "password123")
	if err != nil {
		t.Fatal(err)
	}
	if !session.Player.IsAdmin {
		t.Error("session player is not admin")
	}
}
