package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "harmonia-dev-secret-change-me"

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string
	TuningPath     string
	JWTSecret      string
	TokenTTL       time.Duration
	TickRate       int
	AdminPlayers   []string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: failed to load .env file: %v", err)
		} else {
			log.Println("Loaded environment from .env")
		}
	}

	cfg := &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DatabasePath:   getEnv("DB_PATH", "./harmonia.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		TuningPath:     getEnv("TUNING_PATH", ""),
		JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour),
		TickRate:       getEnvInt("TICK_RATE", 20),
		AdminPlayers:   splitList(getEnv("ADMIN_PLAYERS", "")),
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("Warning: JWT_SECRET not set, using the development secret")
	}
	if cfg.TickRate <= 0 {
		log.Printf("Warning: invalid TICK_RATE %d, using 20", cfg.TickRate)
		cfg.TickRate = 20
	}
	return cfg
}

// IsAdmin reports whether the named player is configured as an administrator
func (c *Config) IsAdmin(name string) bool {
	for _, admin := range c.AdminPlayers {
		if strings.EqualFold(admin, name) {
			return true
		}
	}
	return false
}

// minTickInterval bounds very large TICK_RATE values; a zero period would panic the ticker
const minTickInterval = time.Millisecond

// TickInterval is the period of the simulation loop
func (c *Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	interval := time.Second / time.Duration(c.TickRate)
	if interval < minTickInterval {
		return minTickInterval
	}
	return interval
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
