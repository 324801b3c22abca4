package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerPort = 8080
	defaultTeamSize   = 4
	defaultCooldown   = 24 * time.Hour
	defaultSweepCron  = "0 0 * * *"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int
	ClientOrigins  []string
	TeamSize       int
	CooldownWindow time.Duration
	SweepCron      string
	LogLevel       slog.Level
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	teamSize, err := intFromEnv("BOUNTY_TEAM_SIZE", defaultTeamSize)
	if err != nil {
		return nil, err
	}
	if teamSize < 2 {
		return nil, fmt.Errorf("BOUNTY_TEAM_SIZE must be at least 2, got %d", teamSize)
	}

	cooldown := defaultCooldown
	if raw := os.Getenv("BOUNTY_COOLDOWN"); raw != "" {
		cooldown, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BOUNTY_COOLDOWN environment variable: %w", err)
		}
		if cooldown < 0 {
			return nil, fmt.Errorf("BOUNTY_COOLDOWN must not be negative, got %s", cooldown)
		}
	}

	sweepCron := os.Getenv("BOUNTY_SWEEP_CRON")
	if sweepCron == "" {
		sweepCron = defaultSweepCron
	}

	var level slog.Level
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		JWTSecretKey:   jwtKey,
		ServerPort:     port,
		ClientOrigins:  splitOrigins(os.Getenv("CLIENT_URL")),
		TeamSize:       teamSize,
		CooldownWindow: cooldown,
		SweepCron:      sweepCron,
		LogLevel:       level,
	}

	return cfg, nil
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

// splitOrigins разбирает список origin через запятую; пустой список означает "*".
func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
