package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the service-level settings, all sourced from the environment.
type Config struct {
	Port                string
	RedisAddr           string
	DatabaseURL         string
	JWTSecret           string
	AIBotURL            string
	GameFile            string
	LeaderboardSchedule string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnvOrDefault("PORT", "8085"),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		JWTSecret:           getEnvOrDefault("JWT_SECRET", "dev-secret"),
		AIBotURL:            getEnvOrDefault("AI_BOT_URL", "ws://localhost:8086/ws"),
		GameFile:            os.Getenv("GAME_CONFIG_FILE"),
		LeaderboardSchedule: getEnvOrDefault("LEADERBOARD_SCHEDULE", "@every 5m"),
	}
	return cfg, nil
}

// Game holds the simulation tuning constants. Defaults match the reference
// client; a YAML file can override any field.
type Game struct {
	CanvasW     float64 `yaml:"canvasW"`
	CanvasH     float64 `yaml:"canvasH"`
	PaddleW     float64 `yaml:"paddleW"`
	PaddleH     float64 `yaml:"paddleH"`
	PaddleSpeed float64 `yaml:"paddleSpeed"`
	BallRadius  float64 `yaml:"ballRadius"`
	BallSpeed   float64 `yaml:"ballSpeed"`
	WinScore    int     `yaml:"winScore"`
	TickRateHz  int     `yaml:"tickRateHz"`
	// UX pacing delays, in milliseconds.
	MatchStartDelayMS      int `yaml:"matchStartDelayMs"`
	TournamentStartDelayMS int `yaml:"tournamentStartDelayMs"`
}

func DefaultGame() Game {
	return Game{
		CanvasW:                800,
		CanvasH:                600,
		PaddleW:                10,
		PaddleH:                100,
		PaddleSpeed:            6,
		BallRadius:             10,
		BallSpeed:              5,
		WinScore:               5,
		TickRateHz:             60,
		MatchStartDelayMS:      3000,
		TournamentStartDelayMS: 2000,
	}
}

// LoadGame returns the default tuning, overlaid with the YAML file at path
// when one is given.
func LoadGame(path string) (Game, error) {
	game := DefaultGame()
	if path == "" {
		return game, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return game, fmt.Errorf("read game config: %w", err)
	}
	if err := yaml.Unmarshal(data, &game); err != nil {
		return game, fmt.Errorf("parse game config: %w", err)
	}
	if err := validateGame(game); err != nil {
		return game, err
	}
	return game, nil
}

func validateGame(g Game) error {
	if g.CanvasW <= 0 || g.CanvasH <= 0 {
		return fmt.Errorf("invalid canvas size %vx%v", g.CanvasW, g.CanvasH)
	}
	if g.PaddleH <= 0 || g.PaddleW <= 0 || g.PaddleSpeed <= 0 {
		return fmt.Errorf("invalid paddle tuning")
	}
	if g.BallRadius <= 0 || g.BallSpeed <= 0 {
		return fmt.Errorf("invalid ball tuning")
	}
	if g.WinScore < 1 {
		return fmt.Errorf("winScore must be at least 1")
	}
	if g.TickRateHz < 1 {
		return fmt.Errorf("tickRateHz must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
