package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		SetID string `yaml:"setId"`
		TTL   string `yaml:"ttl"`
	} `yaml:"questions"`
	Game struct {
		MaxParticipants    int     `yaml:"maxParticipants"`
		BasePoints         int     `yaml:"basePoints"`
		MinSpeedMultiplier float64 `yaml:"minSpeedMultiplier"`
		MaxSpeedMultiplier float64 `yaml:"maxSpeedMultiplier"`
		IncorrectPoints    int     `yaml:"incorrectPoints"`
		LeaderboardTop     int     `yaml:"leaderboardTop"`
		StaleThreshold     string  `yaml:"staleThreshold"`
		SweepInterval      string  `yaml:"sweepInterval"`
		Intermission       string  `yaml:"intermission"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
