// Package config loads service configuration from struct defaults, an
// optional YAML file and ADVISOR_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/denisok6893-rgb/apartment-advisor/internal/breaker"
	"github.com/denisok6893-rgb/apartment-advisor/internal/budget"
	"github.com/denisok6893-rgb/apartment-advisor/internal/logging"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	LLM       LLMConfig       `koanf:"llm"`
	Budget    budget.Policy   `koanf:"budget"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Recommend RecommendConfig `koanf:"recommend"`
	Breaker   breaker.Config  `koanf:"breaker"`
	Logging   logging.Config  `koanf:"logging"`
}

type ServerConfig struct {
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit_requests"`
	RateWindow      time.Duration `koanf:"rate_limit_window"`
	// CORSOrigins enables CORS for the listed origins. Empty disables it.
	CORSOrigins []string `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is sqlite3 or postgres.
	Driver   string `koanf:"driver"`
	DSN      string `koanf:"dsn"`
	SeedPath string `koanf:"seed_path"`
}

type LLMConfig struct {
	Enabled     bool          `koanf:"enabled"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	// History is how many previous messages are sent with each reply.
	History int `koanf:"history"`
}

type ScoringConfig struct {
	// PolicyPath points at a JSON scoring policy. Missing files fall back to
	// the built-in policy.
	PolicyPath string `koanf:"policy_path"`
}

type RecommendConfig struct {
	TopN          int           `koanf:"top_n"`
	FetchLimit    int           `koanf:"fetch_limit"`
	SourceTimeout time.Duration `koanf:"source_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite3",
			DSN:      "data/advisor.db",
			SeedPath: "data/apartments.json",
		},
		LLM: LLMConfig{
			Enabled:     false,
			BaseURL:     "https://ark.cn-beijing.volces.com/api/v3",
			Timeout:     30 * time.Second,
			Temperature: 0.7,
			MaxTokens:   1000,
			History:     10,
		},
		Budget:  budget.DefaultPolicy(),
		Scoring: ScoringConfig{PolicyPath: "configs/scoring.json"},
		Recommend: RecommendConfig{
			TopN:          3,
			FetchLimit:    50,
			SourceTimeout: 5 * time.Second,
		},
		Breaker: breaker.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Address) == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit_requests must be non-negative"))
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.LLM.Enabled {
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key is required when llm.enabled"))
		}
		if c.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required when llm.enabled"))
		}
	}
	if c.LLM.History < 0 {
		errs = append(errs, errors.New("llm.history must be non-negative"))
	}
	if err := c.Budget.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Recommend.TopN < 1 {
		errs = append(errs, errors.New("recommend.top_n must be at least 1"))
	}
	if c.Recommend.FetchLimit < c.Recommend.TopN {
		errs = append(errs, errors.New("recommend.fetch_limit must be at least recommend.top_n"))
	}
	return errors.Join(errs...)
}
