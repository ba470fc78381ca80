// Package config loads command configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"portfolio-montecarlo/internal/domain"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendDatabase = "database" // Postgres runs + ClickHouse prices/trajectories
)

// Config is the complete configuration of the commands.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Report     ReportConfig     `yaml:"report"`
}

// StorageConfig selects and locates the stores.
type StorageConfig struct {
	Backend       string `yaml:"backend"`        // memory | database
	PostgresDSN   string `yaml:"postgres_dsn"`   // simulation_runs
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // daily_prices, simulation_trajectories
	Migrate       bool   `yaml:"migrate"`        // apply embedded migrations on startup
}

// SimulationConfig holds default simulation sizes.
type SimulationConfig struct {
	Trials      int     `yaml:"trials"`
	HorizonDays int     `yaml:"horizon_days"`
	Workers     int     `yaml:"workers"`
	Seed        *uint64 `yaml:"seed"` // nil = random per run
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxTrials      int      `yaml:"max_trials"`      // upper bound on trials per API request
	RateLimit      float64  `yaml:"rate_limit"`      // requests per second per client IP
	RateBurst      int      `yaml:"rate_burst"`      // burst size per client IP
	AllowedOrigins []string `yaml:"allowed_origins"` // WebSocket origins, "*" = any
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir         string `yaml:"output_dir"`
	InitialInvestment string `yaml:"initial_investment"` // decimal string, "" = no projection
	Currency          string `yaml:"currency"`           // ISO 4217 code for projections
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
		Simulation: SimulationConfig{
			Trials:      domain.DefaultTrials,
			HorizonDays: domain.DefaultHorizonDays,
			Workers:     domain.DefaultWorkers,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			MaxTrials: 100000,
			RateLimit: 5,
			RateBurst: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
		Report: ReportConfig{
			OutputDir: "reports",
			Currency:  "USD",
		},
	}
}

// Load reads the YAML file at path over the defaults, expands ${VAR}
// references, applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables when set:
// POSTGRES_DSN, CLICKHOUSE_DSN, STORAGE_BACKEND, LOG_LEVEL, HTTP_ADDR,
// SIM_TRIALS, SIM_HORIZON_DAYS, SIM_WORKERS.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SIM_TRIALS", &c.Simulation.Trials},
		{"SIM_HORIZON_DAYS", &c.Simulation.HorizonDays},
		{"SIM_WORKERS", &c.Simulation.Workers},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.key, err)
		}
		*e.dst = n
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendDatabase:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, "storage.postgres_dsn is required for the database backend")
		}
		if c.Storage.ClickhouseDSN == "" {
			errs = append(errs, "storage.clickhouse_dsn is required for the database backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be %q or %q, got %q", BackendMemory, BackendDatabase, c.Storage.Backend))
	}

	if c.Simulation.Trials <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.trials must be positive, got %d", c.Simulation.Trials))
	}
	if c.Simulation.HorizonDays <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.horizon_days must be positive, got %d", c.Simulation.HorizonDays))
	}
	if c.Simulation.Workers <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.workers must be positive, got %d", c.Simulation.Workers))
	}
	if c.Server.MaxTrials <= 0 {
		errs = append(errs, fmt.Sprintf("server.max_trials must be positive, got %d", c.Server.MaxTrials))
	}
	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		errs = append(errs, "server.rate_limit and server.rate_burst must be positive")
	}
	if c.Report.InitialInvestment != "" {
		if _, err := decimal.NewFromString(c.Report.InitialInvestment); err != nil {
			errs = append(errs, fmt.Sprintf("report.initial_investment is not a number: %q", c.Report.InitialInvestment))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// SimulationDefaults converts the simulation section to a domain config.
func (c *Config) SimulationDefaults() domain.SimulationConfig {
	return domain.SimulationConfig{
		Trials:      c.Simulation.Trials,
		HorizonDays: c.Simulation.HorizonDays,
		Workers:     c.Simulation.Workers,
		Seed:        c.Simulation.Seed,
	}
}

// InitialInvestment returns the configured investment, or false if unset.
func (c *Config) InitialInvestment() (decimal.Decimal, bool) {
	if c.Report.InitialInvestment == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(c.Report.InitialInvestment)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the environment.
// Variables that are already set to a non-empty value are not overridden.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	for key, value := range vars {
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
