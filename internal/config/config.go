// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Data describes where price history comes from and which universe to load.
type Data struct {
	Provider    string   // "yahoo" or "synthetic"
	Symbols     []string
	Start       string   // RFC3339 date, optional
	End         string   // RFC3339 date, optional
	MinCoverage int      `yaml:"min_coverage"`
	FillMethod  string   `yaml:"fill_method"`
}

// Strategy groups the dispersion-engine knobs.
type Strategy struct {
	Lookback        int     `yaml:"lookback"`
	MinCorrelation  float64 `yaml:"min_correlation"`
	MaxPositionSize float64 `yaml:"max_position_size"`
	Rebalance       string  `yaml:"rebalance"` // "1D", "1W", "1H"
}

// Backtest captures simulation parameters and the trade-log export path.
type Backtest struct {
	InitialCapital  float64 `yaml:"initial_capital"`
	TransactionCost float64 `yaml:"transaction_cost"`
	Slippage        float64 `yaml:"slippage"`
	TradesPath      string  `yaml:"trades_path"`
}

// Broker describes gateway connectivity. Environment variables override the
// file values, the way the live deployment keeps credentials out of YAML.
type Broker struct {
	Host     string
	Port     int
	ClientID int     `yaml:"client_id"`
	Cash     float64 // paper-mode starting cash
}

// Risk encodes guard-rails for how much size the live loop may take on.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	MaxDailyLoss        float64 `yaml:"max_daily_loss"`
	KillSwitchDrawdown  float64 `yaml:"kill_switch_drawdown"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Data     Data     `yaml:"data"`
	Strategy Strategy `yaml:"strategy"`
	Backtest Backtest `yaml:"backtest"`
	Broker   Broker   `yaml:"broker"`
	Risk     Risk     `yaml:"risk"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv loads a .env file if present and overrides broker connectivity
// from BROKER_HOST, BROKER_PORT, and BROKER_CLIENT_ID.
func (b *Broker) ApplyEnv() {
	_ = godotenv.Load()
	if host := os.Getenv("BROKER_HOST"); host != "" {
		b.Host = host
	}
	if port := os.Getenv("BROKER_PORT"); port != "" {
		if v, err := strconv.Atoi(port); err == nil {
			b.Port = v
		}
	}
	if id := os.Getenv("BROKER_CLIENT_ID"); id != "" {
		if v, err := strconv.Atoi(id); err == nil {
			b.ClientID = v
		}
	}
	if b.Host == "" {
		b.Host = "127.0.0.1"
	}
	if b.Port == 0 {
		b.Port = 7497
	}
	if b.ClientID == 0 {
		b.ClientID = 1
	}
}
