package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"stratlab/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStrategyTimeout   = 30 * time.Second
	DefaultInitialCapital    = 100000.0
	DefaultDailyRiskFreeRate = 0.0002
	DefaultFallbackSymbol    = "NSE_EQ|INE002A01018"
	DefaultSQLitePath        = "backtests.db"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the backtester.
type Config struct {
	Engine  Engine  `yaml:"engine"`
	Data    Data    `yaml:"data"`
	Storage Storage `yaml:"storage"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Logging Logging `yaml:"logging"`
}

// Engine holds simulation parameters.
type Engine struct {
	StrategyTimeout   time.Duration `yaml:"strategy_timeout"`
	InitialCapital    float64       `yaml:"initial_capital"`
	DailyRiskFreeRate float64       `yaml:"daily_risk_free_rate"`
	FallbackSymbol    string        `yaml:"fallback_symbol"`
	Interval          string        `yaml:"interval"`
}

// Data selects the historical bar source: synthetic, alpaca, postgres or csv.
type Data struct {
	Provider string `yaml:"provider"`
	CSVDir   string `yaml:"csv_dir"`
}

// Storage selects where backtest records go: sqlite, postgres or none.
type Storage struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at path (skipped when path is
// empty), loads a .env file from the working directory if there is one,
// applies environment variable overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.Data.Provider = v
	}
	if v := os.Getenv("CSV_DIR"); v != "" {
		cfg.Data.CSVDir = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	// Standard Alpaca env vars, the names the SDK itself reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("STRATEGY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			// Bare numbers are seconds.
			secs, convErr := strconv.Atoi(v)
			if convErr != nil {
				return fmt.Errorf("invalid STRATEGY_TIMEOUT: %w", err)
			}
			d = time.Duration(secs) * time.Second
		}
		cfg.Engine.StrategyTimeout = d
	}
	if v := os.Getenv("FALLBACK_SYMBOL"); v != "" {
		cfg.Engine.FallbackSymbol = v
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Engine.StrategyTimeout == 0 {
		cfg.Engine.StrategyTimeout = DefaultStrategyTimeout
	}
	if cfg.Engine.InitialCapital == 0 {
		cfg.Engine.InitialCapital = DefaultInitialCapital
	}
	if cfg.Engine.DailyRiskFreeRate == 0 {
		cfg.Engine.DailyRiskFreeRate = DefaultDailyRiskFreeRate
	}
	if cfg.Engine.FallbackSymbol == "" {
		cfg.Engine.FallbackSymbol = DefaultFallbackSymbol
	}
	if cfg.Engine.Interval == "" {
		cfg.Engine.Interval = string(types.Day)
	}
	if cfg.Data.Provider == "" {
		cfg.Data.Provider = "synthetic"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = DefaultSQLitePath
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Interval returns the configured bar interval.
func (cfg *Config) Interval() (types.Interval, error) {
	return types.ParseInterval(cfg.Engine.Interval)
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Engine.StrategyTimeout <= 0 {
		errs = append(errs, errors.New("engine.strategy_timeout must be positive"))
	}
	if cfg.Engine.InitialCapital <= 0 {
		errs = append(errs, errors.New("engine.initial_capital must be positive"))
	}
	if _, err := cfg.Interval(); err != nil {
		errs = append(errs, fmt.Errorf("engine.interval: %w", err))
	}

	switch cfg.Data.Provider {
	case "synthetic":
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			errs = append(errs, errors.New("alpaca provider needs api_key and api_secret"))
		}
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres provider needs storage.database_url"))
		}
	case "csv":
		if cfg.Data.CSVDir == "" {
			errs = append(errs, errors.New("csv provider needs data.csv_dir"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown data.provider %q", cfg.Data.Provider))
	}

	switch cfg.Storage.Driver {
	case "sqlite", "none":
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres storage needs storage.database_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver))
	}
	return errors.Join(errs...)
}
