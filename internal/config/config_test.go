package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stratlab/types"
)

var overrideVars = []string{
	"DATABASE_URL", "STORAGE_DRIVER", "SQLITE_PATH", "DATA_PROVIDER", "CSV_DIR",
	"ALPACA_DATA_URL", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "LOG_LEVEL",
	"LOG_FORMAT", "STRATEGY_TIMEOUT", "FALLBACK_SYMBOL",
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range overrideVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
engine:
  strategy_timeout: 5s
  initial_capital: 250000
  daily_risk_free_rate: 0.0001
  fallback_symbol: "AAPL"
  interval: "60"
data:
  provider: "csv"
  csv_dir: "/data/bars"
storage:
  driver: "postgres"
  database_url: "postgres://localhost/backtests"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
  feed: "sip"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	// -- Engine --
	if cfg.Engine.StrategyTimeout != 5*time.Second {
		t.Errorf("Engine.StrategyTimeout = %v, want 5s", cfg.Engine.StrategyTimeout)
	}
	if cfg.Engine.InitialCapital != 250000 {
		t.Errorf("Engine.InitialCapital = %v, want 250000", cfg.Engine.InitialCapital)
	}
	if cfg.Engine.DailyRiskFreeRate != 0.0001 {
		t.Errorf("Engine.DailyRiskFreeRate = %v, want 0.0001", cfg.Engine.DailyRiskFreeRate)
	}
	if cfg.Engine.FallbackSymbol != "AAPL" {
		t.Errorf("Engine.FallbackSymbol = %q, want %q", cfg.Engine.FallbackSymbol, "AAPL")
	}
	if iv, _ := cfg.Interval(); iv != types.Hour {
		t.Errorf("Interval() = %q, want %q", iv, types.Hour)
	}

	// -- Data / Storage --
	if cfg.Data.Provider != "csv" || cfg.Data.CSVDir != "/data/bars" {
		t.Errorf("Data = %+v", cfg.Data)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DatabaseURL != "postgres://localhost/backtests" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}

	// -- Alpaca / Logging --
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca = %+v", cfg.Alpaca)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	if cfg.Engine.StrategyTimeout != DefaultStrategyTimeout {
		t.Errorf("StrategyTimeout = %v", cfg.Engine.StrategyTimeout)
	}
	if cfg.Engine.InitialCapital != DefaultInitialCapital {
		t.Errorf("InitialCapital = %v", cfg.Engine.InitialCapital)
	}
	if cfg.Engine.DailyRiskFreeRate != DefaultDailyRiskFreeRate {
		t.Errorf("DailyRiskFreeRate = %v", cfg.Engine.DailyRiskFreeRate)
	}
	if cfg.Engine.FallbackSymbol != DefaultFallbackSymbol {
		t.Errorf("FallbackSymbol = %q", cfg.Engine.FallbackSymbol)
	}
	if iv, _ := cfg.Interval(); iv != types.Day {
		t.Errorf("Interval() = %q, want D", iv)
	}
	if cfg.Data.Provider != "synthetic" || cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != DefaultSQLitePath {
		t.Errorf("Data/Storage = %+v / %+v", cfg.Data, cfg.Storage)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
engine:
  strategy_timeout: 5s
storage:
  driver: "sqlite"
alpaca:
  api_key: "file-key"
`)
	t.Setenv("STRATEGY_TIMEOUT", "12")
	t.Setenv("FALLBACK_SYMBOL", "MSFT")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "env-secret")
	t.Setenv("DATA_PROVIDER", "alpaca")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Engine.StrategyTimeout != 12*time.Second {
		t.Errorf("StrategyTimeout = %v, want 12s", cfg.Engine.StrategyTimeout)
	}
	if cfg.Engine.FallbackSymbol != "MSFT" {
		t.Errorf("FallbackSymbol = %q", cfg.Engine.FallbackSymbol)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DatabaseURL != "postgres://env/db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Alpaca.APIKey != "env-key" || cfg.Alpaca.APISecret != "env-secret" {
		t.Errorf("Alpaca = %+v", cfg.Alpaca)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestInvalidTimeoutEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STRATEGY_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("Load() accepted STRATEGY_TIMEOUT=soon")
	}
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FALLBACK_SYMBOL=FROM_DOTENV\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Engine.FallbackSymbol != "FROM_DOTENV" {
		t.Errorf("FallbackSymbol = %q, want FROM_DOTENV", cfg.Engine.FallbackSymbol)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative capital", func(c *Config) { c.Engine.InitialCapital = -1 }, "initial_capital"},
		{"negative timeout", func(c *Config) { c.Engine.StrategyTimeout = -time.Second }, "strategy_timeout"},
		{"bad interval", func(c *Config) { c.Engine.Interval = "fortnight" }, "interval"},
		{"unknown provider", func(c *Config) { c.Data.Provider = "ftp" }, "data.provider"},
		{"alpaca without keys", func(c *Config) { c.Data.Provider = "alpaca" }, "api_key"},
		{"csv without dir", func(c *Config) { c.Data.Provider = "csv" }, "csv_dir"},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }, "database_url"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"no storage is fine", func(c *Config) { c.Storage.Driver = "none" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
