package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stratlab/internal/config"
	"stratlab/internal/engine"
	"stratlab/internal/logging"
	"stratlab/internal/marketdata"
	"stratlab/internal/repository"
	"stratlab/internal/sandbox"
	"stratlab/strategies"
	"stratlab/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	strategy   string
	symbols    string
	start      string
	end        string
	capital    float64
	params     string
	tradesCSV  string
	equityCSV  string
	progress   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to YAML config")
	flag.StringVar(&opts.strategy, "strategy", "", "strategy script path or bundled name ("+strings.Join(strategies.Names(), ", ")+")")
	flag.StringVar(&opts.symbols, "symbols", "", "comma separated symbols; overrides detection from the script")
	flag.StringVar(&opts.start, "start", "", "first day, YYYY-MM-DD")
	flag.StringVar(&opts.end, "end", "", "last day, YYYY-MM-DD")
	flag.Float64Var(&opts.capital, "capital", 0, "initial capital (default from config)")
	flag.StringVar(&opts.params, "params", "", "strategy parameters, k=v,k2=v2")
	flag.StringVar(&opts.tradesCSV, "trades-csv", "", "write trades to this CSV file")
	flag.StringVar(&opts.equityCSV, "equity-csv", "", "write the equity curve to this CSV file")
	flag.BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	req, err := buildRequest(opts, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *repository.Database
	openDB := func() (*repository.Database, error) {
		if db != nil {
			return db, nil
		}
		db, err = repository.NewDatabase(ctx, cfg.Storage.DatabaseURL)
		return db, err
	}
	defer func() {
		if db != nil {
			db.Close()
		}
	}()

	provider, err := newProvider(cfg, openDB)
	if err != nil {
		return err
	}
	store, closeStore, err := newStore(ctx, cfg, openDB)
	if err != nil {
		return err
	}
	defer closeStore()

	interval, _ := cfg.Interval()
	reporting := engine.NewReportingConfig(cfg.Engine.DailyRiskFreeRate, nil)
	if opts.progress {
		reporting = engine.NewReportingConfig(cfg.Engine.DailyRiskFreeRate, os.Stderr)
	}
	eng := engine.NewEngine(
		provider,
		sandbox.NewInterpreter(cfg.Engine.StrategyTimeout),
		store,
		engine.NewDataConfig(interval, cfg.Engine.FallbackSymbol),
		reporting,
		logger,
	)

	res, runErr := eng.RunBacktest(ctx, req)
	if res != nil {
		engine.PrintReport(os.Stdout, res)
		if err := writeCSVs(opts, res); err != nil {
			return errors.Join(runErr, err)
		}
	}
	var perr *engine.PersistenceError
	if errors.As(runErr, &perr) && res != nil && res.Status == types.StatusCompleted {
		logger.Warn("Result computed but not stored", zap.String("backtest_id", res.ID), zap.Error(perr))
	}
	return runErr
}

func buildRequest(opts options, cfg *config.Config) (engine.BacktestRequest, error) {
	if opts.strategy == "" {
		return engine.BacktestRequest{}, errors.New("-strategy is required")
	}
	code, err := strategies.Load(opts.strategy)
	if err != nil {
		return engine.BacktestRequest{}, err
	}
	start, err := time.Parse(time.DateOnly, opts.start)
	if err != nil {
		return engine.BacktestRequest{}, fmt.Errorf("-start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, opts.end)
	if err != nil {
		return engine.BacktestRequest{}, fmt.Errorf("-end: %w", err)
	}
	params, err := parseParams(opts.params)
	if err != nil {
		return engine.BacktestRequest{}, err
	}
	capital := cfg.Engine.InitialCapital
	if opts.capital > 0 {
		capital = opts.capital
	}
	interval, _ := cfg.Interval()

	return engine.BacktestRequest{
		ID: uuid.NewString(),
		Strategy: types.StrategyDefinition{
			ID:         strings.TrimSuffix(filepath.Base(opts.strategy), ".js"),
			Code:       code,
			Parameters: params,
			Symbols:    splitList(opts.symbols),
			Interval:   interval,
		},
		InitialCapital: decimal.NewFromFloat(capital),
		Start:          start,
		End:            end,
	}, nil
}

// parseParams reads k=v pairs. Values that parse as numbers or booleans keep
// that type so scripts can do arithmetic on them.
func parseParams(s string) (map[string]any, error) {
	params := make(map[string]any)
	for _, pair := range splitList(s) {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("-params: %q is not key=value", pair)
		}
		v = strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params[k] = f
		} else if b, err := strconv.ParseBool(v); err == nil {
			params[k] = b
		} else {
			params[k] = v
		}
	}
	return params, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type engineProvider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.Candle, error)
}

func newProvider(cfg *config.Config, openDB func() (*repository.Database, error)) (engineProvider, error) {
	switch cfg.Data.Provider {
	case "alpaca":
		return marketdata.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed), nil
	case "postgres":
		return openDB()
	case "csv":
		return marketdata.NewCSVProvider(cfg.Data.CSVDir), nil
	default:
		return marketdata.NewRandomSynthetic(), nil
	}
}

func newStore(ctx context.Context, cfg *config.Config, openDB func() (*repository.Database, error)) (engine.ResultStore, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := openDB()
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		// Closed with the provider connection.
		return db, func() {}, nil
	case "sqlite":
		s, err := repository.NewSQLiteStore(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.Storage.SQLitePath, err)
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func writeCSVs(opts options, res *types.BacktestResult) error {
	if opts.tradesCSV != "" {
		if err := engine.WriteTradesCSVFile(opts.tradesCSV, res.Trades); err != nil {
			return err
		}
	}
	if opts.equityCSV != "" {
		if err := engine.WriteEquityCurveCSVFile(opts.equityCSV, res.EquityCurve); err != nil {
			return err
		}
	}
	return nil
}
