package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stratlab/internal/marketdata"
	"stratlab/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCancelled      = errors.New("backtest cancelled")
	ErrInvalidRequest = errors.New("invalid backtest request")
)

// PersistenceError is a failed durable write. The in-memory result returned
// alongside it is still complete.
type PersistenceError struct {
	BacktestID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist backtest %s: %v", e.BacktestID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type BacktestRequest struct {
	ID             string
	Strategy       types.StrategyDefinition
	InitialCapital decimal.Decimal
	Start          time.Time
	End            time.Time
}

func (r BacktestRequest) validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidRequest)
	case !r.InitialCapital.IsPositive():
		return fmt.Errorf("%w: initial capital must be positive", ErrInvalidRequest)
	case r.End.Before(r.Start):
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRequest, r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	case r.Strategy.Interval != "":
		if _, ok := types.ConvertInterval[string(r.Strategy.Interval)]; !ok {
			return fmt.Errorf("%w: unknown interval %q", ErrInvalidRequest, r.Strategy.Interval)
		}
	}
	return nil
}

// Engine runs backtests. It holds only collaborators and configuration, so
// concurrent runs share no mutable state.
type Engine struct {
	provider        dataProvider
	synthetic       syntheticSource
	sandbox         interpreter
	store           ResultStore
	dataConfig      *DataConfig
	reportingConfig *ReportingConfig
	logger          *zap.Logger
}

// NewEngine wires an engine. A nil store keeps results in memory only, a nil
// logger discards logs and nil configs take their defaults.
func NewEngine(
	provider dataProvider,
	sandbox interpreter,
	store ResultStore,
	dataConfig *DataConfig,
	reportingConfig *ReportingConfig,
	logger *zap.Logger,
) *Engine {
	if store == nil {
		store = nopStore{}
	}
	if dataConfig == nil {
		dataConfig = NewDataConfig("", "")
	}
	if reportingConfig == nil {
		reportingConfig = NewReportingConfig(DefaultDailyRiskFreeRate, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider:        provider,
		synthetic:       marketdata.NewRandomSynthetic(),
		sandbox:         sandbox,
		store:           store,
		dataConfig:      dataConfig,
		reportingConfig: reportingConfig,
		logger:          logger,
	}
}

// WithSynthetic replaces the fallback series generator.
func (e *Engine) WithSynthetic(s syntheticSource) *Engine {
	e.synthetic = s
	return e
}

// RunBacktest creates the backtest record and runs the whole pipeline:
// resolve symbols, fetch bars, execute the strategy, rebuild the equity curve,
// compute metrics and persist. A failed stage leaves the record in error; a
// failed final write returns the result with a *PersistenceError.
func (e *Engine) RunBacktest(ctx context.Context, req BacktestRequest) (*types.BacktestResult, error) {
	if err := e.create(ctx, req); err != nil {
		return nil, err
	}
	return e.execute(ctx, req)
}

func (e *Engine) create(ctx context.Context, req BacktestRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	if err := e.store.CreateBacktest(ctx, req.ID, req.Strategy.ID, req.Start, req.End, req.InitialCapital); err != nil {
		return &PersistenceError{BacktestID: req.ID, Err: err}
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, req BacktestRequest) (*types.BacktestResult, error) {
	started := time.Now()
	res := &types.BacktestResult{
		ID:             req.ID,
		StrategyID:     req.Strategy.ID,
		Status:         types.StatusPending,
		InitialCapital: req.InitialCapital,
		Start:          req.Start,
		End:            req.End,
		Trades:         []types.TradeEvent{},
		EquityCurve:    []types.EquityPoint{},
	}
	res.FinalValue = req.InitialCapital

	if err := ctx.Err(); err != nil {
		return e.cancel(ctx, res)
	}
	if err := e.store.UpdateStatus(ctx, res.ID, types.StatusRunning, ""); err != nil {
		return e.fail(ctx, res, &PersistenceError{BacktestID: res.ID, Err: err})
	}
	res.Status = types.StatusRunning

	symbols, usedFallback := resolveSymbols(req.Strategy, e.dataConfig.fallbackSymbol)
	res.Symbols = symbols
	if usedFallback {
		e.logger.Warn("Strategy names no symbols, using fallback",
			zap.String("backtest_id", res.ID),
			zap.String("symbol", e.dataConfig.fallbackSymbol),
		)
	}
	e.logger.Info("Starting backtest",
		zap.String("backtest_id", res.ID),
		zap.String("strategy_id", res.StrategyID),
		zap.Strings("symbols", symbols),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
	)

	interval := req.Strategy.Interval
	if interval == "" {
		interval = e.dataConfig.interval
	}
	data, synthetic := e.loadData(ctx, res.ID, symbols, interval, req.Start, req.End)
	res.SyntheticSymbols = synthetic

	if ctx.Err() != nil {
		return e.cancel(ctx, res)
	}
	ledger := newPortfolio(req.InitialCapital)
	if err := e.sandbox.Run(req.Strategy.Code, req.Strategy.Parameters, data, ledger); err != nil {
		return e.fail(ctx, res, err)
	}
	res.Trades = ledger.Trades()
	res.RejectedOrders = ledger.Rejected()

	if ctx.Err() != nil {
		return e.cancel(ctx, res)
	}
	res.EquityCurve = reconstructEquityCurve(res.Trades, data, req.InitialCapital, e.reportingConfig.progress)
	res.Metrics = calculateMetrics(res.EquityCurve, res.Trades, req.InitialCapital, e.reportingConfig.dailyRiskFreeRate)

	res.Status = types.StatusCompleted
	res.CompletedAt = time.Now().UTC()
	if err := e.store.SaveResult(context.WithoutCancel(ctx), res); err != nil {
		e.logger.Error("Failed to persist backtest result",
			zap.String("backtest_id", res.ID),
			zap.Error(err),
		)
		return res, &PersistenceError{BacktestID: res.ID, Err: err}
	}

	e.logger.Info("Backtest completed",
		zap.String("backtest_id", res.ID),
		zap.Int("trades", res.TotalTrades),
		zap.Int("rejected_orders", res.RejectedOrders),
		zap.String("final_value", res.FinalValue.StringFixed(2)),
		zap.Duration("duration", time.Since(started)),
	)
	return res, nil
}

// fail moves the record to error, keeping the triggering message.
func (e *Engine) fail(ctx context.Context, res *types.BacktestResult, cause error) (*types.BacktestResult, error) {
	res.Status = types.StatusError
	res.Error = cause.Error()
	res.CompletedAt = time.Now().UTC()
	e.logger.Error("Backtest failed",
		zap.String("backtest_id", res.ID),
		zap.Error(cause),
	)
	if err := e.store.SaveResult(context.WithoutCancel(ctx), res); err != nil {
		e.logger.Error("Failed to persist backtest error",
			zap.String("backtest_id", res.ID),
			zap.Error(err),
		)
		return res, errors.Join(cause, &PersistenceError{BacktestID: res.ID, Err: err})
	}
	return res, cause
}

func (e *Engine) cancel(ctx context.Context, res *types.BacktestResult) (*types.BacktestResult, error) {
	res.Status = types.StatusCancelled
	res.Error = ErrCancelled.Error()
	res.CompletedAt = time.Now().UTC()
	e.logger.Info("Backtest cancelled", zap.String("backtest_id", res.ID))
	if err := e.store.UpdateStatus(context.WithoutCancel(ctx), res.ID, types.StatusCancelled, res.Error); err != nil {
		return res, errors.Join(ErrCancelled, &PersistenceError{BacktestID: res.ID, Err: err})
	}
	return res, ErrCancelled
}
