package engine

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"stratlab/types"

	"github.com/shopspring/decimal"
)

const (
	// DefaultDailyRiskFreeRate is roughly 5% a year spread over trading days.
	DefaultDailyRiskFreeRate = 0.0002
	tradingDaysPerYear       = 252
)

var hundred = decimal.NewFromInt(100)

// calculateMetrics derives the summary statistics of a run. It is a pure
// function of its inputs, and every ratio falls back to zero instead of NaN
// or Inf when its denominator is zero.
func calculateMetrics(
	curve []types.EquityPoint,
	trades []types.TradeEvent,
	initialCapital decimal.Decimal,
	dailyRiskFree float64,
) types.Metrics {
	m := types.Metrics{TotalTrades: len(trades)}
	returns := stepReturns(curve)

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		m.FinalValue = calcFinalValue(curve, initialCapital, &wg)
	}()
	go func() {
		m.TotalReturnPct = calcTotalReturnPct(curve, initialCapital, &wg)
	}()
	go func() {
		m.SharpeRatio = calcSharpeRatio(returns, dailyRiskFree, &wg)
	}()
	go func() {
		m.MaxDrawdownPct = calcMaxDrawdownPct(curve, &wg)
	}()
	go func() {
		m.WinRatePct, m.AvgTradePnl = calcTradeStats(trades, &wg)
	}()
	go func() {
		m.VolatilityPct = calcVolatilityPct(returns, &wg)
	}()
	wg.Wait()

	return m
}

func finalValue(curve []types.EquityPoint, initialCapital decimal.Decimal) decimal.Decimal {
	if len(curve) == 0 {
		return initialCapital
	}
	return curve[len(curve)-1].Value
}

func calcFinalValue(curve []types.EquityPoint, initialCapital decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	return finalValue(curve, initialCapital)
}

func calcTotalReturnPct(curve []types.EquityPoint, initialCapital decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if initialCapital.IsZero() {
		return decimal.Zero
	}
	return finalValue(curve, initialCapital).Sub(initialCapital).Div(initialCapital).Mul(hundred)
}

// stepReturns returns (equity[i]-equity[i-1])/equity[i-1] for i >= 1. A step
// from a zero value counts as a zero return.
func stepReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev.IsZero() {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, curve[i].Value.Sub(prev).Div(prev).InexactFloat64())
	}
	return returns
}

func meanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var varianceSum float64
	for _, x := range xs {
		diff := x - mean
		varianceSum += diff * diff
	}
	return mean, math.Sqrt(varianceSum / float64(len(xs)))
}

func finiteOrZero(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// calcSharpeRatio is the per-step Sharpe ratio, not annualized.
func calcSharpeRatio(returns []float64, dailyRiskFree float64, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(returns) == 0 {
		return decimal.Zero
	}
	mean, std := meanStdDev(returns)
	// Sums of identical floats can leave a residue around 1e-18.
	if std < 1e-12 {
		return decimal.Zero
	}
	return finiteOrZero((mean - dailyRiskFree) / std)
}

func calcVolatilityPct(returns []float64, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(returns) == 0 {
		return decimal.Zero
	}
	_, std := meanStdDev(returns)
	if std < 1e-12 {
		return decimal.Zero
	}
	return finiteOrZero(std * math.Sqrt(tradingDaysPerYear) * 100)
}

// calcMaxDrawdownPct is the largest fall from the running peak, in percent of
// that peak.
func calcMaxDrawdownPct(curve []types.EquityPoint, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(curve) == 0 {
		return decimal.Zero
	}

	peak := curve[0].Value
	maxDDPct := decimal.Zero
	for _, point := range curve {
		if point.Value.GreaterThan(peak) {
			peak = point.Value
		}
		if !peak.IsPositive() {
			continue
		}
		ddPct := peak.Sub(point.Value).Div(peak).Mul(hundred)
		if ddPct.GreaterThan(maxDDPct) {
			maxDDPct = ddPct
		}
	}
	return maxDDPct
}

// calcTradeStats returns the percentage of trades with positive P&L and the
// mean P&L per trade, over every trade in the ledger.
func calcTradeStats(trades []types.TradeEvent, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()
	if len(trades) == 0 {
		return decimal.Zero, decimal.Zero
	}

	wins := 0
	total := decimal.Zero
	for _, tr := range trades {
		if tr.PnL.IsPositive() {
			wins++
		}
		total = total.Add(tr.PnL)
	}
	n := decimal.NewFromInt(int64(len(trades)))
	winRate := decimal.NewFromInt(int64(wins)).Mul(hundred).Div(n)
	return winRate, total.Div(n)
}

// PrintReport writes a human readable summary of res to w.
func PrintReport(w io.Writer, res *types.BacktestResult) {
	fmt.Fprintln(w, "===== Backtest Report =====")
	fmt.Fprintf(w, "Backtest:              %s\n", res.ID)
	fmt.Fprintf(w, "Status:                %s\n", res.Status)
	if res.Error != "" {
		fmt.Fprintf(w, "Error:                 %s\n", res.Error)
	}
	fmt.Fprintf(w, "Period:                %s -> %s\n", res.Start.Format(time.DateOnly), res.End.Format(time.DateOnly))
	fmt.Fprintf(w, "Symbols:               %v\n", res.Symbols)
	if len(res.SyntheticSymbols) > 0 {
		fmt.Fprintf(w, "Synthetic data:        %v\n", res.SyntheticSymbols)
	}

	fmt.Fprintln(w, "\n-- Performance --")
	fmt.Fprintf(w, "Initial Capital:       %s\n", res.InitialCapital.StringFixed(2))
	fmt.Fprintf(w, "Final Value:           %s\n", res.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Total Return %%:        %s\n", res.TotalReturnPct.StringFixed(2))

	fmt.Fprintln(w, "\n-- Risk --")
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", res.SharpeRatio.StringFixed(4))
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", res.MaxDrawdownPct.StringFixed(2))
	fmt.Fprintf(w, "Volatility %%:          %s\n", res.VolatilityPct.StringFixed(2))

	fmt.Fprintln(w, "\n-- Trades --")
	fmt.Fprintf(w, "Total Trades:          %d\n", res.TotalTrades)
	fmt.Fprintf(w, "Rejected Orders:       %d\n", res.RejectedOrders)
	fmt.Fprintf(w, "Win Rate %%:            %s\n", res.WinRatePct.StringFixed(2))
	fmt.Fprintf(w, "Avg Trade P&L:         %s\n", res.AvgTradePnl.StringFixed(2))

	fmt.Fprintln(w, "===========================")
}
