package engine

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"stratlab/types"

	"github.com/shopspring/decimal"
)

func curveOf(vals ...float64) []types.EquityPoint {
	out := make([]types.EquityPoint, len(vals))
	for i, v := range vals {
		out[i] = types.EquityPoint{Timestamp: day(i), Value: decimal.NewFromFloat(v)}
	}
	return out
}

func approx(t *testing.T, name string, got decimal.Decimal, want float64) {
	t.Helper()
	if math.Abs(got.InexactFloat64()-want) > 1e-6 {
		t.Errorf("%s = %s, want %v", name, got, want)
	}
}

func TestCalculateMetrics(t *testing.T) {
	tests := []struct {
		name    string
		curve   []types.EquityPoint
		trades  []types.TradeEvent
		initial float64
		rf      float64

		finalValue  float64
		totalReturn float64
		sharpe      float64
		maxDD       float64
		winRate     float64
		avgPnl      float64
		volatility  float64
	}{
		{
			name:       "empty curve and ledger",
			initial:    100000,
			finalValue: 100000,
		},
		{
			name:       "single point",
			curve:      curveOf(100000),
			initial:    100000,
			finalValue: 100000,
		},
		{
			name:       "flat curve has zero sharpe and volatility",
			curve:      curveOf(100000, 100000, 100000, 100000),
			initial:    100000,
			rf:         DefaultDailyRiskFreeRate,
			finalValue: 100000,
		},
		{
			name:        "buy and hold",
			curve:       curveOf(100000, 100100, 100200, 100300, 100500),
			initial:     100000,
			finalValue:  100500,
			totalReturn: 0.5,
			// returns 0.001, 0.000999, 0.000998, 0.001994
			sharpe:     2.8960,
			volatility: 0.6840,
		},
		{
			name:        "known returns",
			curve:       curveOf(100, 110, 104.5),
			initial:     100,
			finalValue:  104.5,
			totalReturn: 4.5,
			sharpe:      1.0 / 3.0,
			maxDD:       5,
			volatility:  0.075 * math.Sqrt(252) * 100,
		},
		{
			name:        "drawdown from running peak",
			curve:       curveOf(100, 120, 90, 130),
			initial:     100,
			finalValue:  130,
			totalReturn: 30,
			maxDD:       25,
			sharpe:      math.NaN(),
			volatility:  math.NaN(),
		},
		{
			name:  "win rate over every trade",
			curve: curveOf(1000, 1000),
			trades: []types.TradeEvent{
				{PnL: decimal.Zero},
				{PnL: decimal.NewFromInt(20)},
				{PnL: decimal.NewFromInt(-10)},
				{PnL: decimal.Zero},
			},
			initial:    1000,
			finalValue: 1000,
			winRate:    25,
			avgPnl:     2.5,
		},
		{
			name:        "step from zero counts as zero return",
			curve:       curveOf(0, 0, 50),
			initial:     100,
			finalValue:  50,
			totalReturn: -50,
			maxDD:       0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := calculateMetrics(tt.curve, tt.trades, decimal.NewFromFloat(tt.initial), tt.rf)

			approx(t, "final value", m.FinalValue, tt.finalValue)
			approx(t, "total return", m.TotalReturnPct, tt.totalReturn)
			approx(t, "max drawdown", m.MaxDrawdownPct, tt.maxDD)
			approx(t, "win rate", m.WinRatePct, tt.winRate)
			approx(t, "avg pnl", m.AvgTradePnl, tt.avgPnl)
			if !math.IsNaN(tt.sharpe) && math.Abs(m.SharpeRatio.InexactFloat64()-tt.sharpe) > 1e-3 {
				t.Errorf("sharpe = %s, want %v", m.SharpeRatio, tt.sharpe)
			}
			if !math.IsNaN(tt.volatility) && math.Abs(m.VolatilityPct.InexactFloat64()-tt.volatility) > 1e-3 {
				t.Errorf("volatility = %s, want %v", m.VolatilityPct, tt.volatility)
			}
			if m.TotalTrades != len(tt.trades) {
				t.Errorf("total trades = %d, want %d", m.TotalTrades, len(tt.trades))
			}
			if m.MaxDrawdownPct.IsNegative() || m.MaxDrawdownPct.GreaterThan(hundred) {
				t.Errorf("max drawdown out of range: %s", m.MaxDrawdownPct)
			}
			if m.WinRatePct.IsNegative() || m.WinRatePct.GreaterThan(hundred) {
				t.Errorf("win rate out of range: %s", m.WinRatePct)
			}
			if m.VolatilityPct.IsNegative() {
				t.Errorf("volatility negative: %s", m.VolatilityPct)
			}
		})
	}
}

func TestCalculateMetricsIsIdempotent(t *testing.T) {
	curve := curveOf(100, 103, 99, 120, 118, 125)
	trades := []types.TradeEvent{{PnL: decimal.NewFromInt(5)}, {PnL: decimal.NewFromInt(-2)}}
	a := calculateMetrics(curve, trades, decimal.NewFromInt(100), DefaultDailyRiskFreeRate)
	b := calculateMetrics(curve, trades, decimal.NewFromInt(100), DefaultDailyRiskFreeRate)

	pairs := map[string][2]decimal.Decimal{
		"final value":  {a.FinalValue, b.FinalValue},
		"total return": {a.TotalReturnPct, b.TotalReturnPct},
		"sharpe":       {a.SharpeRatio, b.SharpeRatio},
		"max drawdown": {a.MaxDrawdownPct, b.MaxDrawdownPct},
		"win rate":     {a.WinRatePct, b.WinRatePct},
		"avg pnl":      {a.AvgTradePnl, b.AvgTradePnl},
		"volatility":   {a.VolatilityPct, b.VolatilityPct},
	}
	for name, p := range pairs {
		if !p[0].Equal(p[1]) {
			t.Errorf("%s differs between runs: %s vs %s", name, p[0], p[1])
		}
	}
}

func TestPrintReport(t *testing.T) {
	res := &types.BacktestResult{
		ID:               "bt-1",
		Status:           types.StatusCompleted,
		InitialCapital:   decimal.NewFromInt(100000),
		Start:            day(0),
		End:              day(4),
		Symbols:          []string{"X"},
		SyntheticSymbols: []string{"X"},
		RejectedOrders:   2,
		Metrics: types.Metrics{
			FinalValue:     decimal.NewFromInt(100500),
			TotalReturnPct: decimal.RequireFromString("0.5"),
			TotalTrades:    1,
		},
	}
	var buf bytes.Buffer
	PrintReport(&buf, res)
	out := buf.String()
	for _, want := range []string{"bt-1", "completed", "100500.00", "0.50", "Synthetic data", "Rejected Orders:       2"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
