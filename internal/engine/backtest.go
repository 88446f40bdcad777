package engine

import (
	"io"
	"sort"
	"time"

	"stratlab/types"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// timeAxis returns the sorted, de-duplicated union of every bar timestamp.
func timeAxis(data types.HistoricalData) []time.Time {
	seen := make(map[int64]struct{})
	var axis []time.Time
	for _, candles := range data {
		for _, c := range candles {
			key := c.Timestamp.UnixNano()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			axis = append(axis, c.Timestamp)
		}
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}

// closeIndex maps symbol -> unix nanos -> close price.
func closeIndex(data types.HistoricalData) map[string]map[int64]decimal.Decimal {
	out := make(map[string]map[int64]decimal.Decimal, len(data))
	for symbol, candles := range data {
		closes := make(map[int64]decimal.Decimal, len(candles))
		for _, c := range candles {
			closes[c.Timestamp.UnixNano()] = c.Close
		}
		out[symbol] = closes
	}
	return out
}

// reconstructEquityCurve replays trades in timestamp order against a running
// cash/positions snapshot and marks the portfolio to market at every
// timestamp of the data's time axis. Trades at or before a timestamp are
// applied before that point is valued. A held symbol with no close at a
// timestamp contributes nothing to that point.
func reconstructEquityCurve(
	trades []types.TradeEvent,
	data types.HistoricalData,
	initialCash decimal.Decimal,
	progress io.Writer,
) []types.EquityPoint {
	axis := timeAxis(data)
	if len(axis) == 0 {
		return []types.EquityPoint{}
	}
	closes := closeIndex(data)

	ordered := append([]types.TradeEvent(nil), trades...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	bar := initProgressBar(len(axis), progress)
	defer bar.Finish()

	cash := initialCash
	positions := make(map[string]int64)
	curve := make([]types.EquityPoint, 0, len(axis))
	next := 0

	for _, ts := range axis {
		for next < len(ordered) && !ordered[next].Timestamp.After(ts) {
			tr := ordered[next]
			switch tr.Side {
			case types.SideTypeBuy:
				cash = cash.Sub(tr.Value())
				positions[tr.Symbol] += tr.Quantity
			case types.SideTypeSell:
				cash = cash.Add(tr.Value())
				positions[tr.Symbol] -= tr.Quantity
			}
			next++
		}

		value := cash
		key := ts.UnixNano()
		for symbol, qty := range positions {
			if qty == 0 {
				continue
			}
			if price, ok := closes[symbol][key]; ok {
				value = value.Add(price.Mul(decimal.NewFromInt(qty)))
			}
		}
		curve = append(curve, types.EquityPoint{Timestamp: ts, Value: value})
		bar.Add(1)
	}
	return curve
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Building equity curve..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
