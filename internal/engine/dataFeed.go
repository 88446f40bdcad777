package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"stratlab/internal/marketdata"
	"stratlab/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// loadData fetches bars at interval for every symbol in parallel. A symbol whose fetch
// fails or returns nothing is replaced by a synthetic series; the returned
// slice names those symbols. Successfully fetched data is never replaced.
func (e *Engine) loadData(ctx context.Context, backtestID string, symbols []string, interval types.Interval, start, end time.Time) (types.HistoricalData, []string) {
	data := make(types.HistoricalData, len(symbols))
	var (
		mu        sync.Mutex
		synthetic []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		g.Go(func() error {
			candles, err := e.provider.Fetch(gctx, symbol, start, end, interval)
			if err == nil && len(candles) == 0 {
				err = marketdata.ErrNoData
			}
			if err != nil {
				fetchErr := &marketdata.FetchError{Symbol: symbol, Err: err}
				e.logger.Warn("Historical data unavailable, using synthetic series",
					zap.String("backtest_id", backtestID),
					zap.String("symbol", symbol),
					zap.Error(fetchErr),
				)
				candles = e.synthetic.Generate(symbol, start, end)
				mu.Lock()
				synthetic = append(synthetic, symbol)
				mu.Unlock()
			}
			sort.SliceStable(candles, func(i, j int) bool {
				return candles[i].Timestamp.Before(candles[j].Timestamp)
			})
			mu.Lock()
			data[symbol] = candles
			mu.Unlock()
			return nil
		})
	}
	// Fetch failures are recovered above, so Wait never reports one.
	_ = g.Wait()

	sort.Strings(synthetic)
	return data, synthetic
}
