package marketdata

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"stratlab/types"

	"github.com/shopspring/decimal"
)

const (
	syntheticMinPrice  = 1000.0
	syntheticMaxPrice  = 3000.0
	syntheticMaxDrift  = 0.01
	syntheticBand      = 0.01
	syntheticMinVolume = 10000
	syntheticMaxVolume = 100000
)

var _ Provider = (*Synthetic)(nil)

// Synthetic produces a daily random walk. The seed price is drawn from
// [1000, 3000] and every day moves by a factor in [-1%, +1%]. High and low
// sit 1% around the day's price.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic returns a generator with a fixed seed, so two generators built
// with the same seed produce the same series.
func NewSynthetic(seed uint64) *Synthetic {
	return &Synthetic{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSynthetic returns a generator seeded from the runtime's entropy.
func NewRandomSynthetic() *Synthetic {
	return NewSynthetic(rand.Uint64())
}

// Generate builds one bar per calendar day from start to end inclusive.
func (s *Synthetic) Generate(symbol string, start, end time.Time) []types.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	price := syntheticMinPrice + s.rng.Float64()*(syntheticMaxPrice-syntheticMinPrice)

	var candles []types.Candle
	for !day.After(last) {
		price *= 1 + (s.rng.Float64()*2-1)*syntheticMaxDrift
		volume := syntheticMinVolume + s.rng.IntN(syntheticMaxVolume-syntheticMinVolume+1)
		p := decimal.NewFromFloat(price).Round(4)
		candles = append(candles, types.Candle{
			Symbol:    symbol,
			Open:      p,
			Close:     p,
			High:      decimal.NewFromFloat(price * (1 + syntheticBand)).Round(4),
			Low:       decimal.NewFromFloat(price * (1 - syntheticBand)).Round(4),
			Volume:    decimal.NewFromInt(int64(volume)),
			Interval:  types.Day,
			Timestamp: day,
		})
		day = day.AddDate(0, 0, 1)
	}
	return candles
}

// Fetch lets the generator stand in as a Provider. It ignores interval and
// always produces daily bars.
func (s *Synthetic) Fetch(ctx context.Context, symbol string, start, end time.Time, _ types.Interval) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Generate(symbol, start, end), nil
}
