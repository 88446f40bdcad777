package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stratlab/types"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider reads historical bars from the Alpaca market-data API.
type AlpacaProvider struct {
	client *alpacamd.Client
	feed   string
}

func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string) *AlpacaProvider {
	opts := alpacamd.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaProvider{
		client: alpacamd.NewClient(opts),
		feed:   feed,
	}
}

func (p *AlpacaProvider) Fetch(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.Candle, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	tf, err := alpacaTimeFrame(interval)
	if err != nil {
		return nil, err
	}
	req := alpacamd.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		// end is inclusive for callers, exclusive for the API
		End: end.Add(interval.Duration()),
	}
	if p.feed != "" {
		req.Feed = alpacamd.Feed(p.feed)
	}
	bars, err := p.client.GetBars(strings.ToUpper(symbol), req)
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	candles := make([]types.Candle, 0, len(bars))
	for _, b := range bars {
		candles = append(candles, types.Candle{
			Symbol:    symbol,
			Open:      decimal.NewFromFloat(b.Open),
			High:      decimal.NewFromFloat(b.High),
			Low:       decimal.NewFromFloat(b.Low),
			Close:     decimal.NewFromFloat(b.Close),
			Volume:    decimal.NewFromInt(int64(b.Volume)),
			Interval:  interval,
			Timestamp: b.Timestamp.UTC(),
		})
	}
	return candles, nil
}

func alpacaTimeFrame(interval types.Interval) (alpacamd.TimeFrame, error) {
	switch interval {
	case types.OneMinute:
		return alpacamd.OneMin, nil
	case types.ThreeMinutes:
		return alpacamd.NewTimeFrame(3, alpacamd.Min), nil
	case types.FiveMinutes:
		return alpacamd.NewTimeFrame(5, alpacamd.Min), nil
	case types.FifteenMinutes:
		return alpacamd.NewTimeFrame(15, alpacamd.Min), nil
	case types.ThirtyMinutes:
		return alpacamd.NewTimeFrame(30, alpacamd.Min), nil
	case types.Hour:
		return alpacamd.OneHour, nil
	case types.TwoHours:
		return alpacamd.NewTimeFrame(2, alpacamd.Hour), nil
	case types.FourHours:
		return alpacamd.NewTimeFrame(4, alpacamd.Hour), nil
	case types.Day:
		return alpacamd.OneDay, nil
	case types.Week:
		return alpacamd.NewTimeFrame(1, alpacamd.Week), nil
	case types.Month:
		return alpacamd.NewTimeFrame(1, alpacamd.Month), nil
	}
	return alpacamd.TimeFrame{}, fmt.Errorf("interval %q not supported by alpaca", interval)
}
