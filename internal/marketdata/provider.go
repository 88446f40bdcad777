// Package marketdata defines where historical bars come from: the Provider
// contract, a synthetic random-walk series used when a fetch fails, an
// Alpaca-backed provider and a directory of CSV files.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stratlab/types"
)

var ErrNoData = errors.New("no historical data")

// Provider returns bars for one symbol in ascending timestamp order.
type Provider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.Candle, error)
}

// FetchError is a failed fetch for a single symbol.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
