package engine

import (
	"io"

	"stratlab/types"
)

const DefaultFallbackSymbol = "NSE_EQ|INE002A01018"

type DataConfig struct {
	interval       types.Interval
	fallbackSymbol string
}

// NewDataConfig sets the bar interval requested from providers and the symbol
// used when a strategy names none.
func NewDataConfig(interval types.Interval, fallbackSymbol string) *DataConfig {
	if interval == "" {
		interval = types.Day
	}
	if fallbackSymbol == "" {
		fallbackSymbol = DefaultFallbackSymbol
	}
	return &DataConfig{
		interval:       interval,
		fallbackSymbol: fallbackSymbol,
	}
}

type ReportingConfig struct {
	dailyRiskFreeRate float64
	progress          io.Writer
}

// NewReportingConfig sets the per-step risk-free rate used by the Sharpe
// ratio. A non-nil progress writer renders a progress bar while the equity
// curve is built.
func NewReportingConfig(dailyRiskFreeRate float64, progress io.Writer) *ReportingConfig {
	return &ReportingConfig{
		dailyRiskFreeRate: dailyRiskFreeRate,
		progress:          progress,
	}
}
