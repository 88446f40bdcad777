package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"stratlab/types"
)

// WriteTradesCSVFile writes trades to a CSV file at the given path.
func WriteTradesCSVFile(path string, trades []types.TradeEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, trades)
}

// WriteTradesCSV writes trades to any io.Writer as CSV.
func WriteTradesCSV(w io.Writer, trades []types.TradeEvent) error {
	cw := csv.NewWriter(w)

	header := []string{"trade_id", "symbol", "side", "quantity", "price", "value", "pnl", "timestamp"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, t := range trades {
		record := []string{
			strconv.Itoa(i),
			t.Symbol,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			t.Price.String(),
			t.Value().String(),
			t.PnL.String(),
			t.Timestamp.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteEquityCurveCSVFile writes the equity curve to a CSV file at path.
func WriteEquityCurveCSVFile(path string, curve []types.EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity file: %w", err)
	}
	defer f.Close()

	return WriteEquityCurveCSV(f, curve)
}

func WriteEquityCurveCSV(w io.Writer, curve []types.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range curve {
		if err := cw.Write([]string{p.Timestamp.Format(time.RFC3339), p.Value.String()}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
