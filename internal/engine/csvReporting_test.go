package engine

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"stratlab/types"

	"github.com/shopspring/decimal"
)

func TestWriteTradesCSV(t *testing.T) {
	trades := []types.TradeEvent{
		trade(types.SideTypeBuy, "X", 10, 100, day(0)),
		{Symbol: "X", Side: types.SideTypeSell, Quantity: 4, Price: decimal.NewFromInt(105), Timestamp: day(1), PnL: decimal.NewFromInt(20)},
	}
	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, trades); err != nil {
		t.Fatalf("WriteTradesCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2", len(records))
	}
	want := []string{"1", "X", "SELL", "4", "105", "420", "20", "2024-01-02T00:00:00Z"}
	for i, v := range want {
		if records[2][i] != v {
			t.Errorf("column %s = %q, want %q", records[0][i], records[2][i], v)
		}
	}
}

func TestWriteEquityCurveCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equity.csv")
	if err := WriteEquityCurveCSVFile(path, curveOf(100, 101.5)); err != nil {
		t.Fatalf("WriteEquityCurveCSVFile: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0][0] != "timestamp" || records[2][1] != "101.5" {
		t.Errorf("unexpected records: %v", records)
	}
}
