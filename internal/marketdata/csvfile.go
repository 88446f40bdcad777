package marketdata

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"stratlab/types"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var _ Provider = (*CSVProvider)(nil)

// CSVProvider reads bars from <dir>/<symbol>.csv. Rows are
// timestamp,open,high,low,close[,volume] where timestamp is epoch
// milliseconds, RFC3339 or a date. A header row is skipped. Bars are
// aggregated up to the requested interval.
type CSVProvider struct {
	dir string
}

func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// csvFileName maps a symbol to a file name; '|' and '/' are not portable.
func csvFileName(symbol string) string {
	return strings.NewReplacer("|", "_", "/", "_", "\\", "_").Replace(symbol) + ".csv"
}

func (p *CSVProvider) Fetch(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(p.dir, csvFileName(symbol)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoData
		}
		return nil, err
	}
	defer f.Close()

	bars, err := readCSVBars(f, symbol)
	if err != nil {
		return nil, err
	}
	var inRange []types.Candle
	for _, b := range bars {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		inRange = append(inRange, b)
	}
	if len(inRange) == 0 {
		return nil, ErrNoData
	}
	return resample(inRange, interval), nil
}

func readCSVBars(f io.ReadSeeker, symbol string) ([]types.Candle, error) {
	br := bufio.NewReader(f)
	// UTF-16 exports (spreadsheet tools) start with a BOM.
	if b, _ := br.Peek(2); len(b) == 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		tr := transform.NewReader(f, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
		br = bufio.NewReader(tr)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var bars []types.Candle
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", csvFileName(symbol), line, err)
		}
		if len(rec) < 5 {
			continue
		}
		tsField := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		if line == 1 && strings.HasPrefix(strings.ToLower(tsField), "timestamp") {
			continue
		}
		ts, err := parseCSVTime(tsField)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", csvFileName(symbol), line, err)
		}
		fields := make([]decimal.Decimal, 5)
		for i := 1; i < len(rec) && i <= 5; i++ {
			v, err := decimal.NewFromString(strings.TrimSpace(strings.Trim(rec[i], `"`)))
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %d: %w", csvFileName(symbol), line, i+1, err)
			}
			fields[i-1] = v
		}
		bars = append(bars, types.Candle{
			Symbol:    symbol,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
			Timestamp: ts,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func parseCSVTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// resample folds sorted bars into interval buckets aligned to the epoch:
// first open, max high, min low, last close, summed volume.
func resample(bars []types.Candle, interval types.Interval) []types.Candle {
	d := interval.Duration()
	out := make([]types.Candle, 0, len(bars))
	for _, b := range bars {
		bucket := b.Timestamp
		switch {
		case interval == types.Month:
			y, m, _ := b.Timestamp.Date()
			bucket = time.Date(y, m, 1, 0, 0, 0, 0, b.Timestamp.Location())
		case d > 0:
			bucket = b.Timestamp.Truncate(d)
		}
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(bucket) {
			agg := &out[n-1]
			agg.High = decimal.Max(agg.High, b.High)
			agg.Low = decimal.Min(agg.Low, b.Low)
			agg.Close = b.Close
			agg.Volume = agg.Volume.Add(b.Volume)
			continue
		}
		b.Timestamp = bucket
		b.Interval = interval
		out = append(out, b)
	}
	return out
}
