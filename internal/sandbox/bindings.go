package sandbox

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"stratlab/internal/indicators"
	"stratlab/types"

	"github.com/dop251/goja"
	"github.com/shopspring/decimal"
)

const deepFreezeSrc = `(function deepFreeze(o) {
	if (o === null || typeof o !== "object" || Object.isFrozen(o)) {
		return o;
	}
	Object.getOwnPropertyNames(o).forEach(function (k) { deepFreeze(o[k]); });
	return Object.freeze(o);
})`

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type bindings struct {
	vm         *goja.Runtime
	ledger     Ledger
	deepFreeze goja.Callable
	jsonParse  goja.Callable
}

func (b *bindings) install(parameters map[string]any, data types.HistoricalData) error {
	freezeFn, err := b.vm.RunString(deepFreezeSrc)
	if err != nil {
		return err
	}
	var ok bool
	if b.deepFreeze, ok = goja.AssertFunction(freezeFn); !ok {
		return fmt.Errorf("deepFreeze is not callable")
	}
	if b.jsonParse, ok = goja.AssertFunction(b.vm.Get("JSON").ToObject(b.vm).Get("parse")); !ok {
		return fmt.Errorf("JSON.parse is not callable")
	}

	dataValue, err := b.frozen(barsForScript(data))
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if parameters == nil {
		parameters = map[string]any{}
	}
	paramsValue, err := b.frozen(parameters)
	if err != nil {
		return fmt.Errorf("parameters: %w", err)
	}

	globals := map[string]any{
		"data":       dataValue,
		"parameters": paramsValue,
		"portfolio":  b.vm.NewDynamicObject(&portfolioObject{b: b}),
		"trades":     b.vm.NewDynamicArray(&tradesArray{b: b}),
		"buy":        b.order(types.SideTypeBuy),
		"sell":       b.order(types.SideTypeSell),
		"sma":        b.sma,
		"rsi":        b.rsi,
	}
	for name, v := range globals {
		if err := b.vm.Set(name, v); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

// frozen copies v into the runtime through JSON so the script never holds a
// reference to host memory, then freezes the copy.
func (b *bindings) frozen(v any) (goja.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	parsed, err := b.jsonParse(goja.Undefined(), b.vm.ToValue(string(raw)))
	if err != nil {
		return nil, err
	}
	return b.deepFreeze(goja.Undefined(), parsed)
}

func (b *bindings) freezeObject(o *goja.Object) goja.Value {
	v, err := b.deepFreeze(goja.Undefined(), o)
	if err != nil {
		panic(err)
	}
	return v
}

type scriptBar struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func barsForScript(data types.HistoricalData) map[string][]scriptBar {
	out := make(map[string][]scriptBar, len(data))
	for symbol, candles := range data {
		bars := make([]scriptBar, 0, len(candles))
		for _, c := range candles {
			bars = append(bars, scriptBar{
				Timestamp: c.Timestamp.UTC().Format(time.RFC3339Nano),
				Open:      c.Open.InexactFloat64(),
				High:      c.High.InexactFloat64(),
				Low:       c.Low.InexactFloat64(),
				Close:     c.Close.InexactFloat64(),
				Volume:    c.Volume.InexactFloat64(),
			})
		}
		out[symbol] = bars
	}
	return out
}

// order builds buy or sell. Invalid arguments become a rejected order, never
// a script error.
func (b *bindings) order(side types.Side) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		symbol := argString(call.Argument(0))
		quantity := argQuantity(call.Argument(1))
		price := argPrice(call.Argument(2))
		ts := argTimestamp(call.Argument(3))

		switch side {
		case types.SideTypeBuy:
			b.ledger.Buy(symbol, quantity, price, ts)
		case types.SideTypeSell:
			b.ledger.Sell(symbol, quantity, price, ts)
		}
		return goja.Undefined()
	}
}

func (b *bindings) sma(call goja.FunctionCall) goja.Value {
	prices := b.floats(call.Argument(0))
	period := int(call.Argument(1).ToInteger())
	return b.array(indicators.SMA(prices, period))
}

func (b *bindings) rsi(call goja.FunctionCall) goja.Value {
	prices := b.floats(call.Argument(0))
	period := indicators.DefaultRSIPeriod
	if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
		period = int(arg.ToInteger())
	}
	return b.array(indicators.RSI(prices, period))
}

func (b *bindings) floats(v goja.Value) []float64 {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	var out []float64
	if err := b.vm.ExportTo(v, &out); err != nil {
		panic(b.vm.NewTypeError("prices must be an array of numbers"))
	}
	return out
}

func (b *bindings) array(values []float64) goja.Value {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return b.vm.NewArray(items...)
}

func argString(v goja.Value) string {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// argQuantity returns 0 for anything that is not a positive whole number.
func argQuantity(v goja.Value) int64 {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func argPrice(v goja.Value) decimal.Decimal {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return decimal.Zero
	}
	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// argTimestamp accepts Date objects, epoch milliseconds and ISO-8601 strings.
// The zero time means unparseable.
// maxEpochMillis is the largest epoch a JavaScript Date can hold.
const maxEpochMillis = 8.64e15

func argTimestamp(v goja.Value) time.Time {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return time.Time{}
	}
	switch x := v.Export().(type) {
	case time.Time:
		return x.UTC()
	case int64:
		if x < -maxEpochMillis || x > maxEpochMillis {
			return time.Time{}
		}
		return time.UnixMilli(x).UTC()
	case float64:
		if math.IsNaN(x) || math.Abs(x) > maxEpochMillis {
			return time.Time{}
		}
		return time.UnixMilli(int64(x)).UTC()
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
