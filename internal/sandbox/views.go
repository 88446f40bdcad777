package sandbox

import (
	"time"

	"github.com/dop251/goja"
)

// portfolioObject is the script's live, read-only view of the ledger. Writes
// are refused, which throws in strict mode and is ignored otherwise.
type portfolioObject struct {
	b *bindings
}

func (p *portfolioObject) Get(key string) goja.Value {
	switch key {
	case "cash":
		return p.b.vm.ToValue(p.b.ledger.Cash().InexactFloat64())
	case "positions":
		return p.b.vm.NewDynamicObject(&positionsObject{b: p.b})
	}
	return nil
}

func (p *portfolioObject) Set(string, goja.Value) bool { return false }
func (p *portfolioObject) Has(key string) bool         { return key == "cash" || key == "positions" }
func (p *portfolioObject) Delete(string) bool          { return false }
func (p *portfolioObject) Keys() []string              { return []string{"cash", "positions"} }

type positionsObject struct {
	b *bindings
}

func (p *positionsObject) Get(key string) goja.Value {
	qty, ok := p.b.ledger.Position(key)
	if !ok {
		return nil
	}
	return p.b.vm.ToValue(qty)
}

func (p *positionsObject) Set(string, goja.Value) bool { return false }

func (p *positionsObject) Has(key string) bool {
	_, ok := p.b.ledger.Position(key)
	return ok
}

func (p *positionsObject) Delete(string) bool { return false }
func (p *positionsObject) Keys() []string     { return p.b.ledger.Symbols() }

// tradesArray exposes the accepted fills in order. Elements are frozen.
type tradesArray struct {
	b     *bindings
	cache []goja.Value
}

func (t *tradesArray) Len() int {
	return t.b.ledger.TradeCount()
}

func (t *tradesArray) Get(idx int) goja.Value {
	if idx < 0 || idx >= t.b.ledger.TradeCount() {
		return nil
	}
	for len(t.cache) <= idx {
		t.cache = append(t.cache, t.element(len(t.cache)))
	}
	return t.cache[idx]
}

func (t *tradesArray) element(idx int) goja.Value {
	trade := t.b.ledger.Trade(idx)
	vm := t.b.vm
	o := vm.NewObject()
	_ = o.Set("symbol", trade.Symbol)
	_ = o.Set("side", string(trade.Side))
	_ = o.Set("quantity", trade.Quantity)
	_ = o.Set("price", trade.Price.InexactFloat64())
	_ = o.Set("timestamp", trade.Timestamp.UTC().Format(time.RFC3339Nano))
	_ = o.Set("pnl", trade.PnL.InexactFloat64())
	return t.b.freezeObject(o)
}

func (t *tradesArray) Set(int, goja.Value) bool { return false }
func (t *tradesArray) SetLen(int) bool          { return false }
