package engine

import (
	"sort"
	"time"

	"stratlab/types"

	"github.com/shopspring/decimal"
)

// portfolio is the cash and share ledger mutated by a strategy's buy and sell
// calls. Cash and every position stay non-negative at every point of the
// ledger replayed in timestamp order: orders that would break that are
// rejected and only counted.
type portfolio struct {
	initialCash decimal.Decimal
	cash        decimal.Decimal
	positions   map[string]*Position
	trades      []types.TradeEvent
	rejected    int
}

type Position struct {
	Symbol   string
	Quantity int64
	AvgCost  decimal.Decimal
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]*Position),
	}
}

// Buy debits quantity*price from cash and credits the position. It reports
// whether the order was filled.
func (p *portfolio) Buy(symbol string, quantity int64, price decimal.Decimal, ts time.Time) bool {
	return p.fill(types.TradeEvent{
		Symbol:    symbol,
		Side:      types.SideTypeBuy,
		Quantity:  quantity,
		Price:     price,
		Timestamp: ts,
	})
}

// Sell credits quantity*price to cash and debits the position. Selling more
// than is held is rejected; there is no short side.
func (p *portfolio) Sell(symbol string, quantity int64, price decimal.Decimal, ts time.Time) bool {
	return p.fill(types.TradeEvent{
		Symbol:    symbol,
		Side:      types.SideTypeSell,
		Quantity:  quantity,
		Price:     price,
		Timestamp: ts,
	})
}

func (p *portfolio) fill(t types.TradeEvent) bool {
	if !validOrder(t.Symbol, t.Quantity, t.Price, t.Timestamp) {
		p.rejected++
		return false
	}
	if n := len(p.trades); n == 0 || !t.Timestamp.Before(p.trades[n-1].Timestamp) {
		if !p.settle(&t) {
			p.rejected++
			return false
		}
		p.trades = append(p.trades, t)
		return true
	}

	// Backdated fill: it lands among earlier trades, so every later trade must
	// still be affordable after it.
	i := sort.Search(len(p.trades), func(i int) bool {
		return p.trades[i].Timestamp.After(t.Timestamp)
	})
	ledger := make([]types.TradeEvent, 0, len(p.trades)+1)
	ledger = append(ledger, p.trades[:i]...)
	ledger = append(ledger, t)
	ledger = append(ledger, p.trades[i:]...)

	replay := newPortfolio(p.initialCash)
	for j := range ledger {
		if !replay.settle(&ledger[j]) {
			p.rejected++
			return false
		}
	}
	p.cash, p.positions, p.trades = replay.cash, replay.positions, ledger
	return true
}

// settle applies t to cash and positions and sets its realized PnL. It leaves
// the portfolio untouched and returns false when t would take cash or the
// position below zero.
func (p *portfolio) settle(t *types.TradeEvent) bool {
	qty := decimal.NewFromInt(t.Quantity)
	value := t.Price.Mul(qty)
	pos := p.positions[t.Symbol]

	switch t.Side {
	case types.SideTypeBuy:
		if value.GreaterThan(p.cash) {
			return false
		}
		p.cash = p.cash.Sub(value)
		if pos == nil {
			pos = &Position{Symbol: t.Symbol}
			p.positions[t.Symbol] = pos
		}
		pos.AvgCost = weightedAvg(pos.AvgCost, decimal.NewFromInt(pos.Quantity), t.Price, qty)
		pos.Quantity += t.Quantity
		t.PnL = decimal.Zero
	case types.SideTypeSell:
		if pos == nil || pos.Quantity < t.Quantity {
			return false
		}
		p.cash = p.cash.Add(value)
		t.PnL = t.Price.Sub(pos.AvgCost).Mul(qty)
		pos.Quantity -= t.Quantity
		if pos.Quantity == 0 {
			pos.AvgCost = decimal.Zero
		}
	default:
		return false
	}
	return true
}

func validOrder(symbol string, quantity int64, price decimal.Decimal, ts time.Time) bool {
	return symbol != "" && quantity > 0 && price.IsPositive() && !ts.IsZero()
}

func (p *portfolio) Cash() decimal.Decimal {
	return p.cash
}

// Position returns the share count held for symbol and whether the symbol has
// ever been traded.
func (p *portfolio) Position(symbol string) (int64, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return 0, false
	}
	return pos.Quantity, true
}

// Symbols lists every symbol that has a position entry, sorted.
func (p *portfolio) Symbols() []string {
	out := make([]string, 0, len(p.positions))
	for sym := range p.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (p *portfolio) TradeCount() int {
	return len(p.trades)
}

func (p *portfolio) Trade(i int) types.TradeEvent {
	return p.trades[i]
}

// Trades returns a copy of the ledger in timestamp order.
func (p *portfolio) Trades() []types.TradeEvent {
	return append([]types.TradeEvent(nil), p.trades...)
}

func (p *portfolio) Rejected() int {
	return p.rejected
}

func (p *portfolio) GetPortfolioSnapshot() types.PortfolioView {
	view := types.PortfolioView{
		Cash:      p.cash,
		Positions: make(map[string]types.PositionSnapshot, len(p.positions)),
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = types.PositionSnapshot{
			Symbol:   pos.Symbol,
			Quantity: pos.Quantity,
			AvgCost:  pos.AvgCost,
		}
	}
	return view
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
