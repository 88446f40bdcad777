// Package sandbox runs untrusted strategy scripts in an isolated JavaScript
// runtime. A script sees only the bindings installed here: data, parameters,
// portfolio, trades, buy, sell, sma and rsi. The runtime has no module
// loader, console, timers or any host object.
package sandbox

import (
	"errors"
	"fmt"
	"time"

	"stratlab/types"

	"github.com/dop251/goja"
	"github.com/shopspring/decimal"
)

const DefaultTimeout = 30 * time.Second

// maxCallStackSize bounds script recursion, including recursion through
// native callbacks such as Array.prototype.forEach.
const maxCallStackSize = 5000

const stackOverflowMessage = "maximum call stack size exceeded"

// ErrStrategyTimeout is returned when a script runs past its time budget.
var ErrStrategyTimeout = errors.New("strategy execution timed out")

// StrategyExecutionError is a syntax or runtime error raised by the script.
type StrategyExecutionError struct {
	Message string
}

func (e *StrategyExecutionError) Error() string {
	return "strategy execution failed: " + e.Message
}

// Ledger is the portfolio state a script mutates through buy and sell.
// Implementations reject orders that would take cash or a position below
// zero.
type Ledger interface {
	Buy(symbol string, quantity int64, price decimal.Decimal, ts time.Time) bool
	Sell(symbol string, quantity int64, price decimal.Decimal, ts time.Time) bool
	Cash() decimal.Decimal
	Position(symbol string) (int64, bool)
	Symbols() []string
	TradeCount() int
	Trade(i int) types.TradeEvent
}

// Interpreter executes strategy code. Each Run gets a fresh runtime, so one
// Interpreter can serve concurrent runs.
type Interpreter struct {
	timeout time.Duration
}

func NewInterpreter(timeout time.Duration) *Interpreter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Interpreter{timeout: timeout}
}

func (in *Interpreter) Timeout() time.Duration {
	return in.timeout
}

// Run executes code against data with ledger as the portfolio. It returns
// ErrStrategyTimeout (wrapped) when the budget is exceeded and a
// *StrategyExecutionError for anything the script throws.
func (in *Interpreter) Run(code string, parameters map[string]any, data types.HistoricalData, ledger Ledger) (err error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(maxCallStackSize)
	b := &bindings{vm: vm, ledger: ledger}
	if err := b.install(parameters, data); err != nil {
		return fmt.Errorf("install bindings: %w", err)
	}

	timer := time.AfterFunc(in.timeout, func() {
		vm.Interrupt(ErrStrategyTimeout)
	})
	defer timer.Stop()

	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = in.classify(rErr)
				return
			}
			err = &StrategyExecutionError{Message: fmt.Sprint(r)}
		}
	}()

	_, runErr := vm.RunScript("strategy.js", code)
	if runErr == nil {
		return nil
	}
	return in.classify(runErr)
}

func (in *Interpreter) classify(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok && errors.Is(v, ErrStrategyTimeout) {
			return fmt.Errorf("%w after %s", ErrStrategyTimeout, in.timeout)
		}
		return &StrategyExecutionError{Message: interrupted.Error()}
	}
	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return &StrategyExecutionError{Message: stackOverflowMessage}
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &StrategyExecutionError{Message: exception.Error()}
	}
	return &StrategyExecutionError{Message: err.Error()}
}
