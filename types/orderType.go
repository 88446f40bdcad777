package types

type Side string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"
)

// BacktestStatus is the lifecycle state of a backtest record.
type BacktestStatus string

const (
	StatusPending   BacktestStatus = "pending"
	StatusRunning   BacktestStatus = "running"
	StatusCompleted BacktestStatus = "completed"
	StatusError     BacktestStatus = "error"
	StatusCancelled BacktestStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s BacktestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}
