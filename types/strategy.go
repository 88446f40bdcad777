package types

// StrategyDefinition is the user's strategy script and its parameters.
// Symbols, when set, overrides symbol inference from the code.
type StrategyDefinition struct {
	ID         string         `json:"id"`
	Code       string         `json:"code"`
	Parameters map[string]any `json:"parameters"`
	Symbols    []string       `json:"symbols,omitempty"`
	Interval   Interval       `json:"interval,omitempty"`
}
