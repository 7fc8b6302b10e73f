package agent

// ActionKind tags what the agent proposed or executed.
type ActionKind string

const (
	ActionAdvice   ActionKind = "advice"
	ActionBuyStock ActionKind = "buy_stock"
)

// ToolAction is immutable once emitted; the caller decides what to do
// with it (show advice, confirm a pending order).
type ToolAction struct {
	Kind            ActionKind `json:"kind"`
	Summary         string     `json:"summary"`
	Symbol          string     `json:"symbol,omitempty"`
	Amount          float64    `json:"amount,omitempty"`
	PreparedOrderID string     `json:"prepared_order_id,omitempty"`
}

// Result is the normalized outcome of one agent run.
type Result struct {
	Reply   string       `json:"reply"`
	Actions []ToolAction `json:"actions"`
}
