package storage

import "time"

// Transaction statuses. The audit table is the system-of-record for
// what the user sees as history, even if a later venue call disagrees.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
	TxCancelled = "cancelled"
)

type Transaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID    string `gorm:"index;not null" json:"user_id"`
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id"`

	Symbol string  `gorm:"not null" json:"symbol"`
	Side   string  `gorm:"not null" json:"side"` // BUY or SELL
	Amount float64 `gorm:"not null" json:"amount"`

	PreparedOrderID string `json:"prepared_order_id"`
	Status          string `gorm:"not null;default:'pending'" json:"status"`
	Error           string `json:"error"`
}

// ExchangeLog records one chat exchange: what the user asked, what the
// agent replied, and the actions it proposed or executed.
type ExchangeLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID      string `gorm:"index" json:"user_id"`
	Message     string `gorm:"type:text" json:"message"`
	Reply       string `gorm:"type:text" json:"reply"`
	ActionsJSON string `gorm:"type:text" json:"actions_json"`
	Error       string `json:"error"`
}
