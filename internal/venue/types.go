package venue

import (
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Instrument is a tradable asset as the venue catalogs it.
type Instrument struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	TokenAddress string `json:"token_address"`
	ChainID      int64  `json:"chain_id"`
}

// Account carries the buying power the venue custodies for a user.
type Account struct {
	ID          string          `json:"id"`
	Address     string          `json:"address"`
	BuyingPower decimal.Decimal `json:"buying_power"`
}

type FeeLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// PreparedOrder is the venue's response to a prepare call. It is
// single-use and must be signed and submitted before Deadline. Permit
// and Order are independent EIP-712 payloads, each signed separately.
type PreparedOrder struct {
	ID       uuid.UUID          `json:"id"`
	Deadline time.Time          `json:"deadline"`
	Permit   apitypes.TypedData `json:"permit_typed_data"`
	Order    apitypes.TypedData `json:"order_typed_data"`
	Fees     []FeeLine          `json:"fees"`
}

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type PrepareOrderRequest struct {
	AccountID           string          `json:"account_id"`
	InstrumentID        string          `json:"instrument_id"`
	PaymentInstrumentID string          `json:"payment_instrument_id,omitempty"`
	Side                OrderSide       `json:"side"`
	Type                string          `json:"type"`
	TimeInForce         string          `json:"time_in_force"`
	Quantity            decimal.Decimal `json:"quantity"`
}

// SubmitOrderRequest references a prepared order together with the two
// signatures. A single combined signature is not accepted.
type SubmitOrderRequest struct {
	AccountID       string    `json:"account_id"`
	PreparedOrderID uuid.UUID `json:"prepared_order_id"`
	PermitSignature string    `json:"permit_signature"`
	OrderSignature  string    `json:"order_signature"`
}

type OrderRequestStatus string

const (
	StatusQuoted        OrderRequestStatus = "QUOTED"
	StatusPending       OrderRequestStatus = "PENDING"
	StatusPendingBridge OrderRequestStatus = "PENDING_BRIDGE"
	StatusSubmitted     OrderRequestStatus = "SUBMITTED"
	StatusError         OrderRequestStatus = "ERROR"
	StatusCancelled     OrderRequestStatus = "CANCELLED"
)

type OrderRequestRecord struct {
	ID      string             `json:"id"`
	Status  OrderRequestStatus `json:"status"`
	OrderID string             `json:"order_id,omitempty"`
}
