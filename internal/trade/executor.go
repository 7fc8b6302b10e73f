package trade

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/perch-finance/perch/internal/logger"
	"github.com/perch-finance/perch/internal/venue"
	"github.com/perch-finance/perch/internal/wallet"
)

// StepError names the pipeline step that failed so the tool layer can
// explain it to the user. Steps are never retried automatically; a
// fresh buy invocation prepares a fresh order.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExecuteRequest is a validated buy: symbol is a known instrument and
// amount is a positive dollar figure within the user's buying power.
type ExecuteRequest struct {
	UserID    string
	AccountID string
	Symbol    string
	Amount    float64
}

type ExecuteResult struct {
	PreparedOrderID string
	RequestID       string
	OrderID         string
	Status          venue.OrderRequestStatus
	Fees            []venue.FeeLine
}

// Executor is the strategy that carries a validated buy through the
// venue. Selected once at startup: live against the real venue or the
// explicit mock. There are no inline mock conditionals downstream.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
}

// AccountReader supplies current buying power for validation and for
// prompt construction.
type AccountReader interface {
	BuyingPower(ctx context.Context, accountID string) (float64, error)
}

// VenueAPI is the slice of the venue client the live executor uses.
type VenueAPI interface {
	GetInstrumentBySymbol(ctx context.Context, symbol string) (*venue.Instrument, error)
	PrepareOrder(ctx context.Context, req venue.PrepareOrderRequest) (*venue.PreparedOrder, error)
	SubmitOrder(ctx context.Context, req venue.SubmitOrderRequest) (*venue.OrderRequestRecord, error)
}

// LiveExecutor drives the two-phase order protocol: prepare, sign the
// permit and order payloads separately, submit both signatures. Any
// step failure aborts the rest; a partial signature is never submitted.
type LiveExecutor struct {
	venue  VenueAPI
	signer wallet.Signer
	logger *logger.Logger
}

func NewLiveExecutor(api VenueAPI, signer wallet.Signer, log *logger.Logger) *LiveExecutor {
	return &LiveExecutor{venue: api, signer: signer, logger: log}
}

func (e *LiveExecutor) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	inst, err := e.venue.GetInstrumentBySymbol(ctx, req.Symbol)
	if err != nil {
		return nil, &StepError{Step: "resolve instrument", Err: err}
	}

	prepared, err := e.venue.PrepareOrder(ctx, venue.PrepareOrderRequest{
		AccountID:    req.AccountID,
		InstrumentID: inst.ID,
		Side:         venue.SideBuy,
		Type:         "MARKET",
		TimeInForce:  "DAY",
		Quantity:     venue.DecimalFromDollars(req.Amount),
	})
	if err != nil {
		return nil, &StepError{Step: "prepare order", Err: err}
	}

	e.logger.Info("order prepared",
		"prepared_order_id", prepared.ID.String(),
		"deadline", prepared.Deadline.Format("15:04:05"),
		"symbol", req.Symbol, "amount", req.Amount)

	permitSig, err := e.signer.SignTypedData(ctx, prepared.Permit)
	if err != nil {
		return nil, &StepError{Step: "sign permit", Err: err}
	}

	orderSig, err := e.signer.SignTypedData(ctx, prepared.Order)
	if err != nil {
		return nil, &StepError{Step: "sign order", Err: err}
	}

	record, err := e.venue.SubmitOrder(ctx, venue.SubmitOrderRequest{
		AccountID:       req.AccountID,
		PreparedOrderID: prepared.ID,
		PermitSignature: permitSig,
		OrderSignature:  orderSig,
	})
	if err != nil {
		return nil, &StepError{Step: "submit order", Err: err}
	}

	return &ExecuteResult{
		PreparedOrderID: prepared.ID.String(),
		RequestID:       record.ID,
		OrderID:         record.OrderID,
		Status:          record.Status,
		Fees:            prepared.Fees,
	}, nil
}

// MockExecutor short-circuits after validation and synthesizes a
// successful record. Enabled only by the explicit venue.mock flag;
// results are marked so they cannot pass for settled orders.
type MockExecutor struct {
	Balance float64
	logger  *logger.Logger
}

func NewMockExecutor(balance float64, log *logger.Logger) *MockExecutor {
	return &MockExecutor{Balance: balance, logger: log}
}

func (e *MockExecutor) Execute(_ context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	id := uuid.NewString()
	e.logger.Warn("mock execution, no order reached the venue",
		"symbol", req.Symbol, "amount", req.Amount, "prepared_order_id", id)
	return &ExecuteResult{
		PreparedOrderID: id,
		RequestID:       "mock-" + uuid.NewString(),
		OrderID:         "mock-" + uuid.NewString(),
		Status:          venue.StatusSubmitted,
	}, nil
}

func (e *MockExecutor) BuyingPower(_ context.Context, _ string) (float64, error) {
	return e.Balance, nil
}
