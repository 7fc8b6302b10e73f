package trade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/logger"
	"github.com/perch-finance/perch/internal/storage"
	"github.com/perch-finance/perch/internal/venue"
)

// Validation errors, rejected before any network call.
var (
	ErrNoUser            = errors.New("missing user identity")
	ErrUnknownSymbol     = errors.New("unknown symbol")
	ErrPercentOutOfRange = errors.New("percent out of range")
	ErrAmountOutOfRange  = errors.New("amount out of range")
)

// TransactionStore is the audit sink. Failures are logged and never
// block an order.
type TransactionStore interface {
	SaveTransaction(tx *storage.Transaction) error
	UpdateTransaction(tx *storage.Transaction) error
}

// Outcome is what a successful buy reports back to the agent layer.
type Outcome struct {
	Symbol          string
	Amount          float64
	Percent         float64
	PreparedOrderID string
	OrderID         string
	Status          venue.OrderRequestStatus
}

// Pipeline validates a buy request and hands it to the configured
// execution strategy. Buys for the same user are deliberately not
// serialized: two concurrent requests each consume their own prepared
// order.
type Pipeline struct {
	exec      Executor
	accounts  AccountReader
	store     TransactionStore
	cfg       *config.Config
	logger    *logger.Logger
	accountID string
}

func NewPipeline(exec Executor, accounts AccountReader, store TransactionStore, cfg *config.Config, log *logger.Logger) *Pipeline {
	return &Pipeline{
		exec:      exec,
		accounts:  accounts,
		store:     store,
		cfg:       cfg,
		logger:    log,
		accountID: cfg.Venue.AccountID,
	}
}

// BuyStock buys floor(balance*percent/100) dollars of symbol for the
// given user. Validation happens before any network call; each later
// step aborts the rest on failure with a StepError.
func (p *Pipeline) BuyStock(ctx context.Context, userID, symbol string, percent float64) (*Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrNoUser
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !p.cfg.HasSymbol(symbol) {
		return nil, fmt.Errorf("%w: %s (available: %s)",
			ErrUnknownSymbol, symbol, strings.Join(p.cfg.Trading.Symbols, ", "))
	}

	minPct, maxPct := p.cfg.Trading.MinPercent, p.cfg.Trading.MaxPercent
	if percent < minPct || percent > maxPct {
		return nil, fmt.Errorf("%w: %.1f%% (must be between %.0f%% and %.0f%%)",
			ErrPercentOutOfRange, percent, minPct, maxPct)
	}

	balance, err := p.accounts.BuyingPower(ctx, p.accountID)
	if err != nil {
		return nil, &StepError{Step: "read balance", Err: err}
	}

	amount := math.Floor(balance * percent / 100)
	if amount <= 0 || amount > balance {
		return nil, fmt.Errorf("%w: $%.0f of a $%.2f balance", ErrAmountOutOfRange, amount, balance)
	}

	// Optimistic audit row; resolved below.
	tx := &storage.Transaction{
		UserID:    userID,
		AccountID: p.accountID,
		Symbol:    symbol,
		Side:      string(venue.SideBuy),
		Amount:    amount,
		Status:    storage.TxPending,
	}
	p.saveTx(tx)

	result, err := p.exec.Execute(ctx, ExecuteRequest{
		UserID:    userID,
		AccountID: p.accountID,
		Symbol:    symbol,
		Amount:    amount,
	})
	if err != nil {
		tx.Status = storage.TxFailed
		tx.Error = err.Error()
		p.updateTx(tx)
		return nil, err
	}

	tx.PreparedOrderID = result.PreparedOrderID
	tx.OrderID = result.OrderID
	if result.Status == venue.StatusSubmitted {
		tx.Status = storage.TxCompleted
	} else {
		tx.Status = storage.TxPending
	}
	p.updateTx(tx)

	p.logger.Info("buy executed",
		"user", userID, "symbol", symbol, "amount", amount,
		"percent", percent, "status", string(result.Status),
		"prepared_order_id", result.PreparedOrderID)

	return &Outcome{
		Symbol:          symbol,
		Amount:          amount,
		Percent:         percent,
		PreparedOrderID: result.PreparedOrderID,
		OrderID:         result.OrderID,
		Status:          result.Status,
	}, nil
}

func (p *Pipeline) saveTx(tx *storage.Transaction) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveTransaction(tx); err != nil {
		p.logger.Error("save transaction", "error", err)
	}
}

func (p *Pipeline) updateTx(tx *storage.Transaction) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateTransaction(tx); err != nil {
		p.logger.Error("update transaction", "error", err)
	}
}
