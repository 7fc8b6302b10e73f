package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/logger"
	"github.com/perch-finance/perch/internal/storage"
	"github.com/perch-finance/perch/internal/venue"
)

type fakeExecutor struct {
	result  *ExecuteResult
	err     error
	lastReq *ExecuteRequest
	calls   int
}

func (f *fakeExecutor) Execute(_ context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	f.calls++
	f.lastReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAccounts struct {
	balance float64
	err     error
}

func (f *fakeAccounts) BuyingPower(context.Context, string) (float64, error) {
	return f.balance, f.err
}

type fakeStore struct {
	saved   []*storage.Transaction
	updated []*storage.Transaction
}

func (f *fakeStore) SaveTransaction(tx *storage.Transaction) error {
	f.saved = append(f.saved, tx)
	return nil
}

func (f *fakeStore) UpdateTransaction(tx *storage.Transaction) error {
	f.updated = append(f.updated, tx)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Venue.AccountID = "acct-1"
	cfg.Trading.Symbols = []string{"AAPL", "TSLA", "NVDA"}
	cfg.Trading.MinPercent = 10
	cfg.Trading.MaxPercent = 50
	return cfg
}

func newTestPipeline(exec Executor, balance float64, store TransactionStore) *Pipeline {
	return NewPipeline(exec, &fakeAccounts{balance: balance}, store, testConfig(), logger.New("error"))
}

func submittedResult() *ExecuteResult {
	return &ExecuteResult{
		PreparedOrderID: "prep-1",
		RequestID:       "req-1",
		OrderID:         "ord-1",
		Status:          venue.StatusSubmitted,
	}
}

func TestBuyStockRejectsMissingUser(t *testing.T) {
	exec := &fakeExecutor{result: submittedResult()}
	p := newTestPipeline(exec, 1000, nil)

	_, err := p.BuyStock(context.Background(), "  ", "TSLA", 30)
	assert.ErrorIs(t, err, ErrNoUser)
	assert.Zero(t, exec.calls)
}

func TestBuyStockRejectsUnknownSymbolWithValidList(t *testing.T) {
	exec := &fakeExecutor{result: submittedResult()}
	p := newTestPipeline(exec, 1000, nil)

	_, err := p.BuyStock(context.Background(), "user-1", "ZZZZ", 30)
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Contains(t, err.Error(), "AAPL, TSLA, NVDA")
	assert.Zero(t, exec.calls, "no network step may run after a validation failure")
}

func TestBuyStockRejectsPercentOutOfRange(t *testing.T) {
	exec := &fakeExecutor{result: submittedResult()}
	p := newTestPipeline(exec, 1000, nil)

	for _, pct := range []float64{0, 5, 9.9, 50.1, 100} {
		_, err := p.BuyStock(context.Background(), "user-1", "TSLA", pct)
		assert.ErrorIs(t, err, ErrPercentOutOfRange, "percent %v", pct)
	}
	assert.Zero(t, exec.calls)
}

func TestBuyStockComputesFlooredAmount(t *testing.T) {
	tests := []struct {
		balance float64
		percent float64
		amount  float64
	}{
		{1000, 30, 300},
		{999.50, 10, 99},
		{1234.56, 50, 617},
		{10, 10, 1},
	}
	for _, tt := range tests {
		exec := &fakeExecutor{result: submittedResult()}
		p := newTestPipeline(exec, tt.balance, nil)

		out, err := p.BuyStock(context.Background(), "user-1", "tsla", tt.percent)
		require.NoError(t, err)
		assert.Equal(t, tt.amount, out.Amount)
		assert.Equal(t, tt.amount, exec.lastReq.Amount)
		assert.LessOrEqual(t, out.Amount, tt.balance)
		assert.Equal(t, "TSLA", exec.lastReq.Symbol)
	}
}

func TestBuyStockRejectsZeroAmount(t *testing.T) {
	exec := &fakeExecutor{result: submittedResult()}
	p := newTestPipeline(exec, 0, nil)

	_, err := p.BuyStock(context.Background(), "user-1", "TSLA", 30)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	assert.Zero(t, exec.calls)
}

func TestBuyStockPersistsCompletedTransaction(t *testing.T) {
	store := &fakeStore{}
	exec := &fakeExecutor{result: submittedResult()}
	p := newTestPipeline(exec, 1000, store)

	out, err := p.BuyStock(context.Background(), "user-1", "TSLA", 30)
	require.NoError(t, err)
	assert.Equal(t, "prep-1", out.PreparedOrderID)

	require.Len(t, store.saved, 1)
	assert.Equal(t, storage.TxPending, store.saved[0].Status, "audit row starts pending")

	require.Len(t, store.updated, 1)
	final := store.updated[0]
	assert.Equal(t, storage.TxCompleted, final.Status)
	assert.Equal(t, "ord-1", final.OrderID)
	assert.Equal(t, "prep-1", final.PreparedOrderID)
	assert.Equal(t, float64(300), final.Amount)
}

func TestBuyStockKeepsPendingWhenVenueNotSubmitted(t *testing.T) {
	store := &fakeStore{}
	exec := &fakeExecutor{result: &ExecuteResult{
		PreparedOrderID: "prep-2",
		Status:          venue.StatusPendingBridge,
	}}
	p := newTestPipeline(exec, 1000, store)

	out, err := p.BuyStock(context.Background(), "user-1", "TSLA", 30)
	require.NoError(t, err)
	assert.Equal(t, venue.StatusPendingBridge, out.Status)

	require.Len(t, store.updated, 1)
	assert.Equal(t, storage.TxPending, store.updated[0].Status)
}

func TestBuyStockMarksTransactionFailedOnStepError(t *testing.T) {
	store := &fakeStore{}
	stepErr := &StepError{Step: "submit order", Err: errors.New("venue returned 422")}
	exec := &fakeExecutor{err: stepErr}
	p := newTestPipeline(exec, 1000, store)

	_, err := p.BuyStock(context.Background(), "user-1", "TSLA", 30)
	require.Error(t, err)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "submit order", se.Step)

	require.Len(t, store.updated, 1)
	assert.Equal(t, storage.TxFailed, store.updated[0].Status)
	assert.Contains(t, store.updated[0].Error, "submit order")
}
