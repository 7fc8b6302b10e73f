package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/perch-finance/perch/internal/agent"
	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/intent"
	"github.com/perch-finance/perch/internal/logger"
	"github.com/perch-finance/perch/internal/storage"
	"github.com/perch-finance/perch/internal/trade"
)

var ErrEmptyMessage = errors.New("empty message")

// AgentRunner is the reasoning layer the orchestrator drives.
type AgentRunner interface {
	Run(ctx context.Context, userID, message string, ti intent.TradeIntent, balance float64) (*agent.Result, error)
}

// ExchangeStore persists the per-message audit row, best-effort.
type ExchangeStore interface {
	SaveExchangeLog(log *storage.ExchangeLog) error
}

// Notifier pushes trade events out of band.
type Notifier interface {
	NotifyBuy(userID, symbol string, amount float64)
	NotifyError(context string, err error)
}

// Orchestrator is the entry point for a chat message: parse intent,
// read the balance, run the agent, record the exchange.
type Orchestrator struct {
	runner    AgentRunner
	accounts  trade.AccountReader
	store     ExchangeStore
	notifier  Notifier
	logger    *logger.Logger
	accountID string
}

func New(runner AgentRunner, accounts trade.AccountReader, store ExchangeStore, notifier Notifier, cfg *config.Config, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		accounts:  accounts,
		store:     store,
		notifier:  notifier,
		logger:    log,
		accountID: cfg.Venue.AccountID,
	}
}

func (o *Orchestrator) HandleMessage(ctx context.Context, userID, message string) (*agent.Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if strings.TrimSpace(userID) == "" {
		return nil, trade.ErrNoUser
	}

	ti := intent.Parse(message)
	o.logger.Info("message received",
		"user", userID, "intent", string(ti.Kind), "symbol", ti.Symbol, "amount", ti.Amount)

	balance, err := o.accounts.BuyingPower(ctx, o.accountID)
	if err != nil {
		// The runner and pipeline re-check balance; a read failure here
		// only degrades the prompt.
		o.logger.Error("read balance for prompt", "error", err)
		balance = 0
	}

	result, runErr := o.runner.Run(ctx, userID, message, ti, balance)
	if result == nil {
		result = &agent.Result{Reply: "Sorry, something went wrong. Please try again."}
	}

	o.saveExchange(userID, message, result, runErr)

	for _, action := range result.Actions {
		if action.Kind == agent.ActionBuyStock && o.notifier != nil {
			o.notifier.NotifyBuy(userID, action.Symbol, action.Amount)
		}
	}
	if runErr != nil {
		o.logger.Error("agent run finished with error", "user", userID, "error", runErr)
	}

	return result, nil
}

func (o *Orchestrator) saveExchange(userID, message string, result *agent.Result, runErr error) {
	if o.store == nil {
		return
	}
	actionsJSON, _ := json.Marshal(result.Actions)
	row := &storage.ExchangeLog{
		UserID:      userID,
		Message:     message,
		Reply:       result.Reply,
		ActionsJSON: string(actionsJSON),
	}
	if runErr != nil {
		row.Error = runErr.Error()
	}
	if err := o.store.SaveExchangeLog(row); err != nil {
		o.logger.Error("save exchange log", "error", err)
	}
}
