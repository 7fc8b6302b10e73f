package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/logger"
)

var ErrBridgeNotPending = errors.New("job is not awaiting a bridge confirmation")

// CompletionNotifier is told when a deployment finishes. Optional.
type CompletionNotifier interface {
	NotifyDeploymentDone(userID, jobID string)
	NotifyError(context string, err error)
}

// Engine advances treasury deployments on a fixed-interval ticker.
// Bridging completion cannot be observed synchronously, so the ticker
// never guesses: AWAIT_BRIDGE, BRIDGING and POLYGON_READY wait for
// ConfirmBridge, the one externally-triggered mutation.
type Engine struct {
	store    Store
	interval time.Duration
	logCap   int
	notifier CompletionNotifier
	logger   *logger.Logger
}

func NewEngine(store Store, cfg *config.Config, notifier CompletionNotifier, log *logger.Logger) *Engine {
	return &Engine{
		store:    store,
		interval: cfg.DeployTickInterval(),
		logCap:   cfg.Deploy.LogCap,
		notifier: notifier,
		logger:   log,
	}
}

func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("deployment engine started", "interval", e.interval.String())

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("deployment engine stopped")
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick scans all non-terminal jobs. A failure in one job marks that
// job FAILED and never affects the others.
func (e *Engine) Tick() {
	for _, id := range e.store.ListActive() {
		if err := e.tickJob(id); err != nil {
			e.logger.Error("deployment tick", "job_id", id, "error", err)
		}
	}
}

func (e *Engine) tickJob(id string) error {
	var (
		done   bool
		userID string
	)
	err := e.store.Update(id, func(job *Job) error {
		switch job.Status {
		case StatusBaseExec:
			// Base-side execution is a placeholder hold; nothing to do
			// until funds move.
			job.appendLog("base-side execution holding", e.logCap)
		case StatusPolyExec:
			job.appendLog(fmt.Sprintf("polygon-side execution complete: %.0f%% safe / %.0f%% growth deployed",
				job.SafePct*100, job.GrowthPct*100), e.logCap)
			job.Status = StatusDone
			job.appendLog("deployment done", e.logCap)
			done = true
			userID = job.UserID
		default:
			// AWAIT_BRIDGE, BRIDGING and POLYGON_READY wait for the
			// external confirmation.
		}
		return nil
	})
	if err != nil {
		return err
	}
	if done {
		e.logger.Info("deployment completed", "job_id", id, "user", userID)
		if e.notifier != nil {
			e.notifier.NotifyDeploymentDone(userID, id)
		}
	}
	return nil
}

// CreateJob validates the split and registers a new job in
// AWAIT_BRIDGE.
func (e *Engine) CreateJob(userID string, safePct, growthPct float64) (*Job, error) {
	job, err := NewJob(userID, safePct, growthPct)
	if err != nil {
		return nil, err
	}
	if err := e.store.Create(job); err != nil {
		return nil, fmt.Errorf("create deployment job: %w", err)
	}
	e.logger.Info("deployment job created",
		"job_id", job.ID, "user", userID, "safe_pct", safePct, "growth_pct", growthPct)
	return job.clone(), nil
}

// ConfirmBridge is the user's assertion that bridged funds arrived.
// It moves the job through POLYGON_READY into POLY_EXEC on the same
// store path the ticker uses; the next tick completes the deployment.
func (e *Engine) ConfirmBridge(id string) (*Job, error) {
	err := e.store.Update(id, func(job *Job) error {
		switch job.Status {
		case StatusAwaitBridge, StatusBridging, StatusBaseExec:
			job.appendLog("bridge arrival confirmed by user", e.logCap)
			job.Status = StatusPolygonReady
			job.appendLog("funds ready on polygon", e.logCap)
			job.Status = StatusPolyExec
			job.appendLog("starting polygon-side execution", e.logCap)
			return nil
		default:
			return fmt.Errorf("%w: status is %s", ErrBridgeNotPending, job.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	return e.store.Get(id)
}

// FailJob marks a job FAILED from any non-terminal state.
func (e *Engine) FailJob(id, reason string) error {
	err := e.store.Update(id, func(job *Job) error {
		if job.Status.Terminal() {
			return fmt.Errorf("job already %s", job.Status)
		}
		job.appendLog("deployment failed: "+reason, e.logCap)
		job.Status = StatusFailed
		return nil
	})
	if err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.NotifyError("deployment "+id, errors.New(reason))
	}
	return nil
}

func (e *Engine) GetJob(id string) (*Job, error) {
	return e.store.Get(id)
}

func (e *Engine) JobsForUser(userID string) []*Job {
	return e.store.ListByUser(userID)
}
