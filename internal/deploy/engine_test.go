package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/logger"
)

func testEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Deploy.TickInterval = "10ms"
	cfg.Deploy.LogCap = 50
	store := NewMemoryStore()
	return NewEngine(store, cfg, nil, logger.New("error")), store
}

func TestNewJobValidatesSplit(t *testing.T) {
	_, err := NewJob("user-1", 0.6, 0.3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")

	_, err = NewJob("user-1", -0.2, 1.2)
	require.Error(t, err)

	_, err = NewJob("", 0.6, 0.4)
	require.Error(t, err)

	job, err := NewJob("user-1", 0.6, 0.4)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitBridge, job.Status)
	assert.NotEmpty(t, job.Logs)
}

func TestNewJobToleratesSmallDrift(t *testing.T) {
	job, err := NewJob("user-1", 0.6004, 0.4)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitBridge, job.Status)
}

func TestTicksNeverLeaveAwaitBridge(t *testing.T) {
	engine, _ := testEngine(t)
	job, err := engine.CreateJob("user-1", 0.6, 0.4)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		engine.Tick()
	}

	got, err := engine.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitBridge, got.Status,
		"bridging completion must never be guessed by the ticker")
}

func TestConfirmBridgeThenTickReachesDone(t *testing.T) {
	engine, _ := testEngine(t)
	job, err := engine.CreateJob("user-1", 0.6, 0.4)
	require.NoError(t, err)

	confirmed, err := engine.ConfirmBridge(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPolyExec, confirmed.Status)

	engine.Tick()

	got, err := engine.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)

	// Repeated ticks leave a terminal job alone.
	engine.Tick()
	got, err = engine.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
}

func TestConfirmBridgeRejectedOnceRunning(t *testing.T) {
	engine, _ := testEngine(t)
	job, err := engine.CreateJob("user-1", 0.5, 0.5)
	require.NoError(t, err)

	_, err = engine.ConfirmBridge(job.ID)
	require.NoError(t, err)

	_, err = engine.ConfirmBridge(job.ID)
	assert.ErrorIs(t, err, ErrBridgeNotPending)

	_, err = engine.ConfirmBridge("no-such-job")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailJobFromAnyNonTerminalState(t *testing.T) {
	engine, _ := testEngine(t)
	job, err := engine.CreateJob("user-1", 0.6, 0.4)
	require.NoError(t, err)

	require.NoError(t, engine.FailJob(job.ID, "bridge transfer bounced"))

	got, err := engine.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Logs[0], "bridge transfer bounced")

	assert.Error(t, engine.FailJob(job.ID, "again"), "terminal jobs cannot fail twice")
}

func TestFailedJobDoesNotAffectOthers(t *testing.T) {
	engine, _ := testEngine(t)
	bad, err := engine.CreateJob("user-1", 0.6, 0.4)
	require.NoError(t, err)
	good, err := engine.CreateJob("user-2", 0.7, 0.3)
	require.NoError(t, err)

	require.NoError(t, engine.FailJob(bad.ID, "boom"))
	_, err = engine.ConfirmBridge(good.ID)
	require.NoError(t, err)
	engine.Tick()

	gotGood, err := engine.GetJob(good.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, gotGood.Status)
}

func TestJobLogIsPrependedAndCapped(t *testing.T) {
	cfg := &config.Config{}
	cfg.Deploy.TickInterval = "10ms"
	cfg.Deploy.LogCap = 5
	store := NewMemoryStore()
	engine := NewEngine(store, cfg, nil, logger.New("error"))

	job, err := engine.CreateJob("user-1", 0.6, 0.4)
	require.NoError(t, err)

	// BASE_EXEC appends a line per tick.
	require.NoError(t, store.Update(job.ID, func(j *Job) error {
		j.Status = StatusBaseExec
		return nil
	}))
	for i := 0; i < 10; i++ {
		engine.Tick()
	}

	got, err := engine.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBaseExec, got.Status, "BASE_EXEC only advances to itself")
	assert.Len(t, got.Logs, 5)
	assert.Contains(t, got.Logs[0], "base-side execution holding")
}

func TestStoreGetReturnsCopies(t *testing.T) {
	engine, _ := testEngine(t)
	job, err := engine.CreateJob("user-1", 0.6, 0.4)
	require.NoError(t, err)

	got, err := engine.GetJob(job.ID)
	require.NoError(t, err)
	got.Status = StatusDone
	got.Logs[0] = "tampered"

	fresh, err := engine.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitBridge, fresh.Status)
	assert.NotEqual(t, "tampered", fresh.Logs[0])
}
