package deploy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Status of a treasury deployment job. AWAIT_BRIDGE, BRIDGING and
// POLYGON_READY are gated on an external confirmation; the ticker only
// advances BASE_EXEC (no-op hold) and POLY_EXEC.
type Status string

const (
	StatusAwaitBridge  Status = "AWAIT_BRIDGE"
	StatusBaseExec     Status = "BASE_EXEC"
	StatusBridging     Status = "BRIDGING"
	StatusPolygonReady Status = "POLYGON_READY"
	StatusPolyExec     Status = "POLY_EXEC"
	StatusDone         Status = "DONE"
	StatusFailed       Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// splitTolerance bounds how far safe+growth may drift from 1.0 before
// a creation attempt is rejected.
const splitTolerance = 0.001

// Job tracks one treasury-split deployment across the two execution
// environments. Owned exclusively by the engine; read-only to callers.
type Job struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SafePct   float64   `json:"safe_pct"`
	GrowthPct float64   `json:"growth_pct"`
	Status    Status    `json:"status"`
	Logs      []string  `json:"logs"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJob validates the split before anything is materialized.
func NewJob(userID string, safePct, growthPct float64) (*Job, error) {
	if userID == "" {
		return nil, fmt.Errorf("deployment job requires a user id")
	}
	if safePct < 0 || growthPct < 0 {
		return nil, fmt.Errorf("split percentages must be non-negative")
	}
	if math.Abs(safePct+growthPct-1.0) > splitTolerance {
		return nil, fmt.Errorf("split must sum to 1.0, got %.3f", safePct+growthPct)
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		SafePct:   safePct,
		GrowthPct: growthPct,
		Status:    StatusAwaitBridge,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.appendLog(fmt.Sprintf("deployment created: %.0f%% safe / %.0f%% growth, awaiting bridge", safePct*100, growthPct*100), defaultLogCap)
	return job, nil
}

const defaultLogCap = 50

// appendLog prepends a timestamped line and trims the log to limit.
func (j *Job) appendLog(msg string, limit int) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), msg)
	j.Logs = append([]string{line}, j.Logs...)
	if limit > 0 && len(j.Logs) > limit {
		j.Logs = j.Logs[:limit]
	}
	j.UpdatedAt = time.Now()
}

func (j *Job) clone() *Job {
	cp := *j
	cp.Logs = append([]string(nil), j.Logs...)
	return &cp
}
