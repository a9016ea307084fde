package task

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// ErrCancelled is returned by a handler that stopped at a step boundary
// after observing the cancellation flag. The worker maps it to a
// CANCELLED terminal status instead of FAILED.
var ErrCancelled = errors.New("task cancelled")

// Status represents the state of a task in its lifecycle
type Status string

const (
	// StatusPending indicates the task is queued but not started
	StatusPending Status = "PENDING"

	// StatusRunning indicates the worker is executing the task
	StatusRunning Status = "RUNNING"

	// StatusWaiting indicates the task is parked on external input
	StatusWaiting Status = "WAITING"

	// StatusCompleted indicates the task finished, possibly partially
	StatusCompleted Status = "COMPLETED"

	// StatusFailed indicates the task hit an unrecoverable error
	StatusFailed Status = "FAILED"

	// StatusCancelled indicates the task was cancelled by an operator
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// NewID produces a task identifier with the given prefix and a random
// eight-character suffix, e.g. TASK_1f9a0c2d.
func NewID(prefix string) string {
	if prefix == "" {
		prefix = "TASK"
	}
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:4])
}

// StepRecord is one entry of a task's audit trail
type StepRecord struct {
	Step       string    `json:"step"`
	FinishedAt time.Time `json:"finished_at"`
}

// Task is the unit of work the engine schedules. Written by the worker
// and read concurrently by status queries, so every access goes through
// the mutex. After a terminal transition the record never changes.
type Task struct {
	mu sync.Mutex

	id      string
	cmdType string
	cmdID   string

	status          Status
	submitTime      time.Time
	startTime       *time.Time
	endTime         *time.Time
	result          any
	currentStep     string
	completedSteps  []StepRecord
	errorMessage    string
	cancelRequested bool

	currentBottleInfo any
	scannedBottles    any

	clock shared.Clock
}

// New creates a PENDING task stamped with the submission time
func New(id, cmdType, cmdID string, clock shared.Clock) *Task {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Task{
		id:         id,
		cmdType:    cmdType,
		cmdID:      cmdID,
		status:     StatusPending,
		submitTime: clock.Now(),
		clock:      clock,
	}
}

// ID returns the task identifier
func (t *Task) ID() string {
	return t.id
}

// CmdType returns the command type that created the task
func (t *Task) CmdType() string {
	return t.cmdType
}

// CmdID returns the client-supplied command correlation id
func (t *Task) CmdID() string {
	return t.cmdID
}

// Status returns the current lifecycle status
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Start transitions from PENDING to RUNNING
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return fmt.Errorf("cannot start task %s from %s state", t.id, t.status)
	}
	now := t.clock.Now()
	t.status = StatusRunning
	t.startTime = &now
	return nil
}

// Park transitions from RUNNING to WAITING while the task blocks on
// external input.
func (t *Task) Park() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return fmt.Errorf("cannot park task %s from %s state", t.id, t.status)
	}
	t.status = StatusWaiting
	return nil
}

// Resume transitions from WAITING back to RUNNING. Exactly one caller
// wins when several race; the losers get an error.
func (t *Task) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusWaiting {
		return fmt.Errorf("cannot resume task %s from %s state", t.id, t.status)
	}
	t.status = StatusRunning
	return nil
}

// Complete transitions from RUNNING to COMPLETED and records the result
func (t *Task) Complete(result any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return fmt.Errorf("cannot complete task %s from %s state", t.id, t.status)
	}
	now := t.clock.Now()
	t.status = StatusCompleted
	t.result = result
	t.endTime = &now
	t.currentStep = ""
	return nil
}

// Fail transitions to FAILED from any non-terminal state
func (t *Task) Fail(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return fmt.Errorf("cannot fail task %s from %s state", t.id, t.status)
	}
	now := t.clock.Now()
	t.status = StatusFailed
	if err != nil {
		t.errorMessage = err.Error()
	}
	t.endTime = &now
	return nil
}

// MarkCancelled transitions to CANCELLED from any non-terminal state.
// Callers restore physical state before making this transition.
func (t *Task) MarkCancelled() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return fmt.Errorf("cannot cancel task %s from %s state", t.id, t.status)
	}
	now := t.clock.Now()
	t.status = StatusCancelled
	t.endTime = &now
	return nil
}

// RequestCancel sets the cancellation flag. The worker observes the
// flag at the next step boundary. Requesting twice is harmless.
func (t *Task) RequestCancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return shared.NewTaskTerminalError(t.id, string(t.status))
	}
	t.cancelRequested = true
	return nil
}

// CancelRequested reports whether cancellation has been requested
func (t *Task) CancelRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelRequested
}

// BeginStep records the step now in progress
func (t *Task) BeginStep(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.currentStep = step
}

// FinishStep appends the in-progress step to the audit trail
func (t *Task) FinishStep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() || t.currentStep == "" {
		return
	}
	t.completedSteps = append(t.completedSteps, StepRecord{
		Step:       t.currentStep,
		FinishedAt: t.clock.Now(),
	})
	t.currentStep = ""
}

// SetResult attaches a result document ahead of a terminal transition.
// Used for failure documents that accompany a FAILED status.
func (t *Task) SetResult(result any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.result = result
}

// PublishScanProgress exposes the scan session's visible progress on
// the task record. The values are snapshot-safe copies owned by the
// caller from the moment of the call.
func (t *Task) PublishScanProgress(currentBottleInfo, scannedBottles any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.currentBottleInfo = currentBottleInfo
	t.scannedBottles = scannedBottles
}

// Snapshot is a point-in-time copy of a task record
type Snapshot struct {
	TaskID            string       `json:"task_id"`
	CmdType           string       `json:"cmd_type"`
	CmdID             string       `json:"cmd_id,omitempty"`
	Status            Status       `json:"status"`
	SubmitTime        time.Time    `json:"submit_time"`
	StartTime         *time.Time   `json:"start_time,omitempty"`
	EndTime           *time.Time   `json:"end_time,omitempty"`
	Result            any          `json:"result,omitempty"`
	CurrentStep       string       `json:"current_step,omitempty"`
	CompletedSteps    []StepRecord `json:"completed_steps,omitempty"`
	ErrorMessage      string       `json:"error_message,omitempty"`
	CurrentBottleInfo any          `json:"current_bottle_info,omitempty"`
	ScannedBottles    any          `json:"scanned_bottles,omitempty"`
}

// Snapshot returns a copy of the record safe to hand to callers
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		TaskID:            t.id,
		CmdType:           t.cmdType,
		CmdID:             t.cmdID,
		Status:            t.status,
		SubmitTime:        t.submitTime,
		Result:            t.result,
		CurrentStep:       t.currentStep,
		ErrorMessage:      t.errorMessage,
		CurrentBottleInfo: t.currentBottleInfo,
		ScannedBottles:    t.scannedBottles,
	}
	if t.startTime != nil {
		st := *t.startTime
		snap.StartTime = &st
	}
	if t.endTime != nil {
		et := *t.endTime
		snap.EndTime = &et
	}
	if len(t.completedSteps) > 0 {
		snap.CompletedSteps = make([]StepRecord, len(t.completedSteps))
		copy(snap.CompletedSteps, t.completedSteps)
	}
	return snap
}
