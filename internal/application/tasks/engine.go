package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

// Archive persists terminal task records beyond process memory
type Archive interface {
	Save(snapshot task.Snapshot, errorCode int) error
	Find(taskID string) (task.Snapshot, error)
	Recent(limit int) ([]task.Snapshot, error)
}

// Observer receives engine lifecycle signals, typically for metrics
type Observer interface {
	TaskFinished(cmdType string, status task.Status, seconds float64)
	QueueDepth(depth int)
}

// DefaultQueueCapacity bounds how many tasks may sit PENDING
const DefaultQueueCapacity = 100

type queuedTask struct {
	t       *task.Task
	request common.Request
}

// QueueStatus is the projection behind GET /queue/status
type QueueStatus struct {
	Pending     int    `json:"queue_size"`
	RunningTask string `json:"running_task,omitempty"`
	Submitted   int    `json:"total_tasks"`
	Completed   int    `json:"completed_tasks"`
	Failed      int    `json:"failed_tasks"`
	Cancelled   int    `json:"cancelled_tasks"`
}

// Options tunes the engine
type Options struct {
	QueueCapacity int
	Archive       Archive
	Observer      Observer
	Clock         shared.Clock
	Logger        *zap.Logger
}

// Engine owns the task queue: a bounded FIFO drained by a single worker
// goroutine, so at most one robot command executes at a time. The
// registry keeps every accepted task for status queries; terminal
// records are additionally archived when storage is configured.
type Engine struct {
	mediator common.Mediator
	clock    shared.Clock
	logger   *zap.Logger
	archive  Archive
	observer Observer

	queue chan queuedTask

	mu        sync.Mutex
	registry  map[string]*task.Task
	runningID string
	submitted int
	completed int
	failed    int
	cancelled int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewEngine(mediator common.Mediator, opts Options) *Engine {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.Clock == nil {
		opts.Clock = shared.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		mediator: mediator,
		clock:    opts.Clock,
		logger:   opts.Logger,
		archive:  opts.Archive,
		observer: opts.Observer,
		queue:    make(chan queuedTask, opts.QueueCapacity),
		registry: make(map[string]*task.Task),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine
func (e *Engine) Start() {
	go e.work()
}

// Stop asks the worker to finish the in-flight task and exit. The
// running task observes cancellation through its flag and the context.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.runningID != "" {
		if t, ok := e.registry[e.runningID]; ok {
			_ = t.RequestCancel()
		}
	}
	e.mu.Unlock()
	e.cancel()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit creates a task, builds its request around the task record and
// enqueues it. Returns the task together with the queue depth after
// the enqueue.
func (e *Engine) Submit(cmdType, cmdID, idPrefix string, build func(*task.Task) common.Request) (*task.Task, int, error) {
	t := task.New(task.NewID(idPrefix), cmdType, cmdID, e.clock)

	select {
	case e.queue <- queuedTask{t: t, request: build(t)}:
	default:
		return nil, 0, shared.NewInternalError("task queue is full")
	}

	e.mu.Lock()
	e.registry[t.ID()] = t
	e.submitted++
	e.mu.Unlock()

	depth := len(e.queue)
	if e.observer != nil {
		e.observer.QueueDepth(depth)
	}
	e.logger.Info("task queued",
		zap.String("task_id", t.ID()),
		zap.String("cmd_type", cmdType),
		zap.Int("queue_size", depth))
	return t, depth, nil
}

// Find returns a snapshot from the live registry, falling back to the
// archive for records from earlier runs.
func (e *Engine) Find(taskID string) (task.Snapshot, error) {
	e.mu.Lock()
	t, ok := e.registry[taskID]
	e.mu.Unlock()
	if ok {
		return t.Snapshot(), nil
	}
	if e.archive != nil {
		if snap, err := e.archive.Find(taskID); err == nil {
			return snap, nil
		}
	}
	return task.Snapshot{}, shared.NewTaskNotFoundError(taskID)
}

// Recent returns archived terminal records, newest first
func (e *Engine) Recent(limit int) ([]task.Snapshot, error) {
	if e.archive == nil {
		return nil, nil
	}
	return e.archive.Recent(limit)
}

// Cancel flags a task for cancellation. PENDING tasks are cancelled
// when dequeued; RUNNING and WAITING tasks observe the flag at their
// next step boundary.
func (e *Engine) Cancel(taskID string) error {
	e.mu.Lock()
	t, ok := e.registry[taskID]
	e.mu.Unlock()
	if !ok {
		if e.archive != nil {
			if snap, err := e.archive.Find(taskID); err == nil {
				return shared.NewTaskTerminalError(taskID, string(snap.Status))
			}
		}
		return shared.NewTaskNotFoundError(taskID)
	}
	return t.RequestCancel()
}

// Status reports queue depth and lifetime counters
func (e *Engine) Status() QueueStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return QueueStatus{
		Pending:     len(e.queue),
		RunningTask: e.runningID,
		Submitted:   e.submitted,
		Completed:   e.completed,
		Failed:      e.failed,
		Cancelled:   e.cancelled,
	}
}

func (e *Engine) work() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case q := <-e.queue:
			e.runOne(q)
		}
	}
}

func (e *Engine) runOne(q queuedTask) {
	if e.observer != nil {
		e.observer.QueueDepth(len(e.queue))
	}

	if q.t.CancelRequested() {
		_ = q.t.MarkCancelled()
		e.finalize(q.t, shared.CodeOK)
		return
	}
	if err := q.t.Start(); err != nil {
		e.logger.Error("task start rejected", zap.String("task_id", q.t.ID()), zap.Error(err))
		return
	}
	e.mu.Lock()
	e.runningID = q.t.ID()
	e.mu.Unlock()

	e.logger.Info("task started",
		zap.String("task_id", q.t.ID()),
		zap.String("cmd_type", q.t.CmdType()))

	resp, err := e.dispatch(q)

	code := shared.CodeOK
	switch {
	case err == nil:
		if cErr := q.t.Complete(resp); cErr != nil {
			e.logger.Error("complete transition rejected", zap.String("task_id", q.t.ID()), zap.Error(cErr))
		}
	case errors.Is(err, task.ErrCancelled):
		_ = q.t.MarkCancelled()
	default:
		code = shared.CodeOf(err)
		_ = q.t.Fail(err)
	}

	e.mu.Lock()
	e.runningID = ""
	e.mu.Unlock()
	e.finalize(q.t, code)
}

// dispatch sends the request through the mediator, converting handler
// panics into internal errors so the worker never dies.
func (e *Engine) dispatch(q queuedTask) (resp common.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task handler panic",
				zap.String("task_id", q.t.ID()),
				zap.Any("panic", r))
			resp, err = nil, shared.NewInternalError(fmt.Sprintf("handler panic: %v", r))
		}
	}()
	return e.mediator.Send(e.ctx, q.request)
}

func (e *Engine) finalize(t *task.Task, errorCode int) {
	snap := t.Snapshot()

	e.mu.Lock()
	switch snap.Status {
	case task.StatusCompleted:
		e.completed++
	case task.StatusFailed:
		e.failed++
	case task.StatusCancelled:
		e.cancelled++
	}
	e.mu.Unlock()

	if e.observer != nil && snap.StartTime != nil && snap.EndTime != nil {
		e.observer.TaskFinished(snap.CmdType, snap.Status, snap.EndTime.Sub(*snap.StartTime).Seconds())
	}
	e.logger.Info("task finished",
		zap.String("task_id", snap.TaskID),
		zap.String("status", string(snap.Status)),
		zap.Int("code", errorCode))

	if e.archive != nil {
		if err := e.archive.Save(snap, errorCode); err != nil {
			e.logger.Error("task archive write failed",
				zap.String("task_id", snap.TaskID), zap.Error(err))
		}
	}
}
