package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

type queueRequest struct {
	Task *task.Task
}

type queueHandler struct {
	fn func(ctx context.Context, request common.Request) (common.Response, error)
}

func (h *queueHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	return h.fn(ctx, request)
}

// taskQueueContext holds state for task engine lifecycle scenarios
type taskQueueContext struct {
	engine  *tasks.Engine
	started bool
	task    *task.Task
}

func (tc *taskQueueContext) reset() {
	tc.engine = nil
	tc.started = false
	tc.task = nil
}

func (tc *taskQueueContext) build(fn func(ctx context.Context, request common.Request) (common.Response, error)) error {
	med := common.NewMediator()
	if err := common.RegisterHandler[*queueRequest](med, &queueHandler{fn: fn}); err != nil {
		return err
	}
	tc.engine = tasks.NewEngine(med, tasks.Options{})
	return nil
}

func (tc *taskQueueContext) anEngineWhoseHandlerSucceeds() error {
	if err := tc.build(func(ctx context.Context, request common.Request) (common.Response, error) {
		return map[string]string{"outcome": "done"}, nil
	}); err != nil {
		return err
	}
	tc.engine.Start()
	tc.started = true
	return nil
}

func (tc *taskQueueContext) anEngineWhoseHandlerReportsDisconnect() error {
	if err := tc.build(func(ctx context.Context, request common.Request) (common.Response, error) {
		return nil, shared.NewRobotDisconnectedError("robot_a")
	}); err != nil {
		return err
	}
	tc.engine.Start()
	tc.started = true
	return nil
}

func (tc *taskQueueContext) anEngineNotStarted() error {
	return tc.build(func(ctx context.Context, request common.Request) (common.Response, error) {
		return nil, fmt.Errorf("handler must not run for a cancelled task")
	})
}

func (tc *taskQueueContext) aTaskIsSubmitted() error {
	tk, _, err := tc.engine.Submit("TEST_CMD", "cmd-bdd", "TASK", func(tk *task.Task) common.Request {
		return &queueRequest{Task: tk}
	})
	if err != nil {
		return err
	}
	tc.task = tk
	return nil
}

func (tc *taskQueueContext) theTaskIsCancelled() error {
	return tc.engine.Cancel(tc.task.ID())
}

func (tc *taskQueueContext) theEngineStarts() error {
	tc.engine.Start()
	tc.started = true
	return nil
}

func (tc *taskQueueContext) theTaskEndsWithStatus(want string) error {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := tc.engine.Find(tc.task.ID())
		if err != nil {
			return err
		}
		if string(snap.Status) == want {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	snap, _ := tc.engine.Find(tc.task.ID())
	return fmt.Errorf("task never reached %s, last status %s", want, snap.Status)
}

func (tc *taskQueueContext) theQueueCountersShowCompleted(count int) error {
	status := tc.engine.Status()
	if status.Completed != count {
		return fmt.Errorf("expected %d completed tasks, got %d", count, status.Completed)
	}
	return nil
}

func (tc *taskQueueContext) theTaskErrorMentions(fragment string) error {
	snap, err := tc.engine.Find(tc.task.ID())
	if err != nil {
		return err
	}
	if !strings.Contains(snap.ErrorMessage, fragment) {
		return fmt.Errorf("error message %q does not mention %q", snap.ErrorMessage, fragment)
	}
	return nil
}

// InitializeTaskQueueScenario registers the task engine steps
func InitializeTaskQueueScenario(sc *godog.ScenarioContext) {
	tc := &taskQueueContext{}

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	sc.After(func(ctx context.Context, scenario *godog.Scenario, err error) (context.Context, error) {
		if tc.engine != nil && tc.started {
			_ = tc.engine.Stop(context.Background())
		}
		return ctx, nil
	})

	sc.Step(`^a task engine whose handler succeeds$`, tc.anEngineWhoseHandlerSucceeds)
	sc.Step(`^a task engine whose handler reports a disconnected robot$`, tc.anEngineWhoseHandlerReportsDisconnect)
	sc.Step(`^a task engine that has not started draining$`, tc.anEngineNotStarted)
	sc.Step(`^a task is submitted$`, tc.aTaskIsSubmitted)
	sc.Step(`^the task is cancelled$`, tc.theTaskIsCancelled)
	sc.Step(`^the engine starts$`, tc.theEngineStarts)
	sc.Step(`^the task ends with status "([^"]+)"$`, tc.theTaskEndsWithStatus)
	sc.Step(`^the queue counters show (\d+) completed task$`, tc.theQueueCountersShowCompleted)
	sc.Step(`^the task error mentions "([^"]+)"$`, tc.theTaskErrorMentions)
}
