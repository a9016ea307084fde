package commands

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/planning"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

// Executor walks planned routes on one robot. Handlers share a single
// instance; per-task state lives in the run created for each command.
type Executor struct {
	robot  ports.RobotLink
	inv    *inventory.Inventory
	locks  *fleet.PoseLock
	logger *zap.Logger
}

func NewExecutor(robot ports.RobotLink, inv *inventory.Inventory, locks *fleet.PoseLock, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{robot: robot, inv: inv, locks: locks, logger: logger}
}

// run accumulates one task's outcome while its legs execute
type run struct {
	exec    *Executor
	task    *task.Task
	timeout time.Duration
	result  types.ExecutionResult
}

func (e *Executor) newRun(t *task.Task, timeoutSeconds float64, total int) *run {
	return &run{
		exec:    e,
		task:    t,
		timeout: types.PrimitiveTimeout(timeoutSeconds),
		result:  types.ExecutionResult{Total: total, FailedBottles: []types.FailedBottle{}},
	}
}

func (r *run) fail(bottleID, step string, err error) {
	r.result.FailedBottles = append(r.result.FailedBottles, types.FailedBottle{
		BottleID: bottleID,
		Step:     step,
		Code:     shared.CodeOf(err),
		Message:  err.Error(),
	})
	r.exec.logger.Warn("bottle step failed",
		zap.String("task_id", r.task.ID()),
		zap.String("bottle_id", bottleID),
		zap.String("step", step),
		zap.Int("code", shared.CodeOf(err)),
		zap.Error(err))
}

func (r *run) reject(rej planning.Rejection) {
	r.result.FailedBottles = append(r.result.FailedBottles, types.FailedBottle{
		BottleID: rej.BottleID,
		Step:     "planning",
		Code:     rej.Code,
		Message:  rej.Reason,
	})
}

func (r *run) cancelled() bool {
	return r.task.CancelRequested()
}

// mostSpecific picks the failure code a fully rejected task reports:
// the highest sub-5000 code among the recorded failures.
func (r *run) mostSpecific() (int, string) {
	code, message := shared.CodeInternal, "no bottles could be processed"
	best := 0
	for _, f := range r.result.FailedBottles {
		if f.Code > best && f.Code < shared.CodeInternal {
			best = f.Code
			code, message = f.Code, f.Message
		}
	}
	if best == 0 {
		return shared.CodeInternal, message
	}
	return code, message
}

// navigate drives to the waypoint after waiting for the stack to settle
func (r *run) navigate(ctx context.Context, nav string) error {
	r.task.BeginStep("navigate:" + nav)
	defer r.task.FinishStep()
	if err := r.exec.robot.WaitNavigationReady(ctx, r.timeout); err != nil {
		return err
	}
	return r.exec.robot.NavigateToPose(ctx, nav, r.timeout)
}

// walkPickupLeg navigates to one waypoint and loads its bottles onto
// the back platform. A navigation failure skips every bottle of the
// leg; bottle failures are recorded and the walk continues. Returns
// task.ErrCancelled when the cancellation flag is observed.
func (r *run) walkPickupLeg(ctx context.Context, leg planning.PickupLeg, countSuccess bool) error {
	if r.cancelled() {
		return task.ErrCancelled
	}
	if err := r.exec.locks.Acquire(ctx, r.exec.robot.ID(), leg.NavigationPose); err != nil {
		for _, id := range leg.BottleIDs {
			r.fail(id, "navigation", shared.NewInternalError("pose lock wait aborted: "+err.Error()))
		}
		return nil
	}
	defer r.exec.locks.Release(r.exec.robot.ID(), leg.NavigationPose)

	if err := r.navigate(ctx, leg.NavigationPose); err != nil {
		for _, id := range leg.BottleIDs {
			r.fail(id, "navigation", err)
		}
		return nil
	}

	for _, id := range leg.BottleIDs {
		if r.cancelled() {
			return task.ErrCancelled
		}
		if r.loadBottle(ctx, id) && countSuccess {
			r.result.SuccessCount++
		}
	}
	return nil
}

// loadBottle grabs one bottle from its shelf slot and stows it on the
// back platform: grab, turn 180, put to the reserved back slot, turn
// front again.
func (r *run) loadBottle(ctx context.Context, bottleID string) bool {
	view, err := r.exec.inv.Bottle(bottleID)
	if err != nil {
		r.fail(bottleID, "lookup", err)
		return false
	}

	res, err := r.exec.inv.ReserveBackSlot(view.ObjectType, bottleID)
	if err != nil {
		r.fail(bottleID, "reserve", err)
		return false
	}

	r.task.BeginStep("pickup:" + bottleID)
	defer r.task.FinishStep()

	if err := r.exec.robot.GrabObject(ctx, string(view.ObjectType), view.TargetPose, string(view.Hand), r.timeout); err != nil {
		r.exec.inv.CancelReservation(res)
		r.fail(bottleID, "grab_object", err)
		return false
	}
	if view.Location != "" {
		if err := r.exec.inv.CommitRemove(view.Location, bottleID); err != nil {
			r.exec.logger.Warn("ledger remove failed after grab",
				zap.String("bottle_id", bottleID), zap.Error(err))
		}
	}

	if err := r.exec.robot.TurnWaist(ctx, 180, true, r.timeout); err != nil {
		r.exec.inv.CancelReservation(res)
		r.fail(bottleID, "turn_waist", err)
		return false
	}
	if err := r.exec.robot.PutObject(ctx, string(view.ObjectType), res.PoseName(), string(view.Hand), ports.SafePosePreset, r.timeout); err != nil {
		r.exec.inv.CancelReservation(res)
		r.fail(bottleID, "put_object", err)
		return false
	}
	if err := r.exec.inv.CommitPlace(res); err != nil {
		r.fail(bottleID, "put_object", err)
		return false
	}
	if err := r.exec.robot.TurnWaist(ctx, 0, true, r.timeout); err != nil {
		// Bottle is stowed; log and keep going with the torso misaligned.
		r.exec.logger.Warn("waist return failed after stow",
			zap.String("bottle_id", bottleID), zap.Error(err))
	}
	return true
}

// walkPutLeg navigates to one waypoint and releases platform bottles
// into their destination slots. Same failure policy as walkPickupLeg.
// The eligible filter limits the leg to bottles actually loaded; a nil
// filter admits every put.
func (r *run) walkPutLeg(ctx context.Context, leg planning.PutLeg, eligible map[string]bool, countSuccess bool) error {
	puts := leg.Puts
	if eligible != nil {
		puts = puts[:0:0]
		for _, p := range leg.Puts {
			if eligible[p.BottleID] {
				puts = append(puts, p)
			}
		}
	}
	if len(puts) == 0 {
		return nil
	}

	if r.cancelled() {
		return task.ErrCancelled
	}
	if err := r.exec.locks.Acquire(ctx, r.exec.robot.ID(), leg.NavigationPose); err != nil {
		for _, p := range puts {
			r.fail(p.BottleID, "navigation", shared.NewInternalError("pose lock wait aborted: "+err.Error()))
		}
		return nil
	}
	defer r.exec.locks.Release(r.exec.robot.ID(), leg.NavigationPose)

	if err := r.navigate(ctx, leg.NavigationPose); err != nil {
		for _, p := range puts {
			r.fail(p.BottleID, "navigation", err)
		}
		return nil
	}

	for _, p := range puts {
		if r.cancelled() {
			return task.ErrCancelled
		}
		if r.unloadBottle(ctx, p) && countSuccess {
			r.result.SuccessCount++
		}
	}
	return nil
}

// unloadBottle takes one bottle off the back platform and releases it
// at its destination: turn 180, grab from the back slot, turn front,
// put to the release pose.
func (r *run) unloadBottle(ctx context.Context, put planning.PutAssignment) bool {
	view, err := r.exec.inv.Bottle(put.BottleID)
	if err != nil {
		r.fail(put.BottleID, "lookup", err)
		return false
	}
	if !view.OnRobot {
		r.fail(put.BottleID, "lookup",
			shared.NewDomainError(shared.CodeBadRequest, "bottle "+put.BottleID+" is not on the back platform"))
		return false
	}

	res, err := r.exec.inv.Reserve(put.ReleasePose, put.BottleID)
	if err != nil {
		r.fail(put.BottleID, "reserve", err)
		return false
	}

	r.task.BeginStep("put:" + put.BottleID)
	defer r.task.FinishStep()

	if err := r.exec.robot.TurnWaist(ctx, 180, true, r.timeout); err != nil {
		r.exec.inv.CancelReservation(res)
		r.fail(put.BottleID, "turn_waist", err)
		return false
	}
	if err := r.exec.robot.GrabObject(ctx, string(view.ObjectType), view.Location, string(view.Hand), r.timeout); err != nil {
		r.exec.inv.CancelReservation(res)
		r.fail(put.BottleID, "grab_object", err)
		return false
	}
	if err := r.exec.inv.CommitRemove(view.Location, put.BottleID); err != nil {
		r.exec.logger.Warn("ledger remove failed after grab",
			zap.String("bottle_id", put.BottleID), zap.Error(err))
	}
	if err := r.exec.robot.TurnWaist(ctx, 0, true, r.timeout); err != nil {
		r.exec.inv.CancelReservation(res)
		r.fail(put.BottleID, "turn_waist", err)
		return false
	}
	if err := r.exec.robot.PutObject(ctx, string(view.ObjectType), put.ReleasePose, string(view.Hand), ports.SafePosePreset, r.timeout); err != nil {
		r.exec.inv.CancelReservation(res)
		r.fail(put.BottleID, "put_object", err)
		return false
	}
	if err := r.exec.inv.CommitPlace(res); err != nil {
		r.fail(put.BottleID, "put_object", err)
		return false
	}
	return true
}

// finish settles the result document and decides the terminal outcome.
// The returned error is nil for a COMPLETED task; a coded error fails
// the task when nothing at all was accomplished.
func (r *run) finish(message string) (*types.ExecutionResult, error) {
	r.result.Success = r.result.Total == 0 || r.result.SuccessCount > 0
	r.result.Message = message
	if !r.result.Success {
		code, detail := r.mostSpecific()
		r.task.SetResult(&r.result)
		return nil, shared.NewDomainError(code, detail)
	}
	return &r.result, nil
}

// abortCancelled records partial progress before the CANCELLED transition
func (r *run) abortCancelled() (*types.ExecutionResult, error) {
	r.result.Success = false
	r.result.Message = "task cancelled"
	r.task.SetResult(&r.result)
	return nil, task.ErrCancelled
}
