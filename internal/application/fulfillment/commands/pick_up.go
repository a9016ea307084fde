package commands

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/planning"
)

// PickUpHandler executes PICK_UP: collect the requested bottles from
// their shelf slots onto the robot's back platform, one navigation leg
// per distinct waypoint.
type PickUpHandler struct {
	exec *Executor
}

func NewPickUpHandler(exec *Executor) *PickUpHandler {
	return &PickUpHandler{exec: exec}
}

func (h *PickUpHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*types.PickUpCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type for pick up handler")
	}

	r := h.exec.newRun(cmd.Task, cmd.Params.Timeout, len(cmd.Params.TargetParams))

	views := make([]inventory.BottleView, 0, len(cmd.Params.TargetParams))
	for _, target := range cmd.Params.TargetParams {
		view, err := h.exec.inv.Bottle(target.BottleID)
		if err != nil {
			r.fail(target.BottleID, "lookup", err)
			continue
		}
		views = append(views, view)
	}

	plan := planning.PlanPickup(views, h.exec.inv.BackPlatformFree())
	for _, rej := range plan.Rejected {
		r.reject(rej)
	}

	for _, leg := range plan.Legs {
		if err := r.walkPickupLeg(ctx, leg, true); err != nil {
			return r.abortCancelled()
		}
	}

	return r.finish(fmt.Sprintf("picked up %d of %d bottles", r.result.SuccessCount, r.result.Total))
}
