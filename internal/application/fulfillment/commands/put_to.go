package commands

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	"github.com/athena-robotics/workcell-go/internal/domain/planning"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// PutToHandler executes PUT_TO: release back-platform bottles into
// their destination slots, one navigation leg per distinct waypoint.
type PutToHandler struct {
	exec *Executor
}

func NewPutToHandler(exec *Executor) *PutToHandler {
	return &PutToHandler{exec: exec}
}

func (h *PutToHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*types.PutToCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type for put to handler")
	}

	r := h.exec.newRun(cmd.Task, cmd.Params.Timeout, len(cmd.Params.ReleaseParams))

	candidates := make([]planning.PutCandidate, 0, len(cmd.Params.ReleaseParams))
	for _, release := range cmd.Params.ReleaseParams {
		c, err := h.resolveCandidate(release)
		if err != nil {
			r.fail(release.BottleID, "lookup", err)
			continue
		}
		candidates = append(candidates, c)
	}

	plan := planning.PlanPut(candidates)
	for _, rej := range plan.Rejected {
		r.reject(rej)
	}

	for _, leg := range plan.Legs {
		if err := r.walkPutLeg(ctx, leg, nil, true); err != nil {
			return r.abortCancelled()
		}
	}

	return r.finish(fmt.Sprintf("released %d of %d bottles", r.result.SuccessCount, r.result.Total))
}

func (h *PutToHandler) resolveCandidate(release types.ReleaseParam) (planning.PutCandidate, error) {
	view, err := h.exec.inv.Bottle(release.BottleID)
	if err != nil {
		return planning.PutCandidate{}, err
	}
	if !view.OnRobot {
		return planning.PutCandidate{}, shared.NewDomainError(shared.CodeBadRequest,
			"bottle "+release.BottleID+" is not on the back platform")
	}
	slot, err := h.exec.inv.Slot(release.ReleasePose)
	if err != nil {
		return planning.PutCandidate{}, err
	}
	return planning.PutCandidate{
		BottleID:       release.BottleID,
		ObjectType:     view.ObjectType,
		ReleasePose:    release.ReleasePose,
		NavigationPose: slot.NavigationPose,
		Free:           slot.Free,
		TypeCompatible: slot.AcceptedType == "" || slot.AcceptedType == view.ObjectType,
	}, nil
}
