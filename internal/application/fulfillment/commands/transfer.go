package commands

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	"github.com/athena-robotics/workcell-go/internal/domain/planning"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// TransferHandler executes TAKE_BOTTOL_FROM_SP_TO_SP: chain pickups and
// puts in platform-sized batches so bottles move shelf-to-shelf without
// an intermediate command.
type TransferHandler struct {
	exec *Executor
}

func NewTransferHandler(exec *Executor) *TransferHandler {
	return &TransferHandler{exec: exec}
}

func (h *TransferHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*types.TransferCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type for transfer handler")
	}

	releaseByBottle, err := matchTransferLists(cmd.Params)
	if err != nil {
		return nil, err
	}

	r := h.exec.newRun(cmd.Task, cmd.Params.Timeout, len(cmd.Params.TargetParams))

	items := make([]planning.TransferItem, 0, len(cmd.Params.TargetParams))
	for _, target := range cmd.Params.TargetParams {
		item, err := h.resolveItem(target.BottleID, releaseByBottle[target.BottleID])
		if err != nil {
			r.fail(target.BottleID, "lookup", err)
			continue
		}
		items = append(items, item)
	}

	plan := planning.PlanTransfer(items, h.exec.inv.BackPlatformFree())
	for _, rej := range plan.Rejected {
		r.reject(rej)
	}

	for _, batch := range plan.Batches {
		loaded := make(map[string]bool)
		before := failedSet(r.result.FailedBottles)
		for _, leg := range batch.Pickup.Legs {
			if err := r.walkPickupLeg(ctx, leg, false); err != nil {
				return r.abortCancelled()
			}
			for _, id := range leg.BottleIDs {
				loaded[id] = true
			}
		}
		// A bottle that picked up a failure entry during the walk never
		// made it onto the platform; drop it from the put phase.
		for _, f := range r.result.FailedBottles {
			if !before[f.BottleID] {
				delete(loaded, f.BottleID)
			}
		}
		for _, rej := range batch.Pickup.Rejected {
			r.reject(rej)
			delete(loaded, rej.BottleID)
		}

		for _, leg := range batch.Put.Legs {
			if err := r.walkPutLeg(ctx, leg, loaded, true); err != nil {
				return r.abortCancelled()
			}
		}
	}

	return r.finish(fmt.Sprintf("transferred %d of %d bottles", r.result.SuccessCount, r.result.Total))
}

// matchTransferLists checks that target_params and release_params name
// exactly the same bottles and indexes the releases by bottle id.
func matchTransferLists(params types.TransferParams) (map[string]string, error) {
	releaseByBottle := make(map[string]string, len(params.ReleaseParams))
	for _, release := range params.ReleaseParams {
		if _, dup := releaseByBottle[release.BottleID]; dup {
			return nil, shared.NewValidationError("release_params", "bottle "+release.BottleID+" listed twice")
		}
		releaseByBottle[release.BottleID] = release.ReleasePose
	}
	seen := make(map[string]bool, len(params.TargetParams))
	for _, target := range params.TargetParams {
		if seen[target.BottleID] {
			return nil, shared.NewValidationError("target_params", "bottle "+target.BottleID+" listed twice")
		}
		seen[target.BottleID] = true
		if _, ok := releaseByBottle[target.BottleID]; !ok {
			return nil, shared.NewValidationError("release_params", "bottle "+target.BottleID+" has no release pose")
		}
	}
	if len(params.ReleaseParams) != len(params.TargetParams) {
		for id := range releaseByBottle {
			if !seen[id] {
				return nil, shared.NewValidationError("target_params", "bottle "+id+" has no pickup entry")
			}
		}
	}
	return releaseByBottle, nil
}

func (h *TransferHandler) resolveItem(bottleID, releasePose string) (planning.TransferItem, error) {
	view, err := h.exec.inv.Bottle(bottleID)
	if err != nil {
		return planning.TransferItem{}, err
	}
	slot, err := h.exec.inv.Slot(releasePose)
	if err != nil {
		return planning.TransferItem{}, err
	}
	return planning.TransferItem{
		Pickup: view,
		Put: planning.PutCandidate{
			BottleID:       bottleID,
			ObjectType:     view.ObjectType,
			ReleasePose:    releasePose,
			NavigationPose: slot.NavigationPose,
			Free:           slot.Free,
			TypeCompatible: slot.AcceptedType == "" || slot.AcceptedType == view.ObjectType,
		},
	}, nil
}

func failedSet(failed []types.FailedBottle) map[string]bool {
	set := make(map[string]bool, len(failed))
	for _, f := range failed {
		set[f.BottleID] = true
	}
	return set
}
