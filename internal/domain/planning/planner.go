package planning

import (
	"sort"

	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// The planner turns bottle-level requests into routes with the minimum
// number of navigation moves: one leg per distinct waypoint, bottles
// grouped so no grab outruns the back platform and no put outruns the
// destination slot. All ordering is deterministic.

// PickupLeg is one stop of a pickup route
type PickupLeg struct {
	NavigationPose string
	BottleIDs      []string
}

// PutAssignment pairs a bottle with its destination slot
type PutAssignment struct {
	BottleID    string
	ReleasePose string
}

// PutLeg is one stop of a put route
type PutLeg struct {
	NavigationPose string
	Puts           []PutAssignment
}

// Rejection is a bottle the planner could not schedule
type Rejection struct {
	BottleID string
	Code     int
	Reason   string
}

// PickupPlan is the Variant A output
type PickupPlan struct {
	Legs     []PickupLeg
	Rejected []Rejection
}

// PutPlan is the Variant B output
type PutPlan struct {
	Legs     []PutLeg
	Rejected []Rejection
}

// TransferBatch is one platform-load of a transfer: pick everything up,
// then put everything down.
type TransferBatch struct {
	Pickup PickupPlan
	Put    PutPlan
}

// TransferPlan is the Variant C output
type TransferPlan struct {
	Batches  []TransferBatch
	Rejected []Rejection
}

// PlanPickup groups requested bottles into one leg per source waypoint,
// largest group first, simulating back-platform reservations against the
// free snapshot. Bottles that do not fit land in Rejected.
func PlanPickup(requests []inventory.BottleView, platformFree map[bottle.ObjectType]int) PickupPlan {
	free := make(map[bottle.ObjectType]int, len(platformFree))
	for t, n := range platformFree {
		free[t] = n
	}

	var plan PickupPlan
	groups := make(map[string][]inventory.BottleView)
	for _, req := range requests {
		if req.OnRobot {
			plan.Rejected = append(plan.Rejected, Rejection{
				BottleID: req.BottleID,
				Code:     shared.CodeSlotFull,
				Reason:   "bottle is already on the back platform",
			})
			continue
		}
		groups[req.NavigationPose] = append(groups[req.NavigationPose], req)
	}

	for _, nav := range orderedNavs(groups) {
		group := groups[nav]
		sort.Slice(group, func(i, j int) bool {
			if group[i].ObjectType != group[j].ObjectType {
				return group[i].ObjectType < group[j].ObjectType
			}
			return group[i].BottleID < group[j].BottleID
		})

		var leg PickupLeg
		leg.NavigationPose = nav
		for _, req := range group {
			if free[req.ObjectType] <= 0 {
				plan.Rejected = append(plan.Rejected, Rejection{
					BottleID: req.BottleID,
					Code:     shared.CodePlatformOverCapacity,
					Reason:   "back platform has no free slot for type " + string(req.ObjectType),
				})
				continue
			}
			free[req.ObjectType]--
			leg.BottleIDs = append(leg.BottleIDs, req.BottleID)
		}
		if len(leg.BottleIDs) > 0 {
			plan.Legs = append(plan.Legs, leg)
		}
	}
	return plan
}

// orderedNavs sorts waypoint groups by size descending, breaking ties
// lexicographically on the waypoint name.
func orderedNavs[T any](groups map[string][]T) []string {
	navs := make([]string, 0, len(groups))
	for nav := range groups {
		navs = append(navs, nav)
	}
	sort.Slice(navs, func(i, j int) bool {
		li, lj := len(groups[navs[i]]), len(groups[navs[j]])
		if li != lj {
			return li > lj
		}
		return navs[i] < navs[j]
	})
	return navs
}

// PutCandidate is a put request resolved against the inventory: the
// waypoint backing the release pose, the slot's remaining capacity and
// whether the bottle's family is accepted there.
type PutCandidate struct {
	BottleID       string
	ObjectType     bottle.ObjectType
	ReleasePose    string
	NavigationPose string
	Free           int
	TypeCompatible bool
}

// PlanPut groups puts by the waypoint backing each release pose. Bottles
// whose destination is full or type-incompatible land in Rejected.
func PlanPut(candidates []PutCandidate) PutPlan {
	var plan PutPlan
	poseFree := make(map[string]int)
	for _, c := range candidates {
		if _, ok := poseFree[c.ReleasePose]; !ok {
			poseFree[c.ReleasePose] = c.Free
		}
	}

	ordered := make([]PutCandidate, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].ReleasePose != ordered[j].ReleasePose {
			return ordered[i].ReleasePose < ordered[j].ReleasePose
		}
		return ordered[i].BottleID < ordered[j].BottleID
	})

	groups := make(map[string][]PutAssignment)
	for _, c := range ordered {
		if !c.TypeCompatible {
			plan.Rejected = append(plan.Rejected, Rejection{
				BottleID: c.BottleID,
				Code:     shared.CodeTypeMismatch,
				Reason:   "slot " + c.ReleasePose + " does not accept type " + string(c.ObjectType),
			})
			continue
		}
		if poseFree[c.ReleasePose] <= 0 {
			plan.Rejected = append(plan.Rejected, Rejection{
				BottleID: c.BottleID,
				Code:     shared.CodeSlotFull,
				Reason:   "slot " + c.ReleasePose + " is full",
			})
			continue
		}
		poseFree[c.ReleasePose]--
		groups[c.NavigationPose] = append(groups[c.NavigationPose], PutAssignment{
			BottleID:    c.BottleID,
			ReleasePose: c.ReleasePose,
		})
	}

	for _, nav := range orderedNavs(groups) {
		plan.Legs = append(plan.Legs, PutLeg{NavigationPose: nav, Puts: groups[nav]})
	}
	return plan
}

// TransferItem is one bottle of a transfer: where it is picked up and
// where it is released.
type TransferItem struct {
	Pickup inventory.BottleView
	Put    PutCandidate
}

// PlanTransfer chains pickups and puts into platform-sized batches.
// Each batch fills the back platform with the pickups that share
// waypoints with the most pending work, emits a Variant A pickup
// sub-plan and a Variant B put sub-plan, then repeats with an emptied
// platform until nothing remains.
func PlanTransfer(items []TransferItem, platformFree map[bottle.ObjectType]int) TransferPlan {
	var plan TransferPlan

	remaining := make([]TransferItem, 0, len(items))
	destFree := make(map[string]int)
	for _, it := range items {
		if _, ok := destFree[it.Put.ReleasePose]; !ok {
			destFree[it.Put.ReleasePose] = it.Put.Free
		}
	}
	for _, it := range items {
		switch {
		case it.Pickup.OnRobot:
			plan.Rejected = append(plan.Rejected, Rejection{
				BottleID: it.Pickup.BottleID,
				Code:     shared.CodeSlotFull,
				Reason:   "bottle is already on the back platform",
			})
		case !it.Put.TypeCompatible:
			plan.Rejected = append(plan.Rejected, Rejection{
				BottleID: it.Pickup.BottleID,
				Code:     shared.CodeTypeMismatch,
				Reason:   "slot " + it.Put.ReleasePose + " does not accept type " + string(it.Pickup.ObjectType),
			})
		case destFree[it.Put.ReleasePose] <= 0:
			plan.Rejected = append(plan.Rejected, Rejection{
				BottleID: it.Pickup.BottleID,
				Code:     shared.CodeSlotFull,
				Reason:   "slot " + it.Put.ReleasePose + " is full",
			})
		case platformFree[it.Pickup.ObjectType] <= 0:
			plan.Rejected = append(plan.Rejected, Rejection{
				BottleID: it.Pickup.BottleID,
				Code:     shared.CodePlatformOverCapacity,
				Reason:   "back platform has no slot for type " + string(it.Pickup.ObjectType),
			})
		default:
			destFree[it.Put.ReleasePose]--
			remaining = append(remaining, it)
		}
	}

	for len(remaining) > 0 {
		batch := selectBatch(remaining, platformFree)
		if len(batch) == 0 {
			break
		}

		// Capacity was settled during pre-filtering, so each batch
		// sub-plan gets exactly the room its own puts need.
		batchPose := make(map[string]int, len(batch))
		for _, it := range batch {
			batchPose[it.Put.ReleasePose]++
		}

		selected := make(map[string]bool, len(batch))
		views := make([]inventory.BottleView, 0, len(batch))
		puts := make([]PutCandidate, 0, len(batch))
		for _, it := range batch {
			selected[it.Pickup.BottleID] = true
			views = append(views, it.Pickup)
			put := it.Put
			put.Free = batchPose[put.ReleasePose]
			put.TypeCompatible = true
			puts = append(puts, put)
		}

		plan.Batches = append(plan.Batches, TransferBatch{
			Pickup: PlanPickup(views, platformFree),
			Put:    PlanPut(puts),
		})

		next := remaining[:0]
		for _, it := range remaining {
			if !selected[it.Pickup.BottleID] {
				next = append(next, it)
			}
		}
		remaining = next
	}
	return plan
}

// selectBatch fills one platform load. Items are ranked by how many
// pending items share their waypoints (destination plus source), then
// by release-pose clustering, then by bottle id.
func selectBatch(remaining []TransferItem, platformFree map[bottle.ObjectType]int) []TransferItem {
	destNavCount := make(map[string]int)
	srcNavCount := make(map[string]int)
	poseCount := make(map[string]int)
	for _, it := range remaining {
		destNavCount[it.Put.NavigationPose]++
		srcNavCount[it.Pickup.NavigationPose]++
		poseCount[it.Put.ReleasePose]++
	}

	ordered := make([]TransferItem, len(remaining))
	copy(ordered, remaining)
	sort.Slice(ordered, func(i, j int) bool {
		si := destNavCount[ordered[i].Put.NavigationPose] + srcNavCount[ordered[i].Pickup.NavigationPose]
		sj := destNavCount[ordered[j].Put.NavigationPose] + srcNavCount[ordered[j].Pickup.NavigationPose]
		if si != sj {
			return si > sj
		}
		ci, cj := poseCount[ordered[i].Put.ReleasePose], poseCount[ordered[j].Put.ReleasePose]
		if ci != cj {
			return ci > cj
		}
		return ordered[i].Pickup.BottleID < ordered[j].Pickup.BottleID
	})

	free := make(map[bottle.ObjectType]int, len(platformFree))
	for t, n := range platformFree {
		free[t] = n
	}
	var batch []TransferItem
	for _, it := range ordered {
		if free[it.Pickup.ObjectType] <= 0 {
			continue
		}
		free[it.Pickup.ObjectType]--
		batch = append(batch, it)
	}
	return batch
}
