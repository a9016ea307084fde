package planning_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/planning"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

func view(id string, typ bottle.ObjectType, nav string) inventory.BottleView {
	return inventory.BottleView{
		BottleID:       id,
		ObjectType:     typ,
		NavigationPose: nav,
	}
}

func fullPlatform() map[bottle.ObjectType]int {
	free := make(map[bottle.ObjectType]int)
	for _, typ := range bottle.AllObjectTypes() {
		free[typ] = 2
	}
	return free
}

func TestPlanPickup_TwoBottlesSameWaypointShareOneLeg(t *testing.T) {
	// Arrange
	requests := []inventory.BottleView{
		view("B2", bottle.Glass500, "shelf"),
		view("B1", bottle.Glass1000, "shelf"),
	}

	// Act
	plan := planning.PlanPickup(requests, fullPlatform())

	// Assert
	require.Len(t, plan.Legs, 1)
	assert.Equal(t, "shelf", plan.Legs[0].NavigationPose)
	assert.Equal(t, []string{"B1", "B2"}, plan.Legs[0].BottleIDs)
	assert.Empty(t, plan.Rejected)
}

func TestPlanPickup_LargestGroupGoesFirst(t *testing.T) {
	// Arrange
	requests := []inventory.BottleView{
		view("B1", bottle.Glass1000, "worktable"),
		view("B2", bottle.Glass500, "shelf"),
		view("B3", bottle.Glass250, "shelf"),
	}

	// Act
	plan := planning.PlanPickup(requests, fullPlatform())

	// Assert
	require.Len(t, plan.Legs, 2)
	assert.Equal(t, "shelf", plan.Legs[0].NavigationPose)
	assert.Equal(t, []string{"B3", "B2"}, plan.Legs[0].BottleIDs)
	assert.Equal(t, "worktable", plan.Legs[1].NavigationPose)
	assert.Equal(t, []string{"B1"}, plan.Legs[1].BottleIDs)
}

func TestPlanPickup_EqualGroupsOrderedByWaypointName(t *testing.T) {
	// Arrange
	requests := []inventory.BottleView{
		view("B1", bottle.Glass1000, "worktable"),
		view("B2", bottle.Glass500, "shelf"),
	}

	// Act
	plan := planning.PlanPickup(requests, fullPlatform())

	// Assert
	require.Len(t, plan.Legs, 2)
	assert.Equal(t, "shelf", plan.Legs[0].NavigationPose)
	assert.Equal(t, "worktable", plan.Legs[1].NavigationPose)
}

func TestPlanPickup_OverCapacityRejectsExcess(t *testing.T) {
	// Arrange - nine bottles of one family against two platform slots
	requests := make([]inventory.BottleView, 0, 9)
	for i := 1; i <= 9; i++ {
		requests = append(requests, view(fmt.Sprintf("B%d", i), bottle.Glass1000, "shelf"))
	}

	// Act
	plan := planning.PlanPickup(requests, fullPlatform())

	// Assert
	require.Len(t, plan.Legs, 1)
	assert.Equal(t, []string{"B1", "B2"}, plan.Legs[0].BottleIDs)
	require.Len(t, plan.Rejected, 7)
	for _, rej := range plan.Rejected {
		assert.Equal(t, shared.CodePlatformOverCapacity, rej.Code)
	}
}

func TestPlanPickup_ExactlyOneBottleBeyondCapacity(t *testing.T) {
	// Arrange
	requests := []inventory.BottleView{
		view("B1", bottle.Glass1000, "shelf"),
		view("B2", bottle.Glass1000, "shelf"),
		view("B3", bottle.Glass1000, "shelf"),
		view("B4", bottle.Glass500, "shelf"),
	}

	// Act
	plan := planning.PlanPickup(requests, fullPlatform())

	// Assert - the last same-family bottle in order is the one pushed out
	require.Len(t, plan.Rejected, 1)
	assert.Equal(t, "B3", plan.Rejected[0].BottleID)
	assert.Equal(t, shared.CodePlatformOverCapacity, plan.Rejected[0].Code)
	require.Len(t, plan.Legs, 1)
	assert.Equal(t, []string{"B1", "B2", "B4"}, plan.Legs[0].BottleIDs)
}

func TestPlanPickup_BottleAlreadyOnPlatformIsRejected(t *testing.T) {
	// Arrange
	onRobot := view("B1", bottle.Glass1000, "")
	onRobot.OnRobot = true
	requests := []inventory.BottleView{onRobot, view("B2", bottle.Glass500, "shelf")}

	// Act
	plan := planning.PlanPickup(requests, fullPlatform())

	// Assert
	require.Len(t, plan.Rejected, 1)
	assert.Equal(t, "B1", plan.Rejected[0].BottleID)
	assert.Equal(t, shared.CodeSlotFull, plan.Rejected[0].Code)
	require.Len(t, plan.Legs, 1)
	assert.Equal(t, []string{"B2"}, plan.Legs[0].BottleIDs)
}

func TestPlanPickup_AllOnPlatformYieldsNoLegs(t *testing.T) {
	// Arrange
	a := view("B1", bottle.Glass1000, "")
	a.OnRobot = true
	b := view("B2", bottle.Glass1000, "")
	b.OnRobot = true

	// Act
	plan := planning.PlanPickup([]inventory.BottleView{a, b}, fullPlatform())

	// Assert
	assert.Empty(t, plan.Legs)
	assert.Len(t, plan.Rejected, 2)
}

func TestPlanPickup_LegCountEqualsDistinctWaypoints(t *testing.T) {
	// Arrange
	requests := []inventory.BottleView{
		view("B1", bottle.Glass1000, "shelf"),
		view("B2", bottle.Glass500, "worktable"),
		view("B3", bottle.Glass250, "shelf"),
		view("B4", bottle.Glass100, "scan_table"),
	}

	// Act
	plan := planning.PlanPickup(requests, fullPlatform())

	// Assert
	assert.Len(t, plan.Legs, 3)
	assert.Empty(t, plan.Rejected)
}

func TestPlanPut_GroupsByWaypointAndTracksCapacity(t *testing.T) {
	// Arrange - two puts into the same single-capacity slot
	candidates := []planning.PutCandidate{
		{BottleID: "B1", ObjectType: bottle.Glass1000, ReleasePose: "worktable_temp_001", NavigationPose: "worktable", Free: 1, TypeCompatible: true},
		{BottleID: "B2", ObjectType: bottle.Glass1000, ReleasePose: "worktable_temp_001", NavigationPose: "worktable", Free: 1, TypeCompatible: true},
	}

	// Act
	plan := planning.PlanPut(candidates)

	// Assert
	require.Len(t, plan.Legs, 1)
	require.Len(t, plan.Legs[0].Puts, 1)
	assert.Equal(t, "B1", plan.Legs[0].Puts[0].BottleID)
	require.Len(t, plan.Rejected, 1)
	assert.Equal(t, "B2", plan.Rejected[0].BottleID)
	assert.Equal(t, shared.CodeSlotFull, plan.Rejected[0].Code)
}

func TestPlanPut_TypeMismatchIsRejected(t *testing.T) {
	// Arrange
	candidates := []planning.PutCandidate{
		{BottleID: "B1", ObjectType: bottle.Glass500, ReleasePose: "shelf_temp_1000_001", NavigationPose: "shelf", Free: 2, TypeCompatible: false},
	}

	// Act
	plan := planning.PlanPut(candidates)

	// Assert
	assert.Empty(t, plan.Legs)
	require.Len(t, plan.Rejected, 1)
	assert.Equal(t, shared.CodeTypeMismatch, plan.Rejected[0].Code)
}

func TestPlanPut_DistinctPosesSameWaypointShareOneLeg(t *testing.T) {
	// Arrange
	candidates := []planning.PutCandidate{
		{BottleID: "B2", ObjectType: bottle.Glass500, ReleasePose: "shelf_temp_500_001", NavigationPose: "shelf", Free: 2, TypeCompatible: true},
		{BottleID: "B1", ObjectType: bottle.Glass1000, ReleasePose: "shelf_temp_1000_001", NavigationPose: "shelf", Free: 2, TypeCompatible: true},
	}

	// Act
	plan := planning.PlanPut(candidates)

	// Assert
	require.Len(t, plan.Legs, 1)
	assert.Equal(t, "shelf", plan.Legs[0].NavigationPose)
	require.Len(t, plan.Legs[0].Puts, 2)
	assert.Equal(t, "B1", plan.Legs[0].Puts[0].BottleID)
	assert.Equal(t, "B2", plan.Legs[0].Puts[1].BottleID)
}

func TestPlanTransfer_SplitsIntoPlatformSizedBatches(t *testing.T) {
	// Arrange - three same-family bottles, platform fits two at a time.
	// dst_a and dst_b sit at the same waypoint, so each batch needs one
	// pickup move and one put move.
	items := []planning.TransferItem{
		{
			Pickup: view("B1", bottle.Glass1000, "src_a"),
			Put:    planning.PutCandidate{BottleID: "B1", ObjectType: bottle.Glass1000, ReleasePose: "dst_a", NavigationPose: "dst_nav", Free: 2, TypeCompatible: true},
		},
		{
			Pickup: view("B2", bottle.Glass1000, "src_a"),
			Put:    planning.PutCandidate{BottleID: "B2", ObjectType: bottle.Glass1000, ReleasePose: "dst_b", NavigationPose: "dst_nav", Free: 2, TypeCompatible: true},
		},
		{
			Pickup: view("B3", bottle.Glass1000, "src_b"),
			Put:    planning.PutCandidate{BottleID: "B3", ObjectType: bottle.Glass1000, ReleasePose: "dst_a", NavigationPose: "dst_nav", Free: 2, TypeCompatible: true},
		},
	}

	// Act
	plan := planning.PlanTransfer(items, fullPlatform())

	// Assert
	assert.Empty(t, plan.Rejected)
	require.Len(t, plan.Batches, 2)

	first := plan.Batches[0]
	require.Len(t, first.Pickup.Legs, 1)
	assert.Equal(t, "src_a", first.Pickup.Legs[0].NavigationPose)
	assert.Equal(t, []string{"B1", "B2"}, first.Pickup.Legs[0].BottleIDs)
	require.Len(t, first.Put.Legs, 1)
	assert.Equal(t, "dst_nav", first.Put.Legs[0].NavigationPose)
	require.Len(t, first.Put.Legs[0].Puts, 2)
	assert.Equal(t, planning.PutAssignment{BottleID: "B1", ReleasePose: "dst_a"}, first.Put.Legs[0].Puts[0])
	assert.Equal(t, planning.PutAssignment{BottleID: "B2", ReleasePose: "dst_b"}, first.Put.Legs[0].Puts[1])

	second := plan.Batches[1]
	require.Len(t, second.Pickup.Legs, 1)
	assert.Equal(t, "src_b", second.Pickup.Legs[0].NavigationPose)
	assert.Equal(t, []string{"B3"}, second.Pickup.Legs[0].BottleIDs)
	require.Len(t, second.Put.Legs, 1)
	require.Len(t, second.Put.Legs[0].Puts, 1)
	assert.Equal(t, planning.PutAssignment{BottleID: "B3", ReleasePose: "dst_a"}, second.Put.Legs[0].Puts[0])

	// Four navigation moves total across both batches
	moves := 0
	for _, b := range plan.Batches {
		moves += len(b.Pickup.Legs) + len(b.Put.Legs)
	}
	assert.Equal(t, 4, moves)
}

func TestPlanTransfer_SingleBatchWhenEverythingFits(t *testing.T) {
	// Arrange
	items := []planning.TransferItem{
		{
			Pickup: view("B1", bottle.Glass1000, "shelf"),
			Put:    planning.PutCandidate{BottleID: "B1", ObjectType: bottle.Glass1000, ReleasePose: "worktable_temp_001", NavigationPose: "worktable", Free: 2, TypeCompatible: true},
		},
		{
			Pickup: view("B2", bottle.Glass500, "shelf"),
			Put:    planning.PutCandidate{BottleID: "B2", ObjectType: bottle.Glass500, ReleasePose: "worktable_temp_002", NavigationPose: "worktable", Free: 2, TypeCompatible: true},
		},
	}

	// Act
	plan := planning.PlanTransfer(items, fullPlatform())

	// Assert
	require.Len(t, plan.Batches, 1)
	assert.Len(t, plan.Batches[0].Pickup.Legs, 1)
	assert.Len(t, plan.Batches[0].Put.Legs, 1)
	assert.Empty(t, plan.Rejected)
}

func TestPlanTransfer_RejectsBeforeBatching(t *testing.T) {
	// Arrange - a mismatch, a full destination and an over-capacity family
	items := []planning.TransferItem{
		{
			Pickup: view("B1", bottle.Glass500, "shelf"),
			Put:    planning.PutCandidate{BottleID: "B1", ObjectType: bottle.Glass500, ReleasePose: "shelf_temp_1000_001", NavigationPose: "shelf", Free: 2, TypeCompatible: false},
		},
		{
			Pickup: view("B2", bottle.Glass1000, "shelf"),
			Put:    planning.PutCandidate{BottleID: "B2", ObjectType: bottle.Glass1000, ReleasePose: "worktable_temp_001", NavigationPose: "worktable", Free: 0, TypeCompatible: true},
		},
		{
			Pickup: view("B3", bottle.Glass250, "shelf"),
			Put:    planning.PutCandidate{BottleID: "B3", ObjectType: bottle.Glass250, ReleasePose: "worktable_temp_002", NavigationPose: "worktable", Free: 2, TypeCompatible: true},
		},
	}
	free := fullPlatform()
	free[bottle.Glass250] = 0

	// Act
	plan := planning.PlanTransfer(items, free)

	// Assert
	assert.Empty(t, plan.Batches)
	require.Len(t, plan.Rejected, 3)
	codes := map[string]int{}
	for _, rej := range plan.Rejected {
		codes[rej.BottleID] = rej.Code
	}
	assert.Equal(t, shared.CodeTypeMismatch, codes["B1"])
	assert.Equal(t, shared.CodeSlotFull, codes["B2"])
	assert.Equal(t, shared.CodePlatformOverCapacity, codes["B3"])
}

func TestPlanTransfer_DeterministicAcrossInputOrder(t *testing.T) {
	// Arrange
	items := []planning.TransferItem{
		{
			Pickup: view("B3", bottle.Glass1000, "src_b"),
			Put:    planning.PutCandidate{BottleID: "B3", ObjectType: bottle.Glass1000, ReleasePose: "dst_a", NavigationPose: "dst_nav", Free: 2, TypeCompatible: true},
		},
		{
			Pickup: view("B1", bottle.Glass1000, "src_a"),
			Put:    planning.PutCandidate{BottleID: "B1", ObjectType: bottle.Glass1000, ReleasePose: "dst_a", NavigationPose: "dst_nav", Free: 2, TypeCompatible: true},
		},
		{
			Pickup: view("B2", bottle.Glass1000, "src_a"),
			Put:    planning.PutCandidate{BottleID: "B2", ObjectType: bottle.Glass1000, ReleasePose: "dst_b", NavigationPose: "dst_nav", Free: 2, TypeCompatible: true},
		},
	}
	reversed := []planning.TransferItem{items[2], items[1], items[0]}

	// Act
	a := planning.PlanTransfer(items, fullPlatform())
	b := planning.PlanTransfer(reversed, fullPlatform())

	// Assert
	assert.Equal(t, a, b)
}

func TestPlanPickup_DoesNotMutateCallerSnapshot(t *testing.T) {
	// Arrange
	free := fullPlatform()

	// Act
	planning.PlanPickup([]inventory.BottleView{view("B1", bottle.Glass1000, "shelf")}, free)

	// Assert
	assert.Equal(t, 2, free[bottle.Glass1000])
}
