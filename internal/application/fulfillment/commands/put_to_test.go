package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/commands"
	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// stowOnPlatform moves a seeded shelf bottle onto the back platform
// without robot motion, as if a pickup already ran.
func stowOnPlatform(t *testing.T, inv *inventory.Inventory, bottleID, shelfSlot string, objectType bottle.ObjectType) {
	t.Helper()
	require.NoError(t, inv.CommitRemove(shelfSlot, bottleID))
	res, err := inv.ReserveBackSlot(objectType, bottleID)
	require.NoError(t, err)
	require.NoError(t, inv.CommitPlace(res))
}

func TestPutToReleasesBottleAtWorktable(t *testing.T) {
	// Arrange
	robot, inv, exec := newFixture(t)
	stowOnPlatform(t, inv, "glass_bottle_1000_001", "shelf_temp_1000_001", bottle.Glass1000)
	handler := commands.NewPutToHandler(exec)
	cmd := &types.PutToCommand{
		Task: newTask(t, "PUT_TO"),
		Params: types.PutToParams{ReleaseParams: []types.ReleaseParam{
			{BottleID: "glass_bottle_1000_001", ReleasePose: "worktable_temp_001"},
		}},
	}

	// Act
	resp, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	result := resp.(*types.ExecutionResult)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SuccessCount)

	calls := robot.Calls()
	assert.Equal(t, []string{
		"wait_navigation_ready",
		"navigate(worktable)",
		"turn_waist(180, true)",
		"grab(glass_bottle_1000, back_temp_1000_001, right)",
		"turn_waist(0, true)",
		"put(glass_bottle_1000, worktable_temp_001, right, preset)",
	}, calls)

	view, err := inv.Bottle("glass_bottle_1000_001")
	require.NoError(t, err)
	assert.False(t, view.OnRobot)
	assert.Equal(t, "worktable_temp_001", view.Location)
}

func TestPutToRejectsBottleNotOnPlatform(t *testing.T) {
	// Arrange
	robot, _, exec := newFixture(t)
	handler := commands.NewPutToHandler(exec)
	cmd := &types.PutToCommand{
		Task: newTask(t, "PUT_TO"),
		Params: types.PutToParams{ReleaseParams: []types.ReleaseParam{
			{BottleID: "glass_bottle_1000_001", ReleasePose: "worktable_temp_001"},
		}},
	}

	// Act
	_, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeBadRequest, shared.CodeOf(err))
	assert.Empty(t, robot.Calls())
}

func TestPutToRejectsTypeMismatch(t *testing.T) {
	// Arrange
	robot, inv, exec := newFixture(t)
	stowOnPlatform(t, inv, "glass_bottle_1000_001", "shelf_temp_1000_001", bottle.Glass1000)
	handler := commands.NewPutToHandler(exec)
	cmd := &types.PutToCommand{
		Task: newTask(t, "PUT_TO"),
		Params: types.PutToParams{ReleaseParams: []types.ReleaseParam{
			{BottleID: "glass_bottle_1000_001", ReleasePose: "split_temp_500_001"},
		}},
	}

	// Act
	_, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeTypeMismatch, shared.CodeOf(err))
	assert.Empty(t, robot.Calls(), "mismatched puts are rejected before motion")
}

func TestPutToUnknownSlot(t *testing.T) {
	// Arrange
	_, inv, exec := newFixture(t)
	stowOnPlatform(t, inv, "glass_bottle_1000_001", "shelf_temp_1000_001", bottle.Glass1000)
	handler := commands.NewPutToHandler(exec)
	cmd := &types.PutToCommand{
		Task: newTask(t, "PUT_TO"),
		Params: types.PutToParams{ReleaseParams: []types.ReleaseParam{
			{BottleID: "glass_bottle_1000_001", ReleasePose: "no_such_slot"},
		}},
	}

	// Act
	_, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeSlotNotFound, shared.CodeOf(err))
}

func TestPutToFailureRollsBackReservation(t *testing.T) {
	// Arrange
	robot, inv, exec := newFixture(t)
	stowOnPlatform(t, inv, "glass_bottle_1000_001", "shelf_temp_1000_001", bottle.Glass1000)
	robot.FailOn("put(", shared.NewPrimitiveTimeoutError("robot_a", "put_object", 0))
	handler := commands.NewPutToHandler(exec)
	cmd := &types.PutToCommand{
		Task: newTask(t, "PUT_TO"),
		Params: types.PutToParams{ReleaseParams: []types.ReleaseParam{
			{BottleID: "glass_bottle_1000_001", ReleasePose: "worktable_temp_001"},
		}},
	}

	// Act
	_, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodePrimitiveTimeout, shared.CodeOf(err))

	slot, err := inv.Slot("worktable_temp_001")
	require.NoError(t, err)
	assert.Empty(t, slot.Occupants)
	assert.Equal(t, slot.Capacity, slot.Free, "failed put leaves no reservation behind")
}
