package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/commands"
	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
	"github.com/athena-robotics/workcell-go/test/helpers"
)

func newFixture(t *testing.T) (*helpers.FakeRobotLink, *inventory.Inventory, *commands.Executor) {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	robot := helpers.NewFakeRobotLink("robot_a")
	inv := inventory.NewDefault(clock)
	exec := commands.NewExecutor(robot, inv, fleet.NewPoseLock(nil), nil)
	return robot, inv, exec
}

func newTask(t *testing.T, cmdType string) *task.Task {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	tk := task.New(task.NewID("TASK"), cmdType, "cmd-1", clock)
	require.NoError(t, tk.Start())
	return tk
}

func TestPickUpMovesBottlesToBackPlatform(t *testing.T) {
	// Arrange
	robot, inv, exec := newFixture(t)
	handler := commands.NewPickUpHandler(exec)
	cmd := &types.PickUpCommand{
		Task: newTask(t, "PICK_UP"),
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: "glass_bottle_1000_001"},
			{BottleID: "glass_bottle_1000_002"},
		}},
	}

	// Act
	resp, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	result := resp.(*types.ExecutionResult)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Empty(t, result.FailedBottles)

	calls := robot.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "wait_navigation_ready", calls[0])
	assert.Equal(t, "navigate(shelf)", calls[1])
	assert.Contains(t, calls, "grab(glass_bottle_1000, shelf_temp_1000_001, right)")
	assert.Contains(t, calls, "put(glass_bottle_1000, back_temp_1000_001, right, preset)")

	view, err := inv.Bottle("glass_bottle_1000_001")
	require.NoError(t, err)
	assert.True(t, view.OnRobot)
}

func TestPickUpOneLegPerWaypoint(t *testing.T) {
	// Arrange
	robot, _, exec := newFixture(t)
	handler := commands.NewPickUpHandler(exec)
	cmd := &types.PickUpCommand{
		Task: newTask(t, "PICK_UP"),
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: "glass_bottle_1000_001"},
			{BottleID: "glass_bottle_1000_002"},
		}},
	}

	// Act
	_, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	assert.Len(t, robot.CallsWithPrefix("navigate("), 1,
		"bottles sharing a waypoint ride one navigation leg")
}

func TestPickUpUnknownBottleFailsTask(t *testing.T) {
	// Arrange
	robot, _, exec := newFixture(t)
	handler := commands.NewPickUpHandler(exec)
	cmd := &types.PickUpCommand{
		Task: newTask(t, "PICK_UP"),
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: "no_such_bottle"},
		}},
	}

	// Act
	_, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeBottleNotFound, shared.CodeOf(err))
	assert.Empty(t, robot.Calls(), "no robot motion for an unknown bottle")
}

func TestPickUpGrabFailureContinuesWithNextBottle(t *testing.T) {
	// Arrange
	robot, inv, exec := newFixture(t)
	robot.FailOn("grab(glass_bottle_1000, shelf_temp_1000_001",
		shared.NewRemoteCallError("robot_a", "grab_object", "gripper jam"))
	handler := commands.NewPickUpHandler(exec)
	cmd := &types.PickUpCommand{
		Task: newTask(t, "PICK_UP"),
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: "glass_bottle_1000_001"},
			{BottleID: "glass_bottle_1000_002"},
		}},
	}

	// Act
	resp, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	result := resp.(*types.ExecutionResult)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.FailedBottles, 1)
	assert.Equal(t, "glass_bottle_1000_001", result.FailedBottles[0].BottleID)
	assert.Equal(t, "grab_object", result.FailedBottles[0].Step)
	assert.Equal(t, shared.CodeRemoteError, result.FailedBottles[0].Code)

	// The failed bottle's reservation was rolled back.
	assert.Equal(t, 2, inv.BackPlatformFree()[bottle.Glass1000]+1,
		"only the stowed bottle occupies the platform")
}

func TestPickUpLinkLossMidLegFailsBottleAndContinues(t *testing.T) {
	// Arrange
	robot, _, exec := newFixture(t)
	robot.FailOnce("turn_waist(180", shared.NewRobotDisconnectedError("robot_a"))
	handler := commands.NewPickUpHandler(exec)
	cmd := &types.PickUpCommand{
		Task: newTask(t, "PICK_UP"),
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: "glass_bottle_1000_001"},
			{BottleID: "glass_bottle_1000_002"},
		}},
	}

	// Act
	resp, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	result := resp.(*types.ExecutionResult)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.FailedBottles, 1)
	assert.Equal(t, "glass_bottle_1000_001", result.FailedBottles[0].BottleID)
	assert.Equal(t, "turn_waist", result.FailedBottles[0].Step)
	assert.Equal(t, shared.CodeRobotDisconnected, result.FailedBottles[0].Code)
	assert.Contains(t, robot.Calls(), "grab(glass_bottle_1000, shelf_temp_1000_002, right)",
		"the walk moves on to the next bottle after the link drops")
}

func TestPickUpRejectsBeyondPlatformCapacity(t *testing.T) {
	// Arrange
	robot, inv, exec := newFixture(t)
	for _, id := range []string{"b3", "b4"} {
		require.NoError(t, inv.RegisterBottle(id, bottle.Glass1000, bottle.HandRight, "shelf_temp_1000_003"))
		require.NoError(t, inv.BindBottle(id, "shelf_temp_1000_003"))
	}
	handler := commands.NewPickUpHandler(exec)
	cmd := &types.PickUpCommand{
		Task: newTask(t, "PICK_UP"),
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: "glass_bottle_1000_001"},
			{BottleID: "glass_bottle_1000_002"},
			{BottleID: "b3"},
			{BottleID: "b4"},
		}},
	}

	// Act
	resp, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	result := resp.(*types.ExecutionResult)
	assert.Equal(t, 2, result.SuccessCount, "platform holds two glass_bottle_1000")
	require.Len(t, result.FailedBottles, 2)
	for _, f := range result.FailedBottles {
		assert.Equal(t, shared.CodePlatformOverCapacity, f.Code)
		assert.Equal(t, "planning", f.Step)
	}
	assert.Len(t, robot.CallsWithPrefix("grab("), 2)
}

func TestPickUpCancelledBetweenBottles(t *testing.T) {
	// Arrange
	_, _, exec := newFixture(t)
	tk := newTask(t, "PICK_UP")
	require.NoError(t, tk.RequestCancel())
	handler := commands.NewPickUpHandler(exec)
	cmd := &types.PickUpCommand{
		Task: tk,
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: "glass_bottle_1000_001"},
		}},
	}

	// Act
	_, err := handler.Handle(context.Background(), cmd)

	// Assert
	require.ErrorIs(t, err, task.ErrCancelled)
}
