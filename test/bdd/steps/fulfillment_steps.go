package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/commands"
	"github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
	"github.com/athena-robotics/workcell-go/test/helpers"
)

// fulfillmentContext holds state for bottle movement scenarios
type fulfillmentContext struct {
	clock  *shared.MockClock
	robot  *helpers.FakeRobotLink
	inv    *inventory.Inventory
	exec   *commands.Executor
	result *types.ExecutionResult
	err    error
}

func (fc *fulfillmentContext) reset() {
	fc.clock = shared.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	fc.robot = helpers.NewFakeRobotLink("robot_a")
	fc.inv = nil
	fc.exec = nil
	fc.result = nil
	fc.err = nil
}

func (fc *fulfillmentContext) newTask(cmdType string) (*task.Task, error) {
	tk := task.New(task.NewID("TASK"), cmdType, "cmd-bdd", fc.clock)
	if err := tk.Start(); err != nil {
		return nil, err
	}
	return tk, nil
}

func (fc *fulfillmentContext) theDefaultWorkcellLayout() error {
	fc.inv = inventory.NewDefault(fc.clock)
	fc.exec = commands.NewExecutor(fc.robot, fc.inv, fleet.NewPoseLock(nil), nil)
	return nil
}

func (fc *fulfillmentContext) bottleIsStagedOnTheBackPlatform(bottleID string) error {
	view, err := fc.inv.Bottle(bottleID)
	if err != nil {
		return err
	}
	if err := fc.inv.CommitRemove(view.Location, bottleID); err != nil {
		return err
	}
	res, err := fc.inv.ReserveBackSlot(view.ObjectType, bottleID)
	if err != nil {
		return err
	}
	return fc.inv.CommitPlace(res)
}

func (fc *fulfillmentContext) capture(resp interface{}, err error) {
	fc.err = err
	fc.result = nil
	if resp != nil {
		if r, ok := resp.(*types.ExecutionResult); ok {
			fc.result = r
		}
	}
}

func (fc *fulfillmentContext) theRobotPicksUpBottle(bottleID string) error {
	tk, err := fc.newTask("PICK_UP")
	if err != nil {
		return err
	}
	handler := commands.NewPickUpHandler(fc.exec)
	resp, err := handler.Handle(context.Background(), &types.PickUpCommand{
		Task: tk,
		Params: types.PickUpParams{TargetParams: []types.TargetParam{
			{BottleID: bottleID},
		}},
	})
	fc.capture(resp, err)
	return nil
}

func (fc *fulfillmentContext) theRobotPutsBottleTo(bottleID, releasePose string) error {
	tk, err := fc.newTask("PUT_TO")
	if err != nil {
		return err
	}
	handler := commands.NewPutToHandler(fc.exec)
	resp, err := handler.Handle(context.Background(), &types.PutToCommand{
		Task: tk,
		Params: types.PutToParams{ReleaseParams: []types.ReleaseParam{
			{BottleID: bottleID, ReleasePose: releasePose},
		}},
	})
	fc.capture(resp, err)
	return nil
}

func (fc *fulfillmentContext) theRobotTransfersBottlesTo(bottleList, releasePose string) error {
	tk, err := fc.newTask("TAKE_BOTTOL_FROM_SP_TO_SP")
	if err != nil {
		return err
	}
	var targets []types.TargetParam
	var releases []types.ReleaseParam
	for _, id := range strings.Split(bottleList, ",") {
		id = strings.TrimSpace(id)
		targets = append(targets, types.TargetParam{BottleID: id})
		releases = append(releases, types.ReleaseParam{BottleID: id, ReleasePose: releasePose})
	}
	handler := commands.NewTransferHandler(fc.exec)
	resp, err := handler.Handle(context.Background(), &types.TransferCommand{
		Task: tk,
		Params: types.TransferParams{
			TargetParams:  targets,
			ReleaseParams: releases,
		},
	})
	fc.capture(resp, err)
	return nil
}

func (fc *fulfillmentContext) theCommandSucceeds() error {
	if fc.err != nil {
		return fmt.Errorf("expected success, got error: %v", fc.err)
	}
	if fc.result == nil || !fc.result.Success {
		return fmt.Errorf("expected a successful result, got %+v", fc.result)
	}
	return nil
}

func (fc *fulfillmentContext) theCommandFailsWithCode(code int) error {
	if fc.err == nil {
		return fmt.Errorf("expected an error with code %d, command succeeded", code)
	}
	if got := shared.CodeOf(fc.err); got != code {
		return fmt.Errorf("expected code %d, got %d (%v)", code, got, fc.err)
	}
	return nil
}

func (fc *fulfillmentContext) bottleIsOnTheRobot(bottleID string) error {
	view, err := fc.inv.Bottle(bottleID)
	if err != nil {
		return err
	}
	if !view.OnRobot {
		return fmt.Errorf("bottle %s is not on the robot (location %q)", bottleID, view.Location)
	}
	return nil
}

func (fc *fulfillmentContext) bottleIsAt(bottleID, poseName string) error {
	view, err := fc.inv.Bottle(bottleID)
	if err != nil {
		return err
	}
	if view.Location != poseName {
		return fmt.Errorf("bottle %s is at %q, expected %q", bottleID, view.Location, poseName)
	}
	return nil
}

func (fc *fulfillmentContext) theRobotNavigatedTo(navigationPose string) error {
	want := fmt.Sprintf("navigate(%s)", navigationPose)
	for _, call := range fc.robot.Calls() {
		if call == want {
			return nil
		}
	}
	return fmt.Errorf("no %s among calls %v", want, fc.robot.Calls())
}

func (fc *fulfillmentContext) theRobotMadeNoCalls() error {
	if calls := fc.robot.Calls(); len(calls) > 0 {
		return fmt.Errorf("expected no robot calls, got %v", calls)
	}
	return nil
}

// InitializeFulfillmentScenario registers the bottle movement steps
func InitializeFulfillmentScenario(sc *godog.ScenarioContext) {
	fc := &fulfillmentContext{}

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		fc.reset()
		return ctx, nil
	})

	sc.Step(`^the default workcell layout$`, fc.theDefaultWorkcellLayout)
	sc.Step(`^bottle "([^"]+)" is staged on the back platform$`, fc.bottleIsStagedOnTheBackPlatform)
	sc.Step(`^the robot picks up bottle "([^"]+)"$`, fc.theRobotPicksUpBottle)
	sc.Step(`^the robot puts bottle "([^"]+)" to "([^"]+)"$`, fc.theRobotPutsBottleTo)
	sc.Step(`^the robot transfers bottles "([^"]+)" to "([^"]+)"$`, fc.theRobotTransfersBottlesTo)
	sc.Step(`^the command succeeds$`, fc.theCommandSucceeds)
	sc.Step(`^the command fails with code (\d+)$`, fc.theCommandFailsWithCode)
	sc.Step(`^bottle "([^"]+)" is on the robot$`, fc.bottleIsOnTheRobot)
	sc.Step(`^bottle "([^"]+)" is at "([^"]+)"$`, fc.bottleIsAt)
	sc.Step(`^the robot navigated to "([^"]+)"$`, fc.theRobotNavigatedTo)
	sc.Step(`^the robot made no calls$`, fc.theRobotMadeNoCalls)
}
