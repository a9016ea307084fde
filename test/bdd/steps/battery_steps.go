package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	appFleet "github.com/athena-robotics/workcell-go/internal/application/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
	"github.com/athena-robotics/workcell-go/test/helpers"
)

// batteryContext holds state for charging dispatch scenarios
type batteryContext struct {
	robot   *helpers.FakeRobotLink
	busy    bool
	monitor *appFleet.BatteryMonitor
}

func (bc *batteryContext) reset() {
	bc.robot = helpers.NewFakeRobotLink("robot_a")
	bc.busy = false
	bc.monitor = nil
}

func (bc *batteryContext) aRobotReportingPercentBattery(percent int) error {
	bc.robot.SetTopicMessage("/battery_state", map[string]any{
		"percentage": float64(percent) / 100,
	})
	return nil
}

func (bc *batteryContext) theRobotIsIdle() error {
	bc.busy = false
	return nil
}

func (bc *batteryContext) theRobotIsBusy() error {
	bc.busy = true
	return nil
}

func (bc *batteryContext) theBatterySweepRuns() error {
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	bc.monitor = appFleet.NewBatteryMonitor(
		[]ports.RobotLink{bc.robot},
		func(robotID string) bool { return bc.busy },
		fleet.NewPoseLock(nil),
		appFleet.MonitorConfig{},
		clock, nil,
	)
	bc.monitor.Sweep()
	return nil
}

func (bc *batteryContext) theRobotIsSentToTheChargingStation() error {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(bc.robot.CallsWithPrefix("navigate(charging_station)")) > 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("robot never navigated to the charger, calls %v", bc.robot.Calls())
}

func (bc *batteryContext) theRobotStaysPut() error {
	// Give a wrongly scheduled dispatch a moment to show itself.
	time.Sleep(50 * time.Millisecond)
	if calls := bc.robot.CallsWithPrefix("navigate("); len(calls) > 0 {
		return fmt.Errorf("expected no navigation, got %v", calls)
	}
	return nil
}

func (bc *batteryContext) theBatteryStateBecomes(want string) error {
	deadline := time.Now().Add(2 * time.Second)
	var last fleet.BatteryState
	for time.Now().Before(deadline) {
		last = bc.monitor.Reports()[0].State
		if string(last) == want {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("battery state is %q, expected %q", last, want)
}

// InitializeBatteryScenario registers the charging dispatch steps
func InitializeBatteryScenario(sc *godog.ScenarioContext) {
	bc := &batteryContext{}

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		bc.reset()
		return ctx, nil
	})

	sc.Step(`^a robot reporting (\d+) percent battery$`, bc.aRobotReportingPercentBattery)
	sc.Step(`^the robot is idle$`, bc.theRobotIsIdle)
	sc.Step(`^the robot is busy$`, bc.theRobotIsBusy)
	sc.Step(`^the battery sweep runs$`, bc.theBatterySweepRuns)
	sc.Step(`^the robot is sent to the charging station$`, bc.theRobotIsSentToTheChargingStation)
	sc.Step(`^the robot stays put$`, bc.theRobotStaysPut)
	sc.Step(`^the battery state becomes "([^"]+)"$`, bc.theBatteryStateBecomes)
}
