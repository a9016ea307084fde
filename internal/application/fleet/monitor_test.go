package fleet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appFleet "github.com/athena-robotics/workcell-go/internal/application/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
	"github.com/athena-robotics/workcell-go/test/helpers"
)

func newMonitor(t *testing.T, robot *helpers.FakeRobotLink, taskRunning bool) *appFleet.BatteryMonitor {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	return appFleet.NewBatteryMonitor(
		[]ports.RobotLink{robot},
		func(robotID string) bool { return taskRunning },
		fleet.NewPoseLock(nil),
		appFleet.MonitorConfig{},
		clock, nil,
	)
}

func TestMonitorDispatchesIdleLowRobot(t *testing.T) {
	// Arrange
	robot := helpers.NewFakeRobotLink("robot_a")
	robot.SetTopicMessage("/battery_state", map[string]any{"percentage": 0.20})
	monitor := newMonitor(t, robot, false)

	// Act
	monitor.Sweep()

	// Assert: the charging run happens on a dispatch goroutine.
	require.Eventually(t, func() bool {
		return len(robot.CallsWithPrefix("navigate(charging_station)")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return monitor.Reports()[0].State == fleet.BatteryCharging
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorDefersChargingWhileTaskRuns(t *testing.T) {
	// Arrange
	robot := helpers.NewFakeRobotLink("robot_a")
	robot.SetTopicMessage("/battery_state", map[string]any{"percentage": 0.20})
	monitor := newMonitor(t, robot, true)

	// Act
	monitor.Sweep()

	// Assert
	assert.Empty(t, robot.CallsWithPrefix("navigate("), "no charger trip mid-task")
	report := monitor.Reports()[0]
	assert.Equal(t, fleet.BatteryLow, report.State)
	assert.False(t, report.Available)
	assert.Equal(t, "low_battery", report.UnavailableReason)
}

func TestMonitorNormalizesPercentScale(t *testing.T) {
	// Arrange: some firmwares publish 0..100 instead of 0..1.
	robot := helpers.NewFakeRobotLink("robot_a")
	robot.SetTopicMessage("/battery_state", map[string]any{"percentage": 85.0})
	monitor := newMonitor(t, robot, false)

	// Act
	monitor.Sweep()

	// Assert
	report := monitor.Reports()[0]
	assert.Equal(t, fleet.BatteryNormal, report.State)
	assert.InDelta(t, 0.85, report.Percentage, 0.001)
	assert.True(t, report.Available)
}

func TestMonitorReportsPendingWithoutReading(t *testing.T) {
	// Arrange
	robot := helpers.NewFakeRobotLink("robot_a")
	monitor := newMonitor(t, robot, false)

	// Act
	monitor.Sweep()

	// Assert
	report := monitor.Reports()[0]
	assert.Equal(t, fleet.BatteryPending, report.State)
	assert.False(t, report.InfoReceived)
	assert.False(t, report.Available)
	assert.Equal(t, "battery_info_pending", report.UnavailableReason)
}
