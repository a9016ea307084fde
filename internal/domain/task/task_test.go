package task_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

func TestNewTaskStartsPending(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	// Act
	tk := task.New("TASK_00000001", "PICK_UP", "cmd-1", clock)

	// Assert
	assert.Equal(t, task.StatusPending, tk.Status())
	snap := tk.Snapshot()
	assert.Equal(t, "TASK_00000001", snap.TaskID)
	assert.Equal(t, "PICK_UP", snap.CmdType)
	assert.Equal(t, clock.Now(), snap.SubmitTime)
	assert.Nil(t, snap.StartTime)
	assert.Nil(t, snap.EndTime)
}

func TestStartAndCompleteStampTimes(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	tk := task.New("TASK_00000001", "PICK_UP", "cmd-1", clock)

	// Act
	clock.Advance(2 * time.Second)
	require.NoError(t, tk.Start())
	clock.Advance(30 * time.Second)
	require.NoError(t, tk.Complete(map[string]any{"success": true}))

	// Assert
	snap := tk.Snapshot()
	assert.Equal(t, task.StatusCompleted, snap.Status)
	require.NotNil(t, snap.StartTime)
	require.NotNil(t, snap.EndTime)
	assert.Equal(t, 30*time.Second, snap.EndTime.Sub(*snap.StartTime))
	assert.Equal(t, map[string]any{"success": true}, snap.Result)
}

func TestCompleteRequiresRunning(t *testing.T) {
	// Arrange
	tk := task.New("TASK_00000001", "PICK_UP", "cmd-1", nil)

	// Act
	err := tk.Complete(nil)

	// Assert
	assert.Error(t, err)
	assert.Equal(t, task.StatusPending, tk.Status())
}

func TestFailRecordsErrorMessage(t *testing.T) {
	// Arrange
	tk := task.New("TASK_00000001", "PUT_TO", "cmd-1", nil)
	require.NoError(t, tk.Start())

	// Act
	err := tk.Fail(errors.New("robot robot_a: disconnected"))

	// Assert
	require.NoError(t, err)
	snap := tk.Snapshot()
	assert.Equal(t, task.StatusFailed, snap.Status)
	assert.Equal(t, "robot robot_a: disconnected", snap.ErrorMessage)
	assert.NotNil(t, snap.EndTime)
}

func TestParkAndResumeRoundTrip(t *testing.T) {
	// Arrange
	tk := task.New("SCAN_QRCODE_00000001", "SCAN_QRCODE", "cmd-1", nil)
	require.NoError(t, tk.Start())

	// Act - Park
	require.NoError(t, tk.Park())

	// Assert
	assert.Equal(t, task.StatusWaiting, tk.Status())

	// Act - Resume, first caller wins
	first := tk.Resume()
	second := tk.Resume()

	// Assert
	assert.NoError(t, first)
	assert.Error(t, second)
	assert.Equal(t, task.StatusRunning, tk.Status())
}

func TestParkRequiresRunning(t *testing.T) {
	// Arrange
	tk := task.New("TASK_00000001", "SCAN_QRCODE", "cmd-1", nil)

	// Act
	err := tk.Park()

	// Assert
	assert.Error(t, err)
}

func TestRequestCancelOnTerminalTask(t *testing.T) {
	// Arrange
	tk := task.New("TASK_00000001", "PICK_UP", "cmd-1", nil)
	require.NoError(t, tk.Start())
	require.NoError(t, tk.Complete(nil))

	// Act
	err := tk.RequestCancel()

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeTaskTerminal, shared.CodeOf(err))
}

func TestRequestCancelSetsFlagOnce(t *testing.T) {
	// Arrange
	tk := task.New("TASK_00000001", "PICK_UP", "cmd-1", nil)
	require.NoError(t, tk.Start())

	// Act
	require.NoError(t, tk.RequestCancel())
	require.NoError(t, tk.RequestCancel())

	// Assert
	assert.True(t, tk.CancelRequested())
}

func TestTerminalRecordIsImmutable(t *testing.T) {
	// Arrange
	tk := task.New("TASK_00000001", "PICK_UP", "cmd-1", nil)
	require.NoError(t, tk.Start())
	tk.BeginStep("navigating")
	tk.FinishStep()
	require.NoError(t, tk.Complete("done"))
	before := tk.Snapshot()

	// Act - every mutator is a no-op or error after the terminal transition
	tk.BeginStep("late")
	tk.FinishStep()
	tk.SetResult("overwritten")
	tk.PublishScanProgress("info", nil)
	assert.Error(t, tk.Fail(errors.New("late failure")))
	assert.Error(t, tk.MarkCancelled())

	// Assert
	assert.Equal(t, before, tk.Snapshot())
}

func TestStepAuditTrailKeepsOrder(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	tk := task.New("TASK_00000001", "SCAN_QRCODE", "cmd-1", clock)
	require.NoError(t, tk.Start())

	// Act
	tk.BeginStep("NAVIGATING_TO_SCAN")
	clock.Advance(time.Second)
	tk.FinishStep()
	tk.BeginStep("GRAB_SCAN_GUN")
	clock.Advance(time.Second)
	tk.FinishStep()
	tk.BeginStep("CV_DETECTING")

	// Assert
	snap := tk.Snapshot()
	require.Len(t, snap.CompletedSteps, 2)
	assert.Equal(t, "NAVIGATING_TO_SCAN", snap.CompletedSteps[0].Step)
	assert.Equal(t, "GRAB_SCAN_GUN", snap.CompletedSteps[1].Step)
	assert.True(t, snap.CompletedSteps[0].FinishedAt.Before(snap.CompletedSteps[1].FinishedAt))
	assert.Equal(t, "CV_DETECTING", snap.CurrentStep)
}

func TestSnapshotIsDetachedFromRecord(t *testing.T) {
	// Arrange
	tk := task.New("TASK_00000001", "PICK_UP", "cmd-1", nil)
	require.NoError(t, tk.Start())
	tk.BeginStep("navigating")
	tk.FinishStep()

	// Act
	snap := tk.Snapshot()
	snap.CompletedSteps[0].Step = "tampered"

	// Assert
	assert.Equal(t, "navigating", tk.Snapshot().CompletedSteps[0].Step)
}

func TestPublishScanProgressVisibleInSnapshot(t *testing.T) {
	// Arrange
	tk := task.New("SCAN_QRCODE_00000001", "SCAN_QRCODE", "cmd-1", nil)
	require.NoError(t, tk.Start())

	// Act
	tk.PublishScanProgress(
		map[string]any{"type": "glass_bottle_500", "target_pose": "detect_temp_500_001"},
		[]string{"BTL-9"},
	)

	// Assert
	snap := tk.Snapshot()
	info, ok := snap.CurrentBottleInfo.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "glass_bottle_500", info["type"])
	assert.Equal(t, []string{"BTL-9"}, snap.ScannedBottles)
}

func TestNewIDUsesPrefixAndHexSuffix(t *testing.T) {
	// Act
	plain := task.NewID("TASK")
	scan := task.NewID("SCAN_QRCODE")
	fallback := task.NewID("")

	// Assert
	assert.True(t, strings.HasPrefix(plain, "TASK_"))
	assert.True(t, strings.HasPrefix(scan, "SCAN_QRCODE_"))
	assert.True(t, strings.HasPrefix(fallback, "TASK_"))
	assert.Len(t, plain, len("TASK_")+8)
	assert.NotEqual(t, plain, task.NewID("TASK"))
}
