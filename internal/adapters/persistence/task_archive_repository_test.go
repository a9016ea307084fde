package persistence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-robotics/workcell-go/internal/adapters/persistence"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/database"
)

func newArchive(t *testing.T) *persistence.GormTaskArchive {
	t.Helper()
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return persistence.NewGormTaskArchive(db)
}

func terminalSnapshot(taskID string, status task.Status, submitted time.Time) task.Snapshot {
	started := submitted.Add(time.Second)
	ended := submitted.Add(5 * time.Second)
	return task.Snapshot{
		TaskID:     taskID,
		CmdType:    "PICK_UP",
		CmdID:      "cmd-" + taskID,
		Status:     status,
		SubmitTime: submitted,
		StartTime:  &started,
		EndTime:    &ended,
	}
}

func TestArchiveSaveAndFind(t *testing.T) {
	// Arrange
	archive := newArchive(t)
	snap := terminalSnapshot("TASK_001", task.StatusCompleted, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	snap.Result = map[string]any{"success_count": float64(2)}
	snap.CompletedSteps = []task.StepRecord{{Step: "navigate", FinishedAt: snap.SubmitTime.Add(2 * time.Second)}}

	// Act
	require.NoError(t, archive.Save(snap, 0))
	found, err := archive.Find("TASK_001")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "PICK_UP", found.CmdType)
	assert.Equal(t, task.StatusCompleted, found.Status)
	require.NotNil(t, found.Result)
	assert.Equal(t, map[string]any{"success_count": float64(2)}, found.Result)
	require.Len(t, found.CompletedSteps, 1)
	assert.Equal(t, "navigate", found.CompletedSteps[0].Step)
}

func TestArchiveSaveOverwritesSameTask(t *testing.T) {
	// Arrange
	archive := newArchive(t)
	submitted := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	first := terminalSnapshot("TASK_002", task.StatusFailed, submitted)
	first.ErrorMessage = "robot robot_a is disconnected"
	require.NoError(t, archive.Save(first, shared.CodeRobotDisconnected))

	// Act: the same task archived again after a retry succeeded.
	second := terminalSnapshot("TASK_002", task.StatusCompleted, submitted)
	require.NoError(t, archive.Save(second, 0))

	// Assert
	found, err := archive.Find("TASK_002")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, found.Status)
	assert.Empty(t, found.ErrorMessage)

	recent, err := archive.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1, "upsert leaves a single row per task id")
}

func TestArchiveFindUnknown(t *testing.T) {
	// Arrange
	archive := newArchive(t)

	// Act
	_, err := archive.Find("TASK_MISSING")

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeTaskNotFound, shared.CodeOf(err))
}

func TestArchiveRecentOrdersAndLimits(t *testing.T) {
	// Arrange
	archive := newArchive(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		snap := terminalSnapshot(
			"TASK_10"+string(rune('0'+i)),
			task.StatusCompleted,
			base.Add(time.Duration(i)*time.Minute),
		)
		require.NoError(t, archive.Save(snap, 0))
	}

	// Act
	recent, err := archive.Recent(3)

	// Assert
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "TASK_104", recent[0].TaskID, "newest submission first")
	assert.Equal(t, "TASK_103", recent[1].TaskID)
	assert.Equal(t, "TASK_102", recent[2].TaskID)
}
