package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

// GormTaskArchive persists terminal task snapshots using GORM. It
// backs GET /task/<id> across daemon restarts and the task history
// listing.
type GormTaskArchive struct {
	db *gorm.DB
}

// NewGormTaskArchive creates a new GORM task archive
func NewGormTaskArchive(db *gorm.DB) *GormTaskArchive {
	return &GormTaskArchive{db: db}
}

// Save upserts one terminal snapshot. Re-archiving the same task id
// overwrites the previous row.
func (r *GormTaskArchive) Save(snapshot task.Snapshot, errorCode int) error {
	model, err := snapshotToModel(snapshot, errorCode)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", snapshot.TaskID, err)
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		UpdateAll: true,
	}).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to archive task %s: %w", snapshot.TaskID, result.Error)
	}
	return nil
}

// Find retrieves one archived record by task id
func (r *GormTaskArchive) Find(taskID string) (task.Snapshot, error) {
	var model TaskRecordModel
	result := r.db.Where("task_id = ?", taskID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return task.Snapshot{}, shared.NewTaskNotFoundError(taskID)
		}
		return task.Snapshot{}, fmt.Errorf("failed to find task %s: %w", taskID, result.Error)
	}
	return modelToSnapshot(&model)
}

// Recent lists archived records, newest submission first
func (r *GormTaskArchive) Recent(limit int) ([]task.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []TaskRecordModel
	result := r.db.Order("submit_time DESC").Limit(limit).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", result.Error)
	}

	snaps := make([]task.Snapshot, 0, len(models))
	for i := range models {
		snap, err := modelToSnapshot(&models[i])
		if err != nil {
			continue // skip rows with undecodable payloads
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func snapshotToModel(snap task.Snapshot, errorCode int) (TaskRecordModel, error) {
	model := TaskRecordModel{
		TaskID:       snap.TaskID,
		CmdType:      snap.CmdType,
		CmdID:        snap.CmdID,
		Status:       string(snap.Status),
		SubmitTime:   snap.SubmitTime,
		StartTime:    snap.StartTime,
		EndTime:      snap.EndTime,
		ErrorMessage: snap.ErrorMessage,
		ErrorCode:    errorCode,
		CreatedAt:    time.Now(),
	}
	if snap.Result != nil {
		encoded, err := json.Marshal(snap.Result)
		if err != nil {
			return TaskRecordModel{}, err
		}
		model.Result = string(encoded)
	}
	if len(snap.CompletedSteps) > 0 {
		encoded, err := json.Marshal(snap.CompletedSteps)
		if err != nil {
			return TaskRecordModel{}, err
		}
		model.CompletedSteps = string(encoded)
	}
	return model, nil
}

func modelToSnapshot(model *TaskRecordModel) (task.Snapshot, error) {
	snap := task.Snapshot{
		TaskID:       model.TaskID,
		CmdType:      model.CmdType,
		CmdID:        model.CmdID,
		Status:       task.Status(model.Status),
		SubmitTime:   model.SubmitTime,
		StartTime:    model.StartTime,
		EndTime:      model.EndTime,
		ErrorMessage: model.ErrorMessage,
	}
	if model.Result != "" {
		var result any
		if err := json.Unmarshal([]byte(model.Result), &result); err != nil {
			return task.Snapshot{}, err
		}
		snap.Result = result
	}
	if model.CompletedSteps != "" {
		var steps []task.StepRecord
		if err := json.Unmarshal([]byte(model.CompletedSteps), &steps); err != nil {
			return task.Snapshot{}, err
		}
		snap.CompletedSteps = steps
	}
	return snap, nil
}
