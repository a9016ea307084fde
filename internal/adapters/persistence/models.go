package persistence

import (
	"time"
)

// TaskRecordModel represents the task_records table: one row per task
// that reached a terminal status.
type TaskRecordModel struct {
	TaskID         string     `gorm:"column:task_id;primaryKey"`
	CmdType        string     `gorm:"column:cmd_type;not null;index"`
	CmdID          string     `gorm:"column:cmd_id"`
	Status         string     `gorm:"column:status;not null"`
	SubmitTime     time.Time  `gorm:"column:submit_time;not null;index"`
	StartTime      *time.Time `gorm:"column:start_time"`
	EndTime        *time.Time `gorm:"column:end_time"`
	Result         string     `gorm:"column:result;type:text"`          // JSON as text
	CompletedSteps string     `gorm:"column:completed_steps;type:text"` // JSON array as text
	ErrorMessage   string     `gorm:"column:error_message"`
	ErrorCode      int        `gorm:"column:error_code"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
}

func (TaskRecordModel) TableName() string {
	return "task_records"
}
