package types

import (
	"time"

	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

// ScanQrcodeCommand starts a scan session: detect unscanned bottles on
// the scan table, scan each one, wait for the operator to key in its
// id, stow it on the back platform and finally drop everything at the
// split station.
type ScanQrcodeCommand struct {
	Task  *task.Task
	CmdID string
}

// EnterIDCommand delivers an operator-entered bottle id to the scan
// session parked in WAITING_ID_INPUT.
type EnterIDCommand struct {
	BottleID   string `json:"bottle_id" validate:"required"`
	ObjectType string `json:"type" validate:"required"`
}

// EnterIDResult acknowledges a delivered id
type EnterIDResult struct {
	BottleID   string `json:"bottle_id"`
	ObjectType string `json:"type"`
	TaskID     string `json:"task_id"`
}

// ScannedBottle is one bottle the session has fully processed
type ScannedBottle struct {
	BottleID   string    `json:"bottle_id"`
	ObjectType string    `json:"object_type"`
	BackSlot   string    `json:"back_slot"`
	SplitSlot  string    `json:"split_slot,omitempty"`
	ScannedAt  time.Time `json:"scanned_at"`
}

// FailedDetection is a detection the session could not process
type FailedDetection struct {
	BottleID   string `json:"bottle_id,omitempty"`
	TargetPose string `json:"target_pose"`
	BottleType string `json:"bottle_type"`
	Step       string `json:"step"`
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
}

// ScanResult is the result document of a scan session
type ScanResult struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	ScannedBottles []ScannedBottle   `json:"scanned_bottles"`
	FailedBottles  []FailedDetection `json:"failed_bottles"`
	Total          int               `json:"total"`
}
