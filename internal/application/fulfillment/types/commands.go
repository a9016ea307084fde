package types

import (
	"time"

	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

// DefaultPrimitiveTimeout bounds each robot call when the command does
// not override it.
const DefaultPrimitiveTimeout = 10 * time.Second

// TargetParam names one bottle to pick up
type TargetParam struct {
	BottleID string `json:"bottle_id" validate:"required"`
}

// ReleaseParam pairs a bottle with its destination slot
type ReleaseParam struct {
	BottleID    string `json:"bottle_id" validate:"required"`
	ReleasePose string `json:"release_pose" validate:"required"`
}

// PickUpParams is the PICK_UP request body
type PickUpParams struct {
	TargetParams []TargetParam `json:"target_params" validate:"required,min=1,dive"`
	Timeout      float64       `json:"timeout,omitempty" validate:"omitempty,gt=0"`
}

// PutToParams is the PUT_TO request body
type PutToParams struct {
	ReleaseParams []ReleaseParam `json:"release_params" validate:"required,min=1,dive"`
	Timeout       float64        `json:"timeout,omitempty" validate:"omitempty,gt=0"`
}

// TransferParams is the TAKE_BOTTOL_FROM_SP_TO_SP request body. Both
// lists must name exactly the same bottles.
type TransferParams struct {
	TargetParams  []TargetParam  `json:"target_params" validate:"required,min=1,dive"`
	ReleaseParams []ReleaseParam `json:"release_params" validate:"required,min=1,dive"`
	Timeout       float64        `json:"timeout,omitempty" validate:"omitempty,gt=0"`
}

// PickUpCommand moves shelf bottles onto the robot's back platform
type PickUpCommand struct {
	Task   *task.Task
	CmdID  string
	Params PickUpParams
}

// PutToCommand moves back-platform bottles into destination slots
type PutToCommand struct {
	Task   *task.Task
	CmdID  string
	Params PutToParams
}

// TransferCommand chains pickups and puts in platform-sized batches
type TransferCommand struct {
	Task   *task.Task
	CmdID  string
	Params TransferParams
}

// PrimitiveTimeout converts the command's timeout seconds to a duration
func PrimitiveTimeout(seconds float64) time.Duration {
	if seconds <= 0 {
		return DefaultPrimitiveTimeout
	}
	return time.Duration(seconds * float64(time.Second))
}

// FailedBottle records one bottle that could not be processed and the
// step that broke.
type FailedBottle struct {
	BottleID string `json:"bottle_id"`
	Step     string `json:"step"`
	Code     int    `json:"code"`
	Message  string `json:"message,omitempty"`
}

// ExecutionResult is the result document of a fulfillment task
type ExecutionResult struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	SuccessCount  int            `json:"success_count"`
	FailedBottles []FailedBottle `json:"failed_bottles"`
	Total         int            `json:"total"`
}
