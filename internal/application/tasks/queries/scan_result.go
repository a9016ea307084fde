package queries

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
)

// ScanResultQuery projects the scan-session progress of one task:
// the bottle currently under the gun and everything scanned so far.
type ScanResultQuery struct {
	TaskID string `json:"task_id" validate:"required"`
}

// ScanResultProjection is the SCAN_QRCODE_RESULT answer
type ScanResultProjection struct {
	TaskID            string `json:"task_id"`
	Status            string `json:"status"`
	CurrentStep       string `json:"current_step,omitempty"`
	CurrentBottleInfo any    `json:"current_bottle_info,omitempty"`
	ScannedBottles    any    `json:"scanned_bottles,omitempty"`
	Result            any    `json:"result,omitempty"`
}

type ScanResultHandler struct {
	engine *tasks.Engine
}

func NewScanResultHandler(engine *tasks.Engine) *ScanResultHandler {
	return &ScanResultHandler{engine: engine}
}

func (h *ScanResultHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*ScanResultQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type for scan result handler")
	}
	snap, err := h.engine.Find(query.TaskID)
	if err != nil {
		return nil, err
	}
	return &ScanResultProjection{
		TaskID:            snap.TaskID,
		Status:            string(snap.Status),
		CurrentStep:       snap.CurrentStep,
		CurrentBottleInfo: snap.CurrentBottleInfo,
		ScannedBottles:    snap.ScannedBottles,
		Result:            snap.Result,
	}, nil
}
