package commands

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
)

// CancelCommand requests cancellation of a queued or running task
type CancelCommand struct {
	TaskID string `json:"task_id" validate:"required"`
}

// CancelResult acknowledges that the flag was set
type CancelResult struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// CancelHandler executes CANCEL against the engine registry
type CancelHandler struct {
	engine *tasks.Engine
}

func NewCancelHandler(engine *tasks.Engine) *CancelHandler {
	return &CancelHandler{engine: engine}
}

func (h *CancelHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*CancelCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type for cancel handler")
	}
	if err := h.engine.Cancel(cmd.TaskID); err != nil {
		return nil, err
	}
	return &CancelResult{TaskID: cmd.TaskID, Message: "cancellation requested"}, nil
}
