package queries

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
)

// GetTaskStateQuery looks up one task's full record
type GetTaskStateQuery struct {
	TaskID string `json:"task_id" validate:"required"`
}

// GetTaskStateHandler serves GET_TASK_STATE and GET /task/{task_id}
type GetTaskStateHandler struct {
	engine *tasks.Engine
}

func NewGetTaskStateHandler(engine *tasks.Engine) *GetTaskStateHandler {
	return &GetTaskStateHandler{engine: engine}
}

func (h *GetTaskStateHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*GetTaskStateQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type for get task state handler")
	}
	snap, err := h.engine.Find(query.TaskID)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
