package commands

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/scanning"
	"github.com/athena-robotics/workcell-go/internal/application/scanning/types"
)

// EnterIDHandler executes ENTER_ID: hand the operator-keyed bottle id
// to the scan session parked in WAITING_ID_INPUT.
type EnterIDHandler struct {
	exchange *scanning.Exchange
}

func NewEnterIDHandler(exchange *scanning.Exchange) *EnterIDHandler {
	return &EnterIDHandler{exchange: exchange}
}

func (h *EnterIDHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*types.EnterIDCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type for enter id handler")
	}

	taskID, err := h.exchange.Deliver(scanning.EnterIDInput{
		BottleID:   cmd.BottleID,
		ObjectType: cmd.ObjectType,
	})
	if err != nil {
		return nil, err
	}
	return &types.EnterIDResult{
		BottleID:   cmd.BottleID,
		ObjectType: cmd.ObjectType,
		TaskID:     taskID,
	}, nil
}
