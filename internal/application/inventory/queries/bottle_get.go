package queries

import (
	"context"
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
)

// BottleGetQuery serves BOTTLE_GET: one bottle, one slot's occupants,
// or the whole ledger, with or without attributes.
type BottleGetQuery struct {
	BottleID string `json:"bottle_id,omitempty"`
	PoseName string `json:"pose_name,omitempty"`
	Detail   bool   `json:"detail_params,omitempty"`
}

type BottleGetHandler struct {
	inv *inventory.Inventory
}

func NewBottleGetHandler(inv *inventory.Inventory) *BottleGetHandler {
	return &BottleGetHandler{inv: inv}
}

func (h *BottleGetHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*BottleGetQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type for bottle get handler")
	}
	return h.inv.Summary(inventory.SummaryFilter{
		BottleID: query.BottleID,
		PoseName: query.PoseName,
		Detail:   query.Detail,
	})
}
