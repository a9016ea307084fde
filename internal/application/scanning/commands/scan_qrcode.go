package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/scanning"
	"github.com/athena-robotics/workcell-go/internal/application/scanning/types"
	"github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

// ScanQrcodeHandler executes SCAN_QRCODE by running a scan session on
// the primary robot.
type ScanQrcodeHandler struct {
	robot    ports.RobotLink
	inv      *inventory.Inventory
	locks    *fleet.PoseLock
	exchange *scanning.Exchange
	cfg      scanning.SessionConfig
	clock    shared.Clock
	logger   *zap.Logger
}

func NewScanQrcodeHandler(robot ports.RobotLink, inv *inventory.Inventory, locks *fleet.PoseLock,
	exchange *scanning.Exchange, cfg scanning.SessionConfig, clock shared.Clock, logger *zap.Logger) *ScanQrcodeHandler {
	return &ScanQrcodeHandler{
		robot:    robot,
		inv:      inv,
		locks:    locks,
		exchange: exchange,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

func (h *ScanQrcodeHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*types.ScanQrcodeCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type for scan qrcode handler")
	}

	session := scanning.NewSession(h.robot, h.inv, h.locks, h.exchange, cmd.Task, h.cfg, h.clock, h.logger)
	result, err := session.Run(ctx)
	if err != nil {
		return nil, err
	}
	return result, nil
}
