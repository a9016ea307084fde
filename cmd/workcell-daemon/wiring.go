package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/application/common"
	fulfillmentCmd "github.com/athena-robotics/workcell-go/internal/application/fulfillment/commands"
	fulfillmentTypes "github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	inventoryQueries "github.com/athena-robotics/workcell-go/internal/application/inventory/queries"
	"github.com/athena-robotics/workcell-go/internal/application/scanning"
	scanningCmd "github.com/athena-robotics/workcell-go/internal/application/scanning/commands"
	scanningTypes "github.com/athena-robotics/workcell-go/internal/application/scanning/types"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
	tasksCommands "github.com/athena-robotics/workcell-go/internal/application/tasks/commands"
	tasksQueries "github.com/athena-robotics/workcell-go/internal/application/tasks/queries"
	domainFleet "github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/infrastructure/ports"
)

// registration collects the shared dependencies for mediator wiring
type registration struct {
	executor *fulfillmentCmd.Executor
	primary  ports.RobotLink
	inv      *inventory.Inventory
	locks    *domainFleet.PoseLock
	exchange *scanning.Exchange
	clock    shared.Clock
	logger   *zap.Logger
}

// registerHandlers wires every command and query handler that does not
// depend on the task engine.
func registerHandlers(med common.Mediator, reg registration) error {
	if err := common.RegisterHandler[*fulfillmentTypes.PickUpCommand](med,
		fulfillmentCmd.NewPickUpHandler(reg.executor)); err != nil {
		return fmt.Errorf("failed to register PickUp handler: %w", err)
	}
	if err := common.RegisterHandler[*fulfillmentTypes.PutToCommand](med,
		fulfillmentCmd.NewPutToHandler(reg.executor)); err != nil {
		return fmt.Errorf("failed to register PutTo handler: %w", err)
	}
	if err := common.RegisterHandler[*fulfillmentTypes.TransferCommand](med,
		fulfillmentCmd.NewTransferHandler(reg.executor)); err != nil {
		return fmt.Errorf("failed to register Transfer handler: %w", err)
	}

	scanHandler := scanningCmd.NewScanQrcodeHandler(reg.primary, reg.inv, reg.locks,
		reg.exchange, scanning.SessionConfig{}, reg.clock, reg.logger)
	if err := common.RegisterHandler[*scanningTypes.ScanQrcodeCommand](med, scanHandler); err != nil {
		return fmt.Errorf("failed to register ScanQrcode handler: %w", err)
	}
	if err := common.RegisterHandler[*scanningTypes.EnterIDCommand](med,
		scanningCmd.NewEnterIDHandler(reg.exchange)); err != nil {
		return fmt.Errorf("failed to register EnterID handler: %w", err)
	}

	if err := common.RegisterHandler[*inventoryQueries.BottleGetQuery](med,
		inventoryQueries.NewBottleGetHandler(reg.inv)); err != nil {
		return fmt.Errorf("failed to register BottleGet handler: %w", err)
	}
	return nil
}

// registerEngineHandlers wires the handlers that read or mutate the
// task engine itself.
func registerEngineHandlers(med common.Mediator, engine *tasks.Engine) error {
	if err := common.RegisterHandler[*tasksCommands.CancelCommand](med,
		tasksCommands.NewCancelHandler(engine)); err != nil {
		return fmt.Errorf("failed to register Cancel handler: %w", err)
	}
	if err := common.RegisterHandler[*tasksQueries.GetTaskStateQuery](med,
		tasksQueries.NewGetTaskStateHandler(engine)); err != nil {
		return fmt.Errorf("failed to register GetTaskState handler: %w", err)
	}
	if err := common.RegisterHandler[*tasksQueries.ScanResultQuery](med,
		tasksQueries.NewScanResultHandler(engine)); err != nil {
		return fmt.Errorf("failed to register ScanResult handler: %w", err)
	}
	return nil
}
