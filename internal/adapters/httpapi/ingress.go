package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/athena-robotics/workcell-go/internal/adapters/metrics"
	"github.com/athena-robotics/workcell-go/internal/application/common"
	fulfillmentTypes "github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	inventoryQueries "github.com/athena-robotics/workcell-go/internal/application/inventory/queries"
	scanningTypes "github.com/athena-robotics/workcell-go/internal/application/scanning/types"
	tasksCommands "github.com/athena-robotics/workcell-go/internal/application/tasks/commands"
	tasksQueries "github.com/athena-robotics/workcell-go/internal/application/tasks/queries"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/internal/domain/task"
)

// Command tags accepted on the ingress endpoint
const (
	CmdPickUp          = "PICK_UP"
	CmdPutTo           = "PUT_TO"
	CmdTransfer        = "TAKE_BOTTOL_FROM_SP_TO_SP"
	CmdScanQrcode      = "SCAN_QRCODE"
	CmdScanResult      = "SCAN_QRCODE_RESULT"
	CmdEnterID         = "ENTER_ID"
	CmdScanEnterID     = "SCAN_QRCODE_ENTER_ID"
	CmdBottleGet       = "BOTTLE_GET"
	CmdCancel          = "CANCEL"
	CmdGetTaskState    = "GET_TASK_STATE"
	queuedTaskIDPrefix = "TASK"
	scanTaskIDPrefix   = "SCAN_QRCODE"
)

var validate = validator.New()

// CommandEnvelope is the ingress wire format
type CommandEnvelope struct {
	Header  map[string]any  `json:"header,omitempty"`
	CmdID   string          `json:"cmd_id"`
	CmdType string          `json:"cmd_type"`
	Params  json.RawMessage `json:"params,omitempty"`
	Extra   map[string]any  `json:"extra,omitempty"`
}

// handleCommand decodes the envelope and routes by cmd_type: long
// running commands are queued and acknowledged with a task id, the
// rest answer inline.
func (rt *Router) handleCommand(w http.ResponseWriter, r *http.Request) {
	var env CommandEnvelope
	if err := decodeJSON(w, r, &env); err != nil {
		metrics.RecordCommand("INVALID", shared.CodeOf(err))
		writeError(w, err)
		return
	}
	if env.CmdType == "" {
		err := shared.NewValidationError("cmd_type", "is required")
		metrics.RecordCommand("INVALID", shared.CodeOf(err))
		writeError(w, err)
		return
	}

	code := shared.CodeOK
	defer func() { metrics.RecordCommand(env.CmdType, code) }()

	switch env.CmdType {
	case CmdPickUp:
		var params fulfillmentTypes.PickUpParams
		code = rt.submit(w, env, queuedTaskIDPrefix, &params, func(t *task.Task) common.Request {
			return &fulfillmentTypes.PickUpCommand{Task: t, CmdID: env.CmdID, Params: params}
		})

	case CmdPutTo:
		var params fulfillmentTypes.PutToParams
		code = rt.submit(w, env, queuedTaskIDPrefix, &params, func(t *task.Task) common.Request {
			return &fulfillmentTypes.PutToCommand{Task: t, CmdID: env.CmdID, Params: params}
		})

	case CmdTransfer:
		var params fulfillmentTypes.TransferParams
		code = rt.submit(w, env, queuedTaskIDPrefix, &params, func(t *task.Task) common.Request {
			return &fulfillmentTypes.TransferCommand{Task: t, CmdID: env.CmdID, Params: params}
		})

	case CmdScanQrcode:
		if !emptyParams(env.Params) {
			code = shared.CodeBadRequest
			writeError(w, shared.NewValidationError("params", "SCAN_QRCODE takes no params"))
			return
		}
		code = rt.submit(w, env, scanTaskIDPrefix, nil, func(t *task.Task) common.Request {
			return &scanningTypes.ScanQrcodeCommand{Task: t, CmdID: env.CmdID}
		})

	case CmdEnterID, CmdScanEnterID:
		code = rt.sync(w, r, env, &scanningTypes.EnterIDCommand{})

	case CmdBottleGet:
		code = rt.sync(w, r, env, &inventoryQueries.BottleGetQuery{})

	case CmdCancel:
		code = rt.sync(w, r, env, &tasksCommands.CancelCommand{})

	case CmdGetTaskState:
		code = rt.sync(w, r, env, &tasksQueries.GetTaskStateQuery{})

	case CmdScanResult:
		code = rt.sync(w, r, env, &tasksQueries.ScanResultQuery{})

	default:
		err := shared.NewUnknownCommandError(env.CmdType)
		code = shared.CodeOf(err)
		writeError(w, err)
	}
}

// submit validates params, enqueues the task and acknowledges with the
// task id and the queue depth. Returns the outcome code for metrics.
func (rt *Router) submit(w http.ResponseWriter, env CommandEnvelope, idPrefix string,
	params any, build func(*task.Task) common.Request) int {
	if params != nil {
		if err := decodeParams(env.Params, params); err != nil {
			writeError(w, err)
			return shared.CodeOf(err)
		}
		if err := validate.Struct(params); err != nil {
			verr := shared.NewValidationError("params", err.Error())
			writeError(w, verr)
			return shared.CodeOf(verr)
		}
	}

	t, depth, err := rt.deps.Engine.Submit(env.CmdType, env.CmdID, idPrefix, build)
	if err != nil {
		writeError(w, err)
		return shared.CodeOf(err)
	}
	writeJSON(w, http.StatusOK, queueReply{
		Success:   true,
		TaskID:    t.ID(),
		Message:   "任务已加入队列",
		QueueSize: depth,
	})
	return shared.CodeOK
}

// sync decodes params into the request, validates it and answers with
// the handler's full reply.
func (rt *Router) sync(w http.ResponseWriter, r *http.Request, env CommandEnvelope, request common.Request) int {
	if err := decodeParams(env.Params, request); err != nil {
		writeError(w, err)
		return shared.CodeOf(err)
	}
	if err := validate.Struct(request); err != nil {
		verr := shared.NewValidationError("params", err.Error())
		writeError(w, verr)
		return shared.CodeOf(verr)
	}

	resp, err := rt.deps.Mediator.Send(r.Context(), request)
	if err != nil {
		writeError(w, err)
		return shared.CodeOf(err)
	}
	writeData(w, resp)
	return shared.CodeOK
}
