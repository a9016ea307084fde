package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// maxBodyBytes bounds command bodies; the biggest legitimate envelope
// is a transfer of every bottle in the cell, well under this.
const maxBodyBytes = 1 << 20

// errorReply is the wire shape of every failed command
type errorReply struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// dataReply wraps a synchronous command's full answer
type dataReply struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
	Data    any  `json:"data,omitempty"`
}

// queueReply acknowledges an enqueued long-running command
type queueReply struct {
	Success   bool   `json:"success"`
	TaskID    string `json:"task_id"`
	Message   string `json:"message"`
	QueueSize int    `json:"queue_size"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataReply{Success: true, Code: shared.CodeOK, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	code := shared.CodeOf(err)
	writeJSON(w, httpStatus(code), errorReply{Success: false, Code: code, Message: err.Error()})
}

// httpStatus maps wire codes onto HTTP status families
func httpStatus(code int) int {
	switch code {
	case shared.CodeOK:
		return http.StatusOK
	case shared.CodeBadRequest, shared.CodeUnknownCommand:
		return http.StatusBadRequest
	case shared.CodeBottleNotFound, shared.CodeSlotNotFound, shared.CodeTaskNotFound:
		return http.StatusNotFound
	case shared.CodeSlotFull, shared.CodeTypeMismatch, shared.CodePlatformOverCapacity,
		shared.CodeTaskTerminal, shared.CodeNoWaitingTask, shared.CodeEnterIDTypeMismatch:
		return http.StatusConflict
	case shared.CodeRobotDisconnected, shared.CodePrimitiveTimeout, shared.CodeRemoteError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON parses a bounded request body, rejecting unknown fields
// so protocol drift surfaces as code 1000 instead of silent loss.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return shared.NewValidationError("body", err.Error())
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return shared.NewValidationError("body", "unexpected trailing data")
	}
	return nil
}

// decodeParams parses one command's params block with the same rules
func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return shared.NewValidationError("params", err.Error())
	}
	return nil
}

// emptyParams reports whether a params block carries nothing
func emptyParams(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe) == 0
}

