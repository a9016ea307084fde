package shared

import (
	"errors"
	"fmt"
	"time"
)

// Wire error codes shared by the HTTP surface, the task engine and the
// robot layer. The numeric ranges are part of the external contract:
// 1xxx request, 2xxx inventory, 3xxx robot, 4xxx task, 5xxx internal.
const (
	CodeOK                   = 0
	CodeBadRequest           = 1000
	CodeUnknownCommand       = 1001
	CodeBottleNotFound       = 2000
	CodeSlotNotFound         = 2001
	CodeSlotFull             = 2002
	CodeTypeMismatch         = 2003
	CodePlatformOverCapacity = 2004
	CodeRobotDisconnected    = 3000
	CodePrimitiveTimeout     = 3001
	CodeRemoteError          = 3002
	CodeTaskNotFound         = 4000
	CodeTaskTerminal         = 4001
	CodeNoWaitingTask        = 4002
	CodeEnterIDTypeMismatch  = 4003
	CodeInternal             = 5000
)

// Coded is implemented by every domain error carrying a wire code.
type Coded interface {
	error
	WireCode() int
}

// DomainError is the base error type for all domain errors
type DomainError struct {
	Code    int
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// WireCode returns the protocol error code
func (e *DomainError) WireCode() int {
	return e.Code
}

func NewDomainError(code int, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// CodeOf extracts the wire code from err, returning CodeInternal for
// errors outside the domain hierarchy and CodeOK for nil.
func CodeOf(err error) int {
	if err == nil {
		return CodeOK
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.WireCode()
	}
	return CodeInternal
}

// Request errors

type ValidationError struct {
	*DomainError
	Field string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		DomainError: &DomainError{Code: CodeBadRequest, Message: fmt.Sprintf("%s: %s", field, message)},
		Field:       field,
	}
}

type UnknownCommandError struct {
	*DomainError
	CmdType string
}

func NewUnknownCommandError(cmdType string) *UnknownCommandError {
	return &UnknownCommandError{
		DomainError: &DomainError{Code: CodeUnknownCommand, Message: fmt.Sprintf("unknown cmd_type: %s", cmdType)},
		CmdType:     cmdType,
	}
}

// Inventory errors

type InventoryError struct {
	*DomainError
}

func NewInventoryError(code int, message string) *InventoryError {
	return &InventoryError{DomainError: &DomainError{Code: code, Message: message}}
}

type BottleNotFoundError struct {
	*InventoryError
	BottleID string
}

func NewBottleNotFoundError(bottleID string) *BottleNotFoundError {
	return &BottleNotFoundError{
		InventoryError: NewInventoryError(CodeBottleNotFound, fmt.Sprintf("bottle %s not found", bottleID)),
		BottleID:       bottleID,
	}
}

type SlotNotFoundError struct {
	*InventoryError
	PoseName string
}

func NewSlotNotFoundError(poseName string) *SlotNotFoundError {
	return &SlotNotFoundError{
		InventoryError: NewInventoryError(CodeSlotNotFound, fmt.Sprintf("slot %s not found", poseName)),
		PoseName:       poseName,
	}
}

type SlotFullError struct {
	*InventoryError
	PoseName string
	Capacity int
}

func NewSlotFullError(poseName string, capacity int) *SlotFullError {
	return &SlotFullError{
		InventoryError: NewInventoryError(CodeSlotFull, fmt.Sprintf("slot %s is full (capacity %d)", poseName, capacity)),
		PoseName:       poseName,
		Capacity:       capacity,
	}
}

type TypeMismatchError struct {
	*InventoryError
	PoseName   string
	SlotType   string
	BottleType string
}

func NewTypeMismatchError(poseName, slotType, bottleType string) *TypeMismatchError {
	return &TypeMismatchError{
		InventoryError: NewInventoryError(CodeTypeMismatch,
			fmt.Sprintf("slot %s accepts %s, bottle is %s", poseName, slotType, bottleType)),
		PoseName:   poseName,
		SlotType:   slotType,
		BottleType: bottleType,
	}
}

type PlatformFullError struct {
	*InventoryError
	ObjectType string
}

func NewPlatformFullError(objectType string) *PlatformFullError {
	return &PlatformFullError{
		InventoryError: NewInventoryError(CodePlatformOverCapacity,
			fmt.Sprintf("back platform has no free slot for type %s", objectType)),
		ObjectType: objectType,
	}
}

// Robot errors

type RobotError struct {
	*DomainError
	RobotID string
}

func NewRobotError(code int, robotID, message string) *RobotError {
	return &RobotError{
		DomainError: &DomainError{Code: code, Message: message},
		RobotID:     robotID,
	}
}

type RobotDisconnectedError struct {
	*RobotError
}

func NewRobotDisconnectedError(robotID string) *RobotDisconnectedError {
	return &RobotDisconnectedError{
		RobotError: NewRobotError(CodeRobotDisconnected, robotID, fmt.Sprintf("robot %s is disconnected", robotID)),
	}
}

type PrimitiveTimeoutError struct {
	*RobotError
	Action  string
	Timeout time.Duration
}

func NewPrimitiveTimeoutError(robotID, action string, timeout time.Duration) *PrimitiveTimeoutError {
	return &PrimitiveTimeoutError{
		RobotError: NewRobotError(CodePrimitiveTimeout, robotID,
			fmt.Sprintf("%s on robot %s timed out after %s", action, robotID, timeout)),
		Action:  action,
		Timeout: timeout,
	}
}

type RemoteCallError struct {
	*RobotError
	Action string
	Detail string
}

func NewRemoteCallError(robotID, action, detail string) *RemoteCallError {
	if detail == "" {
		detail = "remote call failed"
	}
	return &RemoteCallError{
		RobotError: NewRobotError(CodeRemoteError, robotID,
			fmt.Sprintf("%s on robot %s: %s", action, robotID, detail)),
		Action: action,
		Detail: detail,
	}
}

// Task errors

type TaskError struct {
	*DomainError
	TaskID string
}

func NewTaskError(code int, taskID, message string) *TaskError {
	return &TaskError{
		DomainError: &DomainError{Code: code, Message: message},
		TaskID:      taskID,
	}
}

type TaskNotFoundError struct {
	*TaskError
}

func NewTaskNotFoundError(taskID string) *TaskNotFoundError {
	return &TaskNotFoundError{
		TaskError: NewTaskError(CodeTaskNotFound, taskID, fmt.Sprintf("task %s not found", taskID)),
	}
}

type TaskTerminalError struct {
	*TaskError
	Status string
}

func NewTaskTerminalError(taskID, status string) *TaskTerminalError {
	return &TaskTerminalError{
		TaskError: NewTaskError(CodeTaskTerminal, taskID, fmt.Sprintf("task %s already finished (%s)", taskID, status)),
		Status:    status,
	}
}

type NoWaitingTaskError struct {
	*DomainError
}

func NewNoWaitingTaskError() *NoWaitingTaskError {
	return &NoWaitingTaskError{
		DomainError: &DomainError{Code: CodeNoWaitingTask, Message: "no task is waiting for id input"},
	}
}

type EnterIDMismatchError struct {
	*DomainError
	Expected string
	Got      string
}

func NewEnterIDMismatchError(expected, got string) *EnterIDMismatchError {
	return &EnterIDMismatchError{
		DomainError: &DomainError{Code: CodeEnterIDTypeMismatch,
			Message: fmt.Sprintf("entered type %s does not match detected type %s", got, expected)},
		Expected: expected,
		Got:      got,
	}
}

// NewInternalError wraps an uncategorized failure with code 5000.
func NewInternalError(message string) *DomainError {
	return &DomainError{Code: CodeInternal, Message: message}
}
