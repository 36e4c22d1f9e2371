package kernel

import (
	"errors"
	"fmt"
)

// =======================================================
// Error taxonomy
// =======================================================

var (
	ErrFiltered           = errors.New("message filtered")
	ErrRoutingUndefined   = errors.New("routing undefined")
	ErrHandlerNotFound    = errors.New("handler not found")
	ErrArgumentResolution = errors.New("argument resolution failed")
	ErrExecution          = errors.New("handler execution failed")
	ErrTimeout            = errors.New("timed out waiting for result")
	ErrAmbiguousHandler   = errors.New("multiple handlers matched")
	ErrRejected           = errors.New("task rejected")
	ErrCancelled          = errors.New("task cancelled")
	ErrNilPayload         = errors.New("payload must not be nil")

	ErrQueueFull   = errors.New("pool queue is full")
	ErrPoolStopped = errors.New("pool is stopped")
)

// FilteringError reports the filter that rejected a message.
// Cause is nil when the filter simply returned false.
type FilteringError struct {
	Index     int
	Filter    string
	MessageID string
	Cause     error
}

func (e *FilteringError) Error() string {
	msg := fmt.Sprintf("filters[#%d]: ( %s ) | message: [ %s ]", e.Index, e.Filter, e.MessageID)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FilteringError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrFiltered}
	}
	return []error{ErrFiltered, e.Cause}
}

// RoutingUndefinedError means the message lacks the metadata a router needs.
type RoutingUndefinedError struct {
	Key       string
	MessageID string
}

func (e *RoutingUndefinedError) Error() string {
	return fmt.Sprintf("routing key [ %s ] is undefined for message [ %s ]", e.Key, e.MessageID)
}

func (e *RoutingUndefinedError) Unwrap() error { return ErrRoutingUndefined }

type HandlerNotFoundError struct {
	Payload   string
	MessageID string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handler for payload [ %s ] (message %s)", e.Payload, e.MessageID)
}

func (e *HandlerNotFoundError) Unwrap() error { return ErrHandlerNotFound }

type AmbiguousHandlerError struct {
	Payload string
	Matches int
}

func (e *AmbiguousHandlerError) Error() string {
	return fmt.Sprintf("%d handlers matched payload [ %s ]", e.Matches, e.Payload)
}

func (e *AmbiguousHandlerError) Unwrap() error { return ErrAmbiguousHandler }

// ArgumentResolutionError is raised when a handler parameter cannot be bound.
type ArgumentResolutionError struct {
	Index  int
	Type   string
	Source Source
	Name   string
	Reason string
}

func (e *ArgumentResolutionError) Error() string {
	target := e.Source.String()
	if e.Name != "" {
		target += "(" + e.Name + ")"
	}
	return fmt.Sprintf("parameter #%d %s bound from %s: %s", e.Index, e.Type, target, e.Reason)
}

func (e *ArgumentResolutionError) Unwrap() error { return ErrArgumentResolution }

// ExecutionError wraps whatever made a task fail.
type ExecutionError struct {
	TaskID string
	Cause  error
	Stack  []byte
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return ErrExecution.Error()
	}
	return fmt.Sprintf("%s: %v", ErrExecution.Error(), e.Cause)
}

func (e *ExecutionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrExecution}
	}
	return []error{ErrExecution, e.Cause}
}

// NewExecutionError wraps cause, without nesting an existing ExecutionError.
func NewExecutionError(taskID string, cause error) *ExecutionError {
	if ee, ok := cause.(*ExecutionError); ok {
		return ee
	}
	return &ExecutionError{TaskID: taskID, Cause: cause}
}

// RejectedError means a pool refused the task.
type RejectedError struct {
	Mode  Mode
	Cause error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s pool rejected task: %v", e.Mode, e.Cause)
}

func (e *RejectedError) Unwrap() []error { return []error{ErrRejected, e.Cause} }
