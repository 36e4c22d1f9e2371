package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Task context keys written by the argument-resolve interceptor.
const (
	ContextArguments     = "kernel.arguments"
	ContextPayloadOffset = "kernel.payload-offset"
)

// Task is one in-flight unit of work.
type Task struct {
	id      string
	message *Message
	handler Handler
	state   *State
	future  *Future[any]
	parent  *Task
	mode    Mode

	mu      sync.Mutex
	context map[string]any
}

// NewTask builds a task for msg. Its state comes from NewTaskState(parent, explicit).
func NewTask(msg *Message, handler Handler, parent *Task, explicit map[string]any) *Task {
	return &Task{
		id:      uuid.NewString(),
		message: msg,
		handler: handler,
		state:   NewTaskState(parent, explicit),
		future:  NewFuture[any](),
		parent:  parent,
		context: map[string]any{},
	}
}

func (t *Task) ID() string           { return t.id }
func (t *Task) Message() *Message    { return t.message }
func (t *Task) Handler() Handler     { return t.handler }
func (t *Task) State() *State        { return t.state }
func (t *Task) Future() *Future[any] { return t.future }
func (t *Task) Parent() *Task        { return t.parent }
func (t *Task) Mode() Mode           { return t.mode }
func (t *Task) String() string       { return fmt.Sprintf("Task{id=%s, %s}", t.id, t.message) }

// Root walks up to the top-level task.
func (t *Task) Root() *Task {
	cur := t
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Depth is 0 for a top-level task.
func (t *Task) Depth() int {
	d := 0
	for cur := t.parent; cur != nil; cur = cur.parent {
		d++
	}
	return d
}

// ContextValue reads the task-private scratch space.
func (t *Task) ContextValue(key string) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.context[key]
	return v, ok
}

func (t *Task) SetContextValue(key string, value any) {
	t.mu.Lock()
	t.context[key] = value
	t.mu.Unlock()
}

func (t *Task) clearContext() {
	t.mu.Lock()
	t.context = map[string]any{}
	t.mu.Unlock()
}

// =======================================================
// Current task propagation
// =======================================================

type taskKey struct{}

// WithTask binds the executing task to ctx. Dispatches issued with the derived
// context become its children.
func WithTask(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskKey{}, task)
}

// TaskFromContext returns the executing task, or nil at top level.
func TaskFromContext(ctx context.Context) *Task {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(taskKey{}).(*Task)
	return t
}
