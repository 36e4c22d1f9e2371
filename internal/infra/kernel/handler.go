package kernel

import (
	"context"
	"fmt"
	"reflect"
)

// Handler consumes a task. The result may be a plain value or a *Future[any]
// that is chained into the task's future.
type Handler interface {
	Handle(ctx context.Context, task *Task) (any, error)
}

type HandlerFunc func(ctx context.Context, task *Task) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, task *Task) (any, error) { return f(ctx, task) }

// =======================================================
// Parameter binding
// =======================================================

// Source says where a handler parameter gets its value from.
type Source int

const (
	SourcePayload Source = iota
	SourceState
	SourceHeader
	SourceTask
	SourceParent
	SourceContext
	SourceMessage
	SourceCustom
)

func (s Source) String() string {
	switch s {
	case SourcePayload:
		return "payload"
	case SourceState:
		return "state"
	case SourceHeader:
		return "header"
	case SourceTask:
		return "task"
	case SourceParent:
		return "parent"
	case SourceContext:
		return "context"
	case SourceMessage:
		return "message"
	case SourceCustom:
		return "custom"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Binding is one entry of a handler's parameter list.
type Binding struct {
	Source Source
	Name   string
}

func Payload() Binding             { return Binding{Source: SourcePayload} }
func RawState() Binding            { return Binding{Source: SourceState} }
func StateKey(name string) Binding { return Binding{Source: SourceState, Name: name} }
func Header(name string) Binding   { return Binding{Source: SourceHeader, Name: name} }
func CurrentTask() Binding         { return Binding{Source: SourceTask} }
func ParentTask() Binding          { return Binding{Source: SourceParent} }
func Ctx() Binding                 { return Binding{Source: SourceContext} }
func Msg() Binding                 { return Binding{Source: SourceMessage} }
func Custom(name string) Binding   { return Binding{Source: SourceCustom, Name: name} }

// IsRawState reports the reserved binding that receives the whole *State.
func (b Binding) IsRawState() bool { return b.Source == SourceState && b.Name == "" }

// Parameter describes one handler parameter to the resolvers.
type Parameter struct {
	Index int
	Type  reflect.Type
	Binding
}

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	stateType   = reflect.TypeOf((*State)(nil))
	taskType    = reflect.TypeOf((*Task)(nil))
	messageType = reflect.TypeOf((*Message)(nil))
)

// FuncHandler invokes a Go func whose arguments are bound by the
// argument-resolve interceptor according to its binding list.
type FuncHandler struct {
	name          string
	fn            reflect.Value
	params        []Parameter
	payloadOffset int
	returnsError  bool
	returnsValue  bool
}

// NewFuncHandler checks fn against bindings once, at registration time.
func NewFuncHandler(fn any, bindings ...Binding) (*FuncHandler, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("handler must be a func, got %T", fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("handler %s: variadic funcs are not supported", t)
	}
	if t.NumIn() != len(bindings) {
		return nil, fmt.Errorf("handler %s: %d parameters but %d bindings", t, t.NumIn(), len(bindings))
	}

	h := &FuncHandler{name: t.String(), fn: v, payloadOffset: -1}
	for i, b := range bindings {
		p := Parameter{Index: i, Type: t.In(i), Binding: b}
		if err := checkBinding(p); err != nil {
			return nil, fmt.Errorf("handler %s: %w", t, err)
		}
		if b.Source == SourcePayload {
			if h.payloadOffset >= 0 {
				return nil, fmt.Errorf("handler %s: payload bound twice (#%d and #%d)", t, h.payloadOffset, i)
			}
			h.payloadOffset = i
		}
		h.params = append(h.params, p)
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			h.returnsError = true
		} else {
			h.returnsValue = true
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("handler %s: second result must be error", t)
		}
		h.returnsValue, h.returnsError = true, true
	default:
		return nil, fmt.Errorf("handler %s: too many results", t)
	}
	return h, nil
}

// MustFuncHandler panics on a bad signature; meant for static wiring.
func MustFuncHandler(fn any, bindings ...Binding) *FuncHandler {
	h, err := NewFuncHandler(fn, bindings...)
	if err != nil {
		panic(err)
	}
	return h
}

func checkBinding(p Parameter) error {
	want := func(t reflect.Type) error {
		if p.Type != t {
			return &ArgumentResolutionError{Index: p.Index, Type: p.Type.String(), Source: p.Source, Name: p.Name,
				Reason: "parameter must be " + t.String()}
		}
		return nil
	}
	switch p.Source {
	case SourceState:
		if p.IsRawState() {
			return want(stateType)
		}
	case SourceTask, SourceParent:
		return want(taskType)
	case SourceContext:
		return want(contextType)
	case SourceMessage:
		return want(messageType)
	case SourceHeader, SourceCustom:
		if p.Name == "" {
			return &ArgumentResolutionError{Index: p.Index, Type: p.Type.String(), Source: p.Source, Reason: "binding needs a name"}
		}
	}
	return nil
}

func (h *FuncHandler) Name() string            { return h.name }
func (h *FuncHandler) Parameters() []Parameter { return h.params }

// PayloadOffset is the slot bound to the payload, or -1.
func (h *FuncHandler) PayloadOffset() int { return h.payloadOffset }

// Handle calls the func with the arguments stored under ContextArguments.
func (h *FuncHandler) Handle(ctx context.Context, task *Task) (any, error) {
	raw, ok := task.ContextValue(ContextArguments)
	if !ok {
		return nil, &ArgumentResolutionError{Index: -1, Type: h.name, Source: SourceCustom, Reason: "arguments were not resolved"}
	}
	args, _ := raw.([]reflect.Value)
	if len(args) != len(h.params) {
		return nil, &ArgumentResolutionError{Index: len(args), Type: h.name, Source: SourceCustom,
			Reason: fmt.Sprintf("expected %d arguments", len(h.params))}
	}

	out := h.fn.Call(args)
	var (
		value any
		err   error
	)
	if h.returnsValue {
		value = out[0].Interface()
	}
	if h.returnsError {
		if e := out[len(out)-1].Interface(); e != nil {
			err = e.(error)
		}
	}
	return value, err
}
