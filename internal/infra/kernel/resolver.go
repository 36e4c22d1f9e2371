package kernel

import (
	"context"
	"fmt"
	"reflect"
)

// ArgumentResolver supplies the value of one handler parameter.
// ok=false means the resolver does not claim the parameter.
type ArgumentResolver interface {
	Resolve(ctx context.Context, task *Task, p Parameter) (value any, ok bool, err error)
}

type ResolverFunc func(ctx context.Context, task *Task, p Parameter) (any, bool, error)

func (f ResolverFunc) Resolve(ctx context.Context, task *Task, p Parameter) (any, bool, error) {
	return f(ctx, task, p)
}

// StateResolver binds StateKey(name) parameters. A missing key yields the zero value.
type StateResolver struct{}

func (StateResolver) Resolve(_ context.Context, task *Task, p Parameter) (any, bool, error) {
	if p.Source != SourceState || p.Name == "" {
		return nil, false, nil
	}
	v, _ := task.State().Get(p.Name)
	return v, true, nil
}

// HeaderResolver binds Header(name) parameters from the message headers.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(_ context.Context, task *Task, p Parameter) (any, bool, error) {
	if p.Source != SourceHeader {
		return nil, false, nil
	}
	v, _ := task.Message().Header(p.Name)
	return v, true, nil
}

// TaskResolver binds the executing task or its parent.
type TaskResolver struct{}

func (TaskResolver) Resolve(_ context.Context, task *Task, p Parameter) (any, bool, error) {
	switch p.Source {
	case SourceTask:
		return task, true, nil
	case SourceParent:
		return task.Parent(), true, nil
	}
	return nil, false, nil
}

type ContextResolver struct{}

func (ContextResolver) Resolve(ctx context.Context, _ *Task, p Parameter) (any, bool, error) {
	if p.Source != SourceContext {
		return nil, false, nil
	}
	return ctx, true, nil
}

type MessageResolver struct{}

func (MessageResolver) Resolve(_ context.Context, task *Task, p Parameter) (any, bool, error) {
	if p.Source != SourceMessage {
		return nil, false, nil
	}
	return task.Message(), true, nil
}

// DefaultResolvers is the built-in resolver list, in lookup order.
func DefaultResolvers() []ArgumentResolver {
	return []ArgumentResolver{StateResolver{}, HeaderResolver{}, TaskResolver{}, ContextResolver{}, MessageResolver{}}
}

// =======================================================
// Argument-resolve interceptor
// =======================================================

const (
	ArgumentResolveName  = "argument-resolve"
	OrderArgumentResolve = -1000
)

// ArgumentResolveInterceptor binds FuncHandler parameters before the handler runs.
type ArgumentResolveInterceptor struct {
	resolvers []ArgumentResolver
}

// NewArgumentResolveInterceptor uses the given resolvers ahead of the defaults.
func NewArgumentResolveInterceptor(extra ...ArgumentResolver) *ArgumentResolveInterceptor {
	return &ArgumentResolveInterceptor{resolvers: append(append([]ArgumentResolver{}, extra...), DefaultResolvers()...)}
}

func (i *ArgumentResolveInterceptor) Name() string { return ArgumentResolveName }
func (i *ArgumentResolveInterceptor) Order() int   { return OrderArgumentResolve }

func (i *ArgumentResolveInterceptor) Intercept(ctx context.Context, task *Task, chain *Chain) (any, error) {
	fh, ok := task.Handler().(*FuncHandler)
	if !ok {
		return chain.Next(ctx)
	}

	params := fh.Parameters()
	args := make([]reflect.Value, len(params))
	for idx, p := range params {
		v, err := i.resolve(ctx, task, p)
		if err != nil {
			return nil, err
		}
		args[idx] = v
		if p.Source == SourcePayload {
			task.SetContextValue(ContextPayloadOffset, idx)
		}
	}
	task.SetContextValue(ContextArguments, args)
	return chain.Next(ctx)
}

func (i *ArgumentResolveInterceptor) resolve(ctx context.Context, task *Task, p Parameter) (reflect.Value, error) {
	switch {
	case p.Source == SourcePayload:
		return bindValue(p, task.Message().Payload())
	case p.IsRawState():
		return reflect.ValueOf(task.State()), nil
	}

	for _, r := range i.resolvers {
		v, ok, err := r.Resolve(ctx, task, p)
		if err != nil {
			return reflect.Value{}, &ArgumentResolutionError{Index: p.Index, Type: p.Type.String(), Source: p.Source, Name: p.Name,
				Reason: fmt.Sprintf("resolver %T: %v", r, err)}
		}
		if ok {
			return bindValue(p, v)
		}
	}
	return reflect.Value{}, &ArgumentResolutionError{Index: p.Index, Type: p.Type.String(), Source: p.Source, Name: p.Name,
		Reason: "no resolver claimed the parameter"}
}

// bindValue converts v to the parameter type. nil becomes the zero value.
func bindValue(p Parameter, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(p.Type), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(p.Type) {
		if rv.Type() == p.Type {
			return rv, nil
		}
		out := reflect.New(p.Type).Elem()
		out.Set(rv)
		return out, nil
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type() == p.Type {
		return rv.Elem(), nil
	}
	if p.Type.Kind() == reflect.Pointer && rv.Type() == p.Type.Elem() {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		return ptr, nil
	}
	if p.Source != SourcePayload && isNumeric(rv.Kind()) && isNumeric(p.Type.Kind()) {
		return rv.Convert(p.Type), nil
	}
	return reflect.Value{}, &ArgumentResolutionError{Index: p.Index, Type: p.Type.String(), Source: p.Source, Name: p.Name,
		Reason: fmt.Sprintf("value of type %s is not assignable", rv.Type())}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
