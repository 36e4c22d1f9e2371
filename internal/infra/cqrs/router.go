package cqrs

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"cqrskit/internal/infra/kernel"
)

// Registration is one payload type bound to its handler.
type Registration struct {
	Type       reflect.Type
	ActionType ActionType
	Handler    kernel.Handler
}

// Router maps payload types to handlers. Registration happens at startup; the
// table is read-only afterwards.
type Router struct {
	mu     sync.RWMutex
	routes map[reflect.Type]Registration
}

func NewRouter() *Router {
	return &Router{routes: map[reflect.Type]Registration{}}
}

// Register binds the type of payload (a zero value is enough) to h.
func (r *Router) Register(payload any, h kernel.Handler) error {
	if payload == nil || h == nil {
		return fmt.Errorf("register: payload and handler are required")
	}
	t := baseType(reflect.TypeOf(payload))
	kind, err := ClassifyType(t)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[t]; exists {
		return &kernel.AmbiguousHandlerError{Payload: t.String(), Matches: 2}
	}
	r.routes[t] = Registration{Type: t, ActionType: kind, Handler: h}
	return nil
}

// RegisterFunc registers a func handler whose parameters are bound as declared.
func (r *Router) RegisterFunc(payload any, fn any, bindings ...kernel.Binding) error {
	h, err := kernel.NewFuncHandler(fn, bindings...)
	if err != nil {
		return err
	}
	if off := h.PayloadOffset(); off >= 0 {
		pt := h.Parameters()[off].Type
		t := reflect.TypeOf(payload)
		if t == nil || !(t.AssignableTo(pt) || reflect.PointerTo(baseType(t)).AssignableTo(pt) || baseType(t).AssignableTo(pt)) {
			return fmt.Errorf("register %v: payload parameter #%d is %v", t, off, pt)
		}
	}
	return r.Register(payload, h)
}

// Handle registers a typed handler that receives the payload directly.
func Handle[T any](r *Router, fn func(ctx context.Context, payload T) (any, error)) error {
	var zero T
	return r.Register(zero, kernel.HandlerFunc(func(ctx context.Context, task *kernel.Task) (any, error) {
		switch p := task.Message().Payload().(type) {
		case T:
			return fn(ctx, p)
		case *T:
			return fn(ctx, *p)
		}
		return nil, &kernel.ArgumentResolutionError{Index: 0, Type: fmt.Sprintf("%T", zero), Source: kernel.SourcePayload,
			Reason: fmt.Sprintf("payload is %T", task.Message().Payload())}
	}))
}

// Match implements kernel.Router. An unclassifiable payload is reported as an
// error instead of a plain miss.
func (r *Router) Match(msg *kernel.Message) (kernel.Handler, bool, error) {
	t := baseType(msg.PayloadType())
	r.mu.RLock()
	reg, ok := r.routes[t]
	r.mu.RUnlock()
	if ok {
		return reg.Handler, true, nil
	}
	if _, err := ClassifyType(t); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// Lookup returns the registration for a payload type.
func (r *Router) Lookup(t reflect.Type) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.routes[baseType(t)]
	return reg, ok
}

// Registrations lists the table sorted by type name.
func (r *Router) Registrations() []Registration {
	r.mu.RLock()
	out := make([]Registration, 0, len(r.routes))
	for _, reg := range r.routes {
		out = append(out, reg)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Type.String() < out[j].Type.String() })
	return out
}

func baseType(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
