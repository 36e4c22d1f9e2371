package kernel

import (
	"context"
	"sort"
)

// Interceptor wraps a handler invocation. It either returns without calling
// chain.Next (short circuit) or proceeds with chain.Next(ctx).
type Interceptor interface {
	Intercept(ctx context.Context, task *Task, chain *Chain) (any, error)
}

type InterceptorFunc func(ctx context.Context, task *Task, chain *Chain) (any, error)

func (f InterceptorFunc) Intercept(ctx context.Context, task *Task, chain *Chain) (any, error) {
	return f(ctx, task, chain)
}

// Ordered interceptors run by ascending Order(); the default is 0.
type Ordered interface {
	Order() int
}

// Named interceptors can have their order overridden from configuration.
type Named interface {
	Name() string
}

// Chain runs one task through the interceptors and then the handler.
type Chain struct {
	interceptors []Interceptor
	task         *Task
	offset       int
}

func NewChain(interceptors []Interceptor, task *Task) *Chain {
	return &Chain{interceptors: interceptors, task: task}
}

// Offset is the index of the next interceptor to run.
func (c *Chain) Offset() int { return c.offset }

func (c *Chain) Next(ctx context.Context) (any, error) {
	if c.offset >= len(c.interceptors) {
		return c.task.Handler().Handle(ctx, c.task)
	}
	i := c.interceptors[c.offset]
	c.offset++
	return i.Intercept(ctx, c.task, c)
}

// SortInterceptors returns a copy ordered by Order(), with overrides keyed by
// Name() taking precedence. Equal orders keep registration order.
func SortInterceptors(list []Interceptor, overrides map[string]int) []Interceptor {
	out := append([]Interceptor(nil), list...)
	order := func(i Interceptor) int {
		if n, ok := i.(Named); ok {
			if o, ok := overrides[n.Name()]; ok {
				return o
			}
		}
		if o, ok := i.(Ordered); ok {
			return o.Order()
		}
		return 0
	}
	sort.SliceStable(out, func(a, b int) bool { return order(out[a]) < order(out[b]) })
	return out
}
