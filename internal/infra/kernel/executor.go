package kernel

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode decides where a task's chain runs.
type Mode int

const (
	// Posting runs on the calling goroutine before Submit returns.
	Posting Mode = iota
	// Background runs on the CPU-sized pool.
	Background
	// IO runs on the pool reserved for blocking handlers.
	IO
)

func (m Mode) String() string {
	switch m {
	case Posting:
		return "posting"
	case Background:
		return "background"
	case IO:
		return "io"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "posting":
		return Posting, nil
	case "background":
		return Background, nil
	case "io":
		return IO, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// =======================================================
// Executor
// =======================================================

type executorOptions struct {
	interceptors      []Interceptor
	overrides         map[string]int
	backgroundWorkers int
	ioWorkers         int
	queueSize         int
	logger            *zap.Logger
}

type ExecutorOption func(*executorOptions)

// WithInterceptors appends interceptors. An ArgumentResolveInterceptor is
// installed automatically unless one named "argument-resolve" is supplied.
func WithInterceptors(is ...Interceptor) ExecutorOption {
	return func(o *executorOptions) { o.interceptors = append(o.interceptors, is...) }
}

// WithOrderOverrides sets interceptor orders by name.
func WithOrderOverrides(m map[string]int) ExecutorOption {
	return func(o *executorOptions) { o.overrides = m }
}

func WithBackgroundWorkers(n int) ExecutorOption {
	return func(o *executorOptions) {
		if n > 0 {
			o.backgroundWorkers = n
		}
	}
}

func WithIOWorkers(n int) ExecutorOption {
	return func(o *executorOptions) {
		if n > 0 {
			o.ioWorkers = n
		}
	}
}

func WithExecutorQueueSize(n int) ExecutorOption {
	return func(o *executorOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

func WithExecutorLogger(l *zap.Logger) ExecutorOption {
	return func(o *executorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Executor schedules tasks per Mode and runs them through the interceptor chain.
type Executor struct {
	interceptors []Interceptor
	background   *Pool
	io           *Pool
	logger       *zap.Logger

	executed  atomic.Uint64
	skipped   atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
}

// NewExecutor builds and starts the background and IO pools.
func NewExecutor(opts ...ExecutorOption) (*Executor, error) {
	procs := runtime.GOMAXPROCS(0)
	o := &executorOptions{
		backgroundWorkers: procs * 2,
		ioWorkers:         procs + 1,
		queueSize:         1024,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	interceptors := o.interceptors
	if !hasInterceptor(interceptors, ArgumentResolveName) {
		interceptors = append([]Interceptor{NewArgumentResolveInterceptor()}, interceptors...)
	}

	e := &Executor{
		interceptors: SortInterceptors(interceptors, o.overrides),
		logger:       o.logger,
		background: NewPool(Background.String(),
			WithWorkerCount(o.backgroundWorkers), WithQueueSize(o.queueSize), WithPoolLogger(o.logger)),
		io: NewPool(IO.String(),
			WithWorkerCount(o.ioWorkers), WithQueueSize(o.queueSize), WithPoolLogger(o.logger)),
	}
	if err := e.background.Start(); err != nil {
		return nil, err
	}
	if err := e.io.Start(); err != nil {
		_ = e.background.Stop(context.Background())
		return nil, err
	}
	return e, nil
}

func hasInterceptor(is []Interceptor, name string) bool {
	for _, i := range is {
		if n, ok := i.(Named); ok && n.Name() == name {
			return true
		}
	}
	return false
}

// Interceptors returns the chain in execution order.
func (e *Executor) Interceptors() []Interceptor {
	return append([]Interceptor(nil), e.interceptors...)
}

// Submit schedules task and returns its future. Posting runs inline; Background
// and IO return at once. Errors only ever reach the caller through the future.
func (e *Executor) Submit(ctx context.Context, task *Task, mode Mode) *Future[any] {
	if ctx == nil {
		ctx = context.Background()
	}
	task.mode = mode

	switch mode {
	case Posting:
		e.run(ctx, task)
	case Background, IO:
		pool := e.background
		if mode == IO {
			pool = e.io
		}
		detached := context.WithoutCancel(ctx)
		if err := pool.Submit(func() { e.run(detached, task) }); err != nil {
			e.logger.Warn("task rejected",
				zap.String("task_id", task.ID()),
				zap.Stringer("mode", mode),
				zap.Error(err),
			)
			task.future.Fail(&RejectedError{Mode: mode, Cause: err})
		}
	default:
		task.future.Fail(fmt.Errorf("unknown mode %s", mode))
	}
	return task.future
}

func (e *Executor) run(ctx context.Context, task *Task) {
	if task.future.IsDone() {
		e.skipped.Add(1)
		e.logger.Debug("task skipped",
			zap.String("task_id", task.ID()),
			zap.Stringer("state", task.future.State()),
		)
		return
	}
	e.executed.Add(1)

	ctx = WithTask(ctx, task)
	defer task.clearContext()

	result, err := e.invoke(ctx, task)
	if err != nil {
		e.settle(task, nil, err)
		return
	}
	if inner, ok := result.(*Future[any]); ok && inner != nil {
		inner.OnComplete(func(v any, err error) { e.settle(task, v, err) })
		return
	}
	e.settle(task, result, nil)
}

func (e *Executor) invoke(ctx context.Context, task *Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.panicked.Add(1)
			stack := debug.Stack()
			e.logger.Error("task panicked",
				zap.String("task_id", task.ID()),
				zap.Any("panic", r),
				zap.ByteString("stack", stack),
			)
			err = &ExecutionError{TaskID: task.ID(), Cause: fmt.Errorf("panic: %v", r), Stack: stack}
		}
	}()
	return NewChain(e.interceptors, task).Next(ctx)
}

func (e *Executor) settle(task *Task, v any, err error) {
	if !task.future.Settle(v, err) {
		return
	}
	if err != nil {
		e.failed.Add(1)
		return
	}
	e.succeeded.Add(1)
}

// Stop drains both pools concurrently. One pool failing to stop does not cut
// the other's drain short.
func (e *Executor) Stop(ctx context.Context) error {
	var g errgroup.Group
	for _, p := range []*Pool{e.background, e.io} {
		g.Go(func() error { return p.Stop(ctx) })
	}
	return g.Wait()
}

// OnApplicationShutdown lets a host stop the executor with its other components.
func (e *Executor) OnApplicationShutdown(ctx context.Context) error {
	return e.Stop(ctx)
}

// ExecutorStats aggregates task outcomes and pool counters.
type ExecutorStats struct {
	Executed   uint64
	Skipped    uint64
	Succeeded  uint64
	Failed     uint64
	Panicked   uint64
	Background PoolStats
	IO         PoolStats
}

func (e *Executor) Stats() ExecutorStats {
	return ExecutorStats{
		Executed:   e.executed.Load(),
		Skipped:    e.skipped.Load(),
		Succeeded:  e.succeeded.Load(),
		Failed:     e.failed.Load(),
		Panicked:   e.panicked.Load(),
		Background: e.background.Stats(),
		IO:         e.io.Stats(),
	}
}
