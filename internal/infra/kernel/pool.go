package kernel

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrPoolRunning = errors.New("pool is already running")

// Job is a unit of pool work.
type Job func()

// Pool runs jobs on a fixed set of workers fed by a bounded queue.
type Pool struct {
	name        string
	queueSize   int
	workerCount int
	logger      *zap.Logger

	mu      sync.RWMutex // guards queue against close while submitting
	queue   chan Job
	running atomic.Bool
	wg      sync.WaitGroup

	submitted   atomic.Uint64
	completed   atomic.Uint64
	rejected    atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

func WithQueueSize(size int) PoolOption {
	return func(p *Pool) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

func WithWorkerCount(count int) PoolOption {
	return func(p *Pool) {
		if count > 0 {
			p.workerCount = count
		}
	}
}

func WithPoolLogger(l *zap.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPool(name string, opts ...PoolOption) *Pool {
	p := &Pool{
		name:        name,
		queueSize:   1024,
		workerCount: 4,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) Name() string { return p.name }

// Start launches the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrPoolRunning
	}
	p.queue = make(chan Job, p.queueSize)
	p.running.Store(true)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.logger.Debug("pool started", zap.String("pool", p.name), zap.Int("workers", p.workerCount), zap.Int("queue", p.queueSize))
	return nil
}

// Stop refuses new jobs, lets the workers drain the queue and waits for them
// or for ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.running.Store(false)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("pool stopped", zap.String("pool", p.name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running.Load() {
		p.rejected.Add(1)
		return ErrPoolStopped
	}
	select {
	case p.queue <- job:
		p.submitted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.queue {
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("pool job panicked",
				zap.String("pool", p.name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		p.completed.Add(1)
		p.totalTimeNs.Add(time.Since(start).Nanoseconds())
	}()
	job()
}

func (p *Pool) IsRunning() bool { return p.running.Load() }

// QueueDepth is the number of jobs waiting for a worker.
func (p *Pool) QueueDepth() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return 0
	}
	return len(p.queue)
}

// PoolStats is a point-in-time view of pool counters.
type PoolStats struct {
	Workers    int
	Submitted  uint64
	Completed  uint64
	Rejected   uint64
	Panicked   uint64
	QueueDepth int
	AvgTime    time.Duration
}

func (p *Pool) Stats() PoolStats {
	completed := p.completed.Load()
	var avg int64
	if completed > 0 {
		avg = p.totalTimeNs.Load() / int64(completed)
	}
	return PoolStats{
		Workers:    p.workerCount,
		Submitted:  p.submitted.Load(),
		Completed:  completed,
		Rejected:   p.rejected.Load(),
		Panicked:   p.panicked.Load(),
		QueueDepth: p.QueueDepth(),
		AvgTime:    time.Duration(avg),
	}
}
