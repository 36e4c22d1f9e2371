package kernel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RejectsWhenQueueFull(t *testing.T) {
	p := NewPool("test", WithWorkerCount(1), WithQueueSize(1))
	require.NoError(t, p.Start())
	defer func() { _ = p.Stop(context.Background()) }()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(started); <-block }))
	<-started
	require.NoError(t, p.Submit(func() {}))

	assert.ErrorIs(t, p.Submit(func() {}), ErrQueueFull)
	assert.Equal(t, uint64(1), p.Stats().Rejected)
	close(block)
}

func TestPool_StopDrainsQueue(t *testing.T) {
	p := NewPool("test", WithWorkerCount(2), WithQueueSize(32))
	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.Start(), ErrPoolRunning)

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.Equal(t, int32(20), ran.Load())
	assert.False(t, p.IsRunning())
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolStopped)
	assert.ErrorIs(t, p.Stop(ctx), ErrPoolStopped)
}

func TestPool_RecoversPanickingJob(t *testing.T) {
	p := NewPool("test", WithWorkerCount(1))
	require.NoError(t, p.Start())

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { panic("job failed") }))
	require.NoError(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}
	require.NoError(t, p.Stop(context.Background()))
	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Panicked)
	assert.Equal(t, uint64(2), stats.Completed)
}
