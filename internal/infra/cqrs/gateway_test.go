package cqrs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cqrskit/internal/infra/kernel"
)

func TestGateway_ApplyNowReturnsHandlerValue(t *testing.T) {
	b := newBus(t)
	require.NoError(t, b.router.RegisterFunc(sayHello{}, func(cmd sayHello) string {
		return "Hi " + cmd.Name
	}, kernel.Payload()))

	v, err := b.commands.Send(context.Background(), sayHello{Name: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Hello", v)

	s, err := As[string](b.gateway.ApplyNow(context.Background(), &sayHello{Name: "Ptr"}))
	require.NoError(t, err)
	assert.Equal(t, "Hi Ptr", s)
}

func TestGateway_ApplyNowWithoutHandler(t *testing.T) {
	b := newBus(t)

	_, err := b.commands.Send(context.Background(), unrouted{})
	var ee *kernel.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, kernel.ErrHandlerNotFound)
	var nf *kernel.HandlerNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGateway_ApplyAndWaitTimesOut(t *testing.T) {
	b := newBus(t)
	finished := make(chan struct{})
	require.NoError(t, Handle(b.router, func(ctx context.Context, q slowQuery) (any, error) {
		defer close(finished)
		time.Sleep(q.Delay)
		return "slow", nil
	}))

	start := time.Now()
	_, err := b.queries.QueryAndWait(context.Background(), slowQuery{Delay: 200 * time.Millisecond}, 50*time.Millisecond)
	assert.ErrorIs(t, err, kernel.ErrTimeout)
	var ee *kernel.ExecutionError
	assert.False(t, errors.As(err, &ee), "timeout must not look like an execution failure")
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("handler should keep running after the caller gave up")
	}
}

func TestGateway_ApplyAndWaitReturnsInTime(t *testing.T) {
	b := newBus(t)
	require.NoError(t, Handle(b.router, func(ctx context.Context, q slowQuery) (any, error) {
		time.Sleep(q.Delay)
		return 42, nil
	}))

	n, err := As[int](b.queries.QueryAndWait(context.Background(), slowQuery{Delay: time.Millisecond}, time.Second))
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = As[int](b.gateway.ApplyAndWait(context.Background(), slowQuery{}, 0, WithMode(kernel.IO)))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestGateway_EitherVariants(t *testing.T) {
	b := newBus(t)
	denied := NewDomainError(http.StatusConflict, "name taken")
	require.NoError(t, Handle(b.router, func(ctx context.Context, cmd sayHello) (any, error) {
		switch cmd.Name {
		case "taken":
			return Left(denied), nil
		case "raw":
			return nil, NotFound("name", "no such user")
		case "boom":
			return nil, errors.New("infrastructure down")
		}
		return Right("welcome " + cmd.Name), nil
	}))
	ctx := context.Background()

	e, err := b.commands.SendEither(ctx, sayHello{Name: "taken"})
	require.NoError(t, err)
	require.True(t, e.IsLeft())
	assert.Same(t, denied, e.Err())

	e, err = b.commands.SendAndWaitEither(ctx, sayHello{Name: "raw"}, time.Second)
	require.NoError(t, err)
	require.True(t, e.IsLeft())
	assert.Equal(t, "name: no such user", e.Err().Error())

	e, err = b.commands.SendEither(ctx, sayHello{Name: "ann"})
	require.NoError(t, err)
	assert.Equal(t, "welcome ann", e.Value())

	_, err = b.commands.SendEither(ctx, sayHello{Name: "boom"})
	assert.ErrorIs(t, err, kernel.ErrExecution)

	_, err = b.commands.Send(ctx, sayHello{Name: "taken"})
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusConflict, de.Code)
	assert.ErrorIs(t, err, kernel.ErrExecution)

	v, err := b.commands.SendAndWait(ctx, sayHello{Name: "bob"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "welcome bob", v)
}

func TestGateway_ApplyAsyncReturnsFuture(t *testing.T) {
	b := newBus(t)
	release := make(chan struct{})
	require.NoError(t, Handle(b.router, func(ctx context.Context, cmd sayHello) (any, error) {
		<-release
		return cmd.Name, nil
	}))

	f := b.commands.SendAsync(context.Background(), sayHello{Name: "later"})
	assert.False(t, f.IsDone())
	close(release)

	v, err := awaitFuture(t, f)
	require.NoError(t, err)
	assert.Equal(t, "later", v)

	_, err = awaitFuture(t, b.queries.QueryAsync(context.Background(), greetingCount{}))
	assert.ErrorIs(t, err, kernel.ErrHandlerNotFound)
}

func TestGateway_RejectsWrongKind(t *testing.T) {
	b := newBus(t)
	_, err := b.commands.Send(context.Background(), confused{})
	assert.Error(t, err)
	_, err = b.queries.Query(context.Background(), confused{})
	assert.Error(t, err)
}

func TestGateway_HeadersAndStateOptions(t *testing.T) {
	b := newBus(t)
	gw := NewGateway(nil)
	assert.Equal(t, DefaultTimeout, gw.Timeout())

	require.NoError(t, b.router.RegisterFunc(sayHello{}, func(tenant string, note string, st *kernel.State) string {
		st.Set("seen", true)
		return tenant + "/" + note
	}, kernel.Header("tenant"), kernel.StateKey("note"), kernel.RawState()))

	v, err := b.commands.Send(context.Background(), sayHello{},
		WithHeaders(kernel.Headers{"tenant": "acme"}),
		WithState(map[string]any{"note": "hi"}))
	require.NoError(t, err)
	assert.Equal(t, "acme/hi", v)
}

// A command handler dispatches a nested query through the gateway. The query
// reads the note the command left in state and sees the command as its parent.
func TestGateway_NestedQueryReadsCommandState(t *testing.T) {
	b := newBus(t)
	var commandTask *kernel.Task

	require.NoError(t, b.router.RegisterFunc(greetingCount{}, func(note string, parent *kernel.Task) (string, error) {
		if parent != commandTask {
			return "", errors.New("wrong parent")
		}
		return "note=" + note, nil
	}, kernel.StateKey("note"), kernel.ParentTask()))

	require.NoError(t, b.router.RegisterFunc(sayHello{}, func(ctx context.Context, task *kernel.Task, cmd sayHello) (any, error) {
		commandTask = task
		task.State().Set("note", cmd.Name)
		return b.queries.Query(ctx, greetingCount{})
	}, kernel.Ctx(), kernel.CurrentTask(), kernel.Payload()))

	v, err := b.commands.Send(context.Background(), sayHello{Name: "from-command"})
	require.NoError(t, err)
	assert.Equal(t, "note=from-command", v)
}

func TestGateway_FilterFailureIsWrapped(t *testing.T) {
	exec, err := kernel.NewExecutor(kernel.WithBackgroundWorkers(1), kernel.WithIOWorkers(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Stop(context.Background()) })

	router := NewRouter()
	var calls atomic.Int32
	require.NoError(t, Handle(router, func(ctx context.Context, cmd sayHello) (any, error) {
		calls.Add(1)
		return nil, nil
	}))
	deny := kernel.FilterFunc(func(ctx context.Context, msg *kernel.Message) (bool, error) { return false, nil })
	gw := NewGateway(kernel.NewUnitOfWork(router, exec, kernel.WithFilters(deny)))

	_, err = gw.ApplyNow(context.Background(), sayHello{})
	assert.ErrorIs(t, err, kernel.ErrFiltered)
	assert.ErrorIs(t, err, kernel.ErrExecution)
	assert.Zero(t, calls.Load())
}

func TestGateway_ApplyNowHonoursContext(t *testing.T) {
	b := newBus(t)
	require.NoError(t, b.router.RegisterFunc(sayHello{}, func(cmd sayHello) *kernel.Future[any] {
		return kernel.NewFuture[any]()
	}, kernel.Payload()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := b.commands.Send(ctx, sayHello{})
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Send kept waiting after its context expired")
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	_, err := b.commands.SendEither(ctx2, sayHello{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGateway_WrappedDomainErrorIsLeft(t *testing.T) {
	b := newBus(t)
	require.NoError(t, Handle(b.router, func(ctx context.Context, cmd sayHello) (any, error) {
		return nil, fmt.Errorf("load %s: %w", cmd.Name, NotFound("name", "no such user"))
	}))

	e, err := b.commands.SendEither(context.Background(), sayHello{Name: "ann"})
	require.NoError(t, err)
	require.True(t, e.IsLeft())
	assert.Equal(t, http.StatusNotFound, e.Err().Code)
}
