package kernel

import (
	"bytes"
	"context"
	"reflect"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, opts ...ExecutorOption) *Executor {
	t.Helper()
	base := []ExecutorOption{WithBackgroundWorkers(2), WithIOWorkers(2), WithExecutorQueueSize(16)}
	e, err := NewExecutor(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop(context.Background()) })
	return e
}

func mustMessage(t *testing.T, payload any, headers Headers) *Message {
	t.Helper()
	msg, err := DefaultMessageFactory{}.Pack(payload, headers)
	require.NoError(t, err)
	return msg
}

// typeRouter routes by the payload's dynamic type.
type typeRouter map[reflect.Type]Handler

func (r typeRouter) Match(msg *Message) (Handler, bool, error) {
	h, ok := r[msg.PayloadType()]
	return h, ok, nil
}

func routeOf(payload any, h Handler) typeRouter {
	return typeRouter{reflect.TypeOf(payload): h}
}

func awaitFuture(t *testing.T, f *Future[any]) (any, error) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future did not settle in time")
	}
	return f.Await()
}

// goid parses the current goroutine id from the stack header.
func goid() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	buf = buf[:bytes.IndexByte(buf, ' ')]
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}

type greet struct {
	Name string `validate:"required"`
}

type ping struct{}
