package gnest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type component struct {
	name        string
	rec         *recorder
	bootErr     error
	shutdownErr error
}

func (c *component) OnApplicationBootstrap(ctx context.Context) error {
	c.rec.add("boot:" + c.name)
	return c.bootErr
}

func (c *component) BeforeApplicationShutdown(reason string) {
	c.rec.add("before:" + c.name)
}

func (c *component) OnApplicationShutdown(ctx context.Context) error {
	c.rec.add("shutdown:" + c.name)
	return c.shutdownErr
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestServe_LifecycleOrder(t *testing.T) {
	rec := &recorder{}
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	app := New().Provide(
		&component{name: "a", rec: rec, shutdownErr: errA},
		&component{name: "b", rec: rec, shutdownErr: errB},
	)
	app.Engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []string{
		"boot:a", "boot:b",
		"before:a", "before:b",
		"shutdown:b", "shutdown:a",
	}, rec.list())
}

func TestServe_BootstrapFailureStopsComponents(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("no config")
	app := New().Provide(
		&component{name: "a", rec: rec},
		&component{name: "b", rec: rec, bootErr: boom},
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	err = app.Serve(context.Background(), ln)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"boot:a", "boot:b", "shutdown:b", "shutdown:a"}, rec.list())
}

func TestConcat(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, concat([]int{1}, nil, []int{2, 3}))
}
