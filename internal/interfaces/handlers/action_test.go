package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cqrskit/internal/domain/greeting"
	"cqrskit/internal/infra/cqrs"
	"cqrskit/internal/infra/kernel"
	"cqrskit/internal/interfaces/middlewares"
	"cqrskit/internal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	engine *gin.Engine
	svc    *greeting.GreetingService
}

func newServer(t *testing.T) *server {
	t.Helper()
	exec, err := kernel.NewExecutor(kernel.WithBackgroundWorkers(2), kernel.WithIOWorkers(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Stop(context.Background()) })

	router := cqrs.NewRouter()
	gw := cqrs.NewGateway(kernel.NewUnitOfWork(router, exec, kernel.WithFilters(kernel.NewValidationFilter())))
	commands, queries, events := cqrs.NewCommandGateway(gw), cqrs.NewQueryGateway(gw), cqrs.NewEventGateway(gw, nil)
	svc := greeting.NewGreetingService(greeting.NewRepository(), commands, queries, events, nil)
	require.NoError(t, svc.Register(router))

	catalog := NewCatalog()
	require.NoError(t, catalog.Add("say-hello", func() any { return &greeting.SayHello{} }))
	require.NoError(t, catalog.Add("farewell", func() any { return &greeting.Farewell{} }))
	require.NoError(t, catalog.Add("count-greetings", func() any { return &greeting.CountGreetings{} }))
	require.NoError(t, catalog.Add("slow", func() any { return &greeting.SlowQuery{} }))
	require.NoError(t, catalog.Add("greeted", func() any { return &greeting.Greeted{} }))

	actions := NewActionHandler(catalog, commands, queries, events, exec)
	greetings := NewGreetingHandler(svc)

	r := gin.New()
	r.Use(middlewares.Response())
	r.POST("/commands/:name", actions.Command)
	r.POST("/queries/:name", actions.Query)
	r.POST("/events/:name", actions.Event)
	r.GET("/actions", actions.Catalog)
	r.GET("/stats", actions.Stats)
	r.POST("/greetings", middlewares.Validate(func() any { return &greeting.SayHelloRequest{} }), greetings.Greet)
	r.GET("/greetings/audit", greetings.Audit)
	r.GET("/greetings/:name", greetings.Count)
	return &server{engine: r, svc: svc}
}

func (s *server) do(t *testing.T, method, path, body string) (int, response.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestActionHandler_Command(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodPost, "/commands/say-hello", `{"name":"Hello"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hi Hello", env.Data)

	code, env = s.do(t, http.MethodPost, "/commands/say-hello?timeout=1s", `{"name":"Again"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hi Again", env.Data)

	code, env = s.do(t, http.MethodPost, "/commands/farewell", `{"name":"nobody"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, env.Message, "nobody was never greeted")

	code, _ = s.do(t, http.MethodPost, "/commands/launch", `{}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodPost, "/commands/say-hello", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "Name")

	code, _ = s.do(t, http.MethodPost, "/commands/say-hello?timeout=soon", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestActionHandler_Query(t *testing.T) {
	s := newServer(t)
	_, err := s.svc.Greet(context.Background(), "ann")
	require.NoError(t, err)

	code, env := s.do(t, http.MethodPost, "/queries/count-greetings", `{"name":"ann"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"name": "ann", "count": float64(1), "note": "hello ann"}, env.Data)

	code, _ = s.do(t, http.MethodPost, "/queries/slow?timeout=20ms", `{"delay_ms":300}`)
	assert.Equal(t, http.StatusGatewayTimeout, code)

	code, env = s.do(t, http.MethodPost, "/queries/slow", `{"delay_ms":1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "waited 1ms", env.Data)

	// a command name is not a query
	code, _ = s.do(t, http.MethodPost, "/queries/say-hello", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestActionHandler_Event(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodPost, "/events/greeted", `{"name":"ann","message":"posted"}`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Eventually(t, func() bool {
		audit, _ := s.svc.Audit(context.Background())
		return len(audit) == 1
	}, 2*time.Second, 10*time.Millisecond)
	audit, err := s.svc.Audit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "posted", audit[0].Message)
}

func TestActionHandler_CatalogAndStats(t *testing.T) {
	s := newServer(t)

	_, env := s.do(t, http.MethodGet, "/actions", "")
	names := env.Data.(map[string]any)
	assert.Equal(t, []any{"farewell", "say-hello"}, names["Command"])
	assert.Equal(t, []any{"greeted"}, names["ApplicationEvent"])

	s.do(t, http.MethodPost, "/commands/say-hello", `{"name":"x"}`)
	_, env = s.do(t, http.MethodGet, "/stats", "")
	stats := env.Data.(map[string]any)
	assert.NotZero(t, stats["Executed"])
}

func TestCatalog_Add(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add("a", func() any { return &greeting.SayHello{} }))
	assert.Error(t, c.Add("a", func() any { return &greeting.Farewell{} }))
	assert.Error(t, c.Add("recorded", func() any { return &greeting.GreetingRecorded{} }))
	assert.Error(t, c.Add("junk", func() any { return &struct{}{} }))
}

func TestGreetingHandler(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodPost, "/greetings", `{"name":"bob"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Hi bob", env.Data)

	code, _ = s.do(t, http.MethodPost, "/greetings", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/greetings/bob", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), env.Data.(map[string]any)["count"])

	assert.Eventually(t, func() bool {
		_, env := s.do(t, http.MethodGet, "/greetings/audit", "")
		list, _ := env.Data.([]any)
		return len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
