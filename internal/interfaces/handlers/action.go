package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"cqrskit/internal/infra/cqrs"
	"cqrskit/internal/infra/kernel"
	"cqrskit/internal/interfaces/middlewares"
	"cqrskit/internal/pkg/response"
)

const (
	HeaderRequestID = "X-Request-Id"

	// message header keys set from the HTTP request
	MetaRequestID = "request_id"
	MetaSubject   = "subject"
)

// Catalog maps public action names to payload factories. A factory returns a
// pointer the request body is decoded into.
type Catalog struct {
	entries map[cqrs.ActionType]map[string]func() any
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[cqrs.ActionType]map[string]func() any)}
}

// Add registers name for the payload type produced by factory. The kind is
// taken from the payload itself.
func (c *Catalog) Add(name string, factory func() any) error {
	kind, err := cqrs.Classify(factory())
	if err != nil {
		return err
	}
	if kind == cqrs.DomainEventType {
		return fmt.Errorf("%s: domain events are raised by handlers, not over HTTP", name)
	}
	m, ok := c.entries[kind]
	if !ok {
		m = make(map[string]func() any)
		c.entries[kind] = m
	}
	if _, dup := m[name]; dup {
		return fmt.Errorf("%s %q registered twice", kind, name)
	}
	m[name] = factory
	return nil
}

func (c *Catalog) lookup(kind cqrs.ActionType, name string) (func() any, bool) {
	f, ok := c.entries[kind][name]
	return f, ok
}

// Names lists the registered names per kind.
func (c *Catalog) Names() map[string][]string {
	out := make(map[string][]string, len(c.entries))
	for kind, m := range c.entries {
		names := make([]string, 0, len(m))
		for n := range m {
			names = append(names, n)
		}
		sort.Strings(names)
		out[kind.String()] = names
	}
	return out
}

// =======================================================
// ActionHandler
// =======================================================

type ActionHandler struct {
	catalog  *Catalog
	commands *cqrs.CommandGateway
	queries  *cqrs.QueryGateway
	events   *cqrs.EventGateway
	executor *kernel.Executor
}

func NewActionHandler(catalog *Catalog, commands *cqrs.CommandGateway, queries *cqrs.QueryGateway, events *cqrs.EventGateway, executor *kernel.Executor) *ActionHandler {
	return &ActionHandler{
		catalog:  catalog,
		commands: commands,
		queries:  queries,
		events:   events,
		executor: executor,
	}
}

// Command handles POST /commands/:name. With ?timeout=<duration> the command
// runs on the background pool and the call waits at most that long.
func (h *ActionHandler) Command(c *gin.Context) {
	payload, ok := h.bind(c, cqrs.CommandType)
	if !ok {
		return
	}
	timeout, ok := timeoutParam(c)
	if !ok {
		return
	}

	cmd := payload.(cqrs.Command)
	var v any
	var err error
	if timeout > 0 {
		v, err = h.commands.SendAndWait(c.Request.Context(), cmd, timeout, requestHeaders(c))
	} else {
		v, err = h.commands.Send(c.Request.Context(), cmd, requestHeaders(c))
	}
	reply(c, v, err)
}

// Query handles POST /queries/:name; ?timeout works as for commands.
func (h *ActionHandler) Query(c *gin.Context) {
	payload, ok := h.bind(c, cqrs.QueryType)
	if !ok {
		return
	}
	timeout, ok := timeoutParam(c)
	if !ok {
		return
	}

	q := payload.(cqrs.Query)
	var v any
	var err error
	if timeout > 0 {
		v, err = h.queries.QueryAndWait(c.Request.Context(), q, timeout, requestHeaders(c))
	} else {
		v, err = h.queries.Query(c.Request.Context(), q, requestHeaders(c))
	}
	reply(c, v, err)
}

// Event handles POST /events/:name for application events.
func (h *ActionHandler) Event(c *gin.Context) {
	payload, ok := h.bind(c, cqrs.ApplicationEventType)
	if !ok {
		return
	}
	if err := h.events.Publish(c.Request.Context(), payload, requestHeaders(c)); err != nil {
		response.SetCtxError(c, err)
		return
	}
	response.SetCtxResponse(c, nil, http.StatusAccepted, "accepted")
}

// Catalog handles GET /actions.
func (h *ActionHandler) Catalog(c *gin.Context) {
	response.SetCtxResponse(c, h.catalog.Names(), http.StatusOK, "ok")
}

// Stats handles GET /stats.
func (h *ActionHandler) Stats(c *gin.Context) {
	response.SetCtxResponse(c, h.executor.Stats(), http.StatusOK, "ok")
}

func (h *ActionHandler) bind(c *gin.Context, kind cqrs.ActionType) (any, bool) {
	name := c.Param("name")
	factory, ok := h.catalog.lookup(kind, name)
	if !ok {
		response.SetCtxResponse(c, nil, http.StatusNotFound, fmt.Sprintf("unknown %s %q", kind, name))
		return nil, false
	}

	ptr := factory()
	if err := c.ShouldBindJSON(ptr); err != nil && !errors.Is(err, io.EOF) {
		response.SetCtxResponse(c, nil, http.StatusBadRequest, middlewares.ValidationMessage(err))
		return nil, false
	}
	return deref(ptr), true
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}

func timeoutParam(c *gin.Context) (time.Duration, bool) {
	raw := c.Query("timeout")
	if raw == "" {
		return 0, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		response.SetCtxResponse(c, nil, http.StatusBadRequest, fmt.Sprintf("invalid timeout %q", raw))
		return 0, false
	}
	return d, true
}

func requestHeaders(c *gin.Context) cqrs.ApplyOption {
	h := kernel.Headers{}
	if id := c.GetHeader(HeaderRequestID); id != "" {
		h[MetaRequestID] = id
	}
	if sub := c.GetString(middlewares.SubjectKey); sub != "" {
		h[MetaSubject] = sub
	}
	return cqrs.WithHeaders(h)
}

func reply(c *gin.Context, v any, err error) {
	if err != nil {
		response.SetCtxError(c, err)
		return
	}
	response.SetCtxResponse(c, v, http.StatusOK, "ok")
}
