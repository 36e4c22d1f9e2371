package kernel

import (
	"errors"
	"fmt"
	"sync"
)

// Router finds the handler for a message. ok=false means no match; an error
// means routing could not be attempted or was ambiguous.
type Router interface {
	Match(msg *Message) (h Handler, ok bool, err error)
}

// InboxRouter dispatches on the HeaderInbox header.
type InboxRouter struct {
	mu      sync.RWMutex
	inboxes map[string]Handler
}

func NewInboxRouter() *InboxRouter {
	return &InboxRouter{inboxes: map[string]Handler{}}
}

// Register binds an inbox name to a handler. Names are unique.
func (r *InboxRouter) Register(inbox string, h Handler) error {
	if inbox == "" {
		return fmt.Errorf("inbox name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.inboxes[inbox]; exists {
		return &AmbiguousHandlerError{Payload: "inbox " + inbox, Matches: 2}
	}
	r.inboxes[inbox] = h
	return nil
}

func (r *InboxRouter) Match(msg *Message) (Handler, bool, error) {
	inbox := msg.HeaderString(HeaderInbox)
	if inbox == "" {
		return nil, false, &RoutingUndefinedError{Key: HeaderInbox, MessageID: msg.ID()}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.inboxes[inbox]
	return h, ok, nil
}

// CompositeRouter asks every router in turn. Routers that cannot route the
// message (RoutingUndefined) are skipped unless none of them can.
type CompositeRouter struct {
	routers []Router
}

func NewCompositeRouter(routers ...Router) *CompositeRouter {
	return &CompositeRouter{routers: routers}
}

func (c *CompositeRouter) Match(msg *Message) (Handler, bool, error) {
	var (
		found     Handler
		matches   int
		undefined error
		attempted int
	)
	for _, r := range c.routers {
		h, ok, err := r.Match(msg)
		if err != nil {
			var undefinedErr *RoutingUndefinedError
			if errors.As(err, &undefinedErr) {
				undefined = err
				continue
			}
			return nil, false, err
		}
		attempted++
		if ok {
			found = h
			matches++
		}
	}
	switch {
	case matches > 1:
		return nil, false, &AmbiguousHandlerError{Payload: fmt.Sprintf("%T", msg.Payload()), Matches: matches}
	case matches == 1:
		return found, true, nil
	case attempted == 0 && undefined != nil:
		return nil, false, undefined
	}
	return nil, false, nil
}
