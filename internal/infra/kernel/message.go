package kernel

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

const (
	// HeaderInbox names the inbox an InboxRouter dispatches on.
	HeaderInbox = "cqrskit.inbox"
	// HeaderActionType carries the action classification stamped by the cqrs factory.
	HeaderActionType = "cqrskit.action-type"
)

// Headers is message metadata.
type Headers map[string]any

func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Merge returns a new map; later maps win.
func (h Headers) Merge(others ...Headers) Headers {
	out := h.Clone()
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Message is the immutable envelope handed through every dispatch stage.
type Message struct {
	id      string
	headers Headers
	payload any
}

// NewMessage builds a message with the given id. Headers are copied.
func NewMessage(id string, payload any, headers Headers) (*Message, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}
	return &Message{id: id, headers: headers.Clone(), payload: payload}, nil
}

func (m *Message) ID() string   { return m.id }
func (m *Message) Payload() any { return m.payload }

func (m *Message) Header(key string) (any, bool) {
	v, ok := m.headers[key]
	return v, ok
}

// HeaderString returns the header as a string, or "" when absent.
func (m *Message) HeaderString(key string) string {
	v, ok := m.headers[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Headers returns a copy of the message headers.
func (m *Message) Headers() Headers { return m.headers.Clone() }

// PayloadType is the dynamic type of the payload.
func (m *Message) PayloadType() reflect.Type { return reflect.TypeOf(m.payload) }

func (m *Message) String() string {
	return fmt.Sprintf("Message{id=%s, payload=%T}", m.id, m.payload)
}

// MessageFactory packs a payload into a Message.
type MessageFactory interface {
	Pack(payload any, headers Headers) (*Message, error)
}

// DefaultMessageFactory assigns uuid identities.
type DefaultMessageFactory struct{}

func (DefaultMessageFactory) Pack(payload any, headers Headers) (*Message, error) {
	return NewMessage(uuid.NewString(), payload, headers)
}
