package cqrs

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ActionType classifies a payload. Each payload type has exactly one.
type ActionType int

const (
	CommandType ActionType = iota + 1
	QueryType
	DomainEventType
	ApplicationEventType
)

func (t ActionType) String() string {
	switch t {
	case CommandType:
		return "Command"
	case QueryType:
		return "Query"
	case DomainEventType:
		return "DomainEvent"
	case ApplicationEventType:
		return "ApplicationEvent"
	}
	return fmt.Sprintf("ActionType(%d)", int(t))
}

// IsEvent reports whether t is a domain or application event.
func (t ActionType) IsEvent() bool {
	return t == DomainEventType || t == ApplicationEventType
}

func ParseActionType(s string) (ActionType, error) {
	for _, t := range []ActionType{CommandType, QueryType, DomainEventType, ApplicationEventType} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown action type %q", s)
}

// =======================================================
// Capabilities: embed one of the *Base structs to declare a payload's kind.
// =======================================================

type Command interface{ isCommand() }
type Query interface{ isQuery() }
type DomainEvent interface{ isDomainEvent() }
type ApplicationEvent interface{ isApplicationEvent() }

type CommandBase struct{}
type QueryBase struct{}
type DomainEventBase struct{}
type ApplicationEventBase struct{}

func (CommandBase) isCommand()                   {}
func (QueryBase) isQuery()                       {}
func (DomainEventBase) isDomainEvent()           {}
func (ApplicationEventBase) isApplicationEvent() {}

var (
	commandIface          = reflect.TypeOf((*Command)(nil)).Elem()
	queryIface            = reflect.TypeOf((*Query)(nil)).Elem()
	domainEventIface      = reflect.TypeOf((*DomainEvent)(nil)).Elem()
	applicationEventIface = reflect.TypeOf((*ApplicationEvent)(nil)).Elem()
)

// UnclassifiableError is a configuration error: the payload type declares no
// capability, or more than one.
type UnclassifiableError struct {
	Type    reflect.Type
	Matches []ActionType
}

func (e *UnclassifiableError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("unknown action type: %v is not a Command, Query, DomainEvent or ApplicationEvent", e.Type)
	}
	return fmt.Sprintf("ambiguous action type: %v is %v", e.Type, e.Matches)
}

var classified sync.Map // reflect.Type -> ActionType

// Classify returns the ActionType of payload.
func Classify(payload any) (ActionType, error) {
	if payload == nil {
		return 0, &UnclassifiableError{}
	}
	return ClassifyType(reflect.TypeOf(payload))
}

// ClassifyType classifies t once and caches the answer.
func ClassifyType(t reflect.Type) (ActionType, error) {
	if v, ok := classified.Load(t); ok {
		return v.(ActionType), nil
	}

	var matches []ActionType
	for _, c := range []struct {
		iface reflect.Type
		kind  ActionType
	}{
		{commandIface, CommandType},
		{queryIface, QueryType},
		{domainEventIface, DomainEventType},
		{applicationEventIface, ApplicationEventType},
	} {
		if t.Implements(c.iface) {
			matches = append(matches, c.kind)
		}
	}
	if len(matches) != 1 {
		return 0, &UnclassifiableError{Type: t, Matches: matches}
	}
	classified.Store(t, matches[0])
	return matches[0], nil
}
