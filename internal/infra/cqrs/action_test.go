package cqrs

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cqrskit/internal/infra/kernel"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		payload any
		want    ActionType
	}{
		{sayHello{}, CommandType},
		{&sayHello{}, CommandType},
		{slowQuery{}, QueryType},
		{orderPlaced{}, DomainEventType},
		{mailSent{}, ApplicationEventType},
	}
	for _, tt := range tests {
		t.Run(reflect.TypeOf(tt.payload).String(), func(t *testing.T) {
			got, err := Classify(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Unclassifiable(t *testing.T) {
	var ue *UnclassifiableError

	_, err := Classify(notAnAction{})
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, err.Error(), "unknown action type")

	_, err = Classify(confused{})
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []ActionType{CommandType, QueryType}, ue.Matches)
}

func TestParseActionType(t *testing.T) {
	for _, kind := range []ActionType{CommandType, QueryType, DomainEventType, ApplicationEventType} {
		got, err := ParseActionType(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	_, err := ParseActionType("Saga")
	assert.Error(t, err)
	assert.True(t, DomainEventType.IsEvent())
	assert.False(t, QueryType.IsEvent())
}

func TestRouter_RegistrationIsTotalAndUnique(t *testing.T) {
	r := NewRouter()
	h := kernel.HandlerFunc(func(ctx context.Context, task *kernel.Task) (any, error) { return nil, nil })

	require.NoError(t, r.Register(sayHello{}, h))
	require.NoError(t, r.Register(&slowQuery{}, h))
	assert.ErrorIs(t, r.Register(&sayHello{}, h), kernel.ErrAmbiguousHandler)

	var ue *UnclassifiableError
	assert.ErrorAs(t, r.Register(notAnAction{}, h), &ue)

	regs := r.Registrations()
	require.Len(t, regs, 2)
	assert.Equal(t, CommandType, regs[0].ActionType)
	assert.Equal(t, QueryType, regs[1].ActionType)

	for _, payload := range []any{sayHello{}, &sayHello{}, slowQuery{}} {
		msg, err := ActionMessageFactory{}.Pack(payload, nil)
		require.NoError(t, err)
		got, ok, err := r.Match(msg)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotNil(t, got)
	}

	msg, err := ActionMessageFactory{}.Pack(mailSent{}, nil)
	require.NoError(t, err)
	_, ok, err := r.Match(msg)
	require.NoError(t, err)
	assert.False(t, ok)

	raw, err := kernel.DefaultMessageFactory{}.Pack(notAnAction{}, nil)
	require.NoError(t, err)
	_, _, err = r.Match(raw)
	assert.ErrorAs(t, err, &ue)
}

func TestRouter_RegisterFuncChecksPayloadParameter(t *testing.T) {
	r := NewRouter()
	err := r.RegisterFunc(sayHello{}, func(q slowQuery) string { return "" }, kernel.Payload())
	assert.Error(t, err)

	require.NoError(t, r.RegisterFunc(&sayHello{}, func(cmd sayHello) string { return cmd.Name }, kernel.Payload()))
	require.NoError(t, r.RegisterFunc(slowQuery{}, func(q *slowQuery) string { return "" }, kernel.Payload()))
}

func TestActionMessageFactory_StampsActionType(t *testing.T) {
	msg, err := ActionMessageFactory{}.Pack(orderPlaced{ID: "o-1"}, kernel.Headers{"tenant": "acme"})
	require.NoError(t, err)
	assert.Equal(t, "DomainEvent", msg.HeaderString(kernel.HeaderActionType))
	assert.Equal(t, "acme", msg.HeaderString("tenant"))

	_, err = ActionMessageFactory{}.Pack(notAnAction{}, nil)
	assert.Error(t, err)
	_, err = ActionMessageFactory{}.Pack(nil, nil)
	assert.ErrorIs(t, err, kernel.ErrNilPayload)
}
