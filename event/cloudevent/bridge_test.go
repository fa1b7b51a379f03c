package cloudevent_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/event/cloudevent"
)

type PaymentCaptured struct {
	event.CancellableEvent
	Amount int `json:"amount"`
}

type recordingSink struct {
	mu     sync.Mutex
	events []cloudevents.Event
	err    error
}

func (s *recordingSink) Send(_ context.Context, ce cloudevents.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ce)
	return s.err
}

func TestConvert(t *testing.T) {
	b := cloudevent.NewBridge("/payments", &recordingSink{})

	ce, err := b.Convert(&PaymentCaptured{Amount: 250})
	require.NoError(t, err)
	assert.Equal(t, "/payments", ce.Source())
	assert.Equal(t, "mint.event.cloudevent_test.PaymentCaptured", ce.Type())
	assert.Equal(t, cloudevents.VersionV1, ce.SpecVersion())
	_, err = uuid.Parse(ce.ID())
	assert.NoError(t, err)

	var payload struct {
		Amount int `json:"amount"`
	}
	require.NoError(t, ce.DataAs(&payload))
	assert.Equal(t, 250, payload.Amount)
	assert.Equal(t, false, ce.Extensions()["cancelled"])
}

func TestWatch_ForwardsOnlyUncancelledEvents(t *testing.T) {
	sink := &recordingSink{}
	m := event.NewManager()
	b := cloudevent.NewBridge("/payments", sink, cloudevent.WithTypePrefix("test."))

	_, err := cloudevent.Watch[*PaymentCaptured](m, b)
	require.NoError(t, err)
	_, err = event.Subscribe(m, func(e *PaymentCaptured) error {
		e.SetCancelled(e.Amount > 100)
		return nil
	}, event.WithPriority(event.PriorityHighest))
	require.NoError(t, err)

	require.NoError(t, m.DispatchEvent(&PaymentCaptured{Amount: 500}))
	assert.Empty(t, sink.events)

	require.NoError(t, m.DispatchEvent(&PaymentCaptured{Amount: 10}))
	require.Len(t, sink.events, 1)
	assert.Equal(t, "test.cloudevent_test.PaymentCaptured", sink.events[0].Type())
	assert.Equal(t, false, sink.events[0].Extensions()["cancelled"])
}

func TestWatch_RunsAfterOtherHandlers(t *testing.T) {
	sink := &recordingSink{}
	m := event.NewManager()
	b := cloudevent.NewBridge("/payments", sink)

	_, err := cloudevent.Watch[*PaymentCaptured](m, b)
	require.NoError(t, err)
	_, err = event.Subscribe(m, func(e *PaymentCaptured) error {
		e.Amount *= 2
		return nil
	}, event.WithPriority(event.PriorityLowest))
	require.NoError(t, err)

	require.NoError(t, m.DispatchEvent(&PaymentCaptured{Amount: 21}))
	require.Len(t, sink.events, 1)

	var payload struct {
		Amount int `json:"amount"`
	}
	require.NoError(t, sink.events[0].DataAs(&payload))
	assert.Equal(t, 42, payload.Amount)
}

func TestWatch_SinkErrorIsReturned(t *testing.T) {
	sink := &recordingSink{err: errors.New("unavailable")}
	m := event.NewManager()
	b := cloudevent.NewBridge("/payments", sink)

	sub, err := cloudevent.Watch[*PaymentCaptured](m, b)
	require.NoError(t, err)

	err = m.DispatchEvent(&PaymentCaptured{})
	assert.ErrorIs(t, err, event.ErrHandlerInvocation)
	assert.ErrorContains(t, err, "unavailable")

	sub.Unsubscribe()
	assert.NoError(t, m.DispatchEvent(&PaymentCaptured{}))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "cloudevent_test.PaymentCaptured", cloudevent.TypeName(&PaymentCaptured{}))
	assert.Equal(t, "int", cloudevent.TypeName(3))
	assert.Equal(t, "nil", cloudevent.TypeName(nil))
}
