package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damoang/angple-bugreport/internal/domain"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var received Event
	b.Subscribe("reporter", TopicError, func(e Event) {
		received = e
	})

	boom := errors.New("boom")
	b.PublishError("window", boom)

	assert.Equal(t, TopicError, received.Topic)
	assert.Equal(t, "window", received.Source)
	assert.Equal(t, boom, received.Err)
	assert.False(t, received.Timestamp.IsZero())
}

func TestBus_MultipleSubscribers(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var count int
	var mu sync.Mutex
	handler := func(_ Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	b.Subscribe("a", TopicOnline, handler)
	b.Subscribe("b", TopicOnline, handler)
	b.Subscribe("c", TopicOnline, handler)

	b.PublishOnline("probe")
	assert.Equal(t, 3, count)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus(zerolog.Nop())

	called := false
	b.Subscribe("reporter", TopicUnhandledRejection, func(_ Event) { called = true })
	b.Subscribe("reporter", TopicOnline, func(_ Event) { called = true })

	b.Unsubscribe("reporter")
	b.PublishRejection("window", "reason")
	b.PublishOnline("probe")

	assert.False(t, called)
	assert.Empty(t, b.Subscriptions())
}

func TestBus_NoSubscribers(t *testing.T) {
	b := NewBus(zerolog.Nop())
	assert.NotPanics(t, func() { b.PublishOffline("probe") })
}

func TestBus_HandlerPanicDoesNotStopOthers(t *testing.T) {
	b := NewBus(zerolog.Nop())

	second := false
	b.Subscribe("bad", TopicError, func(_ Event) { panic("handler bug") })
	b.Subscribe("good", TopicError, func(_ Event) { second = true })

	assert.NotPanics(t, func() { b.PublishError("window", "x") })
	assert.True(t, second)
}

func TestBus_HandlerPanicRepublishedAsBoundary(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var got []Event
	b.Subscribe("reporter", TopicBoundary, func(e Event) { got = append(got, e) })
	b.Subscribe("comments", TopicOnline, func(_ Event) { panic("nil comment list") })

	b.PublishOnline("window")

	require.Len(t, got, 1)
	assert.Equal(t, "comments", got[0].Context)
	event, ok := got[0].Err.(domain.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "nil comment list", event.Message)
	assert.Equal(t, domain.SourceBoundary, event.Source)
	assert.NotNil(t, event.Stack)
}

func TestBus_BoundaryHandlerPanicNotRepublished(t *testing.T) {
	b := NewBus(zerolog.Nop())

	calls := 0
	b.Subscribe("reporter", TopicBoundary, func(_ Event) {
		calls++
		panic("again")
	})
	b.Subscribe("comments", TopicError, func(_ Event) { panic("first") })

	assert.NotPanics(t, func() { b.PublishError("window", "x") })
	assert.Equal(t, 1, calls)
}

func TestBus_Subscriptions(t *testing.T) {
	b := NewBus(zerolog.Nop())
	b.Subscribe("reporter", TopicError, func(Event) {})
	b.Subscribe("metrics", TopicError, func(Event) {})

	subs := b.Subscriptions()
	assert.ElementsMatch(t, []string{"reporter", "metrics"}, subs[TopicError])
}
