package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/internal/intake"
)

// 호스트가 발행하는 런타임 이벤트 토픽
const (
	TopicError              = "runtime.error"
	TopicUnhandledRejection = "runtime.unhandled_rejection"
	TopicOnline             = "runtime.online"
	TopicOffline            = "runtime.offline"
	// 핸들러 panic 은 boundary 이벤트로 다시 발행된다
	TopicBoundary = "runtime.boundary"
)

// Event is a runtime signal published by the host application: an uncaught
// error, an unhandled rejection or a connectivity change.
type Event struct {
	Topic     string
	Source    string // 발행자
	Err       interface{}
	Context   string // component context, if any
	Timestamp time.Time
}

// Handler 이벤트 핸들러 함수
type Handler func(event Event)

type subscription struct {
	subscriber string
	handler    Handler
}

// Bus is a topic based publish/subscribe hub. Subscribers register under a
// name and are removed together by Unsubscribe.
type Bus struct {
	subscribers map[string][]subscription // topic -> handlers
	mu          sync.RWMutex
	logger      zerolog.Logger
}

// NewBus 생성자
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]subscription),
		logger:      logger,
	}
}

// Subscribe 토픽 구독
func (b *Bus) Subscribe(subscriber, topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], subscription{
		subscriber: subscriber,
		handler:    handler,
	})
	b.logger.Debug().Str("subscriber", subscriber).Str("topic", topic).Msg("subscribed")
}

// Unsubscribe removes every subscription held by subscriber
func (b *Bus) Unsubscribe(subscriber string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, subs := range b.subscribers {
		var remaining []subscription
		for _, s := range subs {
			if s.subscriber != subscriber {
				remaining = append(remaining, s)
			}
		}
		if len(remaining) == 0 {
			delete(b.subscribers, topic)
		} else {
			b.subscribers[topic] = remaining
		}
	}
}

// Publish delivers the event synchronously to every handler of its topic.
// A panicking handler is logged and does not stop the others; the panic is
// republished on TopicBoundary with the handler's subscriber as context.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[event.Topic]))
	copy(subs, b.subscribers[event.Topic])
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error().
						Interface("panic", r).
						Str("topic", event.Topic).
						Str("subscriber", s.subscriber).
						Msg("event handler panicked")
					if event.Topic != TopicBoundary {
						b.Publish(Event{
							Topic:   TopicBoundary,
							Source:  s.subscriber,
							Err:     intake.NormalizePanic(r, domain.SourceBoundary, s.subscriber),
							Context: s.subscriber,
						})
					}
				}
			}()
			s.handler(event)
		}()
	}
}

// PublishError publishes a global error event
func (b *Bus) PublishError(source string, err interface{}) {
	b.Publish(Event{Topic: TopicError, Source: source, Err: err})
}

// PublishRejection publishes an unhandled rejection event
func (b *Bus) PublishRejection(source string, reason interface{}) {
	b.Publish(Event{Topic: TopicUnhandledRejection, Source: source, Err: reason})
}

// PublishOnline publishes the back-online event
func (b *Bus) PublishOnline(source string) {
	b.Publish(Event{Topic: TopicOnline, Source: source})
}

// PublishOffline publishes the went-offline event
func (b *Bus) PublishOffline(source string) {
	b.Publish(Event{Topic: TopicOffline, Source: source})
}

// Subscriptions returns topic -> subscriber names
func (b *Bus) Subscriptions() map[string][]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make(map[string][]string)
	for topic, subs := range b.subscribers {
		for _, s := range subs {
			result[topic] = append(result[topic], s.subscriber)
		}
	}
	return result
}
