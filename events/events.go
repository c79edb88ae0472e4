package events

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// EventHandler defines a function type where its input type is the generic type. A handler returning an error stops
// the remaining handlers from being invoked for that event.
type EventHandler[T any] func(T) error

// globalEventHandlers maps event types to handlers called any time any EventEmitter publishes an event of that type.
var globalEventHandlers = make(map[reflect.Type][]any)

// globalEventHandlersLock synchronizes access to globalEventHandlers.
var globalEventHandlersLock sync.RWMutex

// SubscribeAny adds an EventHandler which is invoked for events of type T published by any EventEmitter.
// Note: Handlers subscribed here remain for the lifetime of the program.
func SubscribeAny[T any](callback EventHandler[T]) {
	eventType := reflect.TypeOf((*T)(nil)).Elem()

	globalEventHandlersLock.Lock()
	defer globalEventHandlersLock.Unlock()
	globalEventHandlers[eventType] = append(globalEventHandlers[eventType], callback)
}

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when the event type (generic)
// is published. It is safe for concurrent use: workers publish while the dispatcher keeps subscribing.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods invoked when a new event is published to this emitter.
	subscriptions []EventHandler[T]

	// subscriptionsLock synchronizes access to subscriptions.
	subscriptionsLock sync.RWMutex
}

// Publish emits the provided event by calling every EventHandler subscribed to this emitter, then every global
// EventHandler for the event type. The first handler error is returned.
func (e *EventEmitter[T]) Publish(event T) error {
	e.subscriptionsLock.RLock()
	subscriptions := e.subscriptions
	e.subscriptionsLock.RUnlock()

	for _, subscription := range subscriptions {
		if err := subscription(event); err != nil {
			return errors.WithStack(err)
		}
	}

	globalEventHandlersLock.RLock()
	callbacks := globalEventHandlers[reflect.TypeOf((*T)(nil)).Elem()]
	globalEventHandlersLock.RUnlock()

	for _, callback := range callbacks {
		if err := callback.(EventHandler[T])(event); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptionsLock.Lock()
	defer e.subscriptionsLock.Unlock()
	e.subscriptions = append(e.subscriptions, callback)
}
