// Package events carries the domain events of the service to their
// listeners. Dispatching is synchronous and best effort: a listener
// error or panic is logged and contained, state changes must not fail
// because an audit hook did.
package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// EventName identifies an event kind
type EventName string

// Event is anything that can be dispatched
type Event interface {
	Name() EventName
}

// EventListener handles a single event kind
type EventListener interface {
	ForEvent() EventName
	Handle(ctx context.Context, ev Event) error
}

// Dispatcher fans events out to the listeners registered for them
type Dispatcher struct {
	log      *zap.Logger
	registry map[EventName][]EventListener
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: make(map[EventName][]EventListener),
	}
}

// Register adds listeners, keyed by the event each one declares
func (d *Dispatcher) Register(listeners ...EventListener) {
	for _, l := range listeners {
		d.log.Debug("Registering event listener", zap.String("event", string(l.ForEvent())))
		d.registry[l.ForEvent()] = append(d.registry[l.ForEvent()], l)
	}
}

// Dispatch hands the event to every listener registered for its name
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	listeners, ok := d.registry[ev.Name()]
	if !ok {
		d.log.Info("No event listener for event", zap.String("event", string(ev.Name())))
		return
	}
	for _, l := range listeners {
		d.deliver(ctx, l, ev)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, l EventListener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("recovered from panicking event listener",
				zap.Any("panic", r),
				zap.String("event", string(ev.Name())),
				zap.String("event_listener", fmt.Sprintf("%T", l)))
		}
	}()
	if err := l.Handle(ctx, ev); err != nil {
		d.log.Error("Event listener returned error",
			zap.String("event_listener", fmt.Sprintf("%T", l)),
			zap.Error(err),
			zap.String("event", string(ev.Name())))
	}
}
