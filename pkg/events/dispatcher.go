package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// ErrUnknownEventType is returned for event types with no registered decoder
var ErrUnknownEventType = errors.New("unknown event type")

// Fire outcomes reported to the Observer
const (
	OutcomeDelivered = "delivered"
	OutcomeCancelled = "cancelled"
	OutcomeNoop      = "noop"
	OutcomeError     = "error"
)

// Observer receives one record per fired event
type Observer interface {
	ObserveFire(eventType, outcome string, listeners int, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveFire(string, string, int, time.Duration) {}

// Listener is a registered event handler
type Listener struct {
	Plugin          string                  `json:"plugin"`
	EventType       string                  `json:"event_type"`
	Priority        pluginapi.EventPriority `json:"priority"`
	IgnoreCancelled bool                    `json:"ignore_cancelled"`

	handler pluginapi.EventHandler
	seq     uint64
}

// Dispatcher holds listeners per event type and fires decoded events at them
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]*Listener
	decoders  map[string]func() pluginapi.Event
	seq       uint64

	log      *logrus.Logger
	observer Observer
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// NewDispatcher creates a dispatcher that knows the built-in player events
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[string][]*Listener),
		decoders: map[string]func() pluginapi.Event{
			pluginapi.PlayerJoinEventType: func() pluginapi.Event { return &pluginapi.PlayerJoinEvent{} },
			pluginapi.PlayerQuitEventType: func() pluginapi.Event { return &pluginapi.PlayerQuitEvent{} },
			pluginapi.PlayerChatEventType: func() pluginapi.Event { return &pluginapi.PlayerChatEvent{} },
		},
		log:      logrus.New(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterEventType adds a decoder for eventType. newEvent must return a
// pointer that encoding/json can decode into.
func (d *Dispatcher) RegisterEventType(eventType string, newEvent func() pluginapi.Event) error {
	if eventType == "" {
		return fmt.Errorf("event type is required")
	}
	if newEvent == nil {
		return fmt.Errorf("event constructor is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.decoders[eventType]; exists {
		return fmt.Errorf("event type %s already registered", eventType)
	}
	d.decoders[eventType] = newEvent
	return nil
}

// Supports reports whether eventType can be decoded
func (d *Dispatcher) Supports(eventType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.decoders[eventType]
	return ok
}

// Register adds a listener for eventType
func (d *Dispatcher) Register(plugin, eventType string, priority pluginapi.EventPriority, ignoreCancelled bool, handler pluginapi.EventHandler) error {
	if plugin == "" {
		return fmt.Errorf("plugin name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	if priority < pluginapi.PriorityLowest || priority > pluginapi.PriorityMonitor {
		return fmt.Errorf("invalid priority %d", priority)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.decoders[eventType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	d.seq++
	d.listeners[eventType] = append(d.listeners[eventType], &Listener{
		Plugin:          plugin,
		EventType:       eventType,
		Priority:        priority,
		IgnoreCancelled: ignoreCancelled,
		handler:         handler,
		seq:             d.seq,
	})

	d.log.WithFields(logrus.Fields{
		"plugin":     plugin,
		"event_type": eventType,
		"priority":   priority.String(),
	}).Debug("Registered event listener")
	return nil
}

// UnregisterPlugin drops every listener owned by plugin and returns how many
// were removed
func (d *Dispatcher) UnregisterPlugin(plugin string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for eventType, listeners := range d.listeners {
		kept := listeners[:0]
		for _, l := range listeners {
			if l.Plugin == plugin {
				removed++
				continue
			}
			kept = append(kept, l)
		}
		if len(kept) == 0 {
			delete(d.listeners, eventType)
			continue
		}
		d.listeners[eventType] = kept
	}
	return removed
}

// Listeners returns the listeners for eventType in firing order
func (d *Dispatcher) Listeners(eventType string) []Listener {
	ordered := d.snapshot(eventType, "")
	out := make([]Listener, len(ordered))
	for i, l := range ordered {
		out[i] = *l
	}
	return out
}

func (d *Dispatcher) snapshot(eventType, plugin string) []*Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*Listener
	for _, l := range d.listeners[eventType] {
		if plugin == "" || l.Plugin == plugin {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Decode turns a JSON payload into the typed event for eventType
func (d *Dispatcher) Decode(eventType string, payload []byte) (pluginapi.Event, error) {
	d.mu.RLock()
	newEvent, ok := d.decoders[eventType]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	event := newEvent()
	if len(payload) == 0 {
		return event, nil
	}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", eventType, err)
	}
	return event, nil
}

// Fire decodes payload and delivers it to the listeners of eventType. When
// plugin is non-empty only that plugin's listeners run. It reports whether
// the event ended up cancelled.
func (d *Dispatcher) Fire(eventType string, payload []byte, plugin string) (bool, error) {
	start := time.Now()

	event, err := d.Decode(eventType, payload)
	if err != nil {
		d.observer.ObserveFire(eventType, OutcomeError, 0, time.Since(start))
		return false, err
	}

	listeners := d.snapshot(eventType, plugin)
	cancelled := d.Dispatch(event, listeners)

	outcome := OutcomeDelivered
	switch {
	case len(listeners) == 0:
		outcome = OutcomeNoop
	case cancelled:
		outcome = OutcomeCancelled
	}
	d.observer.ObserveFire(eventType, outcome, len(listeners), time.Since(start))
	return cancelled, nil
}

// Dispatch runs listeners against an already decoded event
func (d *Dispatcher) Dispatch(event pluginapi.Event, listeners []*Listener) bool {
	for _, l := range listeners {
		if l.Priority == pluginapi.PriorityMonitor {
			final := event.Cancelled()
			if !(l.IgnoreCancelled && final) {
				d.call(l, event)
			}
			event.SetCancelled(final)
			continue
		}
		if l.IgnoreCancelled && event.Cancelled() {
			continue
		}
		d.call(l, event)
	}
	return event.Cancelled()
}

func (d *Dispatcher) call(l *Listener, event pluginapi.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"plugin":     l.Plugin,
				"event_type": l.EventType,
				"stack":      string(debug.Stack()),
			}).Errorf("Event listener panicked: %v", r)
		}
	}()
	l.handler(event)
}
