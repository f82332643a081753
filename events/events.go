// Package events provides the typed publish/subscribe notifier the cache
// layer uses to announce registration, fetch, and sync lifecycle events.
//
// The events package follows go-kit conventions:
// - Interface-driven design for testability
// - Uses logger.Logger interface for unified logging
// - Configuration with validation and defaults
// - Structured error handling
//
// Handlers registered with On/OnPattern/Once run synchronously on the
// emitting goroutine; a panicking handler is recovered and logged without
// affecting the other handlers. Watch returns a channel fed through an
// unbounded buffer, so Emit never blocks on a slow consumer.
package events

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallnest/chanx"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/routine"
)

// Event is one recorded emission
type Event struct {
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Handler receives events on the emitting goroutine
type Handler func(e Event)

// Notifier is a typed publish/subscribe bus with bounded emission history
type Notifier interface {
	// On registers a handler for exactly the given event type
	On(eventType string, h Handler) *Subscription

	// OnPattern registers a handler for every event whose type matches the
	// regular expression pattern
	OnPattern(pattern string, h Handler) (*Subscription, error)

	// Once registers a handler that is delivered at most one event and then
	// removed
	Once(eventType string, h Handler) *Subscription

	// Watch returns a channel receiving the given event types, or every
	// event when no types are given. The channel buffer is unbounded;
	// cancel the watch to release it.
	Watch(eventTypes ...string) *Watch

	// Emit publishes an event to all matching handlers and watches and
	// records it in the history ring
	Emit(eventType string, data any)

	// History returns up to limit retained emissions, oldest first;
	// limit <= 0 returns all retained
	History(limit int) []Event

	// Close cancels all watches and drops all handlers; later Emits no-op
	Close()
}

type subscription struct {
	id      int64
	match   func(eventType string) bool
	handler Handler
	once    bool
	used    atomic.Bool
}

// Subscription is a handle to a registered handler
type Subscription struct {
	id int64
	n  *notifier
}

// Cancel removes the handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.n.removeHandler(s.id)
}

// Watch is a channel-based subscription
type Watch struct {
	// C receives matching events until the watch is cancelled or the
	// notifier closes, then is closed after draining
	C <-chan Event

	id        int64
	n         *notifier
	ch        *chanx.UnboundedChan[Event]
	types     map[string]struct{}
	closeOnce sync.Once
}

// Cancel releases the watch; C is closed once buffered events drain
func (w *Watch) Cancel() {
	w.n.removeWatch(w.id)
	w.closeChan()
}

func (w *Watch) closeChan() {
	w.closeOnce.Do(func() {
		close(w.ch.In)
	})
}

func (w *Watch) wants(eventType string) bool {
	if len(w.types) == 0 {
		return true
	}
	_, ok := w.types[eventType]
	return ok
}

type notifier struct {
	log    logger.Logger
	source string

	mu       sync.RWMutex
	handlers map[int64]*subscription
	watches  map[int64]*Watch
	history  *ring

	watchBuffer int
	nextID      atomic.Int64
	closed      atomic.Bool
}

// New creates a Notifier with the given configuration.
// A nil configuration means defaults.
func New(log logger.Logger, cfg *Config) (Notifier, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &notifier{
		log:         log,
		source:      cfg.Source,
		handlers:    make(map[int64]*subscription),
		watches:     make(map[int64]*Watch),
		history:     newRing(cfg.HistorySize),
		watchBuffer: cfg.WatchBuffer,
	}, nil
}

func (n *notifier) On(eventType string, h Handler) *Subscription {
	return n.add(&subscription{
		match:   func(t string) bool { return t == eventType },
		handler: h,
	})
}

func (n *notifier) OnPattern(pattern string, h Handler) (*Subscription, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ErrBadPattern(pattern, err)
	}
	return n.add(&subscription{
		match:   re.MatchString,
		handler: h,
	}), nil
}

func (n *notifier) Once(eventType string, h Handler) *Subscription {
	return n.add(&subscription{
		match:   func(t string) bool { return t == eventType },
		handler: h,
		once:    true,
	})
}

func (n *notifier) add(sub *subscription) *Subscription {
	sub.id = n.nextID.Add(1)
	n.mu.Lock()
	if !n.closed.Load() {
		n.handlers[sub.id] = sub
	}
	n.mu.Unlock()
	return &Subscription{id: sub.id, n: n}
}

func (n *notifier) Watch(eventTypes ...string) *Watch {
	w := &Watch{
		id: n.nextID.Add(1),
		n:  n,
		ch: chanx.NewUnboundedChan[Event](context.Background(), n.watchBuffer),
	}
	w.C = w.ch.Out
	if len(eventTypes) > 0 {
		w.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			w.types[t] = struct{}{}
		}
	}
	n.mu.Lock()
	if n.closed.Load() {
		n.mu.Unlock()
		w.closeChan()
		return w
	}
	n.watches[w.id] = w
	n.mu.Unlock()
	return w
}

func (n *notifier) Emit(eventType string, data any) {
	if n.closed.Load() {
		return
	}
	e := Event{
		Type:      eventType,
		Source:    n.source,
		Timestamp: time.Now(),
		Data:      data,
	}

	n.mu.Lock()
	n.history.add(e)
	matched := make([]*subscription, 0, len(n.handlers))
	for _, sub := range n.handlers {
		if sub.match(eventType) {
			matched = append(matched, sub)
		}
	}
	for _, w := range n.watches {
		if w.wants(eventType) {
			// unbounded buffer: the shuttle goroutine always drains In
			w.ch.In <- e
		}
	}
	n.mu.Unlock()

	for _, sub := range matched {
		if sub.once {
			if !sub.used.CompareAndSwap(false, true) {
				continue
			}
			n.removeHandler(sub.id)
		}
		n.dispatch(sub, e)
	}
}

// dispatch runs one handler, isolating its panic from the emission
func (n *notifier) dispatch(sub *subscription, e Event) {
	defer func() {
		if rec := recover(); rec != nil {
			n.log.Error("event handler panicked",
				zap.String("event_type", e.Type),
				zap.Error(routine.ErrPanic(rec)),
			)
		}
	}()
	sub.handler(e)
}

func (n *notifier) History(limit int) []Event {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.history.snapshot(limit)
}

func (n *notifier) Close() {
	if !n.closed.CompareAndSwap(false, true) {
		return
	}
	n.mu.Lock()
	watches := make([]*Watch, 0, len(n.watches))
	for _, w := range n.watches {
		watches = append(watches, w)
	}
	n.handlers = make(map[int64]*subscription)
	n.watches = make(map[int64]*Watch)
	n.mu.Unlock()

	for _, w := range watches {
		w.closeChan()
	}
}

func (n *notifier) removeHandler(id int64) {
	n.mu.Lock()
	delete(n.handlers, id)
	n.mu.Unlock()
}

func (n *notifier) removeWatch(id int64) {
	n.mu.Lock()
	delete(n.watches, id)
	n.mu.Unlock()
}
