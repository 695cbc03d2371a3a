// Package connectivity tracks whether the terminal can reach the outside world and
// turns raw platform signals into went-online / went-offline transitions.
package connectivity

import (
	"context"
	"sync"

	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type State int

const (
	StateOffline State = iota
	StateOnline
)

func (s State) String() string {
	if s == StateOnline {
		return "online"
	}
	return "offline"
}

type Event int

const (
	EventWentOnline Event = iota + 1
	EventWentOffline
)

func (e Event) String() string {
	switch e {
	case EventWentOnline:
		return "went_online"
	case EventWentOffline:
		return "went_offline"
	default:
		return "unknown"
	}
}

// Handler receives transition events on the monitor's goroutine, one at a time and
// in order. Handlers must not block; hand long work to another goroutine.
type Handler func(Event)

// Source is the platform connectivity signal.
type Source interface {
	// Current answers "are we online right now".
	Current(ctx context.Context) bool
	// Watch delivers raw online/offline signals until ctx is done, then closes the channel.
	Watch(ctx context.Context) <-chan bool
}

// Monitor is a two-state machine fed by a Source. It emits an event only when the
// state actually changes; repeated signals for the current state are dropped.
type Monitor struct {
	logg *logger.Logger

	mu     sync.Mutex
	state  State
	subs   map[uint64]Handler
	nextID uint64
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor seeds the state from source.Current and starts watching source.
func NewMonitor(ctx context.Context, source Source, logg *logger.Logger) *Monitor {
	if logg == nil {
		logg = logger.Nop()
	}
	initial := StateOffline
	if source.Current(ctx) {
		initial = StateOnline
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m := &Monitor{
		logg:   logg,
		state:  initial,
		subs:   make(map[uint64]Handler),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	logg.Info(logg.WithField(ctx, "state", initial.String()), "connectivity monitor started")

	signals := source.Watch(watchCtx)
	go m.run(watchCtx, signals)
	return m
}

func (m *Monitor) run(ctx context.Context, signals <-chan bool) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-signals:
			if !ok {
				return
			}
			m.apply(ctx, online)
		}
	}
}

func (m *Monitor) apply(ctx context.Context, online bool) {
	next := StateOffline
	event := EventWentOffline
	if online {
		next = StateOnline
		event = EventWentOnline
	}

	m.mu.Lock()
	if m.closed || m.state == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	handlers := make([]Handler, 0, len(m.subs))
	for _, h := range m.subs {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	m.logg.Info(m.logg.WithField(ctx, "event", event.String()), "connectivity changed")
	for _, h := range handlers {
		h(event)
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) Online() bool {
	return m.State() == StateOnline
}

// Subscribe registers h and returns a function that removes it. The returned
// function is safe to call more than once.
func (m *Monitor) Subscribe(h Handler) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || h == nil {
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Subscribers reports how many handlers are registered.
func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close stops watching the source, drops every subscriber and waits for the
// watch goroutine to exit.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	m.subs = make(map[uint64]Handler)
	m.mu.Unlock()

	m.cancel()
	<-m.done
}
