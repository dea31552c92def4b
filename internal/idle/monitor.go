// Package idle confirms a shell-declared idle state by sampling the global
// pointer on a fixed interval until two consecutive samples match.
package idle

import (
	"context"
	"log"
	"time"

	"github.com/actionsum/presence/pkg/pointer"
)

// DefaultInterval is the sampling period used when none is configured
const DefaultInterval = 10 * time.Second

// Event is emitted once per sampling run when the pointer did not move
// between two consecutive samples. Active is always false.
type Event struct {
	Active   bool             `json:"active"`
	Position pointer.Position `json:"position"`
	Ticks    int              `json:"ticks"`
	Started  time.Time        `json:"started"`
	At       time.Time        `json:"at"`
}

// Waited is how long the monitor sampled before confirming
func (e Event) Waited() time.Duration {
	return e.At.Sub(e.Started)
}

// Monitor owns a single sampling handle. Signals and ticks are handled by
// one loop goroutine (Run), so ticks never overlap and none runs after an
// active signal has been received.
type Monitor struct {
	source   pointer.Source
	interval time.Duration

	requests  chan bool
	intervals chan time.Duration
	events    chan Event
	done      chan struct{}

	// OnError, when set, receives pointer read failures from the loop goroutine
	OnError func(error)

	// loop-owned state
	ticker      *time.Ticker
	last        pointer.Position
	hasBaseline bool
	ticks       int
	started     time.Time
}

// NewMonitor creates a monitor reading from source every interval
func NewMonitor(source pointer.Source, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		source:    source,
		interval:  interval,
		requests:  make(chan bool),
		intervals: make(chan time.Duration),
		events:    make(chan Event, 1),
		done:      make(chan struct{}),
	}
}

// Events returns the idle-confirmed event stream
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// OnIdleSignal delivers a shell status change: false starts sampling,
// true cancels it. It blocks until the loop has taken the signal and is a
// no-op once Run has returned.
func (m *Monitor) OnIdleSignal(active bool) {
	select {
	case m.requests <- active:
	case <-m.done:
	}
}

// SetInterval changes the sampling period. A run already in progress keeps
// its period; the next idle signal uses the new one.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case m.intervals <- d:
	case <-m.done:
	}
}

// Run is the monitor's event loop. It returns when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.stop()

	for {
		var tickC <-chan time.Time
		if m.ticker != nil {
			tickC = m.ticker.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case active := <-m.requests:
			if active {
				if m.ticker != nil {
					log.Println("User active, idle sampling cancelled")
				}
				m.stop()
				continue
			}
			m.start()

		case d := <-m.intervals:
			m.interval = d

		case <-tickC:
			if ev, confirmed := m.tick(); confirmed {
				m.stop()
				select {
				case m.events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// start replaces any run in progress with a fresh one
func (m *Monitor) start() {
	m.stop()

	m.started = time.Now()
	m.ticks = 0
	m.hasBaseline = false

	if pos, err := m.source.Read(); err != nil {
		m.reportError(err)
	} else {
		m.last = pos
		m.hasBaseline = true
	}

	m.ticker = time.NewTicker(m.interval)
	log.Printf("User idle, sampling pointer every %v from %v", m.interval, m.last)
}

func (m *Monitor) stop() {
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
}

// tick takes one sample and reports whether the pointer stayed put
func (m *Monitor) tick() (Event, bool) {
	m.ticks++

	pos, err := m.source.Read()
	if err != nil {
		m.reportError(err)
		return Event{}, false
	}

	if !m.hasBaseline {
		m.last = pos
		m.hasBaseline = true
		return Event{}, false
	}

	if pos != m.last {
		m.last = pos
		return Event{}, false
	}

	return Event{
		Active:   false,
		Position: pos,
		Ticks:    m.ticks,
		Started:  m.started,
		At:       time.Now(),
	}, true
}

func (m *Monitor) reportError(err error) {
	log.Printf("Failed to read pointer position: %v", err)
	if m.OnError != nil {
		m.OnError(err)
	}
}
