package timer

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Event is sent when a timer fires.
type Event struct {
	ID        int
	Repeating bool
}

// Service owns timer IDs, scheduling, repetition and cancellation. Fired
// timers are delivered as Events; the receiver decides what runs.
// Repeating timers use fixed-interval semantics and reschedule on fire.
type Service struct {
	events chan<- Event
	logger *slog.Logger

	mu     sync.Mutex
	timers map[int]*entry
	nextID int
	fired  uint64
}

type entry struct {
	interval time.Duration // 0 = one-shot
	stop     func() bool
}

// NewService creates a timer service that sends fired timers on events.
func NewService(events chan<- Event, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		events: events,
		logger: logger,
		timers: make(map[int]*entry),
	}
}

// After schedules a one-shot timer and returns its ID.
func (s *Service) After(d time.Duration) int {
	return s.schedule(d, 0)
}

// Every schedules a repeating timer and returns its ID.
func (s *Service) Every(d time.Duration) int {
	return s.schedule(d, d)
}

func (s *Service) schedule(d, interval time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	t := time.AfterFunc(d, func() { s.fire(id) })
	s.timers[id] = &entry{interval: interval, stop: t.Stop}
	return id
}

func (s *Service) fire(id int) {
	s.mu.Lock()
	e, ok := s.timers[id]
	if !ok {
		s.mu.Unlock()
		return // Cancelled before firing
	}

	repeating := e.interval > 0
	if repeating {
		t := time.AfterFunc(e.interval, func() { s.fire(id) })
		e.stop = t.Stop
	} else {
		delete(s.timers, id)
	}
	s.fired++

	// Sent under the lock so a timer is never both inactive and unsent
	select {
	case s.events <- Event{ID: id, Repeating: repeating}:
	default:
		s.logger.Warn("timer event dropped", "id", id)
	}
	s.mu.Unlock()
}

// Cancel stops a timer. Unknown IDs are ignored.
func (s *Service) Cancel(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.timers[id]; ok {
		e.stop()
		delete(s.timers, id)
	}
}

// CancelAll stops every timer.
func (s *Service) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.timers {
		e.stop()
	}
	s.timers = make(map[int]*entry)
}

// Active returns the number of scheduled timers. A repeating timer stays
// active until cancelled.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Fired returns how many timer events have been emitted.
func (s *Service) Fired() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
