package lua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/drake/ferry/event"
	"github.com/drake/ferry/remote"
)

type scheduledTimer struct {
	ID       int
	Duration time.Duration
	Repeat   bool
}

// MockHost implements every engine service for testing. Dispatched work is
// queued and run by RunUntilIdle on the test goroutine, standing in for the
// session loop.
type MockHost struct {
	mu sync.Mutex

	engine *Engine
	hub    *event.Hub

	// Transfer state
	connected bool
	host      string
	Profiles  map[string]remote.Credentials
	Listings  map[string][]string
	Errors    map[string]error // keyed by op name
	cache     map[string][]string

	// Captured calls
	Calls           []string
	PrintCalls      []string
	ErrorCalls      []string
	LogCalls        []string
	QuitCalled      bool
	ScheduledTimers []scheduledTimer
	Cancelled       []int

	nextTimerID int

	queue  []func()
	signal chan struct{}
}

func NewMockHost() *MockHost {
	m := &MockHost{
		Profiles: make(map[string]remote.Credentials),
		Listings: make(map[string][]string),
		Errors:   make(map[string]error),
		cache:    make(map[string][]string),
		signal:   make(chan struct{}, 1),
	}
	m.hub = event.NewHub(m)
	return m
}

// --- TransferService ---

func (m *MockHost) record(op string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := op
	for _, a := range args {
		call += " " + a
	}
	m.Calls = append(m.Calls, call)
	return m.Errors[op]
}

func (m *MockHost) Connect(ctx context.Context, creds remote.Credentials) error {
	if err := m.record("connect", creds.Host, creds.User); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return errors.New("already connected")
	}
	m.connected = true
	m.host = creds.Host
	return nil
}

func (m *MockHost) Disconnect(ctx context.Context) error {
	if err := m.record("disconnect"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return errors.New("not connected")
	}
	m.connected = false
	m.host = ""
	return nil
}

func (m *MockHost) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockHost) Host() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host
}

func (m *MockHost) Upload(ctx context.Context, file, dir string) error {
	if err := m.record("upload", file, dir); err != nil {
		return err
	}
	m.hub.Publish(event.Uploaded, event.Payload{File: file, Path: dir})
	return nil
}

func (m *MockHost) Download(ctx context.Context, file, dir string) error {
	if err := m.record("download", file, dir); err != nil {
		return err
	}
	m.hub.Publish(event.Downloaded, event.Payload{File: file, Path: dir})
	return nil
}

func (m *MockHost) List(ctx context.Context, dir string) ([]string, error) {
	if err := m.record("list", dir); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	names := append([]string{}, m.Listings[dir]...)
	m.cache[dir] = names
	return names, nil
}

func (m *MockHost) Delete(ctx context.Context, file, dir string) error {
	return m.record("delete", file, dir)
}

func (m *MockHost) Rename(ctx context.Context, oldName, newName, dir string) error {
	return m.record("rename", oldName, newName, dir)
}

func (m *MockHost) CachedList(dir string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names, ok := m.cache[dir]
	return names, ok
}

func (m *MockHost) Profile(name string) (remote.Credentials, bool) {
	creds, ok := m.Profiles[name]
	return creds, ok
}

// --- EventService ---

func (m *MockHost) Listen(kind event.Kind, handle event.Handle) event.ListenerID {
	return m.hub.Register(kind, handle)
}

func (m *MockHost) Unlisten(kind event.Kind, id event.ListenerID) bool {
	return m.hub.Unregister(kind, id)
}

// Post implements event.Bridge.
func (m *MockHost) Post(r event.Resumption) {
	m.Dispatch(func() { m.engine.OnResume(r) })
}

// --- AsyncService ---

func (m *MockHost) Dispatch(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// --- UIService ---

func (m *MockHost) Print(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrintCalls = append(m.PrintCalls, text)
}

func (m *MockHost) PrintError(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalls = append(m.ErrorCalls, text)
}

func (m *MockHost) Log(level slog.Level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogCalls = append(m.LogCalls, fmt.Sprintf("%s %s", level, msg))
}

// --- TimerService ---

func (m *MockHost) TimerAfter(d time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTimerID++
	m.ScheduledTimers = append(m.ScheduledTimers, scheduledTimer{m.nextTimerID, d, false})
	return m.nextTimerID
}

func (m *MockHost) TimerEvery(d time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTimerID++
	m.ScheduledTimers = append(m.ScheduledTimers, scheduledTimer{m.nextTimerID, d, true})
	return m.nextTimerID
}

func (m *MockHost) TimerCancel(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, id)
}

func (m *MockHost) TimerCancelAll() {
	// No-op for tests
}

// --- SystemService ---

func (m *MockHost) Quit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuitCalled = true
}

// Helper methods for tests

// RunUntilIdle runs dispatched work until the queue is empty and no task is
// alive.
func (m *MockHost) RunUntilIdle(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		m.mu.Lock()
		var fn func()
		if len(m.queue) > 0 {
			fn = m.queue[0]
			m.queue = m.queue[1:]
		}
		m.mu.Unlock()

		if fn != nil {
			fn()
			continue
		}
		if m.engine.Idle() {
			return
		}

		select {
		case <-m.signal:
		case <-deadline:
			t.Fatalf("engine not idle after 2s: %d tasks alive", m.engine.TaskCount())
		}
	}
}

func (m *MockHost) DrainCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.Calls
	m.Calls = nil
	return calls
}

func (m *MockHost) DrainPrintCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.PrintCalls
	m.PrintCalls = nil
	return calls
}

func (m *MockHost) DrainErrorCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.ErrorCalls
	m.ErrorCalls = nil
	return calls
}

func (m *MockHost) DrainScheduledTimers() []scheduledTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	timers := m.ScheduledTimers
	m.ScheduledTimers = nil
	return timers
}
