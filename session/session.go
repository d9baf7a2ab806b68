package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/drake/ferry/event"
	"github.com/drake/ferry/internal/buffer"
	"github.com/drake/ferry/lua"
	"github.com/drake/ferry/remote"
	"github.com/drake/ferry/timer"
	"github.com/drake/ferry/transfer"
	"github.com/drake/ferry/ui"
)

// Compile-time checks for the services the engine consumes.
var (
	_ lua.TransferService = (*Session)(nil)
	_ lua.EventService    = (*Session)(nil)
	_ lua.AsyncService    = (*Session)(nil)
	_ lua.UIService       = (*Session)(nil)
	_ lua.TimerService    = (*Session)(nil)
	_ lua.SystemService   = (*Session)(nil)
	_ event.Bridge        = (*Session)(nil)
)

// ProfileSource resolves named connection profiles.
type ProfileSource interface {
	Profile(name string) (remote.Credentials, bool)
}

// Config holds session configuration
type Config struct {
	InitFile    string   // Optional init.lua, skipped when missing
	UserScripts []string // CLI script arguments
	Chunks      []string // Inline Lua chunks, run after the scripts

	Profiles     ProfileSource
	ListingCache int

	// ShutdownTimeout bounds the final disconnect.
	ShutdownTimeout time.Duration
	// Quiet suppresses connection status lines on the console.
	Quiet bool

	Logger *slog.Logger
}

// Session orchestrates the transfer components and the Lua engine. Every
// engine call happens on the goroutine running Run.
type Session struct {
	// Components
	manager  *transfer.Manager
	executor *transfer.Executor
	hub      *event.Hub
	engine   *lua.Engine
	timer    *timer.Service
	console  *ui.Console
	logger   *slog.Logger
	scripts  *slog.Logger

	// Channels
	eventsIn    chan<- event.Event
	eventsOut   <-chan event.Event
	timerEvents chan timer.Event

	config Config

	// Loop state
	pending   atomic.Int64 // events sent but not yet handled
	processed atomic.Uint64
	tasks     atomic.Int64 // mirror of engine.TaskCount for Stats
	quitting  bool
	status    lua.ClientState
}

// New creates a new Session around m. It is passive - no goroutines other
// than the event buffer start here.
func New(m *transfer.Manager, console *ui.Console, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	eventsIn, eventsOut := buffer.Unbounded[event.Event](256, 65536, logger)
	timerEvents := make(chan timer.Event, 1024)

	s := &Session{
		manager:     m,
		console:     console,
		logger:      logger.With("component", "session"),
		scripts:     logger.With("component", "script"),
		eventsIn:    eventsIn,
		eventsOut:   eventsOut,
		timerEvents: timerEvents,
		timer:       timer.NewService(timerEvents, logger),
		config:      cfg,
	}

	s.hub = event.NewHub(s)
	s.executor = transfer.NewExecutor(m, s.hub,
		transfer.WithListingCache(cfg.ListingCache),
		transfer.WithExecutorLogger(logger.With("component", "executor")),
	)
	s.engine = lua.NewEngine(s, s, s, s, s, s)

	return s
}

// Run boots the scripts and processes events until the session goes idle
// (no live tasks, timers or queued events), a script calls ferry.quit, or
// ctx is done. The connection, if any, is closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	defer s.shutdown()

	if err := s.boot(); err != nil {
		return err
	}

	for {
		s.tasks.Store(int64(s.engine.TaskCount()))
		if s.quitting {
			s.logger.Debug("quit requested")
			return nil
		}
		if s.idle() {
			s.logger.Debug("idle")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.eventsOut:
			s.pending.Add(-1)
			s.handleEvent(ev)
		case tev := <-s.timerEvents:
			s.processed.Add(1)
			s.engine.OnTimer(tev.ID, tev.Repeating)
		}
		s.syncStatus()
	}
}

// idle reports whether nothing can produce further work.
func (s *Session) idle() bool {
	return s.engine.Idle() &&
		s.timer.Active() == 0 &&
		len(s.timerEvents) == 0 &&
		s.pending.Load() == 0
}

// handleEvent executes a single event on the session loop.
func (s *Session) handleEvent(ev event.Event) {
	s.processed.Add(1)

	switch ev.Type {
	case event.AsyncResult:
		if ev.Callback != nil {
			ev.Callback()
		}

	case event.Resume:
		if ev.Resumption != nil {
			s.engine.OnResume(*ev.Resumption)
		}

	case event.SystemControl:
		s.handleControl(ev.Control)
	}
}

// handleControl processes system control events.
func (s *Session) handleControl(ctrl event.ControlOp) {
	switch ctrl.Action {
	case event.ActionQuit:
		s.quitting = true
	}
}

// boot loads the VM state: init.lua, then CLI scripts, then inline chunks.
// Scripts that fail to load abort the boot.
func (s *Session) boot() error {
	if err := s.engine.Init(); err != nil {
		return err
	}

	if s.config.InitFile != "" {
		if _, err := os.Stat(s.config.InitFile); err == nil {
			if err := s.engine.DoFile(s.config.InitFile); err != nil {
				return fmt.Errorf("init.lua: %w", err)
			}
			s.system("loaded " + s.config.InitFile)
		}
	}

	for _, path := range s.config.UserScripts {
		if err := s.engine.DoFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.system("loaded " + path)
	}

	for i, chunk := range s.config.Chunks {
		name := fmt.Sprintf("chunk%d", i+1)
		if err := s.engine.DoString(name, chunk); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	s.syncStatus()
	return nil
}

// system prints a host message unless the session is quiet.
func (s *Session) system(text string) {
	if !s.config.Quiet {
		s.console.System(text)
	}
}

// syncStatus reports connection changes on the console.
func (s *Session) syncStatus() {
	next := lua.ClientState{Connected: s.manager.IsConnected(), Host: s.manager.Host()}
	if next == s.status {
		return
	}
	prev := s.status
	s.status = next

	if s.config.Quiet {
		return
	}
	if prev.Connected {
		s.console.Status(false, prev.Host)
	}
	if next.Connected {
		s.console.Status(true, next.Host)
	}
}

// shutdown stops timers, tears down the VM and closes the connection.
func (s *Session) shutdown() {
	s.timer.CancelAll()
	s.engine.Close()

	if !s.manager.IsConnected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.manager.Disconnect(ctx); err != nil && !errors.Is(err, transfer.ErrNotConnected) {
		s.logger.Warn("disconnect on shutdown failed", "error", err)
	}
	s.syncStatus()
}

// send queues ev for the loop. Safe from any goroutine.
func (s *Session) send(ev event.Event) {
	s.pending.Add(1)
	s.eventsIn <- ev
}
