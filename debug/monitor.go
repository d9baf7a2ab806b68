// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/drake/ferry/session"
)

// Enabled returns true if debug mode is active (FERRY_DEBUG=1).
func Enabled() bool {
	return os.Getenv("FERRY_DEBUG") == "1"
}

// StatsSource is implemented by *session.Session.
type StatsSource interface {
	Stats() session.Stats
}

// Monitor periodically logs session statistics when debug mode is enabled.
type Monitor struct {
	source   StatsSource
	interval time.Duration
	logger   *slog.Logger
}

// NewMonitor creates a new monitor for the given session.
// If debug mode is not enabled, returns nil.
func NewMonitor(source StatsSource, logger *slog.Logger) *Monitor {
	if !Enabled() {
		return nil
	}
	return newMonitor(source, logger, 5*time.Second)
}

func newMonitor(source StatsSource, logger *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{
		source:   source,
		interval: interval,
		logger:   logger.With("component", "monitor"),
	}
}

// Start begins the monitoring loop in a goroutine. It stops when ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil {
		return
	}
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug("monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("monitor stopped")
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	s := m.source.Stats()

	m.logger.Info("stats",
		slog.Uint64("events", s.EventsProcessed),
		slog.Int64("event_queue", s.EventQueueLen),
		slog.Int("timer_queue", s.TimerQueueLen),
		slog.Int("timer_queue_cap", s.TimerQueueCap),
		slog.Int("goroutines", s.Goroutines),
		slog.Group("transfer",
			slog.Bool("connected", s.Transfer.Connected),
			slog.String("host", s.Transfer.Host),
			slog.Duration("uptime", s.Transfer.Uptime.Round(time.Second)),
			slog.Int("cached_listings", s.Transfer.CachedListings),
		),
		slog.Int("tasks", s.Lua.Tasks),
		slog.Group("timers",
			slog.Int("active", s.Timer.ActiveTimers),
			slog.Uint64("fired", s.Timer.Fired),
		),
	)
}
