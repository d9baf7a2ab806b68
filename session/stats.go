package session

import (
	"runtime"
	"time"
)

// Stats is a point-in-time snapshot for monitoring. Safe to call from any
// goroutine.
type Stats struct {
	EventsProcessed uint64
	EventQueueLen   int64
	TimerQueueLen   int
	TimerQueueCap   int
	Goroutines      int

	Transfer TransferStats
	Lua      LuaStats
	Timer    TimerStats
}

type TransferStats struct {
	Connected      bool
	Host           string
	Uptime         time.Duration
	CachedListings int
}

type LuaStats struct {
	Tasks int
}

type TimerStats struct {
	ActiveTimers int
	Fired        uint64
}

// Stats returns current session statistics.
func (s *Session) Stats() Stats {
	return Stats{
		EventsProcessed: s.processed.Load(),
		EventQueueLen:   s.pending.Load(),
		TimerQueueLen:   len(s.timerEvents),
		TimerQueueCap:   cap(s.timerEvents),
		Goroutines:      runtime.NumGoroutine(),
		Transfer: TransferStats{
			Connected:      s.manager.IsConnected(),
			Host:           s.manager.Host(),
			Uptime:         s.manager.Uptime(),
			CachedListings: s.executor.CachedListings(),
		},
		Lua: LuaStats{
			Tasks: int(s.tasks.Load()),
		},
		Timer: TimerStats{
			ActiveTimers: s.timer.Active(),
			Fired:        s.timer.Fired(),
		},
	}
}
