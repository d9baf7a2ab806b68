package lua

import (
	"context"
	"log/slog"
	"time"

	"github.com/drake/ferry/event"
	"github.com/drake/ferry/remote"
)

// TransferService runs connection and file operations. Every method except
// IsConnected, Host, CachedList and Profile may block and is only ever called
// off the session loop.
type TransferService interface {
	Connect(ctx context.Context, creds remote.Credentials) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Host() string

	Upload(ctx context.Context, file, dir string) error
	Download(ctx context.Context, file, dir string) error
	List(ctx context.Context, dir string) ([]string, error)
	Delete(ctx context.Context, file, dir string) error
	Rename(ctx context.Context, oldName, newName, dir string) error

	CachedList(dir string) ([]string, bool)
	// Profile resolves a named connection profile from configuration.
	Profile(name string) (remote.Credentials, bool)
}

// EventService registers task handles for completion events.
type EventService interface {
	Listen(kind event.Kind, handle event.Handle) event.ListenerID
	Unlisten(kind event.Kind, id event.ListenerID) bool
}

// AsyncService schedules work on the session loop.
type AsyncService interface {
	// Dispatch queues fn to run on the session loop. Safe from any goroutine.
	Dispatch(fn func())
}

// UIService handles user-visible output.
type UIService interface {
	Print(text string)
	PrintError(text string)
	Log(level slog.Level, msg string)
}

// TimerService handles scheduling.
type TimerService interface {
	TimerAfter(d time.Duration) int
	TimerEvery(d time.Duration) int
	TimerCancel(id int)
	TimerCancelAll()
}

// SystemService handles app lifecycle.
type SystemService interface {
	Quit()
}
