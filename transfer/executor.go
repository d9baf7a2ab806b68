package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/drake/ferry/event"
	"github.com/drake/ferry/remote"
)

// Op names an operation kind.
type Op string

const (
	OpUpload   Op = "upload"
	OpDownload Op = "download"
	OpList     Op = "list"
	OpDelete   Op = "delete"
	OpRename   Op = "rename"
)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithListingCache keeps the last size directory listings for CachedList.
// A size of zero disables the cache.
func WithListingCache(size int) ExecutorOption {
	return func(x *Executor) {
		x.cacheSize = size
	}
}

// WithExecutorLogger sets the logger used for operation messages.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// Executor runs operations against the Manager's connection and publishes
// uploaded/downloaded events on success.
type Executor struct {
	m      *Manager
	hub    *event.Hub
	logger *slog.Logger

	cacheSize int
	listings  *lru.Cache[string, []string]
}

// NewExecutor creates an Executor bound to m. Successful uploads and
// downloads are published on hub.
func NewExecutor(m *Manager, hub *event.Hub, opts ...ExecutorOption) *Executor {
	x := &Executor{
		m:         m,
		hub:       hub,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheSize: 64,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.cacheSize > 0 {
		x.listings, _ = lru.New[string, []string](x.cacheSize)
	}
	return x
}

// Upload stores the local file in the remote directory dir and publishes
// event.Uploaded on success.
func (x *Executor) Upload(ctx context.Context, file, dir string) error {
	err := x.run(ctx, OpUpload, file, dir, func(c remote.Client) error {
		return c.Upload(ctx, file, dir)
	})
	if err != nil {
		return err
	}
	x.forget(dir)
	x.hub.Publish(event.Uploaded, event.Payload{File: file, Path: dir})
	return nil
}

// Download fetches dir/file and publishes event.Downloaded on success.
func (x *Executor) Download(ctx context.Context, file, dir string) error {
	err := x.run(ctx, OpDownload, file, dir, func(c remote.Client) error {
		return c.Download(ctx, file, dir)
	})
	if err != nil {
		return err
	}
	x.hub.Publish(event.Downloaded, event.Payload{File: file, Path: dir})
	return nil
}

// List returns the entry names of dir in server order. An empty directory
// yields an empty, non-nil slice.
func (x *Executor) List(ctx context.Context, dir string) ([]string, error) {
	var names []string
	err := x.run(ctx, OpList, "", dir, func(c remote.Client) error {
		var err error
		names, err = c.List(ctx, dir)
		return err
	})
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}

	if x.listings != nil {
		cached := make([]string, len(names))
		copy(cached, names)
		x.listings.Add(x.cacheKey(dir), cached)
	}
	return names, nil
}

// Delete removes dir/file. No event is associated with it.
func (x *Executor) Delete(ctx context.Context, file, dir string) error {
	err := x.run(ctx, OpDelete, file, dir, func(c remote.Client) error {
		return c.Delete(ctx, file, dir)
	})
	if err == nil {
		x.forget(dir)
	}
	return err
}

// Rename renames dir/oldName to dir/newName. No event is associated with it.
func (x *Executor) Rename(ctx context.Context, oldName, newName, dir string) error {
	err := x.run(ctx, OpRename, oldName, dir, func(c remote.Client) error {
		return c.Rename(ctx, oldName, newName, dir)
	})
	if err == nil {
		x.forget(dir)
	}
	return err
}

// CachedList returns the last listing fetched for dir on the current host
// without touching the network. Uploads, deletes and renames in dir evict it.
func (x *Executor) CachedList(dir string) ([]string, bool) {
	if x.listings == nil || !x.m.IsConnected() {
		return nil, false
	}
	names, ok := x.listings.Get(x.cacheKey(dir))
	if !ok {
		return nil, false
	}
	out := make([]string, len(names))
	copy(out, names)
	return out, true
}

// CachedListings returns how many listings are cached.
func (x *Executor) CachedListings() int {
	if x.listings == nil {
		return 0
	}
	return x.listings.Len()
}

// run checks the connected precondition, waits for the slot and runs fn with
// the borrowed client. Transport loss drops the connection.
func (x *Executor) run(ctx context.Context, op Op, file, dir string, fn func(remote.Client) error) error {
	if !x.m.IsConnected() {
		return ErrNotConnected
	}

	release, err := x.m.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	// Re-check under the slot: a disconnect may have run while we waited
	client, ok := x.m.borrow()
	if !ok {
		return ErrNotConnected
	}

	x.logger.Debug("operation", "op", op, "file", file, "path", dir)
	if err := fn(client); err != nil {
		terr := &TransferError{Op: op, File: file, Path: dir, Err: err}
		if errors.Is(err, remote.ErrConnLost) {
			terr.Disconnected = true
			x.m.drop("connection lost")
		}
		x.logger.Warn("operation failed", "op", op, "file", file, "path", dir, "error", err)
		return terr
	}
	return nil
}

func (x *Executor) forget(dir string) {
	if x.listings != nil {
		x.listings.Remove(x.cacheKey(dir))
	}
}

func (x *Executor) cacheKey(dir string) string {
	if dir == "" {
		dir = "/"
	}
	return x.m.Host() + "\x00" + path.Clean(dir)
}
