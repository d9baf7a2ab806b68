package session

import (
	"context"

	"github.com/drake/ferry/remote"
)

// Connect implements lua.TransferService.
func (s *Session) Connect(ctx context.Context, creds remote.Credentials) error {
	return s.manager.Connect(ctx, creds)
}

// Disconnect implements lua.TransferService.
func (s *Session) Disconnect(ctx context.Context) error {
	return s.manager.Disconnect(ctx)
}

// IsConnected implements lua.TransferService.
func (s *Session) IsConnected() bool { return s.manager.IsConnected() }

// Host implements lua.TransferService.
func (s *Session) Host() string { return s.manager.Host() }

// Upload implements lua.TransferService.
func (s *Session) Upload(ctx context.Context, file, dir string) error {
	return s.executor.Upload(ctx, file, dir)
}

// Download implements lua.TransferService.
func (s *Session) Download(ctx context.Context, file, dir string) error {
	return s.executor.Download(ctx, file, dir)
}

// List implements lua.TransferService.
func (s *Session) List(ctx context.Context, dir string) ([]string, error) {
	return s.executor.List(ctx, dir)
}

// Delete implements lua.TransferService.
func (s *Session) Delete(ctx context.Context, file, dir string) error {
	return s.executor.Delete(ctx, file, dir)
}

// Rename implements lua.TransferService.
func (s *Session) Rename(ctx context.Context, oldName, newName, dir string) error {
	return s.executor.Rename(ctx, oldName, newName, dir)
}

// CachedList implements lua.TransferService.
func (s *Session) CachedList(dir string) ([]string, bool) {
	return s.executor.CachedList(dir)
}

// Profile implements lua.TransferService.
func (s *Session) Profile(name string) (remote.Credentials, bool) {
	if s.config.Profiles == nil {
		return remote.Credentials{}, false
	}
	return s.config.Profiles.Profile(name)
}
