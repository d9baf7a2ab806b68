package session

import (
	"context"
	"log/slog"
)

// Print implements lua.UIService.
func (s *Session) Print(text string) {
	s.console.Print(text)
}

// PrintError implements lua.UIService.
func (s *Session) PrintError(text string) {
	s.console.PrintError(text)
}

// Log implements lua.UIService.
func (s *Session) Log(level slog.Level, msg string) {
	s.scripts.Log(context.Background(), level, msg)
}
