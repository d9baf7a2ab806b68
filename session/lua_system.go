package session

import "github.com/drake/ferry/event"

// Dispatch implements lua.AsyncService.
func (s *Session) Dispatch(fn func()) {
	s.send(event.Event{Type: event.AsyncResult, Callback: fn})
}

// Quit implements lua.SystemService. The loop stops once the calling task
// yields or finishes.
func (s *Session) Quit() {
	s.send(event.Event{
		Type:    event.SystemControl,
		Control: event.ControlOp{Action: event.ActionQuit},
	})
}
