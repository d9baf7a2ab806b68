package session

import "github.com/drake/ferry/event"

// Listen implements lua.EventService.
func (s *Session) Listen(kind event.Kind, handle event.Handle) event.ListenerID {
	return s.hub.Register(kind, handle)
}

// Unlisten implements lua.EventService.
func (s *Session) Unlisten(kind event.Kind, id event.ListenerID) bool {
	return s.hub.Unregister(kind, id)
}

// Post implements event.Bridge. Resumptions queue behind whatever the loop
// already holds, in the order the Hub posts them.
func (s *Session) Post(r event.Resumption) {
	s.send(event.Event{Type: event.Resume, Resumption: &r})
}
