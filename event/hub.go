package event

import (
	"sync"

	"github.com/google/uuid"
)

// Kind names an observable completion.
type Kind string

const (
	Uploaded   Kind = "uploaded"
	Downloaded Kind = "downloaded"
)

// Kinds lists every kind a listener can register for.
var Kinds = []Kind{Uploaded, Downloaded}

// ParseKind maps a name to a known Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Payload is delivered to every listener of the fired kind.
type Payload struct {
	Kind Kind
	File string
	Path string
}

// ListenerID identifies one registration.
type ListenerID string

// Handle is an opaque, resumable task reference owned by the scheduler. The
// Hub only hands it back; it never runs it.
type Handle any

// Registration binds a listener handle to a kind.
type Registration struct {
	ID     ListenerID
	Kind   Kind
	Handle Handle
}

// Resumption asks the scheduler to resume one listener with a payload.
type Resumption struct {
	Registration
	Payload Payload
}

// Bridge carries resumptions into the host scheduler. Post must not block
// on the listener running.
type Bridge interface {
	Post(r Resumption)
}

// BridgeFunc adapts a function to Bridge.
type BridgeFunc func(r Resumption)

// Post calls f(r).
func (f BridgeFunc) Post(r Resumption) { f(r) }

// Hub maps event kinds to registered listeners.
type Hub struct {
	mu        sync.Mutex
	bridge    Bridge
	listeners map[Kind][]Registration
}

// NewHub creates a Hub that posts resumptions onto bridge.
func NewHub(bridge Bridge) *Hub {
	return &Hub{
		bridge:    bridge,
		listeners: make(map[Kind][]Registration),
	}
}

// Register appends a listener for kind. Registering the same handle twice
// yields two registrations that both fire.
func (h *Hub) Register(kind Kind, handle Handle) ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := ListenerID(uuid.NewString())
	h.listeners[kind] = append(h.listeners[kind], Registration{ID: id, Kind: kind, Handle: handle})
	return id
}

// Unregister removes one registration. It reports whether it existed.
func (h *Hub) Unregister(kind Kind, id ListenerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	regs := h.listeners[kind]
	for i, r := range regs {
		if r.ID == id {
			// Copy so snapshots taken by an in-progress Publish stay intact
			next := make([]Registration, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			h.listeners[kind] = next
			return true
		}
	}
	return false
}

// Publish posts one resumption per listener of kind, in registration order,
// and returns how many were posted. No listeners is a no-op.
func (h *Hub) Publish(kind Kind, payload Payload) int {
	payload.Kind = kind

	h.mu.Lock()
	snapshot := make([]Registration, len(h.listeners[kind]))
	copy(snapshot, h.listeners[kind])
	h.mu.Unlock()

	for _, r := range snapshot {
		h.bridge.Post(Resumption{Registration: r, Payload: payload})
	}
	return len(snapshot)
}

// Count returns the number of listeners registered for kind.
func (h *Hub) Count(kind Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[kind])
}
