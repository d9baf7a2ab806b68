package event

// Type identifies what a loop message carries.
type Type int

const (
	AsyncResult Type = iota // Off-loop work completion dispatched onto the session loop
	Resume                  // A listener resumption posted by the Hub
	SystemControl
)

// Control action constants
const (
	ActionQuit = "quit"
)

// ControlOp contains control operation details
type ControlOp struct {
	Action string // Use Action* constants
}

// Event is the universal packet consumed by the session loop.
type Event struct {
	Type       Type
	Callback   func()      // For AsyncResult
	Resumption *Resumption // For Resume
	Control    ControlOp   // For SystemControl
}
