package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by every operation attempted without an
	// active connection, and by Disconnect when there is nothing to close.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected is returned by Connect when a connection exists and
	// the manager was not built with WithReplace.
	ErrAlreadyConnected = errors.New("already connected")
)

// ConnectError reports a failed handshake. State is left disconnected.
type ConnectError struct {
	Host string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Host, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransferError reports a failed operation. The connection stays open unless
// Disconnected is set, which means the transport was lost and the session
// dropped it.
type TransferError struct {
	Op           Op
	File         string
	Path         string
	Err          error
	Disconnected bool
}

func (e *TransferError) Error() string {
	target := e.Path
	if e.File != "" {
		target = e.File + " @ " + e.Path
	}
	msg := fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
	if e.Disconnected {
		msg += " (disconnected)"
	}
	return msg
}

func (e *TransferError) Unwrap() error { return e.Err }
