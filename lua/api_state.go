package lua

import glua "github.com/yuin/gopher-lua"

// ClientState holds the current client state for Lua access.
type ClientState struct {
	Connected bool
	Host      string
}

// registerStateFuncs creates the ferry.state table.
// This table is read-only from Lua's perspective - Go pushes updates.
func (e *Engine) registerStateFuncs() {
	stateTable := e.L.NewTable()
	e.L.SetField(e.ferryTable, "state", stateTable)

	// Initialize with defaults
	e.L.SetField(stateTable, "connected", glua.LFalse)
	e.L.SetField(stateTable, "host", glua.LString(""))
}

// UpdateState pushes new client state to the Lua ferry.state table.
func (e *Engine) UpdateState(state ClientState) {
	if e.L == nil || e.ferryTable == nil {
		return
	}

	stateTable := e.L.GetField(e.ferryTable, "state")
	if stateTable == glua.LNil {
		return
	}

	t := stateTable.(*glua.LTable)
	e.L.SetField(t, "connected", glua.LBool(state.Connected))
	e.L.SetField(t, "host", glua.LString(state.Host))
}

// syncState compares the transfer service with the last pushed state and, on
// change, updates ferry.state and fires the connected/disconnected hooks.
func (e *Engine) syncState() {
	next := ClientState{Connected: e.ftp.IsConnected(), Host: e.ftp.Host()}
	if next == e.state {
		return
	}
	prev := e.state
	e.state = next
	e.UpdateState(next)

	if prev.Connected && (!next.Connected || prev.Host != next.Host) {
		e.CallHook("disconnected", prev.Host)
	}
	if next.Connected {
		e.CallHook("connected", next.Host)
	}
}
