package lua

import (
	"strings"

	glua "github.com/yuin/gopher-lua"

	"github.com/drake/ferry/internal/logging"
)

// registerCoreFuncs registers ferry.* host primitives.
func (e *Engine) registerCoreFuncs() {
	// ferry.print(...): Outputs its arguments, space separated, to the console
	e.L.SetField(e.ferryTable, "print", e.L.NewFunction(func(L *glua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		e.ui.Print(strings.Join(parts, " "))
		return 0
	}))

	// ferry.log(level, msg): Writes to the structured log
	e.L.SetField(e.ferryTable, "log", e.L.NewFunction(func(L *glua.LState) int {
		level := logging.ParseLevel(L.CheckString(1))
		msg := L.CheckString(2)
		e.ui.Log(level, msg)
		return 0
	}))

	// ferry.quit(): Exit once the current task yields
	e.L.SetField(e.ferryTable, "quit", e.L.NewFunction(func(L *glua.LState) int {
		e.sys.Quit()
		return 0
	}))

	// ferry.load(path): Load a Lua script as a new task
	e.L.SetField(e.ferryTable, "load", e.L.NewFunction(func(L *glua.LState) int {
		path := L.CheckString(1)
		if err := e.DoFile(path); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		e.CallHook("loaded", path)
		return 0
	}))

	// ferry.on(event, fn): Register a hook ("connected", "disconnected", "error", "loaded")
	e.L.SetField(e.ferryTable, "on", e.L.NewFunction(func(L *glua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		e.hooks[name] = append(e.hooks[name], fn)
		return 0
	}))
}
