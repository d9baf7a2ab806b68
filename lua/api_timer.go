package lua

import (
	"time"

	glua "github.com/yuin/gopher-lua"
)

// registerTimerFuncs registers ferry.timer.*. Callbacks run as tasks, so they
// may call blocking ftp functions.
func (e *Engine) registerTimerFuncs() {
	timerTable := e.L.NewTable()
	e.L.SetField(e.ferryTable, "timer", timerTable)

	// ferry.timer.after(seconds, fn): One-shot timer, returns ID
	e.L.SetField(timerTable, "after", e.L.NewFunction(func(L *glua.LState) int {
		seconds := L.CheckNumber(1)
		fn := L.CheckFunction(2)

		id := e.timer.TimerAfter(toDuration(seconds))
		e.callbacks[id] = fn

		L.Push(glua.LNumber(id))
		return 1
	}))

	// ferry.timer.every(seconds, fn): Repeating timer, returns ID
	e.L.SetField(timerTable, "every", e.L.NewFunction(func(L *glua.LState) int {
		seconds := L.CheckNumber(1)
		fn := L.CheckFunction(2)
		if seconds <= 0 {
			L.ArgError(1, "interval must be positive")
			return 0
		}

		id := e.timer.TimerEvery(toDuration(seconds))
		e.callbacks[id] = fn

		L.Push(glua.LNumber(id))
		return 1
	}))

	// ferry.timer.cancel(id): Stop a timer, returns whether it existed
	e.L.SetField(timerTable, "cancel", e.L.NewFunction(func(L *glua.LState) int {
		id := int(L.CheckNumber(1))
		_, ok := e.callbacks[id]
		if ok {
			delete(e.callbacks, id)
			e.timer.TimerCancel(id)
		}
		L.Push(glua.LBool(ok))
		return 1
	}))

	// ferry.timer.cancel_all(): Stop all timers
	e.L.SetField(timerTable, "cancel_all", e.L.NewFunction(func(L *glua.LState) int {
		e.callbacks = make(map[int]*glua.LFunction)
		e.timer.TimerCancelAll()
		return 0
	}))
}

// toDuration converts Lua number seconds to Go duration
func toDuration(seconds glua.LNumber) time.Duration {
	return time.Duration(float64(seconds) * float64(time.Second))
}
