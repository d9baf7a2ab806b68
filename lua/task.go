package lua

import (
	"context"
	"fmt"

	glua "github.com/yuin/gopher-lua"
)

// task is one cooperative Lua thread. Tasks only run on the session loop;
// a task that calls a blocking API yields until the loop resumes it with the
// result.
type task struct {
	id   int
	name string
	co   *glua.LState
	fn   *glua.LFunction

	// waiting is set while a blocking operation is in flight
	waiting bool
}

// finisher runs on the loop and turns a worker result into Lua return values.
type finisher func(L *glua.LState) []glua.LValue

// spawn creates a task for fn and starts it. At the top of the loop the task
// runs immediately and errors raised before its first suspension are
// returned; from inside another task it is queued for the next loop turn.
func (e *Engine) spawn(name string, fn *glua.LFunction, args ...glua.LValue) error {
	co, _ := e.L.NewThread()
	e.nextTask++
	t := &task{id: e.nextTask, name: name, co: co, fn: fn}
	e.tasks[co] = t

	if e.depth > 0 {
		e.async.Dispatch(func() { e.report(e.step(t, args...)) })
		return nil
	}
	return e.step(t, args...)
}

// step resumes t until it finishes or suspends.
func (e *Engine) step(t *task, args ...glua.LValue) error {
	if e.L == nil || e.tasks[t.co] != t {
		return nil // Engine reset since the task was queued
	}

	e.depth++
	st, err, _ := e.L.Resume(t.co, t.fn, args...)
	e.depth--

	switch st {
	case glua.ResumeYield:
		if !t.waiting {
			// Plain coroutine.yield: give other work a turn, then continue
			e.async.Dispatch(func() { e.report(e.step(t)) })
		}
		return nil
	case glua.ResumeError:
		delete(e.tasks, t.co)
		return fmt.Errorf("%s: %w", t.name, err)
	default:
		delete(e.tasks, t.co)
		return nil
	}
}

// suspend parks the task running on L while work executes on its own
// goroutine. When work returns, its finisher runs on the loop and the values
// it produces become the results of the Lua call.
func (e *Engine) suspend(L *glua.LState, op string, work func(ctx context.Context) finisher) int {
	t, ok := e.tasks[L]
	if !ok || t.waiting {
		L.RaiseError("%s must be called from a task, not the main chunk or a nested coroutine", op)
		return 0
	}

	t.waiting = true
	ctx := e.ctx
	go func() {
		finish := work(ctx)
		e.async.Dispatch(func() {
			if e.L == nil || e.tasks[t.co] != t {
				return
			}
			t.waiting = false
			results := finish(t.co)
			e.syncState()
			e.report(e.step(t, results...))
		})
	}()

	return L.Yield()
}

// okOrError is the finisher for operations without a value: true on success,
// nil plus the message on failure.
func okOrError(err error) finisher {
	return func(L *glua.LState) []glua.LValue {
		if err != nil {
			return []glua.LValue{glua.LNil, glua.LString(err.Error())}
		}
		return []glua.LValue{glua.LTrue}
	}
}
