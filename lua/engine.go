package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	glua "github.com/yuin/gopher-lua"

	"github.com/drake/ferry/event"
)

// Engine wraps gopher-lua and runs every script entry point as a cooperative
// task. It must only be used from the session loop goroutine.
type Engine struct {
	L *glua.LState

	// Cached table reference
	ferryTable *glua.LTable

	// Services
	ftp    TransferService
	events EventService
	async  AsyncService
	ui     UIService
	timer  TimerService
	sys    SystemService

	// ctx is handed to transfer operations and cancelled on Close
	ctx    context.Context
	cancel context.CancelFunc

	tasks    map[*glua.LState]*task
	nextTask int
	depth    int // > 0 while a task is running

	// Timer callbacks - Engine owns callbacks, Timer service owns IDs and scheduling
	callbacks map[int]*glua.LFunction

	hooks     map[string][]*glua.LFunction
	listeners map[event.ListenerID]event.Kind

	// Last connection state pushed to Lua
	state ClientState
}

// NewEngine creates an Engine with the given services.
func NewEngine(ftp TransferService, events EventService, async AsyncService, ui UIService, timer TimerService, sys SystemService) *Engine {
	return &Engine{
		ftp:       ftp,
		events:    events,
		async:     async,
		ui:        ui,
		timer:     timer,
		sys:       sys,
		tasks:     make(map[*glua.LState]*task),
		callbacks: make(map[int]*glua.LFunction),
		hooks:     make(map[string][]*glua.LFunction),
		listeners: make(map[event.ListenerID]event.Kind),
	}
}

// --- Lifecycle ---

// Init initializes (or re-initializes) the Lua VM with fresh state.
// It registers the API but does NOT load any scripts - that's the caller's job.
func (e *Engine) Init() error {
	e.teardown()

	e.L = glua.NewState()
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.registerAPIs()
	e.syncState()
	return nil
}

// Close cleans up the Lua state. Operations still in flight finish on their
// worker goroutines but never resume a task.
func (e *Engine) Close() {
	e.teardown()
}

func (e *Engine) teardown() {
	if e.cancel != nil {
		e.cancel()
	}

	// Cancel all pending timers and clear callback map
	e.timer.TimerCancelAll()
	e.callbacks = make(map[int]*glua.LFunction)

	for id, kind := range e.listeners {
		e.events.Unlisten(kind, id)
	}
	e.listeners = make(map[event.ListenerID]event.Kind)
	e.hooks = make(map[string][]*glua.LFunction)
	e.tasks = make(map[*glua.LState]*task)
	e.state = ClientState{}

	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

// Idle reports whether no task is running or waiting.
func (e *Engine) Idle() bool {
	return len(e.tasks) == 0
}

// TaskCount returns the number of live tasks.
func (e *Engine) TaskCount() int {
	return len(e.tasks)
}

// OnTimer handles wake-up calls from Session.
// This is the single entry point for all timer callback execution.
func (e *Engine) OnTimer(id int, repeating bool) {
	if e.L == nil {
		return
	}

	fn, ok := e.callbacks[id]
	if !ok {
		return // Cancelled, or belonged to previous Engine instance
	}

	// Clean up one-shot timer callbacks
	if !repeating {
		delete(e.callbacks, id)
	}

	e.report(e.spawn(fmt.Sprintf("timer %d", id), fn))
}

// OnResume starts a listener task for a hub resumption.
func (e *Engine) OnResume(r event.Resumption) {
	if e.L == nil {
		return
	}
	if _, ok := e.listeners[r.ID]; !ok {
		return // Unregistered or from a previous VM
	}
	fn, ok := r.Handle.(*glua.LFunction)
	if !ok {
		return
	}

	payload := e.L.NewTable()
	payload.RawSetString("kind", glua.LString(r.Payload.Kind))
	payload.RawSetString("file", glua.LString(r.Payload.File))
	payload.RawSetString("path", glua.LString(r.Payload.Path))
	payload.RawSetString("id", glua.LString(r.ID))

	e.report(e.spawn("on_"+string(r.Kind), fn, payload))
}

// --- Execution Primitives (Mechanism) ---

// DoString runs a chunk of Lua code as a new task.
// The name parameter is used for stack traces. Errors raised before the task
// first suspends are returned; later ones go to the error hook.
func (e *Engine) DoString(name, code string) error {
	fn, err := e.L.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	return e.spawn(name, fn)
}

// DoFile runs a Lua file as a new task.
// It temporarily adjusts package.path to allow local requires.
func (e *Engine) DoFile(path string) error {
	path = expandTilde(path)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	fn, err := e.L.LoadFile(absPath)
	if err != nil {
		return err
	}

	// Temporarily prepend script's directory to package.path
	pkg := e.L.GetGlobal("package").(*glua.LTable)
	oldPath := e.L.GetField(pkg, "path").String()
	newPath := dir + "/?.lua;" + oldPath
	e.L.SetField(pkg, "path", glua.LString(newPath))

	err = e.spawn(filepath.Base(absPath), fn)

	// Restore original path
	e.L.SetField(pkg, "path", glua.LString(oldPath))

	return err
}

// CallHook starts one task per handler registered with ferry.on(event, fn)
// and returns how many were started.
func (e *Engine) CallHook(name string, args ...string) int {
	if e.L == nil {
		return 0
	}

	handlers := e.hooks[name]
	luaArgs := make([]glua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = glua.LString(arg)
	}

	for _, fn := range handlers {
		err := e.spawn("hook "+name, fn, luaArgs...)
		if err != nil && name == "error" {
			// Never feed a failing error hook back into itself
			e.ui.PrintError(err.Error())
			continue
		}
		e.report(err)
	}
	return len(handlers)
}

// reportError routes a task failure to the error hook, or prints it when no
// script handles errors.
func (e *Engine) reportError(msg string) {
	if e.CallHook("error", msg) == 0 {
		e.ui.PrintError(msg)
	}
}

func (e *Engine) report(err error) {
	if err != nil {
		e.reportError(err.Error())
	}
}

// --- API Registration ---

func (e *Engine) registerAPIs() {
	e.ferryTable = e.L.NewTable()
	e.L.SetGlobal("ferry", e.ferryTable)

	e.registerCoreFuncs()
	e.registerTimerFuncs()
	e.registerStateFuncs()
	e.registerFTPFuncs()
}

// --- Private Helpers ---

// expandTilde expands ~ to home directory.
func expandTilde(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
