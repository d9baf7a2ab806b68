package lua

import (
	"context"

	glua "github.com/yuin/gopher-lua"

	"github.com/drake/ferry/event"
	"github.com/drake/ferry/remote"
)

// DefaultProfile is used by ftp.connect() without arguments.
const DefaultProfile = "default"

// registerFTPFuncs creates the global ftp table.
//
// Blocking functions suspend the calling task and return true (or a value)
// on success, nil plus an error message on failure.
func (e *Engine) registerFTPFuncs() {
	ftpTable := e.L.NewTable()
	e.L.SetGlobal("ftp", ftpTable)

	// ftp.connect(host, user, secret) | ftp.connect(profile) | ftp.connect()
	e.L.SetField(ftpTable, "connect", e.L.NewFunction(func(L *glua.LState) int {
		var creds remote.Credentials
		if L.GetTop() >= 2 {
			creds = remote.Credentials{
				Host:   L.CheckString(1),
				User:   L.CheckString(2),
				Secret: L.OptString(3, ""),
			}
		} else {
			name := L.OptString(1, DefaultProfile)
			var ok bool
			if creds, ok = e.ftp.Profile(name); !ok {
				L.Push(glua.LNil)
				L.Push(glua.LString("unknown profile: " + name))
				return 2
			}
		}

		return e.suspend(L, "ftp.connect", func(ctx context.Context) finisher {
			return okOrError(e.ftp.Connect(ctx, creds))
		})
	}))

	// ftp.disconnect()
	e.L.SetField(ftpTable, "disconnect", e.L.NewFunction(func(L *glua.LState) int {
		return e.suspend(L, "ftp.disconnect", func(ctx context.Context) finisher {
			return okOrError(e.ftp.Disconnect(ctx))
		})
	}))

	// ftp.is_connected(): never suspends
	e.L.SetField(ftpTable, "is_connected", e.L.NewFunction(func(L *glua.LState) int {
		L.Push(glua.LBool(e.ftp.IsConnected()))
		return 1
	}))

	// ftp.upload(file, path)
	e.L.SetField(ftpTable, "upload", e.L.NewFunction(func(L *glua.LState) int {
		file, dir := L.CheckString(1), L.OptString(2, "/")
		return e.suspend(L, "ftp.upload", func(ctx context.Context) finisher {
			return okOrError(e.ftp.Upload(ctx, file, dir))
		})
	}))

	// ftp.download(file, path)
	e.L.SetField(ftpTable, "download", e.L.NewFunction(func(L *glua.LState) int {
		file, dir := L.CheckString(1), L.OptString(2, "/")
		return e.suspend(L, "ftp.download", func(ctx context.Context) finisher {
			return okOrError(e.ftp.Download(ctx, file, dir))
		})
	}))

	// ftp.list(path): array of entry names in server order
	e.L.SetField(ftpTable, "list", e.L.NewFunction(func(L *glua.LState) int {
		dir := L.OptString(1, "/")
		return e.suspend(L, "ftp.list", func(ctx context.Context) finisher {
			names, err := e.ftp.List(ctx, dir)
			if err != nil {
				return okOrError(err)
			}
			return func(L *glua.LState) []glua.LValue {
				return []glua.LValue{stringList(L, names)}
			}
		})
	}))

	// ftp.cached_list(path): last listing of path, or nil; never suspends
	e.L.SetField(ftpTable, "cached_list", e.L.NewFunction(func(L *glua.LState) int {
		names, ok := e.ftp.CachedList(L.OptString(1, "/"))
		if !ok {
			L.Push(glua.LNil)
			return 1
		}
		L.Push(stringList(L, names))
		return 1
	}))

	// ftp.delete(file, path)
	e.L.SetField(ftpTable, "delete", e.L.NewFunction(func(L *glua.LState) int {
		file, dir := L.CheckString(1), L.OptString(2, "/")
		return e.suspend(L, "ftp.delete", func(ctx context.Context) finisher {
			return okOrError(e.ftp.Delete(ctx, file, dir))
		})
	}))

	// ftp.rename(old, new, path)
	e.L.SetField(ftpTable, "rename", e.L.NewFunction(func(L *glua.LState) int {
		oldName, newName, dir := L.CheckString(1), L.CheckString(2), L.OptString(3, "/")
		return e.suspend(L, "ftp.rename", func(ctx context.Context) finisher {
			return okOrError(e.ftp.Rename(ctx, oldName, newName, dir))
		})
	}))

	// ftp.on_uploaded(fn) / ftp.on_downloaded(fn): returns a listener id
	e.L.SetField(ftpTable, "on_uploaded", e.L.NewFunction(func(L *glua.LState) int {
		return e.listen(L, event.Uploaded, L.CheckFunction(1))
	}))
	e.L.SetField(ftpTable, "on_downloaded", e.L.NewFunction(func(L *glua.LState) int {
		return e.listen(L, event.Downloaded, L.CheckFunction(1))
	}))

	// ftp.on(kind, fn)
	e.L.SetField(ftpTable, "on", e.L.NewFunction(func(L *glua.LState) int {
		kind := e.checkKind(L, 1)
		return e.listen(L, kind, L.CheckFunction(2))
	}))

	// ftp.off(kind, id): returns whether the listener existed
	e.L.SetField(ftpTable, "off", e.L.NewFunction(func(L *glua.LState) int {
		kind := e.checkKind(L, 1)
		id := event.ListenerID(L.CheckString(2))
		ok := e.events.Unlisten(kind, id)
		if ok {
			delete(e.listeners, id)
		}
		L.Push(glua.LBool(ok))
		return 1
	}))
}

func (e *Engine) listen(L *glua.LState, kind event.Kind, fn *glua.LFunction) int {
	id := e.events.Listen(kind, fn)
	e.listeners[id] = kind
	L.Push(glua.LString(id))
	return 1
}

func (e *Engine) checkKind(L *glua.LState, n int) event.Kind {
	kind, ok := event.ParseKind(L.CheckString(n))
	if !ok {
		L.ArgError(n, "unknown event kind")
	}
	return kind
}

func stringList(L *glua.LState, items []string) *glua.LTable {
	t := L.CreateTable(len(items), 0)
	for _, s := range items {
		t.Append(glua.LString(s))
	}
	return t
}
