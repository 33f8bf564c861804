// Package hooks runs the user's Lua script on document lifecycle events.
//
// hooks.lua in the config directory may define any of
//
//	function onLoad(path) end
//	function onSave(path) end
//	function onClose(path) end
//
// and can call scribe.log(msg) to write to the debug log.
package hooks

import (
	"errors"
	"log"
	"os"

	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"

	"github.com/ellery/scribe/internal/signal"
)

// FileName is the script looked up in the config directory
const FileName = "hooks.lua"

const (
	OnLoad  = "onLoad"
	OnSave  = "onSave"
	OnClose = "onClose"
)

// Document is what the runtime follows. *document.Buffer implements it.
type Document interface {
	Location() string
	LoadedSignal() *signal.Signal[error]
	SavedSignal() *signal.Signal[error]
}

// api is exposed to scripts as the global "scribe"
type api struct{}

func (api) Log(msg string) { log.Printf("SCRIBE Lua: %s", msg) }

// Runtime owns one Lua state. It is not safe for concurrent use; all
// calls happen on the loop goroutine.
type Runtime struct {
	L *lua.LState
}

// Load runs the script at path. A missing file gives a runtime whose
// hooks do nothing.
func Load(path string) (*Runtime, error) {
	r := &Runtime{}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	L := lua.NewState()
	scribe := L.NewTable()
	L.SetField(scribe, "log", luar.New(L, api{}.Log))
	L.SetGlobal("scribe", scribe)
	if err := L.DoFile(path); err != nil {
		L.Close()
		return r, err
	}
	log.Printf("SCRIBE Hooks: loaded %s", path)
	r.L = L
	return r, nil
}

// Close releases the Lua state
func (r *Runtime) Close() {
	if r.L != nil {
		r.L.Close()
		r.L = nil
	}
}

// Has reports whether the script defines fn
func (r *Runtime) Has(fn string) bool {
	if r.L == nil {
		return false
	}
	_, ok := r.L.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Run calls the global function fn with args converted through luar. An
// undefined function is not an error.
func (r *Runtime) Run(fn string, args ...interface{}) error {
	if r.L == nil {
		return nil
	}
	f, ok := r.L.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return nil
	}
	values := make([]lua.LValue, len(args))
	for i, a := range args {
		values[i] = luar.New(r.L, a)
	}
	err := r.L.CallByParam(lua.P{Fn: f, NRet: 0, Protect: true}, values...)
	if err != nil {
		log.Printf("SCRIBE Hooks: %s failed: %v", fn, err)
	}
	return err
}

// Attach runs onLoad and onSave after each successful load or save of
// doc. The returned function disconnects the hooks and runs onClose.
func (r *Runtime) Attach(doc Document) func() {
	loaded := doc.LoadedSignal().Connect(func(err error) {
		if err == nil && doc.Location() != "" {
			r.Run(OnLoad, doc.Location())
		}
	})
	saved := doc.SavedSignal().Connect(func(err error) {
		if err == nil {
			r.Run(OnSave, doc.Location())
		}
	})
	return func() {
		doc.LoadedSignal().Disconnect(loaded)
		doc.SavedSignal().Disconnect(saved)
		if loc := doc.Location(); loc != "" {
			r.Run(OnClose, loc)
		}
	}
}
