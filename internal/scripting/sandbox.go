// Package scripting runs sandboxed GopherLua behavior hooks for world objects.
// It has no dependency on the world packages; everything a script may touch
// is passed in through the API interface on each call.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one hook call when none is
// configured.
const DefaultInstructionLimit = 100_000

// safeLibs are the only standard libraries a script sees.
var safeLibs = []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath}

// blockedGlobals are base functions that reach the filesystem, compile new
// code or touch the collector.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// opBudget cancels itself once Done has been polled more than its budget.
// The VM polls Done once per opcode while a context is set.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// NewSandboxedState returns an LState with only safeLibs opened and
// blockedGlobals removed. No budget is attached; wrap each call in Limit.
// The caller must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range safeLibs {
		open(L)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// Limit gives L a fresh budget of ops opcodes, or DefaultInstructionLimit
// when ops <= 0. Code that exceeds it fails with a cancellation error. The
// returned func removes the budget.
func Limit(L *lua.LState, ops int) (release func()) {
	if ops <= 0 {
		ops = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(ops))
	L.SetContext(b)
	return func() {
		L.RemoveContext()
		cancel()
	}
}
