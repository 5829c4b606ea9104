package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/game/dice"
)

// ErrNoHook is returned by Call when no Lua function has the hook's name.
var ErrNoHook = errors.New("scripting: hook not defined")

// Self describes the object a hook runs for. It is passed to the hook as a
// table with fields id, name and room.
type Self struct {
	ID   uint64
	Name string
	Room string
}

// API is what a running hook may do to the world.
type API interface {
	// Say makes the object speak to its room.
	Say(text string)
	// Emote shows an action by the object to its room.
	Emote(text string)
	// Players lists the names of the active players in the object's room.
	Players() []string
}

// Manager owns one sandboxed LState holding every loaded behavior script.
//
// Manager is safe for concurrent use; calls are serialized.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	current   API
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger
}

// NewManager creates a Manager with an empty VM.
//
// Precondition: roller and logger must be non-nil; instLimit >= 0 (0 uses
// DefaultInstructionLimit).
// Postcondition: Returns a non-nil Manager whose VM defines the mud table.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	m := &Manager{
		instLimit: instLimit,
		roller:    roller,
		logger:    logger,
	}
	m.L = m.newState()
	return m
}

func (m *Manager) newState() *lua.LState {
	L := NewSandboxedState()
	m.RegisterModules(L)
	return L
}

// LoadDir replaces the VM with a fresh one that has executed every *.lua file
// in scriptDir in lexicographic order. On error the previous VM is kept.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Returns the number of files loaded.
func (m *Manager) LoadDir(scriptDir string) (int, error) {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := m.newState()
	for _, path := range luaFiles {
		release := Limit(L, m.instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return 0, fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	old := m.L
	m.L = L
	m.mu.Unlock()
	old.Close()

	m.logger.Info("behavior scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return len(luaFiles), nil
}

// Call runs the global Lua function hook with a table describing self. The
// mud.* functions act on api for the duration of the call.
//
// Postcondition: Returns ErrNoHook when hook is undefined, a wrapped Lua error
// on runtime failure or instruction-limit exhaustion, nil otherwise.
func (m *Manager) Call(hook string, self Self, api API) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn := m.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("%w: %q", ErrNoHook, hook)
	}

	tbl := m.L.NewTable()
	tbl.RawSetString("id", lua.LNumber(self.ID))
	tbl.RawSetString("name", lua.LString(self.Name))
	tbl.RawSetString("room", lua.LString(self.Room))

	m.current = api
	release := Limit(m.L, m.instLimit)
	err := m.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, tbl)
	release()
	m.current = nil
	if err != nil {
		return fmt.Errorf("scripting: hook %q: %w", hook, err)
	}
	return nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}
