package scripting

import lua "github.com/yuin/gopher-lua"

// RegisterModules registers the mud.* table into L. The functions act on the
// API of the hook call in progress and do nothing outside one.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: mud global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	mud := L.NewTable()
	L.SetFuncs(mud, map[string]lua.LGFunction{
		"say":     m.luaSay,
		"emote":   m.luaEmote,
		"players": m.luaPlayers,
		"random":  m.luaRandom,
		"roll":    m.luaRoll,
	})
	L.SetGlobal("mud", mud)
}

func (m *Manager) luaSay(L *lua.LState) int {
	if m.current != nil {
		m.current.Say(L.CheckString(1))
	}
	return 0
}

func (m *Manager) luaEmote(L *lua.LState) int {
	if m.current != nil {
		m.current.Emote(L.CheckString(1))
	}
	return 0
}

func (m *Manager) luaPlayers(L *lua.LState) int {
	t := L.NewTable()
	if m.current != nil {
		for _, name := range m.current.Players() {
			t.Append(lua.LString(name))
		}
	}
	L.Push(t)
	return 1
}

// luaRandom implements mud.random(n): a uniform integer in [1, n].
func (m *Manager) luaRandom(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 1 {
		L.ArgError(1, "n must be >= 1")
		return 0
	}
	L.Push(lua.LNumber(m.roller.Intn(n) + 1))
	return 1
}

// luaRoll implements mud.roll(notation), e.g. mud.roll("2d6+1"). A malformed
// expression raises a Lua error.
func (m *Manager) luaRoll(L *lua.LState) int {
	o, err := m.roller.RollString(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	L.Push(lua.LNumber(o.Total()))
	return 1
}
