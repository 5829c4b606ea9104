package scripting_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/hearth/internal/game/dice"
	"github.com/cory-johannsen/hearth/internal/scripting"
)

type recordingAPI struct {
	said    []string
	emoted  []string
	present []string
}

func (r *recordingAPI) Say(text string)   { r.said = append(r.said, text) }
func (r *recordingAPI) Emote(text string) { r.emoted = append(r.emoted, text) }
func (r *recordingAPI) Players() []string { return r.present }

func newTestManager(t testing.TB, limit int) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewRoller(&dice.FixedSource{Values: []int{2}}, logger)
	m := scripting.NewManager(roller, logger, limit)
	t.Cleanup(m.Close)
	return m, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func TestManager_CallGreetsPlayers(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	dir := writeTempLua(t, "baker.lua", `
		function greet(self)
			for _, name in ipairs(mud.players()) do
				mud.say("Morning, " .. name .. "!")
			end
			mud.emote("dusts flour from " .. self.name .. "'s apron.")
		end
	`)
	n, err := mgr.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, logs.FilterMessage("behavior scripts loaded").Len())

	api := &recordingAPI{present: []string{"Alice", "Bob"}}
	require.NoError(t, mgr.Call("greet", scripting.Self{ID: 4, Name: "the baker", Room: "bakery"}, api))
	assert.Equal(t, []string{"Morning, Alice!", "Morning, Bob!"}, api.said)
	assert.Equal(t, []string{"dusts flour from the baker's apron."}, api.emoted)
}

func TestManager_SelfTable(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "self.lua", `
		function whoami(self)
			mud.say(self.id .. ":" .. self.name .. "@" .. self.room)
		end
	`)
	_, err := mgr.LoadDir(dir)
	require.NoError(t, err)

	api := &recordingAPI{}
	require.NoError(t, mgr.Call("whoami", scripting.Self{ID: 12, Name: "rat", Room: "cellar"}, api))
	assert.Equal(t, []string{"12:rat@cellar"}, api.said)
}

func TestManager_RandomUsesRoller(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "dice.lua", `
		function roll(self)
			mud.say(tostring(mud.random(6)))
		end
	`)
	_, err := mgr.LoadDir(dir)
	require.NoError(t, err)
	api := &recordingAPI{}
	require.NoError(t, mgr.Call("roll", scripting.Self{}, api))
	assert.Equal(t, []string{"3"}, api.said)
}

func TestManager_RollParsesNotation(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	dir := writeTempLua(t, "roll.lua", `
		function roll(self)
			mud.say(tostring(mud.roll("2d6+1")))
		end
		function badroll(self)
			mud.roll("plenty")
		end
	`)
	_, err := mgr.LoadDir(dir)
	require.NoError(t, err)

	api := &recordingAPI{}
	require.NoError(t, mgr.Call("roll", scripting.Self{}, api))
	assert.Equal(t, []string{"7"}, api.said)
	assert.Equal(t, 1, logs.FilterMessage("dice roll").Len())

	assert.Error(t, mgr.Call("badroll", scripting.Self{}, api))
}

func TestManager_MissingHook(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	err := mgr.Call("nope", scripting.Self{}, &recordingAPI{})
	assert.True(t, errors.Is(err, scripting.ErrNoHook))
}

func TestManager_RuntimeErrorReturned(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "bad.lua", `function broken(self) error("boom") end`)
	_, err := mgr.LoadDir(dir)
	require.NoError(t, err)
	err = mgr.Call("broken", scripting.Self{}, &recordingAPI{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestManager_RunawayHookStopped(t *testing.T) {
	mgr, _ := newTestManager(t, 500)
	dir := writeTempLua(t, "loop.lua", `function spin(self) while true do end end
function fine(self) mud.say("ok") end`)
	_, err := mgr.LoadDir(dir)
	require.NoError(t, err)

	assert.Error(t, mgr.Call("spin", scripting.Self{}, &recordingAPI{}))

	api := &recordingAPI{}
	require.NoError(t, mgr.Call("fine", scripting.Self{}, api), "budget is per call")
	assert.Equal(t, []string{"ok"}, api.said)
}

func TestManager_LoadDirErrorKeepsOldVM(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	good := writeTempLua(t, "good.lua", `function hello(self) mud.say("hi") end`)
	_, err := mgr.LoadDir(good)
	require.NoError(t, err)

	bad := writeTempLua(t, "bad.lua", `function (`)
	_, err = mgr.LoadDir(bad)
	require.Error(t, err)

	api := &recordingAPI{}
	require.NoError(t, mgr.Call("hello", scripting.Self{}, api))
	assert.Equal(t, []string{"hi"}, api.said)
}

func TestManager_LoadDirMissing(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	_, err := mgr.LoadDir(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
