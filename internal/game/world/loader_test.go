package world

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/hearth/internal/game/entity"
)

const validZoneYAML = `
zone:
  id: village
  name: "Oakvale"
  description: "A quiet village."
  start_room: square
  rooms:
    - id: square
      name: "Village Square"
      description: |
        Cobbles and a dry fountain.
      exits:
        - direction: North
          to: bakery
        - direction: down
          to: cellar
    - id: bakery
      name: "Bakery"
      description: "Warm and floury."
      exits:
        - direction: south
          to: square
    - id: cellar
      name: "Cellar"
      description: "Damp."
      exits:
        - direction: up
          to: square
  templates:
    - ref: baker
      kind: npc
      name: the fat baker
      mobile:
        think_interval: 5s
        behaviors:
          - chance: 1
            action: say
            text: "Fresh bread!"
      npc:
        dialogue: ["Buy a loaf?"]
    - ref: rat
      kind: enemy
      name: a cellar rat
      mobile:
        think_interval: 2s
        rooms: [cellar]
      fighter:
        max_hp: 6
        stats: {strength: 2, defense: 1, agility: 6}
      enemy:
        xp_reward: 10
        gold_reward: 2
    - ref: fountain
      kind: object
      name: dry fountain
      heavy: true
      read_text: "Donated by the guild."
  placements:
    - template: baker
      room: bakery
    - template: fountain
      room: square
  spawners:
    - template: rat
      room: cellar
      interval: 30s
`

func TestLoadZoneFromBytes_Valid(t *testing.T) {
	zone, err := LoadZoneFromBytes([]byte(validZoneYAML))
	require.NoError(t, err)

	assert.Equal(t, "village", zone.ID)
	assert.Equal(t, "square", zone.StartRoom)
	assert.Len(t, zone.Rooms, 3)

	square := zone.Rooms["square"]
	assert.Equal(t, "Village Square", square.Name)
	assert.Equal(t, "Cobbles and a dry fountain.", square.Description)
	exit, ok := square.Exit("north")
	require.True(t, ok, "direction names are lower-cased")
	assert.Equal(t, "bakery", exit.To)

	rat := zone.Templates["rat"]
	require.NotNil(t, rat)
	assert.Equal(t, 6, rat.Fighter.HP, "hp defaults to max_hp")
	assert.Equal(t, 1, rat.Fighter.Level, "level defaults to 1")
	assert.Equal(t, 2*time.Second, rat.Mobile.ThinkInterval)
	assert.Equal(t, []string{"cellar"}, rat.Mobile.Rooms)

	require.Len(t, zone.Placements, 3)
	baker := zone.Placements[0]
	assert.Equal(t, "bakery", baker.RoomID)
	assert.Equal(t, entity.ActionSay, baker.Mobile.Behaviors[0].Action)

	spawner := zone.Placements[2]
	assert.Equal(t, entity.KindSpawner, spawner.Kind)
	assert.True(t, spawner.Invisible)
	assert.Equal(t, 30*time.Second, spawner.Spawner.Interval)
	assert.Equal(t, "cellar", spawner.Spawner.Template.RoomID)
}

func TestLoadZoneFromBytes_PlacementsAreCopies(t *testing.T) {
	zone, err := LoadZoneFromBytes([]byte(validZoneYAML))
	require.NoError(t, err)
	zone.Placements[0].Name = "changed"
	assert.Equal(t, "the fat baker", zone.Templates["baker"].Name)
}

func TestLoadZoneFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte("not: [valid yaml"))
	assert.Error(t, err)
}

func TestLoadZoneFromBytes_UnknownTemplate(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(`
zone:
  id: z
  name: Z
  start_room: a
  rooms:
    - id: a
      name: A
  placements:
    - template: ghost
      room: a
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")
}

func TestLoadZoneFromBytes_UnknownPlacementRoom(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(`
zone:
  id: z
  name: Z
  start_room: a
  rooms:
    - id: a
      name: A
  templates:
    - ref: rock
      kind: object
      name: rock
  placements:
    - template: rock
      room: nowhere
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown room")
}

func TestLoadZoneFromBytes_InvalidTemplate(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(`
zone:
  id: z
  name: Z
  rooms:
    - id: a
      name: A
  templates:
    - ref: wolf
      kind: enemy
      name: wolf
`))
	assert.Error(t, err)
}

func TestLoadZonesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "village.yaml"), []byte(validZoneYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	zones, err := LoadZonesFromDir(dir)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "village", zones[0].ID)
}

func TestLoadZonesFromDir_Empty(t *testing.T) {
	_, err := LoadZonesFromDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadZonesFromDir_Missing(t *testing.T) {
	_, err := LoadZonesFromDir("/nonexistent/world")
	assert.Error(t, err)
}

func TestLoadZones_FSOrderAndExtensions(t *testing.T) {
	moor := "zone:\n  id: moor\n  name: The Moor\n  rooms:\n    - id: bog\n      name: A Bog\n"
	fsys := fstest.MapFS{
		"b_village.yml": {Data: []byte(validZoneYAML)},
		"a_moor.yaml":   {Data: []byte(moor)},
		"README.md":     {Data: []byte("# zones")},
		"drafts/x.yaml": {Data: []byte("not: [valid")},
	}
	zones, err := LoadZones(fsys)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "moor", zones[0].ID)
	assert.Equal(t, "village", zones[1].ID)
}

func TestLoadZones_NamesBadFile(t *testing.T) {
	_, err := LoadZones(fstest.MapFS{"broken.yaml": {Data: []byte("zone: [")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestShippedContentLoads(t *testing.T) {
	zones, err := LoadZonesFromDir(filepath.Join("..", "..", "..", "content", "world"))
	require.NoError(t, err)
	mgr, err := NewManager(zones)
	require.NoError(t, err)
	assert.NotEmpty(t, mgr.StartRoom())
	assert.NotEmpty(t, mgr.Placements())
}
