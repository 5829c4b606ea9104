package authority_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/combat"
	"github.com/cory-johannsen/hearth/internal/game/dice"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/world"
)

const villageYAML = `
zone:
  id: village
  name: Oakvale
  start_room: square
  rooms:
    - id: square
      name: Village Square
      description: Cobbles and a dry fountain.
      exits:
        - direction: north
          to: bakery
        - direction: down
          to: cellar
    - id: bakery
      name: Bakery
      description: Warm and floury.
      exits:
        - direction: south
          to: square
    - id: cellar
      name: Cellar
      description: Damp.
      exits:
        - direction: up
          to: square
  templates:
    - ref: rat
      kind: enemy
      name: a cellar rat
      mobile:
        think_interval: 2s
        rooms: [cellar]
      fighter:
        max_hp: 30
        stats: {strength: 2, defense: 1, agility: 2}
      enemy:
        xp_reward: 10
        gold_reward: 4
    - ref: bread
      kind: item
      name: a loaf of bread
      item: {heal: 5, consumable: true}
    - ref: sword
      kind: item
      name: a short sword
      item: {slot: weapon, mods: {strength: 2}}
    - ref: fountain
      kind: object
      name: a dry fountain
      heavy: true
  placements:
    - template: fountain
      room: square
    - template: bread
      room: square
    - template: sword
      room: square
`

// recordingSink collects everything sent to one player.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) Send(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *recordingSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *recordingSink) text() string {
	return strings.Join(s.all(), "")
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// recordingTracker records scheduler requests without running anything.
type recordingTracker struct {
	tracked []entity.ID
	engaged []entity.ID
}

func (r *recordingTracker) Track(obj *entity.Object) { r.tracked = append(r.tracked, obj.ID) }
func (r *recordingTracker) Engage(id entity.ID)      { r.engaged = append(r.engaged, id) }

func testConfig() authority.Config {
	return authority.Config{
		Admins:         []string{"Root"},
		PlayerMaxHP:    20,
		PlayerStats:    entity.Stats{Strength: 5, Defense: 5, Agility: 5},
		PlayerThink:    time.Second,
		RegenStart:     10 * time.Second,
		RegenContinue:  3 * time.Second,
		RegenPercent:   10,
		AttackBase:     2 * time.Second,
		AttackMin:      750 * time.Millisecond,
		AttackMax:      5 * time.Second,
		AggroIncrement: 10,
		AggroDecay:     1,
		Levels: combat.LevelTable{
			{XP: 10, MaxHP: 5, Stats: entity.Stats{Strength: 1}},
			{XP: 100, MaxHP: 5},
		},
	}
}

func loadRooms(t testing.TB) *world.Manager {
	t.Helper()
	zone, err := world.LoadZoneFromBytes([]byte(villageYAML))
	require.NoError(t, err)
	rooms, err := world.NewManager([]*world.Zone{zone})
	require.NoError(t, err)
	return rooms
}

func newTestWorld(t testing.TB, src dice.Source, opts ...authority.Option) (*authority.World, *world.Manager) {
	t.Helper()
	rooms := loadRooms(t)
	logger := zap.NewNop()
	if tt, ok := t.(*testing.T); ok {
		logger = zaptest.NewLogger(tt)
	}
	if src == nil {
		src = dice.NewSeededSource(1)
	}
	opts = append([]authority.Option{authority.WithHashCost(bcrypt.MinCost)}, opts...)
	w := authority.NewWorld(rooms, testConfig(), dice.NewRoller(src, logger), logger, opts...)
	return w, rooms
}

// runAuthority starts the loop and stops it when the test ends.
func runAuthority(t testing.TB, w *authority.World) *authority.Authority {
	t.Helper()
	a := authority.New(w, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-a.Done()
	})
	return a
}

func ratTemplate(t testing.TB, rooms *world.Manager) *entity.Object {
	t.Helper()
	rat, ok := rooms.Template("rat")
	require.True(t, ok)
	rat.RoomID = "cellar"
	return rat
}
