// Package testutil holds shared fixtures: a running authority over a small
// zone, a scripted Telnet client and a disposable PostgreSQL database.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/dice"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/world"
)

// YardZone is a two-room zone used by persistence and session tests.
const YardZone = `
zone:
  id: yard
  name: Yard
  start_room: yard
  rooms:
    - id: yard
      name: The Yard
      description: Muddy.
      exits:
        - direction: north
          to: barn
    - id: barn
      name: The Barn
      description: Dusty.
      exits:
        - direction: south
          to: yard
`

// StartAuthority builds a world over zoneYAML and runs its authority until
// the test ends. Passwords are hashed at the minimum bcrypt cost.
//
// Postcondition: The returned authority accepts Do calls.
func StartAuthority(t *testing.T, zoneYAML string, logger *zap.Logger, opts ...authority.Option) *authority.Authority {
	t.Helper()
	zone, err := world.LoadZoneFromBytes([]byte(zoneYAML))
	if err != nil {
		t.Fatalf("loading zone: %v", err)
	}
	rooms, err := world.NewManager([]*world.Zone{zone})
	if err != nil {
		t.Fatalf("building rooms: %v", err)
	}
	opts = append([]authority.Option{authority.WithHashCost(bcrypt.MinCost)}, opts...)
	w := authority.NewWorld(rooms,
		authority.Config{PlayerMaxHP: 20, PlayerThink: time.Hour},
		dice.NewRoller(&dice.FixedSource{Values: []int{0}}, logger),
		logger, opts...)
	a := authority.New(w, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-a.Done()
	})
	return a
}

// Do runs fn on a and fails the test if the authority rejects it. fn runs on
// the authority goroutine and must use assert, never require or t.Fatal.
func Do(t *testing.T, a *authority.Authority, fn func(*authority.World)) {
	t.Helper()
	if err := a.Do(context.Background(), fn); err != nil {
		t.Fatalf("authority operation: %v", err)
	}
}

// Discard is a session sink that drops everything sent to it.
type Discard struct{}

// Send implements authority.Sink.
func (Discard) Send(string) {}

// SeedYard gives a YardZone world some persistent state: player Alice
// (password "pw") with 7 gold, a carried loaf and an equipped sword, left
// in the barn and logged out, plus a statue standing in the yard.
func SeedYard(t *testing.T, a *authority.Authority) {
	t.Helper()
	var err error
	Do(t, a, func(w *authority.World) { err = seedYard(w) })
	if err != nil {
		t.Fatalf("seeding yard: %v", err)
	}
}

// seedYard runs on the authority goroutine, where the test must not be failed.
func seedYard(w *authority.World) error {
	p, err := w.Activate("alice", "pw", Discard{})
	if err != nil {
		return fmt.Errorf("activating alice: %w", err)
	}
	items := []*entity.Object{
		{Kind: entity.KindItem, Name: "a loaf of bread", RoomID: "yard",
			Item: &entity.Item{Heal: 5, Consumable: true}},
		{Kind: entity.KindItem, Name: "a rusty sword", RoomID: "yard",
			Item: &entity.Item{Slot: entity.SlotWeapon, Mods: entity.Stats{Strength: 2}}},
		{Kind: entity.KindObject, Name: "a stone statue", RoomID: "yard", Heavy: true,
			ReadText: "Here stood Hearth."},
	}
	for _, it := range items {
		if err := w.AddObject(it); err != nil {
			return err
		}
	}
	for _, name := range []string{"loaf", "sword"} {
		if _, err := w.Take(p, name); err != nil {
			return fmt.Errorf("taking %s: %w", name, err)
		}
	}
	if _, _, err := w.Equip(p, "sword"); err != nil {
		return fmt.Errorf("equipping sword: %w", err)
	}
	if err := w.MovePlayer(p, "north"); err != nil {
		return fmt.Errorf("moving alice: %w", err)
	}
	p.Player.Gold = 7
	w.Deactivate(p.ID)
	return nil
}
