// Package world provides the static world: zones, rooms, exits and the entity
// templates and placements loaded with them.
package world

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// Direction names an exit. Besides the ten standard directions a room may use
// its own names such as "stairs" or "gate".
type Direction string

const (
	North     Direction = "north"
	South     Direction = "south"
	East      Direction = "east"
	West      Direction = "west"
	Northeast Direction = "northeast"
	Northwest Direction = "northwest"
	Southeast Direction = "southeast"
	Southwest Direction = "southwest"
	Up        Direction = "up"
	Down      Direction = "down"
)

// StandardDirections lists the standard directions, each followed by its
// opposite.
var StandardDirections = []Direction{
	North, South, East, West,
	Northeast, Southwest, Northwest, Southeast,
	Up, Down,
}

var opposites = func() map[Direction]Direction {
	m := make(map[Direction]Direction, len(StandardDirections))
	for i := 0; i < len(StandardDirections); i += 2 {
		a, b := StandardDirections[i], StandardDirections[i+1]
		m[a], m[b] = b, a
	}
	return m
}()

// IsStandard reports whether d is one of StandardDirections.
func (d Direction) IsStandard() bool {
	_, ok := opposites[d]
	return ok
}

// Opposite returns the reverse of a standard direction and "" for named exits.
func (d Direction) Opposite() Direction {
	return opposites[d]
}

// Exit is a passage to the room with ID To.
type Exit struct {
	Direction Direction
	To        string
}

// Room is a location in the world. Rooms are immutable after load.
type Room struct {
	ID          string
	ZoneID      string
	Name        string
	Description string
	Exits       []Exit
}

// Exit returns the exit named dir, ignoring case.
func (r *Room) Exit(dir Direction) (Exit, bool) {
	for _, e := range r.Exits {
		if strings.EqualFold(string(e.Direction), string(dir)) {
			return e, true
		}
	}
	return Exit{}, false
}

func (r *Room) validate() error {
	if r.Name == "" {
		return errors.New("name must not be empty")
	}
	seen := make(map[string]bool, len(r.Exits))
	for _, e := range r.Exits {
		key := strings.ToLower(string(e.Direction))
		switch {
		case key == "":
			return errors.New("exit has empty direction")
		case e.To == "":
			return fmt.Errorf("exit %q has empty target", e.Direction)
		case seen[key]:
			return fmt.Errorf("two exits named %q", e.Direction)
		}
		seen[key] = true
	}
	return nil
}

// Zone is one content file: its rooms plus the templates and initial
// placements defined alongside them.
type Zone struct {
	ID          string
	Name        string
	Description string
	StartRoom   string
	Rooms       map[string]*Room
	// Templates are spawner prototypes keyed by reference name.
	Templates map[string]*entity.Object
	// Placements are put into the world on a fresh start. Their IDs are zero
	// until the authority assigns them.
	Placements []*entity.Object
}

// Validate checks the zone on its own. Exit targets may be in other zones and
// are resolved by Manager.ValidateExits.
func (z *Zone) Validate() error {
	if z.ID == "" {
		return errors.New("zone ID must not be empty")
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("zone %q: "+format, append([]any{z.ID}, args...)...)
	}
	if z.Name == "" {
		return fail("name must not be empty")
	}
	if len(z.Rooms) == 0 {
		return fail("must contain at least one room")
	}
	if _, ok := z.Rooms[z.StartRoom]; z.StartRoom != "" && !ok {
		return fail("start_room %q not found in rooms", z.StartRoom)
	}
	for id, room := range z.Rooms {
		if room.ID != id {
			return fail("room key %q does not match room ID %q", id, room.ID)
		}
		if err := room.validate(); err != nil {
			return fail("room %q: %w", id, err)
		}
	}
	for ref, tmpl := range z.Templates {
		if err := tmpl.Validate(); err != nil {
			return fail("template %q: %w", ref, err)
		}
	}
	for _, obj := range z.Placements {
		if err := obj.Validate(); err != nil {
			return fail("placement %q: %w", obj.Name, err)
		}
	}
	return nil
}
