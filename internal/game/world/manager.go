package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// Manager indexes the loaded zones. It is read-only once shared and safe for
// concurrent reads.
type Manager struct {
	zones     []*Zone
	rooms     map[string]*Room
	roomIDs   []string
	templates map[string]*entity.Object
	startRoom string
}

// NewManager indexes zones in order. Room IDs are global, so a room ID used
// in two zones is an error. The first zone naming a start room provides the
// default start room. Template refs shadow later zones' refs of the same
// name.
func NewManager(zones []*Zone) (*Manager, error) {
	m := &Manager{
		rooms:     make(map[string]*Room),
		templates: make(map[string]*entity.Object),
	}
	for _, z := range zones {
		if slices.ContainsFunc(m.zones, func(o *Zone) bool { return o.ID == z.ID }) {
			return nil, fmt.Errorf("duplicate zone ID: %q", z.ID)
		}
		m.zones = append(m.zones, z)
		for id, room := range z.Rooms {
			if prev, dup := m.rooms[id]; dup {
				return nil, fmt.Errorf("duplicate room ID %q: in zone %q and %q", id, prev.ZoneID, z.ID)
			}
			m.rooms[id] = room
			m.roomIDs = append(m.roomIDs, id)
		}
		for ref, t := range z.Templates {
			if _, shadowed := m.templates[ref]; !shadowed {
				m.templates[ref] = t
			}
		}
		if m.startRoom == "" {
			m.startRoom = z.StartRoom
		}
	}
	slices.Sort(m.roomIDs)

	if m.startRoom == "" {
		return nil, errors.New("no zone defines a start room")
	}
	if err := m.ValidateExits(); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidateExits reports every exit whose target is not a loaded room.
func (m *Manager) ValidateExits() error {
	var errs []error
	for _, id := range m.roomIDs {
		room := m.rooms[id]
		for _, e := range room.Exits {
			if _, ok := m.rooms[e.To]; !ok {
				errs = append(errs, fmt.Errorf("zone %q: room %q: exit %q targets unknown room %q",
					room.ZoneID, id, e.Direction, e.To))
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Room(id string) (*Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// StartRoom is where new and respawning players appear.
func (m *Manager) StartRoom() string { return m.startRoom }

// SetStartRoom overrides the start room. It must be called before the
// Manager is shared.
func (m *Manager) SetStartRoom(id string) error {
	if _, ok := m.rooms[id]; !ok {
		return fmt.Errorf("start room %q not found", id)
	}
	m.startRoom = id
	return nil
}

// RoomIDs returns every room ID in sorted order. The caller may modify the
// result.
func (m *Manager) RoomIDs() []string { return slices.Clone(m.roomIDs) }

func (m *Manager) RoomCount() int { return len(m.rooms) }
func (m *Manager) ZoneCount() int { return len(m.zones) }

// Placements returns fresh copies of every zone's initial objects in zone
// order, ready to be given IDs.
func (m *Manager) Placements() []*entity.Object {
	var out []*entity.Object
	for _, z := range m.zones {
		for _, obj := range z.Placements {
			out = append(out, obj.Clone())
		}
	}
	return out
}

// Template returns a copy of the template named ref.
func (m *Manager) Template(ref string) (*entity.Object, bool) {
	t, ok := m.templates[ref]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}
