package authority

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/hearth/internal/frontend/telnet"
	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// DescribeRoom renders viewer's room: name, description, exits and the
// other visible occupants. Admins with debug on also see room and object IDs.
func (w *World) DescribeRoom(viewer *entity.Object) string {
	room, ok := w.rooms.Room(viewer.RoomID)
	if !ok {
		return "You are nowhere."
	}
	debug := viewer.Player != nil && viewer.Player.Admin && viewer.Player.Settings.Debug

	var b strings.Builder
	title := room.Name
	if debug {
		title += fmt.Sprintf(" [%s]", room.ID)
	}
	b.WriteString(telnet.Paint(telnet.Title, title))
	b.WriteString("\n")
	if room.Description != "" {
		b.WriteString(room.Description)
		b.WriteString("\n")
	}
	b.WriteString(w.ExitLine(viewer.RoomID))

	for _, p := range w.PlayersInRoom(viewer.RoomID) {
		if p.ID == viewer.ID {
			continue
		}
		b.WriteString("\n")
		b.WriteString(telnet.Paint(telnet.Player, p.Name+" is here."))
	}
	for _, o := range w.ObjectsInRoom(viewer.RoomID) {
		b.WriteString("\n")
		line := sentence(o.Name) + " is here."
		if debug {
			line += fmt.Sprintf(" [#%d]", o.ID)
		}
		if o.Enemy != nil {
			line = telnet.Paint(telnet.Hostile, line)
		}
		b.WriteString(line)
	}
	return b.String()
}

// ExitLine lists the exits of roomID as one line.
func (w *World) ExitLine(roomID string) string {
	exits := w.RoomExits(roomID)
	if len(exits) == 0 {
		return "There are no obvious exits."
	}
	names := make([]string, len(exits))
	for i, e := range exits {
		names[i] = string(e.Direction)
	}
	return telnet.Paint(telnet.Exits, "Exits: "+strings.Join(names, ", ")+".")
}

// DescribeObject renders what a player sees when looking at o.
func (w *World) DescribeObject(o *entity.Object) string {
	desc := o.Description
	if desc == "" {
		desc = fmt.Sprintf("You see nothing special about %s.", o.Name)
	}
	if o.Fighter != nil {
		desc += "\n" + sentence(o.Name) + " " + healthPhrase(o.Fighter) + "."
	}
	return desc
}

func healthPhrase(f *entity.Fighter) string {
	pct := 100 * f.HP / f.MaxHP
	switch {
	case pct >= 100:
		return "is in perfect health"
	case pct >= 75:
		return "has a few scratches"
	case pct >= 50:
		return "is wounded"
	case pct >= 25:
		return "is badly wounded"
	default:
		return "is nearly dead"
	}
}
