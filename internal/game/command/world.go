package command

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/match"
)

// moveThrough moves the player through the exit named dir and shows the new
// room. It returns authority.ErrNoExit untouched so callers can decide how to
// word the failure.
func moveThrough(c *Context, dir string) error {
	if dir == "" {
		return authority.ErrNoExit
	}
	if err := c.World.MovePlayer(c.Player, strings.ToLower(dir)); err != nil {
		return err
	}
	c.Tell(c.World.DescribeRoom(c.Player))
	return nil
}

func handleMove(c *Context) error {
	if err := moveThrough(c, c.Verb); errors.Is(err, authority.ErrNoExit) {
		return UserError("You can't go that way.")
	} else if err != nil {
		return err
	}
	return nil
}

func handleGo(c *Context) error {
	if c.Object == "" {
		return UserError("Go where?")
	}
	if err := moveThrough(c, c.Object); errors.Is(err, authority.ErrNoExit) {
		return UserError("You can't go that way.")
	} else if err != nil {
		return err
	}
	return nil
}

// lookup finds name among the occupants of the player's room and then among
// the player's carried and equipped items.
func lookup(c *Context, name string) (*entity.Object, bool) {
	if o := c.World.ObjectInRoom(name, c.Player.RoomID); o != nil {
		return o, true
	}
	if it, ok := c.World.Carried(c.Player, name); ok {
		return it, true
	}
	return match.Best(name, c.World.Equipped(c.Player), objectName)
}

func objectName(o *entity.Object) string { return o.Name }

// capitalize upper-cases the first letter of s.
func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func handleLook(c *Context) error {
	if c.Object == "" {
		c.Tell(c.World.DescribeRoom(c.Player))
		return nil
	}
	o, ok := lookup(c, c.Object)
	if !ok {
		return UserError(msgNotHere)
	}
	c.Tell(c.World.DescribeObject(o))
	return nil
}

func handleExits(c *Context) error {
	exits := c.World.RoomExits(c.Player.RoomID)
	if len(exits) == 0 {
		c.Tell("There are no obvious exits.")
		return nil
	}
	var b strings.Builder
	b.WriteString("Obvious exits:")
	for _, e := range exits {
		fmt.Fprintf(&b, "\n  %-10s %s", e.Direction, e.ToName)
	}
	c.Tell(b.String())
	return nil
}

func handleRead(c *Context) error {
	if c.Object == "" {
		return UserError("Read what?")
	}
	o, ok := lookup(c, c.Object)
	if !ok {
		return UserError(msgNotHere)
	}
	if o.ReadText == "" {
		return userErrorf("There is nothing written on %s.", o.Name)
	}
	c.Tell(o.ReadText)
	return nil
}

func handleWho(c *Context) error {
	players := c.World.ActivePlayers()
	var b strings.Builder
	b.WriteString("Players online:")
	for _, p := range players {
		fmt.Fprintf(&b, "\n  %s (level %d)", p.Name, p.Fighter.Level)
	}
	if len(players) == 1 {
		b.WriteString("\n1 player online.")
	} else {
		fmt.Fprintf(&b, "\n%d players online.", len(players))
	}
	c.Tell(b.String())
	return nil
}

func handleSay(c *Context) error {
	if c.Raw == "" {
		return UserError("Say what?")
	}
	c.Tell(fmt.Sprintf("You say, \"%s\"", c.Raw))
	c.World.ReportRoom(c.Player.RoomID, c.Player.ID, fmt.Sprintf("%s says, \"%s\"", c.Player.Name, c.Raw))
	return nil
}

func handleEmote(c *Context) error {
	if c.Raw == "" {
		return UserError("Emote what?")
	}
	line := c.Player.Name + " " + c.Raw
	c.Tell(line)
	c.World.ReportRoom(c.Player.RoomID, c.Player.ID, line)
	return nil
}

func handleTalk(c *Context) error {
	if c.Object == "" {
		return UserError("Talk to whom?")
	}
	o, err := c.World.Talk(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError(msgNotHere)
	case errors.Is(err, authority.ErrSilent):
		return userErrorf("%s has nothing to say.", capitalize(o.Name))
	}
	return err
}
