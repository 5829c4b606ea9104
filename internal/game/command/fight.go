package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/hearth/internal/game/authority"
)

func handleAttack(c *Context) error {
	if c.Object == "" {
		return UserError("Attack what?")
	}
	t, err := c.World.Attack(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError(msgNotHere)
	case errors.Is(err, authority.ErrNotHostile):
		return userErrorf("You can't attack %s.", t.Name)
	}
	return err
}

func handleYield(c *Context) error {
	t := c.World.Yield(c.Player)
	if t == nil {
		return UserError("You aren't fighting anyone.")
	}
	c.Tell(fmt.Sprintf("You stop attacking %s.", t.Name))
	return nil
}

func handleConsider(c *Context) error {
	if c.Object == "" {
		return UserError("Consider whom?")
	}
	t, verdict, err := c.World.Consider(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError(msgNotHere)
	case errors.Is(err, authority.ErrNotHostile):
		return userErrorf("%s is no fighter.", capitalize(t.Name))
	case err != nil:
		return err
	}
	c.Tell(fmt.Sprintf("%s looks like %s.", capitalize(t.Name), verdict))
	return nil
}

func handleStats(c *Context) error {
	p := c.Player
	f := p.Fighter
	st := p.Stats()
	levels := c.World.Levels()

	var b strings.Builder
	fmt.Fprintf(&b, "%s, level %d", p.Name, f.Level)
	if next, ok := levels.Next(f.Level); ok {
		fmt.Fprintf(&b, "\nExperience: %d (next level at %d)", f.XP, next)
	} else {
		fmt.Fprintf(&b, "\nExperience: %d (maximum level)", f.XP)
	}
	fmt.Fprintf(&b, "\nHealth: %d/%d", f.HP, f.MaxHP)
	fmt.Fprintf(&b, "\nStrength: %d  Defense: %d  Agility: %d", st.Strength, st.Defense, st.Agility)
	fmt.Fprintf(&b, "\nGold: %d", p.Player.Gold)
	if p.Player.Admin && p.Player.Settings.Debug {
		n := c.World.Counts()
		fmt.Fprintf(&b, "\nWorld: %d rooms, %d objects, %d active of %d players, next id after %d",
			n.Rooms, n.Objects, n.Active, n.Roster, n.HighWater)
	}
	c.Tell(b.String())
	return nil
}
