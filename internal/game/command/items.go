package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/hearth/internal/game/authority"
)

func handleInventory(c *Context) error {
	pl := c.Player.Player
	equipped := c.World.Equipped(c.Player)
	var b strings.Builder
	if len(pl.Inventory) == 0 && len(equipped) == 0 {
		b.WriteString("You are carrying nothing.")
	} else {
		b.WriteString("You are carrying:")
		for _, it := range pl.Inventory {
			b.WriteString("\n  " + it.Name)
		}
		for _, it := range equipped {
			fmt.Fprintf(&b, "\n  %s (%s)", it.Name, it.Item.Slot)
		}
	}
	fmt.Fprintf(&b, "\nYou have %d gold.", pl.Gold)
	c.Tell(b.String())
	return nil
}

func handleTake(c *Context) error {
	if c.Object == "" {
		return UserError("Take what?")
	}
	obj, err := c.World.Take(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError(msgNotHere)
	case errors.Is(err, authority.ErrHeavy):
		return userErrorf("%s is too heavy to lift.", capitalize(obj.Name))
	case errors.Is(err, authority.ErrCannotTake):
		return userErrorf("You can't take %s.", obj.Name)
	case err != nil:
		return err
	}
	c.Tell(fmt.Sprintf("You take %s.", obj.Name))
	return nil
}

func handleDrop(c *Context) error {
	if c.Object == "" {
		return UserError("Drop what?")
	}
	obj, err := c.World.Drop(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError(msgNotCarried)
	case err != nil:
		return err
	}
	c.Tell(fmt.Sprintf("You drop %s.", obj.Name))
	return nil
}

// handleConsume serves both eat and drink; the verb only changes the wording.
func handleConsume(c *Context) error {
	verb := c.Verb
	if verb != "drink" {
		verb = "eat"
	}
	if c.Object == "" {
		return userErrorf("%s what?", capitalize(verb))
	}
	it, healed, err := c.World.Consume(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError(msgNotCarried)
	case errors.Is(err, authority.ErrNotConsumable):
		return userErrorf("You can't %s %s.", verb, it.Name)
	case err != nil:
		return err
	}
	c.Tell(fmt.Sprintf("You %s %s.", verb, it.Name))
	if healed > 0 {
		c.Tell(fmt.Sprintf("You feel better. (+%d HP)", healed))
	}
	c.World.ReportRoom(c.Player.RoomID, c.Player.ID, fmt.Sprintf("%s %ss %s.", c.Player.Name, verb, it.Name))
	return nil
}

func handleEquip(c *Context) error {
	if c.Object == "" {
		return UserError("Equip what?")
	}
	it, prev, err := c.World.Equip(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError(msgNotCarried)
	case errors.Is(err, authority.ErrNotEquipment):
		return userErrorf("You can't equip %s.", it.Name)
	case err != nil:
		return err
	}
	if prev != nil {
		c.Tell(fmt.Sprintf("You put away %s.", prev.Name))
	}
	c.Tell(fmt.Sprintf("You equip %s.", it.Name))
	return nil
}

func handleUnequip(c *Context) error {
	if c.Object == "" {
		return UserError("Unequip what?")
	}
	it, err := c.World.Unequip(c.Player, c.Object)
	switch {
	case errors.Is(err, authority.ErrNotFound):
		return UserError("You aren't using that.")
	case err != nil:
		return err
	}
	c.Tell(fmt.Sprintf("You unequip %s.", it.Name))
	return nil
}
