package authority

import (
	"github.com/cory-johannsen/hearth/internal/game/combat"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/match"
)

// slotOrder is the display and lookup order of equipment slots.
var slotOrder = []entity.Slot{entity.SlotWeapon, entity.SlotArmor, entity.SlotShield, entity.SlotHead}

// Carried returns the inventory item of p best matching name.
func (w *World) Carried(p *entity.Object, name string) (*entity.Object, bool) {
	return match.Best(name, p.Player.Inventory, objectName)
}

// Equipped returns p's equipped items in slot order.
func (w *World) Equipped(p *entity.Object) []*entity.Object {
	var out []*entity.Object
	for _, slot := range slotOrder {
		if it := p.Player.Equipped[slot]; it != nil {
			out = append(out, it)
		}
	}
	return out
}

func removeCarried(p *entity.Object, it *entity.Object) {
	inv := p.Player.Inventory
	for i, v := range inv {
		if v == it {
			p.Player.Inventory = append(inv[:i:i], inv[i+1:]...)
			return
		}
	}
}

// Equip moves the carried item named name into its slot. Whatever occupied
// the slot goes back to the inventory and is returned as prev.
func (w *World) Equip(p *entity.Object, name string) (it, prev *entity.Object, err error) {
	it, ok := w.Carried(p, name)
	if !ok {
		return nil, nil, ErrNotFound
	}
	if it.Item == nil || it.Item.Slot == "" {
		return it, nil, ErrNotEquipment
	}
	removeCarried(p, it)
	prev = p.Player.Equipped[it.Item.Slot]
	if prev != nil {
		p.Player.Inventory = append(p.Player.Inventory, prev)
	}
	p.Player.Equipped[it.Item.Slot] = it
	return it, prev, nil
}

// Unequip moves the equipped item named name back to the inventory.
func (w *World) Unequip(p *entity.Object, name string) (*entity.Object, error) {
	it, ok := match.Best(name, w.Equipped(p), objectName)
	if !ok {
		return nil, ErrNotFound
	}
	delete(p.Player.Equipped, it.Item.Slot)
	p.Player.Inventory = append(p.Player.Inventory, it)
	return it, nil
}

// Consume eats or drinks the carried item named name. It returns the item and
// the HP actually restored.
func (w *World) Consume(p *entity.Object, name string) (*entity.Object, int, error) {
	it, ok := w.Carried(p, name)
	if !ok {
		return nil, 0, ErrNotFound
	}
	if it.Item == nil || !it.Item.Consumable {
		return it, 0, ErrNotConsumable
	}
	removeCarried(p, it)
	return it, combat.Heal(p.Fighter, it.Item.Heal), nil
}
