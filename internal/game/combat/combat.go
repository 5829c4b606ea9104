// Package combat holds the pure combat rules: attack resolution, damage and
// healing, aggro accounting, reward distribution, leveling and timing.
// It never touches the world; the authority applies its results.
package combat

import (
	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// Roller supplies twenty-sided die rolls. *dice.Roller satisfies it.
type Roller interface {
	D20() int
}

// Result is the outcome of one attack.
type Result struct {
	Hit bool
	// Margin is (attacker agility + d20) - (defender agility + d20).
	Margin int
	// Damage is at least 1 on a hit and 0 on a miss.
	Damage int
}

// Resolve rolls one attack of a against d.
//
// The hit check is (a.Agility + d20) - (d.Agility + d20) > 0. On a hit, damage
// is (a.Strength + d20) - (d.Defense + d20), floored at 1.
//
// Postcondition: r.Hit == (r.Damage >= 1).
func Resolve(a, d entity.Stats, r Roller) Result {
	margin := (a.Agility + r.D20()) - (d.Agility + r.D20())
	if margin <= 0 {
		return Result{Margin: margin}
	}
	dmg := (a.Strength + r.D20()) - (d.Defense + r.D20())
	if dmg < 1 {
		dmg = 1
	}
	return Result{Hit: true, Margin: margin, Damage: dmg}
}

// ApplyDamage subtracts dmg from f's HP, clamping at zero. It returns true
// exactly once per life: on the call that takes HP to zero while the death
// latch is unset. The latch is then set.
//
// Precondition: dmg >= 0.
// Postcondition: 0 <= f.HP <= f.MaxHP.
func ApplyDamage(f *entity.Fighter, dmg int) bool {
	if dmg < 0 {
		dmg = 0
	}
	f.HP -= dmg
	if f.HP < 0 {
		f.HP = 0
	}
	if f.HP == 0 && !f.Dead {
		f.Dead = true
		return true
	}
	return false
}

// Heal adds amount to f's HP, clamping at MaxHP, and returns the HP actually restored.
//
// Postcondition: 0 <= f.HP <= f.MaxHP.
func Heal(f *entity.Fighter, amount int) int {
	if amount <= 0 || f.HP >= f.MaxHP {
		return 0
	}
	before := f.HP
	f.HP += amount
	if f.HP > f.MaxHP {
		f.HP = f.MaxHP
	}
	return f.HP - before
}

// Revive restores f to full health and clears the death latch.
func Revive(f *entity.Fighter) {
	f.HP = f.MaxHP
	f.Dead = false
}

// Difficulty describes how a fight against a target of defLevel looks to an
// attacker of attLevel.
func Difficulty(attLevel, defLevel int) string {
	switch diff := defLevel - attLevel; {
	case diff <= -2:
		return "an easy fight"
	case diff >= 2:
		return "a deadly fight"
	default:
		return "a fair fight"
	}
}
