package combat

import "time"

// AttackInterval scales base by the ratio of the defender's agility to the
// attacker's: base * (20 + defAgi) / (20 + attAgi), clamped to [lo, hi].
// A more agile attacker attacks more often.
//
// Precondition: lo <= hi.
func AttackInterval(base, lo, hi time.Duration, attAgi, defAgi int) time.Duration {
	num := 20 + defAgi
	den := 20 + attAgi
	if den <= 0 {
		return hi
	}
	if num < 0 {
		num = 0
	}
	d := time.Duration(int64(base) * int64(num) / int64(den))
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// RegenAmount returns the HP restored per regeneration tick: percent of maxHP,
// at least 1.
func RegenAmount(maxHP, percent int) int {
	n := maxHP * percent / 100
	if n < 1 {
		return 1
	}
	return n
}
