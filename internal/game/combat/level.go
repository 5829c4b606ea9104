package combat

import "github.com/cory-johannsen/hearth/internal/game/entity"

// Level is one step of the level table: XP is the threshold and the other
// fields are the increments granted on reaching it.
type Level struct {
	XP    int
	MaxHP int
	Stats entity.Stats
}

// LevelTable lists the thresholds above level 1. Entry i describes level i+2.
type LevelTable []Level

// Apply raises f's level while its XP meets the next threshold, adding each
// level's increments. The HP gained from a MaxHP increment is also granted.
// It returns the number of levels gained.
//
// Postcondition: f.Level never decreases; 0 <= f.HP <= f.MaxHP.
func (t LevelTable) Apply(f *entity.Fighter) int {
	if f.Level < 1 {
		f.Level = 1
	}
	gained := 0
	for f.Level-1 < len(t) && f.XP >= t[f.Level-1].XP {
		lvl := t[f.Level-1]
		f.Level++
		f.MaxHP += lvl.MaxHP
		f.HP += lvl.MaxHP
		if f.HP > f.MaxHP {
			f.HP = f.MaxHP
		}
		f.Base = f.Base.Add(lvl.Stats)
		gained++
	}
	return gained
}

// Threshold returns the XP at which a fighter reached level, 0 for level 1.
func (t LevelTable) Threshold(level int) int {
	if level <= 1 || len(t) == 0 {
		return 0
	}
	if level-2 >= len(t) {
		return t[len(t)-1].XP
	}
	return t[level-2].XP
}

// Next returns the XP needed for the level after level, or false at the cap.
func (t LevelTable) Next(level int) (int, bool) {
	if level < 1 {
		level = 1
	}
	if level-1 >= len(t) {
		return 0, false
	}
	return t[level-1].XP, true
}

// Progress returns how far f has come from its current level's threshold to
// the next, as a percentage in [0, 100]. It is 100 at the level cap.
func (t LevelTable) Progress(f *entity.Fighter) int {
	next, ok := t.Next(f.Level)
	if !ok {
		return 100
	}
	cur := t.Threshold(f.Level)
	span := next - cur
	if span <= 0 {
		return 100
	}
	pct := (f.XP - cur) * 100 / span
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
