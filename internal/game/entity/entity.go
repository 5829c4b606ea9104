// Package entity defines the world object model: a plain tagged Object with
// optional capability parts instead of a class hierarchy.
package entity

import (
	"errors"
	"fmt"
	"time"
)

// ID identifies a world object. IDs are issued by an IDSource and never reused.
type ID uint64

// Kind tags what an Object is. Kind selects the think handler; the attached
// parts determine which capabilities the object has.
type Kind string

const (
	KindItem    Kind = "item"
	KindObject  Kind = "object"
	KindNPC     Kind = "npc"
	KindEnemy   Kind = "enemy"
	KindPlayer  Kind = "player"
	KindSpawner Kind = "spawner"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindItem, KindObject, KindNPC, KindEnemy, KindPlayer, KindSpawner:
		return true
	}
	return false
}

// Stats is the strength/defense/agility triple used in combat.
type Stats struct {
	Strength int `yaml:"strength" json:"strength"`
	Defense  int `yaml:"defense" json:"defense"`
	Agility  int `yaml:"agility" json:"agility"`
}

// Add returns the component-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Strength: s.Strength + o.Strength,
		Defense:  s.Defense + o.Defense,
		Agility:  s.Agility + o.Agility,
	}
}

// Action is what a behavior does when it is drawn.
type Action string

const (
	ActionMove   Action = "move"
	ActionSay    Action = "say"
	ActionEmote  Action = "emote"
	ActionScript Action = "script"
)

// Behavior is one weighted entry of a mobile's behavior table.
// Text is the line spoken or emoted, or the Lua hook name for ActionScript.
type Behavior struct {
	Chance int    `yaml:"chance" json:"chance"`
	Action Action `yaml:"action" json:"action"`
	Text   string `yaml:"text,omitempty" json:"text,omitempty"`
}

// Mobile is the autonomous-movement part.
type Mobile struct {
	Behaviors     []Behavior    `yaml:"behaviors,omitempty" json:"behaviors,omitempty"`
	ThinkInterval time.Duration `yaml:"think_interval" json:"think_interval"`
	// Rooms restricts where a move behavior may go; empty allows any exit.
	Rooms []string `yaml:"rooms,omitempty" json:"rooms,omitempty"`
}

// Fighter is the combat part.
type Fighter struct {
	Level     int   `yaml:"level" json:"level"`
	HP        int   `yaml:"hp" json:"hp"`
	MaxHP     int   `yaml:"max_hp" json:"max_hp"`
	XP        int   `yaml:"xp" json:"xp"`
	Base      Stats `yaml:"stats" json:"stats"`
	Attackers []ID  `yaml:"attackers,omitempty" json:"attackers,omitempty"`
	// Dead latches once death has been processed so it happens exactly once.
	Dead bool `yaml:"dead,omitempty" json:"dead,omitempty"`
}

// AddAttacker records id as having attacked this fighter. Duplicates are ignored.
func (f *Fighter) AddAttacker(id ID) {
	for _, a := range f.Attackers {
		if a == id {
			return
		}
	}
	f.Attackers = append(f.Attackers, id)
}

// Aggro is one enemy's hostility score toward an attacker.
type Aggro struct {
	Attacker ID  `yaml:"attacker" json:"attacker"`
	Score    int `yaml:"score" json:"score"`
}

// Enemy is the hostile part.
type Enemy struct {
	Targets    []Aggro `yaml:"targets,omitempty" json:"targets,omitempty"`
	XPReward   int     `yaml:"xp_reward" json:"xp_reward"`
	GoldReward int     `yaml:"gold_reward" json:"gold_reward"`
}

// NPC is the conversational part.
type NPC struct {
	Dialogue []string `yaml:"dialogue,omitempty" json:"dialogue,omitempty"`
}

// Slot is an equipment slot.
type Slot string

const (
	SlotWeapon Slot = "weapon"
	SlotArmor  Slot = "armor"
	SlotShield Slot = "shield"
	SlotHead   Slot = "head"
)

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	switch s {
	case SlotWeapon, SlotArmor, SlotShield, SlotHead:
		return true
	}
	return false
}

// Settings are per-player preferences toggled with the config command.
type Settings struct {
	Prompt bool `yaml:"prompt" json:"prompt"`
	Debug  bool `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// Player is the playable part. The fields after Settings are transient session
// state and are not persisted.
type Player struct {
	PasswordHash string           `yaml:"password_hash,omitempty" json:"password_hash,omitempty"`
	Inventory    []*Object        `yaml:"inventory,omitempty" json:"inventory,omitempty"`
	Equipped     map[Slot]*Object `yaml:"equipped,omitempty" json:"equipped,omitempty"`
	Admin        bool             `yaml:"admin,omitempty" json:"admin,omitempty"`
	Target       ID               `yaml:"-" json:"-"`
	Gold         int              `yaml:"gold" json:"gold"`
	Settings     Settings         `yaml:"settings" json:"settings"`

	LastDamage   time.Time `yaml:"-" json:"-"`
	LastRegen    time.Time `yaml:"-" json:"-"`
	Regenerating bool      `yaml:"-" json:"-"`
	LastLine     string    `yaml:"-" json:"-"`
}

// Spawner is the respawn part. Spawner objects are always invisible.
type Spawner struct {
	Template *Object       `yaml:"template" json:"template"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Item is the usable-thing part.
type Item struct {
	Heal       int   `yaml:"heal,omitempty" json:"heal,omitempty"`
	Slot       Slot  `yaml:"slot,omitempty" json:"slot,omitempty"`
	Mods       Stats `yaml:"mods,omitempty" json:"mods,omitempty"`
	Consumable bool  `yaml:"consumable,omitempty" json:"consumable,omitempty"`
}

// Object is any thing that exists in the world.
type Object struct {
	ID          ID     `yaml:"id" json:"id"`
	Kind        Kind   `yaml:"kind" json:"kind"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	RoomID      string `yaml:"room,omitempty" json:"room,omitempty"`
	Heavy       bool   `yaml:"heavy,omitempty" json:"heavy,omitempty"`
	Invisible   bool   `yaml:"invisible,omitempty" json:"invisible,omitempty"`
	ReadText    string `yaml:"read_text,omitempty" json:"read_text,omitempty"`

	Mobile  *Mobile  `yaml:"mobile,omitempty" json:"mobile,omitempty"`
	Fighter *Fighter `yaml:"fighter,omitempty" json:"fighter,omitempty"`
	Enemy   *Enemy   `yaml:"enemy,omitempty" json:"enemy,omitempty"`
	NPC     *NPC     `yaml:"npc,omitempty" json:"npc,omitempty"`
	Player  *Player  `yaml:"player,omitempty" json:"player,omitempty"`
	Spawner *Spawner `yaml:"spawner,omitempty" json:"spawner,omitempty"`
	Item    *Item    `yaml:"item,omitempty" json:"item,omitempty"`
}

// HasPosition reports whether o occupies a room. Every object does.
func (o *Object) HasPosition() bool { return true }

// IsAutonomous reports whether o is driven by the scheduler.
func (o *Object) IsAutonomous() bool { return o.Mobile != nil || o.Spawner != nil }

// IsCombatant reports whether o can fight.
func (o *Object) IsCombatant() bool { return o.Fighter != nil }

// IsPlayable reports whether o is a player character.
func (o *Object) IsPlayable() bool { return o.Player != nil }

// IsVisible reports whether o appears in room listings.
func (o *Object) IsVisible() bool { return !o.Invisible && o.Spawner == nil }

// Stats returns o's effective combat stats: base plus equipped item modifiers.
//
// Precondition: o.IsCombatant().
func (o *Object) Stats() Stats {
	s := o.Fighter.Base
	if o.Player != nil {
		for _, it := range o.Player.Equipped {
			if it != nil && it.Item != nil {
				s = s.Add(it.Item.Mods)
			}
		}
	}
	return s
}

// Alive reports whether o is a fighter with HP remaining.
func (o *Object) Alive() bool {
	return o.Fighter != nil && o.Fighter.HP > 0 && !o.Fighter.Dead
}

// Validate checks the structural invariants for o's kind.
//
// Postcondition: Returns nil iff o is well formed; the error names the object.
func (o *Object) Validate() error {
	if o.Name == "" {
		return errors.New("object: name must not be empty")
	}
	if !o.Kind.Valid() {
		return fmt.Errorf("object %q: unknown kind %q", o.Name, o.Kind)
	}
	if o.Fighter != nil {
		if o.Fighter.MaxHP < 1 {
			return fmt.Errorf("object %q: max_hp must be >= 1", o.Name)
		}
		if o.Fighter.HP < 0 || o.Fighter.HP > o.Fighter.MaxHP {
			return fmt.Errorf("object %q: hp %d outside [0, %d]", o.Name, o.Fighter.HP, o.Fighter.MaxHP)
		}
		if o.Fighter.Level < 1 {
			return fmt.Errorf("object %q: level must be >= 1", o.Name)
		}
	}
	if o.Mobile != nil && o.Mobile.ThinkInterval <= 0 {
		return fmt.Errorf("object %q: think_interval must be positive", o.Name)
	}
	if o.Mobile != nil {
		for _, b := range o.Mobile.Behaviors {
			if b.Chance < 0 {
				return fmt.Errorf("object %q: behavior chance must not be negative", o.Name)
			}
		}
	}
	switch o.Kind {
	case KindEnemy:
		if o.Fighter == nil || o.Enemy == nil || o.Mobile == nil {
			return fmt.Errorf("object %q: enemy requires mobile, fighter and enemy parts", o.Name)
		}
	case KindPlayer:
		if o.Fighter == nil || o.Player == nil || o.Mobile == nil {
			return fmt.Errorf("object %q: player requires mobile, fighter and player parts", o.Name)
		}
	case KindNPC:
		if o.Mobile == nil {
			return fmt.Errorf("object %q: npc requires a mobile part", o.Name)
		}
	case KindSpawner:
		if o.Spawner == nil || o.Spawner.Template == nil {
			return fmt.Errorf("object %q: spawner requires a template", o.Name)
		}
		if o.Spawner.Interval <= 0 {
			return fmt.Errorf("object %q: spawner interval must be positive", o.Name)
		}
		if err := o.Spawner.Template.Validate(); err != nil {
			return fmt.Errorf("object %q: template: %w", o.Name, err)
		}
	case KindItem:
		if o.Item == nil {
			return fmt.Errorf("object %q: item requires an item part", o.Name)
		}
		if o.Item.Slot != "" && !o.Item.Slot.Valid() {
			return fmt.Errorf("object %q: unknown slot %q", o.Name, o.Item.Slot)
		}
	}
	return nil
}

// Clone returns a deep copy of o. The copy keeps o's ID; callers that need a
// new identity assign one from an IDSource.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := *o
	if o.Mobile != nil {
		m := *o.Mobile
		m.Behaviors = append([]Behavior(nil), o.Mobile.Behaviors...)
		m.Rooms = append([]string(nil), o.Mobile.Rooms...)
		c.Mobile = &m
	}
	if o.Fighter != nil {
		f := *o.Fighter
		f.Attackers = append([]ID(nil), o.Fighter.Attackers...)
		c.Fighter = &f
	}
	if o.Enemy != nil {
		e := *o.Enemy
		e.Targets = append([]Aggro(nil), o.Enemy.Targets...)
		c.Enemy = &e
	}
	if o.NPC != nil {
		n := *o.NPC
		n.Dialogue = append([]string(nil), o.NPC.Dialogue...)
		c.NPC = &n
	}
	if o.Player != nil {
		p := *o.Player
		p.Inventory = nil
		for _, it := range o.Player.Inventory {
			p.Inventory = append(p.Inventory, it.Clone())
		}
		if o.Player.Equipped != nil {
			p.Equipped = make(map[Slot]*Object, len(o.Player.Equipped))
			for slot, it := range o.Player.Equipped {
				p.Equipped[slot] = it.Clone()
			}
		}
		c.Player = &p
	}
	if o.Spawner != nil {
		s := *o.Spawner
		s.Template = o.Spawner.Template.Clone()
		c.Spawner = &s
	}
	if o.Item != nil {
		it := *o.Item
		c.Item = &it
	}
	return &c
}
