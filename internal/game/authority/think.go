package authority

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/game/combat"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/world"
	"github.com/cory-johannsen/hearth/internal/scripting"
)

// kindThink is the per-kind step that follows a drawn behavior.
var kindThink = map[entity.Kind]func(*World, *entity.Object){
	entity.KindEnemy:  (*World).enemyThink,
	entity.KindPlayer: (*World).regen,
}

// Think runs one think step for the autonomous object id. It returns the
// delay until the next step, or false once the object is gone or inactive.
func (w *World) Think(id entity.ID) (time.Duration, bool) {
	obj, ok := w.Object(id)
	if !ok || obj.Mobile == nil {
		return 0, false
	}
	holdingAggro := obj.Enemy != nil && len(obj.Enemy.Targets) > 0
	if obj.Player == nil && !holdingAggro {
		if b, ok := w.drawBehavior(obj.Mobile.Behaviors); ok {
			w.perform(obj, b)
		}
	}
	if step, ok := kindThink[obj.Kind]; ok {
		step(w, obj)
	}
	return obj.Mobile.ThinkInterval, true
}

// drawBehavior picks a behavior with probability proportional to its chance.
func (w *World) drawBehavior(behaviors []entity.Behavior) (entity.Behavior, bool) {
	total := 0
	for _, b := range behaviors {
		total += b.Chance
	}
	if total <= 0 {
		return entity.Behavior{}, false
	}
	draw := w.roller.Intn(total)
	for _, b := range behaviors {
		if draw < b.Chance {
			return b, true
		}
		draw -= b.Chance
	}
	return entity.Behavior{}, false
}

func (w *World) perform(obj *entity.Object, b entity.Behavior) {
	switch b.Action {
	case entity.ActionMove:
		w.wander(obj)
	case entity.ActionSay:
		text := b.Text
		if text == "" && obj.NPC != nil && len(obj.NPC.Dialogue) > 0 {
			text = obj.NPC.Dialogue[w.roller.Intn(len(obj.NPC.Dialogue))]
		}
		if text != "" {
			w.ReportRoom(obj.RoomID, obj.ID, fmt.Sprintf("%s says, \"%s\"", sentence(obj.Name), text))
		}
	case entity.ActionEmote:
		if b.Text != "" {
			w.ReportRoom(obj.RoomID, obj.ID, sentence(obj.Name)+" "+b.Text)
		}
	case entity.ActionScript:
		w.runScript(obj, b.Text)
	default:
		w.logger.Warn("unknown behavior action",
			zap.Uint64("object_id", uint64(obj.ID)),
			zap.String("action", string(b.Action)),
		)
	}
}

// wander moves obj through a uniformly chosen exit leading to an allowed room.
func (w *World) wander(obj *entity.Object) {
	room, ok := w.rooms.Room(obj.RoomID)
	if !ok {
		return
	}
	var options []world.Exit
	for _, e := range room.Exits {
		if allowedRoom(obj.Mobile.Rooms, e.To) {
			options = append(options, e)
		}
	}
	if len(options) == 0 {
		return
	}
	e := options[w.roller.Intn(len(options))]
	w.moveTo(obj, e.To, e.Direction)
}

func allowedRoom(rooms []string, id string) bool {
	if len(rooms) == 0 {
		return true
	}
	for _, r := range rooms {
		if r == id {
			return true
		}
	}
	return false
}

// regen restores a slice of a player's HP once enough time has passed since
// the last damage and the last regeneration tick.
func (w *World) regen(p *entity.Object) {
	f, pl := p.Fighter, p.Player
	if f.HP >= f.MaxHP {
		if pl.Regenerating {
			pl.Regenerating = false
			w.Tell(p.ID, "You are fully healed.")
		}
		return
	}
	now := w.now()
	if now.Sub(pl.LastDamage) <= w.cfg.RegenStart || now.Sub(pl.LastRegen) <= w.cfg.RegenContinue {
		return
	}
	if !pl.Regenerating {
		pl.Regenerating = true
		w.Tell(p.ID, "You begin to recover.")
	}
	combat.Heal(f, combat.RegenAmount(f.MaxHP, w.cfg.RegenPercent))
	pl.LastRegen = now
	if f.HP >= f.MaxHP {
		pl.Regenerating = false
		w.Tell(p.ID, "You are fully healed.")
	}
	w.Prompt(p.ID)
}

// Spawn runs one tick of the spawner id. It returns the spawner interval, or
// false once the spawner is gone.
func (w *World) Spawn(id entity.ID) (time.Duration, bool) {
	sp, ok := w.objects[id]
	if !ok || sp.Spawner == nil {
		return 0, false
	}
	tmpl := sp.Spawner.Template
	if tmpl.RoomID == "" {
		tmpl = tmpl.Clone()
		tmpl.RoomID = sp.RoomID
	}
	w.SpawnIfAbsent(tmpl)
	return sp.Spawner.Interval, true
}

// Talk gives p one random line of dialogue from the NPC named name in p's
// room. The rest of the room only sees that p is talking.
func (w *World) Talk(p *entity.Object, name string) (*entity.Object, error) {
	obj := w.ObjectInRoom(name, p.RoomID)
	if obj == nil || obj.ID == p.ID {
		return nil, ErrNotFound
	}
	if obj.NPC == nil || len(obj.NPC.Dialogue) == 0 {
		return obj, ErrSilent
	}
	line := obj.NPC.Dialogue[w.roller.Intn(len(obj.NPC.Dialogue))]
	w.ReportRoom(p.RoomID, p.ID, fmt.Sprintf("%s talks to %s.", p.Name, obj.Name))
	w.Tell(p.ID, fmt.Sprintf("%s says, \"%s\"", sentence(obj.Name), line))
	return obj, nil
}

// scriptAPI is the world surface a behavior script can reach.
type scriptAPI struct {
	w   *World
	obj *entity.Object
}

func (a scriptAPI) Say(text string) {
	a.w.ReportRoom(a.obj.RoomID, a.obj.ID, fmt.Sprintf("%s says, \"%s\"", sentence(a.obj.Name), text))
}

func (a scriptAPI) Emote(text string) {
	a.w.ReportRoom(a.obj.RoomID, a.obj.ID, sentence(a.obj.Name)+" "+text)
}

func (a scriptAPI) Players() []string {
	var names []string
	for _, p := range a.w.PlayersInRoom(a.obj.RoomID) {
		names = append(names, p.Name)
	}
	return names
}

func (w *World) runScript(obj *entity.Object, hook string) {
	if w.scripts == nil || hook == "" {
		return
	}
	self := scripting.Self{ID: uint64(obj.ID), Name: obj.Name, Room: obj.RoomID}
	if err := w.scripts.Call(hook, self, scriptAPI{w: w, obj: obj}); err != nil {
		w.logger.Warn("behavior script failed",
			zap.Uint64("object_id", uint64(obj.ID)),
			zap.String("hook", hook),
			zap.Error(err),
		)
	}
}
