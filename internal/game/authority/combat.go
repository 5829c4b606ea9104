package authority

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/game/combat"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/match"
)

// Attack makes p fight the enemy named name in p's room. The auto-attack job
// is engaged unless p was already fighting.
func (w *World) Attack(p *entity.Object, name string) (*entity.Object, error) {
	target, ok := match.Best(name, w.ObjectsInRoom(p.RoomID), objectName)
	if !ok {
		return nil, ErrNotFound
	}
	if target.Enemy == nil || !target.Alive() {
		return target, ErrNotHostile
	}
	engaged := p.Player.Target != 0
	p.Player.Target = target.ID
	w.Tell(p.ID, fmt.Sprintf("You attack %s!", target.Name))
	w.ReportRoom(p.RoomID, p.ID, fmt.Sprintf("%s attacks %s!", p.Name, target.Name))
	if !engaged {
		w.tracker.Engage(p.ID)
	}
	return target, nil
}

// Yield stops p fighting. It returns the former target, or nil when p was not fighting.
func (w *World) Yield(p *entity.Object) *entity.Object {
	if p.Player.Target == 0 {
		return nil
	}
	t := w.objects[p.Player.Target]
	p.Player.Target = 0
	return t
}

// AutoAttack runs one auto-attack round for the active player id. It returns
// the delay before the next round, or false once the player stops fighting.
func (w *World) AutoAttack(id entity.ID) (time.Duration, bool) {
	m, ok := w.active[id]
	if !ok {
		return 0, false
	}
	p := m.obj
	if p.Player.Target == 0 {
		return 0, false
	}
	t, ok := w.objects[p.Player.Target]
	if !ok || t.RoomID != p.RoomID || !t.Alive() || !p.Alive() {
		p.Player.Target = 0
		return 0, false
	}
	w.strike(p, t)
	w.CombatPrompt(p.ID)
	if p.Player.Target == 0 {
		return 0, false
	}
	return combat.AttackInterval(w.cfg.AttackBase, w.cfg.AttackMin, w.cfg.AttackMax,
		p.Stats().Agility, t.Stats().Agility), true
}

// strike resolves one attack from att against def and reports it.
func (w *World) strike(att, def *entity.Object) {
	res := combat.Resolve(att.Stats(), def.Stats(), w.roller)
	def.Fighter.AddAttacker(att.ID)
	if !res.Hit {
		w.Tell(att.ID, fmt.Sprintf("You miss %s.", def.Name))
		w.Tell(def.ID, fmt.Sprintf("%s misses you.", sentence(att.Name)))
		w.reportRoomExcept(att.RoomID, fmt.Sprintf("%s misses %s.", sentence(att.Name), def.Name), att.ID, def.ID)
		return
	}
	w.Tell(att.ID, fmt.Sprintf("You hit %s for %d damage.", def.Name, res.Damage))
	w.Tell(def.ID, fmt.Sprintf("%s hits you for %d damage.", sentence(att.Name), res.Damage))
	w.reportRoomExcept(att.RoomID, fmt.Sprintf("%s hits %s.", sentence(att.Name), def.Name), att.ID, def.ID)

	if def.Enemy != nil {
		def.Enemy.Targets = combat.AddAggro(def.Enemy.Targets, att.ID, w.cfg.AggroIncrement)
	}
	if def.Player != nil {
		def.Player.LastDamage = w.now()
		def.Player.Regenerating = false
	}
	if combat.ApplyDamage(def.Fighter, res.Damage) {
		w.kill(def)
	}
}

// kill processes the death of victim. It runs once per death.
func (w *World) kill(victim *entity.Object) {
	room := victim.RoomID
	notified := []entity.ID{victim.ID}
	for _, id := range victim.Fighter.Attackers {
		if _, ok := w.active[id]; ok {
			w.Tell(id, sentence(victim.Name)+" has died.")
			notified = append(notified, id)
		}
	}
	for _, id := range w.order {
		if p := w.active[id].obj; p.Player.Target == victim.ID {
			p.Player.Target = 0
		}
	}
	w.reportRoomExcept(room, sentence(victim.Name)+" has been slain.", notified...)
	w.logger.Info("fighter died",
		zap.Uint64("object_id", uint64(victim.ID)),
		zap.String("name", victim.Name),
		zap.String("room", room),
	)

	if victim.Player != nil {
		w.respawn(victim)
		return
	}
	if victim.Enemy != nil {
		w.distributeRewards(victim)
	}
	w.RemoveObject(victim.ID)
}

func (w *World) distributeRewards(e *entity.Object) {
	xp := combat.Distribute(e.Enemy.XPReward, e.Enemy.Targets)
	gold := combat.Distribute(e.Enemy.GoldReward, e.Enemy.Targets)
	for i, share := range xp {
		p := w.rosterByID(share.Attacker)
		if p == nil {
			continue
		}
		g := 0
		if i < len(gold) {
			g = gold[i].Amount
		}
		w.GrantReward(p, share.Amount, g)
	}
	e.Enemy.Targets = nil
}

// respawn restores a dead player at the start room.
func (w *World) respawn(p *entity.Object) {
	w.Tell(p.ID, "You have died.")
	p.Player.Target = 0
	p.Player.Regenerating = false
	combat.Revive(p.Fighter)
	p.Fighter.Attackers = nil
	for _, o := range w.objects {
		if o.Enemy != nil {
			o.Enemy.Targets = combat.Remove(o.Enemy.Targets, p.ID)
		}
	}

	start := w.rooms.StartRoom()
	w.ReportRoom(p.RoomID, p.ID, p.Name+"'s body fades away.")
	w.relocate(p, start)
	w.ReportRoom(start, p.ID, p.Name+" appears, looking shaken.")
	w.Tell(p.ID, w.DescribeRoom(p))
}

// enemyThink attacks the highest-aggro attacker present and decays aggro.
func (w *World) enemyThink(e *entity.Object) {
	if len(e.Enemy.Targets) == 0 || !e.Alive() {
		return
	}
	target, ok := combat.SelectTarget(e.Enemy.Targets, func(id entity.ID) bool {
		m, ok := w.active[id]
		return ok && m.obj.RoomID == e.RoomID && m.obj.Alive()
	})
	if ok {
		p := w.active[target].obj
		w.strike(e, p)
		w.CombatPrompt(p.ID)
	}
	e.Enemy.Targets = combat.Decay(e.Enemy.Targets, w.cfg.AggroDecay)
}

// Consider compares p's level with the fighter named name.
func (w *World) Consider(p *entity.Object, name string) (*entity.Object, string, error) {
	t := w.ObjectInRoom(name, p.RoomID)
	if t == nil {
		return nil, "", ErrNotFound
	}
	if t.Fighter == nil {
		return t, "", ErrNotHostile
	}
	return t, combat.Difficulty(p.Fighter.Level, t.Fighter.Level), nil
}
