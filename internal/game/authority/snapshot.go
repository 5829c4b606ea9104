package authority

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// Snapshot is the persistent state of a world: every known player, every
// object in the world and the ID high-water mark.
type Snapshot struct {
	HighWater entity.ID        `yaml:"high_water" json:"high_water"`
	Players   []*entity.Object `yaml:"players" json:"players"`
	Objects   []*entity.Object `yaml:"objects" json:"objects"`
}

// Empty reports whether s holds no players and no objects.
func (s Snapshot) Empty() bool {
	return len(s.Players) == 0 && len(s.Objects) == 0
}

// Snapshot returns deep copies of the roster (sorted by name) and the world
// objects (sorted by ID).
func (w *World) Snapshot() Snapshot {
	s := Snapshot{HighWater: w.ids.HighWater()}
	for _, p := range w.roster {
		c := p.Clone()
		c.Player.Target = 0
		s.Players = append(s.Players, c)
	}
	sort.Slice(s.Players, func(i, j int) bool { return s.Players[i].Name < s.Players[j].Name })
	for _, o := range w.objects {
		s.Objects = append(s.Objects, o.Clone())
	}
	sort.Slice(s.Objects, func(i, j int) bool { return s.Objects[i].ID < s.Objects[j].ID })
	return s
}

// Load installs the players and objects of s. Records that fail validation
// or reference unknown rooms are logged and skipped; players in unknown rooms
// are moved to the start room instead.
//
// Precondition: no player is active.
func (w *World) Load(s Snapshot) error {
	if len(w.active) > 0 {
		return fmt.Errorf("load snapshot: %w", ErrActivePlayers)
	}
	w.ids.Observe(s.HighWater)

	for _, p := range s.Players {
		if p == nil || p.Player == nil {
			w.logger.Error("skipping malformed player record")
			continue
		}
		if err := p.Validate(); err != nil {
			w.logger.Error("skipping invalid player record", zap.String("player", p.Name), zap.Error(err))
			continue
		}
		key := strings.ToLower(p.Name)
		if _, dup := w.roster[key]; dup {
			w.logger.Error("skipping duplicate player record", zap.String("player", p.Name))
			continue
		}
		if _, ok := w.rooms.Room(p.RoomID); !ok {
			w.logger.Warn("player record in unknown room, moving to start",
				zap.String("player", p.Name),
				zap.String("room", p.RoomID),
			)
			p.RoomID = w.rooms.StartRoom()
		}
		if p.ID == 0 {
			p.ID = w.ids.Next()
		}
		w.ids.Observe(p.ID)
		for _, it := range p.Player.Inventory {
			if it != nil {
				w.ids.Observe(it.ID)
			}
		}
		for _, it := range p.Player.Equipped {
			if it != nil {
				w.ids.Observe(it.ID)
			}
		}
		w.roster[key] = p
	}

	for _, o := range s.Objects {
		if o == nil {
			continue
		}
		if err := w.AddObject(o); err != nil {
			w.logger.Error("skipping snapshot object",
				zap.Uint64("object_id", uint64(o.ID)),
				zap.Error(err),
			)
		}
	}
	w.logger.Info("snapshot loaded",
		zap.Int("players", len(w.roster)),
		zap.Int("objects", len(w.objects)),
		zap.Uint64("high_water", uint64(w.ids.HighWater())),
	)
	return nil
}
