package authority

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/game/combat"
	"github.com/cory-johannsen/hearth/internal/game/dice"
	"github.com/cory-johannsen/hearth/internal/game/entity"
	"github.com/cory-johannsen/hearth/internal/game/match"
	"github.com/cory-johannsen/hearth/internal/game/world"
	"github.com/cory-johannsen/hearth/internal/scripting"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrHeavy         = errors.New("too heavy")
	ErrCannotTake    = errors.New("cannot be taken")
	ErrAlreadyActive = errors.New("already playing")
	ErrBadPassword   = errors.New("wrong password")
	ErrBadName       = errors.New("invalid name")
	ErrUnknownRoom   = errors.New("unknown room")
	ErrNoExit        = errors.New("no exit")
	ErrDuplicate     = errors.New("duplicate object id")
	ErrNotHostile    = errors.New("not hostile")
	ErrNotEquipment  = errors.New("not equipment")
	ErrNotConsumable = errors.New("not consumable")
	ErrActivePlayers = errors.New("players are active")
	ErrSilent        = errors.New("nothing to say")
)

// Sink receives output for one active player. Send must never block.
type Sink interface {
	Send(text string)
}

// Tracker starts scheduler jobs for autonomous objects. Its methods are
// called on the authority goroutine and must return without waiting on it.
type Tracker interface {
	Track(obj *entity.Object)
	Engage(playerID entity.ID)
}

// Scripter runs a named Lua behavior hook for an object.
type Scripter interface {
	Call(hook string, self scripting.Self, api scripting.API) error
}

type nopTracker struct{}

func (nopTracker) Track(*entity.Object) {}
func (nopTracker) Engage(entity.ID)     {}

// Config holds the gameplay tuning the world applies.
type Config struct {
	Admins         []string
	PlayerMaxHP    int
	PlayerStats    entity.Stats
	PlayerThink    time.Duration
	RegenStart     time.Duration
	RegenContinue  time.Duration
	RegenPercent   int
	AttackBase     time.Duration
	AttackMin      time.Duration
	AttackMax      time.Duration
	AggroIncrement int
	AggroDecay     int
	Levels         combat.LevelTable
}

// ConfigFromGame converts the game section of the server configuration.
func ConfigFromGame(g config.GameConfig) Config {
	levels := make(combat.LevelTable, 0, len(g.Levels))
	for _, l := range g.Levels {
		levels = append(levels, combat.Level{
			XP:    l.XP,
			MaxHP: l.MaxHP,
			Stats: entity.Stats{Strength: l.Strength, Defense: l.Defense, Agility: l.Agility},
		})
	}
	return Config{
		Admins:      g.Admins,
		PlayerMaxHP: g.Player.MaxHP,
		PlayerStats: entity.Stats{
			Strength: g.Player.Stats.Strength,
			Defense:  g.Player.Stats.Defense,
			Agility:  g.Player.Stats.Agility,
		},
		PlayerThink:    g.Player.ThinkInterval,
		RegenStart:     g.Regen.StartDelay,
		RegenContinue:  g.Regen.ContinueDelay,
		RegenPercent:   g.Regen.Percent,
		AttackBase:     g.Attack.BaseInterval,
		AttackMin:      g.Attack.MinInterval,
		AttackMax:      g.Attack.MaxInterval,
		AggroIncrement: g.Aggro.Increment,
		AggroDecay:     g.Aggro.Decay,
		Levels:         levels,
	}
}

// Option customizes a World.
type Option func(*World)

// WithTracker sets the scheduler that drives autonomous objects.
func WithTracker(t Tracker) Option { return func(w *World) { w.tracker = t } }

// WithScripter sets the Lua behavior runner.
func WithScripter(s Scripter) Option { return func(w *World) { w.scripts = s } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(w *World) { w.now = now } }

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option { return func(w *World) { w.hashCost = cost } }

type member struct {
	obj  *entity.Object
	sink Sink
}

// World is the shared game state. It is not safe for concurrent use; all
// access goes through Authority.Do.
type World struct {
	cfg      Config
	rooms    *world.Manager
	ids      entity.IDSource
	roller   *dice.Roller
	logger   *zap.Logger
	tracker  Tracker
	scripts  Scripter
	now      func() time.Time
	hashCost int

	objects map[entity.ID]*entity.Object
	byRoom  map[string][]entity.ID
	roster  map[string]*entity.Object
	active  map[entity.ID]*member
	order   []entity.ID
}

// NewWorld creates an empty world over the given rooms.
//
// Precondition: rooms, roller and logger must be non-nil.
func NewWorld(rooms *world.Manager, cfg Config, roller *dice.Roller, logger *zap.Logger, opts ...Option) *World {
	if cfg.AggroIncrement <= 0 {
		cfg.AggroIncrement = combat.DefaultAggroIncrement
	}
	if cfg.AggroDecay <= 0 {
		cfg.AggroDecay = combat.DefaultAggroDecay
	}
	w := &World{
		cfg:      cfg,
		rooms:    rooms,
		roller:   roller,
		logger:   logger,
		tracker:  nopTracker{},
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
		objects:  make(map[entity.ID]*entity.Object),
		byRoom:   make(map[string][]entity.ID),
		roster:   make(map[string]*entity.Object),
		active:   make(map[entity.ID]*member),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Counts summarizes the world for status reporting.
type Counts struct {
	Rooms     int
	Objects   int
	Active    int
	Roster    int
	HighWater entity.ID
}

// Counts returns the current world totals.
func (w *World) Counts() Counts {
	return Counts{
		Rooms:     w.rooms.RoomCount(),
		Objects:   len(w.objects),
		Active:    len(w.active),
		Roster:    len(w.roster),
		HighWater: w.ids.HighWater(),
	}
}

// StartRoom returns the room new and respawning players appear in.
func (w *World) StartRoom() string {
	return w.rooms.StartRoom()
}

// Levels returns the configured level table.
func (w *World) Levels() combat.LevelTable {
	return w.cfg.Levels
}

// ---------------------------------------------------------------------------
// Rooms

// ExitView describes one exit for display.
type ExitView struct {
	Direction world.Direction
	To        string
	ToName    string
}

// Room returns the room with the given ID.
func (w *World) Room(id string) (*world.Room, bool) {
	return w.rooms.Room(id)
}

// RoomExits lists the exits of room id in declaration order.
func (w *World) RoomExits(id string) []ExitView {
	room, ok := w.rooms.Room(id)
	if !ok {
		return nil
	}
	views := make([]ExitView, 0, len(room.Exits))
	for _, e := range room.Exits {
		v := ExitView{Direction: e.Direction, To: e.To}
		if to, ok := w.rooms.Room(e.To); ok {
			v.ToName = to.Name
		}
		views = append(views, v)
	}
	return views
}

// RoomContainsExit returns the destination of the exit named dir in room id.
func (w *World) RoomContainsExit(id, dir string) (string, bool) {
	room, ok := w.rooms.Room(id)
	if !ok {
		return "", false
	}
	e, ok := room.Exit(world.Direction(dir))
	if !ok {
		return "", false
	}
	return e.To, true
}

// ---------------------------------------------------------------------------
// Objects

func objectName(o *entity.Object) string { return o.Name }

// Object returns the world object or active player with the given ID.
func (w *World) Object(id entity.ID) (*entity.Object, bool) {
	if o, ok := w.objects[id]; ok {
		return o, true
	}
	if m, ok := w.active[id]; ok {
		return m.obj, true
	}
	return nil, false
}

// PlayersInRoom returns the active players in room id in login order.
func (w *World) PlayersInRoom(roomID string) []*entity.Object {
	var out []*entity.Object
	for _, id := range w.order {
		if p := w.active[id].obj; p.RoomID == roomID {
			out = append(out, p)
		}
	}
	return out
}

// ObjectsInRoom returns the visible non-player objects in room id in the
// order they arrived.
func (w *World) ObjectsInRoom(roomID string) []*entity.Object {
	var out []*entity.Object
	for _, id := range w.byRoom[roomID] {
		if o := w.objects[id]; o.IsVisible() {
			out = append(out, o)
		}
	}
	return out
}

// ObjectInRoom resolves name against the active players in the room first,
// then the other visible objects there. It returns nil when nothing matches.
func (w *World) ObjectInRoom(name, roomID string) *entity.Object {
	if p, ok := match.Best(name, w.PlayersInRoom(roomID), objectName); ok {
		return p
	}
	if o, ok := match.Best(name, w.ObjectsInRoom(roomID), objectName); ok {
		return o
	}
	return nil
}

// AddObject places obj in the world, assigning an ID when it has none, and
// starts its scheduler job when it is autonomous.
//
// Precondition: obj is not a player.
// Postcondition: On success obj.ID is unique and obj.RoomID names a known room.
func (w *World) AddObject(obj *entity.Object) error {
	if obj == nil {
		return errors.New("add object: nil object")
	}
	if obj.Player != nil {
		return fmt.Errorf("add object %q: players join through Activate", obj.Name)
	}
	if err := obj.Validate(); err != nil {
		return fmt.Errorf("add object: %w", err)
	}
	if _, ok := w.rooms.Room(obj.RoomID); !ok {
		w.logger.Error("object placed in unknown room",
			zap.Uint64("object_id", uint64(obj.ID)),
			zap.String("name", obj.Name),
			zap.String("room", obj.RoomID),
		)
		return fmt.Errorf("add object %q: %w %q", obj.Name, ErrUnknownRoom, obj.RoomID)
	}
	if obj.ID == 0 {
		obj.ID = w.ids.Next()
	} else {
		if _, dup := w.Object(obj.ID); dup {
			return fmt.Errorf("add object %q: %w %d", obj.Name, ErrDuplicate, obj.ID)
		}
		w.ids.Observe(obj.ID)
	}
	w.objects[obj.ID] = obj
	w.byRoom[obj.RoomID] = append(w.byRoom[obj.RoomID], obj.ID)
	if obj.IsAutonomous() {
		w.tracker.Track(obj)
	}
	return nil
}

// RemoveObject takes the object with the given ID out of the world. Its
// scheduler job stops at its next tick. It reports whether anything was removed.
func (w *World) RemoveObject(id entity.ID) bool {
	obj, ok := w.objects[id]
	if !ok {
		return false
	}
	delete(w.objects, id)
	w.unindex(obj.RoomID, id)
	return true
}

func (w *World) unindex(roomID string, id entity.ID) {
	ids := w.byRoom[roomID]
	for i, v := range ids {
		if v == id {
			w.byRoom[roomID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(w.byRoom[roomID]) == 0 {
		delete(w.byRoom, roomID)
	}
}

func (w *World) relocate(obj *entity.Object, to string) {
	if obj.Player == nil {
		w.unindex(obj.RoomID, obj.ID)
		w.byRoom[to] = append(w.byRoom[to], obj.ID)
	}
	obj.RoomID = to
}

// SpawnIfAbsent places a fresh copy of template in template.RoomID unless an
// object with the same name is already there. It returns the object present
// after the call and whether it was newly spawned.
func (w *World) SpawnIfAbsent(template *entity.Object) (*entity.Object, bool) {
	for _, id := range w.byRoom[template.RoomID] {
		if o := w.objects[id]; o.Spawner == nil && strings.EqualFold(o.Name, template.Name) {
			return o, false
		}
	}
	obj := template.Clone()
	obj.ID = 0
	if obj.Fighter != nil {
		obj.Fighter.HP = obj.Fighter.MaxHP
		obj.Fighter.Dead = false
		obj.Fighter.Attackers = nil
	}
	if obj.Enemy != nil {
		obj.Enemy.Targets = nil
	}
	if err := w.AddObject(obj); err != nil {
		w.logger.Error("spawn failed", zap.String("name", template.Name), zap.Error(err))
		return nil, false
	}
	w.ReportRoom(obj.RoomID, 0, sentence(obj.Name)+" appears.")
	w.logger.Debug("spawned",
		zap.Uint64("object_id", uint64(obj.ID)),
		zap.String("name", obj.Name),
		zap.String("room", obj.RoomID),
	)
	return obj, true
}

// Populate adds initial placements to the world. Placements that fail are
// logged and skipped. It returns the number added.
func (w *World) Populate(placements []*entity.Object) int {
	n := 0
	for _, obj := range placements {
		if err := w.AddObject(obj); err != nil {
			w.logger.Error("skipping placement", zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Take moves the visible object named name from p's room into p's inventory.
func (w *World) Take(p *entity.Object, name string) (*entity.Object, error) {
	obj, ok := match.Best(name, w.ObjectsInRoom(p.RoomID), objectName)
	if !ok {
		return nil, ErrNotFound
	}
	if obj.Fighter != nil || obj.Mobile != nil {
		return obj, ErrCannotTake
	}
	if obj.Heavy {
		return obj, ErrHeavy
	}
	room := obj.RoomID
	w.RemoveObject(obj.ID)
	obj.RoomID = ""
	p.Player.Inventory = append(p.Player.Inventory, obj)
	w.ReportRoom(room, p.ID, fmt.Sprintf("%s takes %s.", p.Name, obj.Name))
	return obj, nil
}

// Drop moves the carried item named name from p's inventory into p's room.
// The item keeps its ID.
func (w *World) Drop(p *entity.Object, name string) (*entity.Object, error) {
	i := match.Index(name, inventoryNames(p))
	if i < 0 {
		return nil, ErrNotFound
	}
	obj := p.Player.Inventory[i]
	obj.RoomID = p.RoomID
	if err := w.AddObject(obj); err != nil {
		obj.RoomID = ""
		return nil, err
	}
	p.Player.Inventory = append(p.Player.Inventory[:i:i], p.Player.Inventory[i+1:]...)
	w.ReportRoom(p.RoomID, p.ID, fmt.Sprintf("%s drops %s.", p.Name, obj.Name))
	return obj, nil
}

func inventoryNames(p *entity.Object) []string {
	names := make([]string, len(p.Player.Inventory))
	for i, it := range p.Player.Inventory {
		names[i] = it.Name
	}
	return names
}

// ---------------------------------------------------------------------------
// Reporting

func asLine(text string) string {
	if strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

// sentence upper-cases the first letter of s.
func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ReportRoom sends text to every active player in roomID except exclude.
func (w *World) ReportRoom(roomID string, exclude entity.ID, text string) {
	w.reportRoomExcept(roomID, text, exclude)
}

func (w *World) reportRoomExcept(roomID, text string, exclude ...entity.ID) {
	line := asLine(text)
	for _, id := range w.order {
		m := w.active[id]
		if m.obj.RoomID != roomID || contains(exclude, id) {
			continue
		}
		m.sink.Send(line)
	}
}

func contains(ids []entity.ID, id entity.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ReportArrival tells obj's room that it arrived. from is the direction it
// came from as seen from the room; empty or non-standard omits it.
func (w *World) ReportArrival(obj *entity.Object, from world.Direction) {
	text := sentence(obj.Name) + " arrives."
	if from.IsStandard() {
		text = fmt.Sprintf("%s arrives from %s.", sentence(obj.Name), describeFrom(from))
	}
	w.ReportRoom(obj.RoomID, obj.ID, text)
}

func describeFrom(d world.Direction) string {
	switch d {
	case world.Up:
		return "above"
	case world.Down:
		return "below"
	}
	return "the " + string(d)
}

// ReportDeparture tells obj's current room that it is leaving through dir.
func (w *World) ReportDeparture(obj *entity.Object, dir world.Direction) {
	text := sentence(obj.Name) + " leaves."
	if dir != "" {
		text = fmt.Sprintf("%s leaves %s.", sentence(obj.Name), dir)
	}
	w.ReportRoom(obj.RoomID, obj.ID, text)
}

// ReportAll sends text to every active player.
func (w *World) ReportAll(text string) {
	line := asLine(text)
	for _, id := range w.order {
		w.active[id].sink.Send(line)
	}
}

// Tell sends one line of text to the active player id. Inactive players and
// non-players are ignored.
func (w *World) Tell(id entity.ID, text string) {
	if m, ok := w.active[id]; ok {
		m.sink.Send(asLine(text))
	}
}

// Prompt sends the status prompt to the active player id when enabled.
//
// Postcondition: The prompt has the form "Lvl: N (P%) HP: C/M> ".
func (w *World) Prompt(id entity.ID) {
	m, ok := w.active[id]
	if !ok || !m.obj.Player.Settings.Prompt {
		return
	}
	f := m.obj.Fighter
	m.sink.Send(fmt.Sprintf("Lvl: %d (%d%%) HP: %d/%d> ", f.Level, w.cfg.Levels.Progress(f), f.HP, f.MaxHP))
}

// CombatPrompt sends the short prompt shown after each combat round.
func (w *World) CombatPrompt(id entity.ID) {
	m, ok := w.active[id]
	if !ok || !m.obj.Player.Settings.Prompt {
		return
	}
	f := m.obj.Fighter
	m.sink.Send(fmt.Sprintf("HP: %d/%d> ", f.HP, f.MaxHP))
}

// ---------------------------------------------------------------------------
// Roster

// NormalizeName validates a player name (2 to 16 letters) and capitalizes it.
func NormalizeName(name string) (string, error) {
	if len(name) < 2 || len(name) > 16 {
		return "", fmt.Errorf("%w: names are 2 to 16 letters", ErrBadName)
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", fmt.Errorf("%w: names may only contain letters", ErrBadName)
		}
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:]), nil
}

func (w *World) isAdmin(name string) bool {
	for _, a := range w.cfg.Admins {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

func (w *World) newPlayer(name string) *entity.Object {
	return &entity.Object{
		ID:     w.ids.Next(),
		Kind:   entity.KindPlayer,
		Name:   name,
		RoomID: w.rooms.StartRoom(),
		Mobile: &entity.Mobile{ThinkInterval: w.cfg.PlayerThink},
		Fighter: &entity.Fighter{
			Level: 1,
			HP:    w.cfg.PlayerMaxHP,
			MaxHP: w.cfg.PlayerMaxHP,
			Base:  w.cfg.PlayerStats,
		},
		Player: &entity.Player{
			Equipped: make(map[entity.Slot]*entity.Object),
			Settings: entity.Settings{Prompt: true},
		},
	}
}

// Activate binds a session sink to the named player, creating the player on
// first login.
//
// Postcondition: On success the player is active, placed in a known room and
// its think job is tracked. Returns ErrBadName, ErrAlreadyActive or
// ErrBadPassword otherwise.
func (w *World) Activate(name, password string, sink Sink) (*entity.Object, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(name)
	p, known := w.roster[key]
	if known {
		if _, busy := w.active[p.ID]; busy {
			return nil, ErrAlreadyActive
		}
		if p.Player.PasswordHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(p.Player.PasswordHash), []byte(password)); err != nil {
				return nil, ErrBadPassword
			}
		}
	} else {
		p = w.newPlayer(name)
		if password != "" {
			if err := w.SetPassword(p, password); err != nil {
				return nil, err
			}
		}
		w.roster[key] = p
		w.logger.Info("player created", zap.String("player", name), zap.Uint64("object_id", uint64(p.ID)))
	}

	if w.isAdmin(name) {
		p.Player.Admin = true
	}
	if _, ok := w.rooms.Room(p.RoomID); !ok {
		w.logger.Warn("player in unknown room, moving to start",
			zap.String("player", name),
			zap.String("room", p.RoomID),
		)
		p.RoomID = w.rooms.StartRoom()
	}
	if p.Player.Equipped == nil {
		p.Player.Equipped = make(map[entity.Slot]*entity.Object)
	}
	p.Player.Target = 0
	p.Player.Regenerating = false
	p.Player.LastDamage = time.Time{}
	p.Player.LastRegen = time.Time{}
	p.Player.LastLine = ""
	if !p.Alive() {
		combat.Revive(p.Fighter)
	}

	w.active[p.ID] = &member{obj: p, sink: sink}
	w.order = append(w.order, p.ID)
	w.ReportRoom(p.RoomID, p.ID, p.Name+" has entered the world.")
	w.tracker.Track(p)
	w.logger.Info("player activated",
		zap.String("player", p.Name),
		zap.Uint64("object_id", uint64(p.ID)),
		zap.String("room", p.RoomID),
	)
	return p, nil
}

// SetPassword stores a bcrypt hash of password for p.
func (w *World) SetPassword(p *entity.Object, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), w.hashCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	p.Player.PasswordHash = string(hash)
	return nil
}

// Deactivate releases the active player id. Its think and attack jobs stop
// at their next tick and enemies no longer consider it a target.
func (w *World) Deactivate(id entity.ID) {
	m, ok := w.active[id]
	if !ok {
		return
	}
	delete(w.active, id)
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
	p := m.obj
	p.Player.Target = 0
	w.ReportRoom(p.RoomID, p.ID, p.Name+" has left the world.")
	w.logger.Info("player deactivated", zap.String("player", p.Name), zap.Uint64("object_id", uint64(p.ID)))
}

// IsActive reports whether id is an active player.
func (w *World) IsActive(id entity.ID) bool {
	_, ok := w.active[id]
	return ok
}

// ActivePlayer returns the active player with the given ID.
func (w *World) ActivePlayer(id entity.ID) (*entity.Object, bool) {
	m, ok := w.active[id]
	if !ok {
		return nil, false
	}
	return m.obj, true
}

// ActivePlayers returns the active players in login order.
func (w *World) ActivePlayers() []*entity.Object {
	out := make([]*entity.Object, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.active[id].obj)
	}
	return out
}

// Player returns the roster entry for name, active or not.
func (w *World) Player(name string) (*entity.Object, bool) {
	p, ok := w.roster[strings.ToLower(name)]
	return p, ok
}

func (w *World) rosterByID(id entity.ID) *entity.Object {
	if m, ok := w.active[id]; ok {
		return m.obj
	}
	for _, p := range w.roster {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// GrantReward adds xp and gold to p and applies any level gains.
//
// Postcondition: p's level never decreases.
func (w *World) GrantReward(p *entity.Object, xp, gold int) {
	if xp <= 0 && gold <= 0 {
		return
	}
	p.Fighter.XP += xp
	p.Player.Gold += gold
	w.Tell(p.ID, fmt.Sprintf("You gain %d experience and %d gold.", xp, gold))
	if gained := w.cfg.Levels.Apply(p.Fighter); gained > 0 {
		w.Tell(p.ID, fmt.Sprintf("You are now level %d!", p.Fighter.Level))
		w.logger.Info("player leveled",
			zap.String("player", p.Name),
			zap.Int("level", p.Fighter.Level),
		)
	}
}

// ---------------------------------------------------------------------------
// Movement

// MovePlayer moves p through the exit named dir.
func (w *World) MovePlayer(p *entity.Object, dir string) error {
	to, ok := w.RoomContainsExit(p.RoomID, dir)
	if !ok {
		return ErrNoExit
	}
	room, _ := w.rooms.Room(p.RoomID)
	exit, _ := room.Exit(world.Direction(dir))
	w.moveTo(p, to, exit.Direction)
	return nil
}

// MoveObject moves obj to the room toRoom, announcing the exit it uses when
// one connects the two rooms.
func (w *World) MoveObject(obj *entity.Object, toRoom string) error {
	if _, ok := w.rooms.Room(toRoom); !ok {
		return fmt.Errorf("move %q: %w %q", obj.Name, ErrUnknownRoom, toRoom)
	}
	var dir world.Direction
	if room, ok := w.rooms.Room(obj.RoomID); ok {
		for _, e := range room.Exits {
			if e.To == toRoom {
				dir = e.Direction
				break
			}
		}
	}
	w.moveTo(obj, toRoom, dir)
	return nil
}

func (w *World) moveTo(obj *entity.Object, to string, dir world.Direction) {
	w.ReportDeparture(obj, dir)
	w.relocate(obj, to)
	w.ReportArrival(obj, dir.Opposite())
	w.dropStaleTarget(obj)
}

// Teleport moves p directly to roomID.
func (w *World) Teleport(p *entity.Object, roomID string) error {
	if _, ok := w.rooms.Room(roomID); !ok {
		return fmt.Errorf("teleport: %w %q", ErrUnknownRoom, roomID)
	}
	w.ReportRoom(p.RoomID, p.ID, p.Name+" vanishes in a puff of smoke.")
	w.relocate(p, roomID)
	w.ReportRoom(p.RoomID, p.ID, p.Name+" appears in a puff of smoke.")
	w.dropStaleTarget(p)
	return nil
}

// dropStaleTarget clears a player's target once they are no longer together.
func (w *World) dropStaleTarget(obj *entity.Object) {
	if obj.Player != nil && obj.Player.Target != 0 {
		if t, ok := w.objects[obj.Player.Target]; !ok || t.RoomID != obj.RoomID {
			obj.Player.Target = 0
		}
	}
	if obj.Player == nil {
		for _, id := range w.order {
			p := w.active[id].obj
			if p.Player.Target == obj.ID && p.RoomID != obj.RoomID {
				p.Player.Target = 0
			}
		}
	}
}
