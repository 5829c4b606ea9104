// Package command provides the command registry, parser, interpreter and
// built-in command handlers.
package command

import "github.com/cory-johannsen/hearth/internal/game/world"

// Categories for organizing commands.
const (
	CategoryMovement      = "movement"
	CategoryWorld         = "world"
	CategoryItems         = "items"
	CategoryCombat        = "combat"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
	CategoryAdmin         = "admin"
)

// HandlerFunc runs one command inside an authority operation. A UserError
// is shown to the player; any other error is logged.
type HandlerFunc func(c *Context) error

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command in help output.
	Category string
	// Admin restricts the command to administrators. Others see it as unknown.
	Admin bool
	// Handler runs the command.
	Handler HandlerFunc
}

// BuiltinCommands returns every command the game ships with. Movement
// commands are derived from the standard exit directions.
func BuiltinCommands() []Command {
	cmds := make([]Command, 0, len(world.StandardDirections)+len(builtins))
	for _, d := range world.StandardDirections {
		cmds = append(cmds, Command{
			Name:     string(d),
			Help:     "Walk " + string(d),
			Category: CategoryMovement,
			Handler:  handleMove,
		})
	}
	return append(cmds, builtins...)
}

var builtins = []Command{
	{Name: "go", Aliases: []string{"walk"}, Category: CategoryMovement, Handler: handleGo,
		Help: "Leave through a named exit (go <exit>)"},

	{Name: "look", Aliases: []string{"examine"}, Category: CategoryWorld, Handler: handleLook,
		Help: "Describe the room, or something in it (look [at X])"},
	{Name: "exits", Category: CategoryWorld, Handler: handleExits,
		Help: "List the ways out of this room"},
	{Name: "read", Category: CategoryWorld, Handler: handleRead,
		Help: "Read what is written on something (read X)"},
	{Name: "who", Category: CategoryWorld, Handler: handleWho,
		Help: "List everyone playing right now"},

	{Name: "inventory", Category: CategoryItems, Handler: handleInventory,
		Help: "Show what you carry and wear"},
	{Name: "take", Aliases: []string{"get"}, Category: CategoryItems, Handler: handleTake,
		Help: "Pick something up (take X)"},
	{Name: "drop", Category: CategoryItems, Handler: handleDrop,
		Help: "Put down something you carry (drop X)"},
	{Name: "eat", Aliases: []string{"drink"}, Category: CategoryItems, Handler: handleConsume,
		Help: "Eat or drink something you carry (eat X)"},
	{Name: "equip", Aliases: []string{"wield", "wear"}, Category: CategoryItems, Handler: handleEquip,
		Help: "Ready a weapon or armor (equip X)"},
	{Name: "unequip", Aliases: []string{"remove"}, Category: CategoryItems, Handler: handleUnequip,
		Help: "Put an equipped item back in your pack (unequip X)"},

	{Name: "attack", Aliases: []string{"kill"}, Category: CategoryCombat, Handler: handleAttack,
		Help: "Start a fight (attack X)"},
	{Name: "yield", Category: CategoryCombat, Handler: handleYield,
		Help: "Stop attacking"},
	{Name: "consider", Aliases: []string{"con"}, Category: CategoryCombat, Handler: handleConsider,
		Help: "Judge how dangerous a foe is (consider X)"},
	{Name: "stats", Aliases: []string{"score"}, Category: CategoryCombat, Handler: handleStats,
		Help: "Show your level, health and attributes"},

	{Name: "say", Category: CategoryCommunication, Handler: handleSay,
		Help: "Speak to everyone in the room"},
	{Name: "emote", Aliases: []string{"em"}, Category: CategoryCommunication, Handler: handleEmote,
		Help: "Act something out (emote waves)"},
	{Name: "talk", Category: CategoryCommunication, Handler: handleTalk,
		Help: "Strike up a conversation (talk to X)"},

	{Name: "config", Category: CategorySystem, Handler: handleConfig,
		Help: "Show or change settings (config prompt on|off, config password <secret>)"},
	{Name: "help", Category: CategorySystem, Handler: handleHelp,
		Help: "List commands, or explain one (help [command])"},
	{Name: "quit", Aliases: []string{"exit"}, Category: CategorySystem, Handler: handleQuit,
		Help: "Leave the game"},

	{Name: "debug", Category: CategoryAdmin, Admin: true, Handler: handleDebug,
		Help: "Toggle debug details in room output"},
	{Name: "teleport", Aliases: []string{"tp"}, Category: CategoryAdmin, Admin: true, Handler: handleTeleport,
		Help: "Jump to a room or player (teleport <room|player>)"},
	{Name: "shutdown", Category: CategoryAdmin, Admin: true, Handler: handleShutdown,
		Help: "Save the world and stop the server"},
}

// IsMovementCommand reports whether name is a bare direction command.
func IsMovementCommand(name string) bool {
	return world.Direction(name).IsStandard()
}
