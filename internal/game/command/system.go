package command

import (
	"fmt"
	"strings"
)

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func handleConfig(c *Context) error {
	s := &c.Player.Player.Settings
	if len(c.Args) == 0 {
		lines := []string{"Settings:", "  prompt   " + onOff(s.Prompt)}
		if c.Player.Player.Admin {
			lines = append(lines, "  debug    "+onOff(s.Debug))
		}
		c.Tell(strings.Join(lines, "\n"))
		return nil
	}

	option := strings.ToLower(c.Args[0])
	switch option {
	case "prompt":
		if len(c.Args) != 2 {
			return UserError("Usage: config prompt on|off")
		}
		switch strings.ToLower(c.Args[1]) {
		case "on":
			s.Prompt = true
		case "off":
			s.Prompt = false
		default:
			return UserError("Usage: config prompt on|off")
		}
		c.Tell("Prompt " + onOff(s.Prompt) + ".")
	case "password":
		if len(c.Args) != 2 {
			return UserError("Usage: config password <secret>")
		}
		if err := c.World.SetPassword(c.Player, c.Args[1]); err != nil {
			return err
		}
		c.Tell("Password changed.")
	default:
		return userErrorf("Unknown setting %q.", option)
	}
	return nil
}

func handleHelp(c *Context) error {
	admin := c.Player.Player.Admin
	if c.Object != "" {
		cmd, ok := c.registry.Resolve(strings.ToLower(c.Object))
		if !ok || (cmd.Admin && !admin) {
			return userErrorf("There is no help on %q.", c.Object)
		}
		text := fmt.Sprintf("%s: %s", cmd.Name, cmd.Help)
		if len(cmd.Aliases) > 0 {
			text += "\nAliases: " + strings.Join(cmd.Aliases, ", ")
		}
		c.Tell(text)
		return nil
	}

	var b strings.Builder
	b.WriteString("Commands:")
	for _, sec := range c.registry.Sections(admin) {
		words := make([]string, len(sec.Commands))
		for i, cmd := range sec.Commands {
			words[i] = cmd.Name
		}
		fmt.Fprintf(&b, "\n  %s: %s", sec.Category, strings.Join(words, ", "))
	}
	b.WriteString("\nType 'help <command>' for details.")
	c.Tell(b.String())
	return nil
}

func handleQuit(c *Context) error {
	c.Tell("Goodbye.")
	c.result.Quit = true
	c.noPrompt = true
	return nil
}

func handleDebug(c *Context) error {
	s := &c.Player.Player.Settings
	s.Debug = !s.Debug
	c.Tell("Debug mode " + onOff(s.Debug) + ".")
	return nil
}

func handleTeleport(c *Context) error {
	dest := strings.TrimSpace(c.Raw)
	if dest == "" {
		return UserError("Teleport where?")
	}
	room := dest
	if _, ok := c.World.Room(room); !ok {
		p, ok := c.World.Player(dest)
		if !ok || !c.World.IsActive(p.ID) {
			return userErrorf("There is no room or player called %q.", dest)
		}
		room = p.RoomID
	}
	if err := c.World.Teleport(c.Player, room); err != nil {
		return err
	}
	c.Tell(c.World.DescribeRoom(c.Player))
	return nil
}

func handleShutdown(c *Context) error {
	c.World.ReportAll(fmt.Sprintf("%s is shutting the server down.", c.Player.Name))
	c.result.Shutdown = true
	c.noPrompt = true
	return nil
}
