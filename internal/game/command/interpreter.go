package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// UserError is a problem with the player's request. Its text is shown to the
// player as is.
type UserError string

func (e UserError) Error() string { return string(e) }

// userErrorf formats a UserError.
func userErrorf(format string, args ...any) error {
	return UserError(fmt.Sprintf(format, args...))
}

const (
	msgUnknown    = "I don't understand that."
	msgNoRepeat   = "There is nothing to repeat."
	msgNotHere    = "You don't see that here."
	msgNotCarried = "You aren't carrying that."
	msgFailed     = "Something went wrong."
)

// Result reports what the session must do after a command.
type Result struct {
	// Quit ends the player's session.
	Quit bool
	// Shutdown asks the process to shut down.
	Shutdown bool
}

// Context is what a handler sees: the world, the acting player and the
// parsed line. It is only valid inside the authority operation running the
// handler.
type Context struct {
	World  *authority.World
	Player *entity.Object
	Parsed

	registry *Registry
	result   Result
	noPrompt bool
}

// Tell sends one line to the acting player.
func (c *Context) Tell(text string) {
	c.World.Tell(c.Player.ID, text)
}

// Runner applies a function on the world authority. *authority.Authority
// satisfies it.
type Runner interface {
	Do(ctx context.Context, fn func(*authority.World)) error
}

// Interpreter parses player input and runs the matching command on the
// world authority.
type Interpreter struct {
	runner   Runner
	registry *Registry
	logger   *zap.Logger
}

// NewInterpreter creates an Interpreter dispatching through registry.
//
// Precondition: runner, registry and logger must be non-nil.
func NewInterpreter(runner Runner, registry *Registry, logger *zap.Logger) *Interpreter {
	return &Interpreter{runner: runner, registry: registry, logger: logger}
}

// Execute runs one input line for the active player id. Replies go to the
// player's sink. On error the Result is zero and the outcome unknown: a
// command accepted before ctx ended may still have run.
func (in *Interpreter) Execute(ctx context.Context, id entity.ID, line string) (Result, error) {
	var res Result
	err := in.runner.Do(ctx, func(w *authority.World) {
		p, ok := w.ActivePlayer(id)
		if !ok {
			return
		}
		res = in.execute(w, p, strings.TrimSpace(line))
	})
	if err != nil {
		return Result{}, fmt.Errorf("executing %q: %w", line, err)
	}
	return res, nil
}

func (in *Interpreter) execute(w *authority.World, p *entity.Object, line string) Result {
	if line == "" {
		return Result{}
	}
	if line == "!" {
		if p.Player.LastLine == "" {
			w.Tell(p.ID, msgNoRepeat)
			w.Prompt(p.ID)
			return Result{}
		}
		line = p.Player.LastLine
	}

	c := &Context{World: w, Player: p, Parsed: Parse(line), registry: in.registry}
	cmd, ok := in.registry.Resolve(c.Verb)
	if ok && cmd.Admin && !p.Player.Admin {
		ok = false
	}

	var err error
	switch {
	case ok:
		p.Player.LastLine = line
		err = cmd.Handler(c)
	default:
		err = moveThrough(c, c.Verb)
		if errors.Is(err, authority.ErrNoExit) {
			err = UserError(msgUnknown)
		} else {
			p.Player.LastLine = line
		}
	}

	var ue UserError
	switch {
	case err == nil:
	case errors.As(err, &ue):
		c.Tell(ue.Error())
	default:
		in.logger.Error("command failed",
			zap.String("player", p.Name),
			zap.String("line", line),
			zap.Error(err),
		)
		c.Tell(msgFailed)
	}
	if !c.noPrompt {
		w.Prompt(p.ID)
	}
	return c.result
}
