package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gnomes/pkg/rules"
)

// outcome is what one REPL line produced.
type outcome struct {
	output    string
	showBoard bool
	askRobot  bool
	quit      bool
	err       error
}

// command is one REPL verb.
type command struct {
	name        string
	args        string
	description string
	aliases     []string
	showBoard   bool
	run         func(r *repl, args []string) outcome
}

// repl holds the game the commands act on.
type repl struct {
	game     *rules.Game
	commands []command
}

func newREPL() *repl {
	g, err := rules.NewGame("")
	if err != nil {
		// The start position always loads.
		panic(err)
	}
	r := &repl{game: g}
	r.commands = []command{
		{name: "move", args: "san", description: "move a piece", aliases: []string{"m"}, showBoard: true, run: (*repl).move},
		{name: "fen", description: "print the position as FEN", run: noArgs(func(r *repl) outcome {
			return outcome{output: r.game.Board().FEN()}
		})},
		{name: "load", args: "fen", description: "load a position", aliases: []string{"l"}, showBoard: true, run: (*repl).load},
		{name: "undo", description: "take back the last move", aliases: []string{"u"}, showBoard: true, run: noArgs(func(r *repl) outcome {
			if !r.game.Undo() {
				return outcome{err: errors.New("nothing to undo")}
			}
			return outcome{}
		})},
		{name: "moves", description: "list legal moves", aliases: []string{"ms", "mvs"}, run: noArgs(func(r *repl) outcome {
			moves := r.game.Board().LegalMoves()
			sans := make([]string, len(moves))
			for i, m := range moves {
				sans[i] = m.SAN
			}
			return outcome{output: strings.Join(sans, ", ")}
		})},
		{name: "history", description: "list played moves", aliases: []string{"hi", "hist"}, run: noArgs(func(r *repl) outcome {
			return outcome{output: strings.Join(r.game.History(), ",")}
		})},
		{name: "pgn", description: "print the game as PGN", run: noArgs(func(r *repl) outcome {
			pgn, err := r.game.PGN()
			return outcome{output: pgn, err: err}
		})},
		{name: "print", description: "show the board", aliases: []string{"p", "board"}, showBoard: true, run: noArgs(func(*repl) outcome {
			return outcome{}
		})},
		{name: "robot", description: "let the move service play", aliases: []string{"r"}, run: noArgs(func(r *repl) outcome {
			if r.game.Board().IsGameOver() {
				return outcome{err: errors.New("game is over")}
			}
			return outcome{askRobot: true}
		})},
		{name: "restart", description: "start a new game", aliases: []string{"rs", "reset"}, showBoard: true, run: noArgs(func(r *repl) outcome {
			g, err := rules.NewGame("")
			if err != nil {
				return outcome{err: err}
			}
			r.game = g
			return outcome{}
		})},
		{name: "help", description: "list commands", aliases: []string{"h", "?"}, run: func(r *repl, _ []string) outcome {
			return outcome{output: r.help()}
		}},
		{name: "quit", description: "leave", aliases: []string{"q", "exit"}, run: func(*repl, []string) outcome {
			return outcome{quit: true}
		}},
	}
	return r
}

func noArgs(f func(r *repl) outcome) func(*repl, []string) outcome {
	return func(r *repl, args []string) outcome {
		if len(args) != 0 {
			return outcome{err: errors.New("unexpected argument")}
		}
		return f(r)
	}
}

// exec runs one line. An unknown word is tried as a move.
func (r *repl) exec(line string) outcome {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return outcome{}
	}
	cmd, args := r.resolve(fields)
	out := cmd.run(r, args)
	if out.err == nil && cmd.showBoard {
		out.showBoard = true
	}
	return out
}

func (r *repl) resolve(fields []string) (command, []string) {
	name, rest := fields[0], fields[1:]
	for _, c := range r.commands {
		if c.name == name {
			return c, rest
		}
		for _, a := range c.aliases {
			if a == name {
				return c, rest
			}
		}
	}
	return r.commands[0], fields
}

func (r *repl) move(args []string) outcome {
	if len(args) != 1 {
		return outcome{err: errors.New("expected 1 argument")}
	}
	if _, err := r.game.Push(args[0]); err != nil {
		return outcome{err: err}
	}
	return outcome{}
}

func (r *repl) load(args []string) outcome {
	if len(args) == 0 {
		return outcome{err: errors.New("need fen")}
	}
	g, err := rules.NewGame(strings.Join(args, " "))
	if err != nil {
		return outcome{err: err}
	}
	r.game = g
	return outcome{}
}

// playRobot plays the move service's answer, which must be legal in the
// position the request was made for.
func (r *repl) playRobot(fen, move string) error {
	if r.game.Board().FEN() != fen {
		return fmt.Errorf("position changed while the robot was thinking; ignoring %s", move)
	}
	_, err := r.game.Push(move)
	return err
}

func (r *repl) help() string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("Name", "Arguments", "Description", "Aliases").
		Row("<san>", "", "play a move (no command name needed)", "")
	for _, c := range r.commands {
		t.Row(c.name, c.args, c.description, strings.Join(c.aliases, ", "))
	}
	return t.Render()
}
