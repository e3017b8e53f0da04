package uci

import (
	"regexp"
	"strconv"
	"strings"
)

// longMovePattern matches long algebraic notation: from, to, optional
// promotion piece. "0000" is the UCI null move.
var longMovePattern = regexp.MustCompile(`^(?:[a-h][1-8][a-h][1-8][qrbn]?|0000)$`)

// IsLongMove reports whether s is syntactically a long-algebraic move.
// It says nothing about legality.
func IsLongMove(s string) bool { return longMovePattern.MatchString(s) }

// fenFields is the number of whitespace-separated fields in a full FEN.
const fenFields = 6

// ParseEngineCommand parses one GUI-to-engine line (trailing newline already
// stripped). A blank line yields a nil command and a nil error. Any line that
// matches no command grammar yields a *ParseError.
func ParseEngineCommand(line string) (EngineCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	keyword, args := fields[0], fields[1:]

	switch keyword {
	case "uci":
		return noArgs(line, args, Init{})
	case "isready":
		return noArgs(line, args, IsReady{})
	case "ucinewgame":
		return noArgs(line, args, NewGame{})
	case "stop":
		return noArgs(line, args, Stop{})
	case "ponderhit":
		return noArgs(line, args, PonderHit{})
	case "quit":
		return noArgs(line, args, Quit{})
	case "debug":
		return parseDebug(line, args)
	case "setoption":
		return parseSetOption(line, args)
	case "register":
		return parseRegister(line, args)
	case "position":
		return parsePosition(line, args)
	case "go":
		return parseGo(line, args)
	default:
		return nil, parseErr(line, "unknown command %q", keyword)
	}
}

func noArgs(line string, args []string, cmd EngineCommand) (EngineCommand, error) {
	if len(args) > 0 {
		return nil, parseErr(line, "unexpected arguments %q", strings.Join(args, " "))
	}
	return cmd, nil
}

func parseDebug(line string, args []string) (EngineCommand, error) {
	switch {
	case len(args) == 0:
		return Debug{}, nil
	case len(args) == 1 && args[0] == "on":
		on := true
		return Debug{On: &on}, nil
	case len(args) == 1 && args[0] == "off":
		off := false
		return Debug{On: &off}, nil
	default:
		return nil, parseErr(line, "debug expects on or off")
	}
}

func parseSetOption(line string, args []string) (EngineCommand, error) {
	if len(args) == 0 || args[0] != "name" {
		return nil, parseErr(line, "setoption expects name")
	}
	rest := args[1:]
	valueAt := indexOf(rest, "value")
	nameTokens := rest
	if valueAt >= 0 {
		nameTokens = rest[:valueAt]
	}
	if len(nameTokens) == 0 {
		return nil, parseErr(line, "setoption has an empty name")
	}
	cmd := SetOption{Name: strings.Join(nameTokens, " ")}
	if valueAt >= 0 {
		v := strings.Join(rest[valueAt+1:], " ")
		cmd.Value = &v
	}
	return cmd, nil
}

func parseRegister(line string, args []string) (EngineCommand, error) {
	if len(args) == 1 && args[0] == "later" {
		return Register{Later: true}, nil
	}
	var cmd Register
	i := 0
	for i < len(args) {
		key := args[i]
		if key != "name" && key != "code" {
			return nil, parseErr(line, "register: unexpected token %q", key)
		}
		j := i + 1
		for j < len(args) && args[j] != "name" && args[j] != "code" {
			j++
		}
		if j == i+1 {
			return nil, parseErr(line, "register: %s has no value", key)
		}
		value := strings.Join(args[i+1:j], " ")
		if key == "name" {
			cmd.Name = value
		} else {
			cmd.Code = value
		}
		i = j
	}
	if cmd.Name == "" && cmd.Code == "" {
		return nil, parseErr(line, "register expects later, name or code")
	}
	return cmd, nil
}

func parsePosition(line string, args []string) (EngineCommand, error) {
	if len(args) == 0 {
		return nil, parseErr(line, "position expects startpos or fen")
	}
	movesAt := indexOf(args, "moves")
	head := args
	var moves []string
	if movesAt >= 0 {
		head = args[:movesAt]
		moves = append([]string{}, args[movesAt+1:]...)
	}

	var cmd Position
	switch head[0] {
	case "startpos":
		if len(head) != 1 {
			return nil, parseErr(line, "startpos takes no fields")
		}
		cmd.Base = StartPos()
	case "fen":
		fen := head[1:]
		if len(fen) != fenFields {
			return nil, parseErr(line, "fen has %d fields, want %d", len(fen), fenFields)
		}
		cmd.Base = FENBase(strings.Join(fen, " "))
	default:
		return nil, parseErr(line, "position expects startpos or fen, got %q", head[0])
	}

	for _, m := range moves {
		if !IsLongMove(m) {
			return nil, parseErr(line, "move %q is not long algebraic", m)
		}
	}
	if len(moves) > 0 {
		cmd.Moves = moves
	}
	return cmd, nil
}

func parseGo(line string, args []string) (EngineCommand, error) {
	var cmd Go
	for i := 0; i < len(args); {
		kind := GoKind(args[i])
		switch {
		case kind.IsFlag():
			cmd.Params = append(cmd.Params, GoParam{Kind: kind})
			i++
		case kind.IsNumeric():
			if i+1 >= len(args) {
				return nil, parseErr(line, "go %s needs a value", kind)
			}
			n, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return nil, parseErr(line, "go %s: %q is not a number", kind, args[i+1])
			}
			cmd.Params = append(cmd.Params, GoParam{Kind: kind, N: n})
			i += 2
		case kind == GoSearchMoves:
			j := i + 1
			for j < len(args) && !GoKind(args[j]).Valid() {
				if !IsLongMove(args[j]) {
					return nil, parseErr(line, "searchmoves: %q is not long algebraic", args[j])
				}
				j++
			}
			cmd.Params = append(cmd.Params, GoParam{Kind: kind, Moves: append([]string{}, args[i+1:j]...)})
			i = j
		default:
			return nil, parseErr(line, "go: unknown parameter %q", args[i])
		}
	}
	return cmd, nil
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
