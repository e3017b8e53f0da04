package uci

import (
	"strconv"
	"strings"
)

// infoKeywords lists every token that starts a new info field.
var infoKeywords = map[string]bool{
	"pv": true, "refutation": true, "currline": true, "currmove": true,
	"score": true, "string": true,
}

func isInfoKeyword(s string) bool {
	if _, ok := numberKinds[s]; ok {
		return true
	}
	return infoKeywords[s]
}

// ParseGUICommand parses one engine-to-GUI line. It is used when this
// repository drives an external engine. A blank line yields nil, nil.
func ParseGUICommand(line string) (GUICommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	keyword, args := fields[0], fields[1:]

	switch keyword {
	case "uciok":
		return UCIOk{}, nil
	case "readyok":
		return ReadyOk{}, nil
	case "id":
		if len(args) < 2 || (args[0] != string(IDName) && args[0] != string(IDAuthor)) {
			return nil, parseErr(line, "id expects name or author")
		}
		return ID{Field: IDField(args[0]), Value: strings.Join(args[1:], " ")}, nil
	case "bestmove":
		return parseBestMove(line, args)
	case "copyprotection":
		s, err := parseStatus(line, args)
		if err != nil {
			return nil, err
		}
		return CopyProtection{Status: s}, nil
	case "registration":
		s, err := parseStatus(line, args)
		if err != nil {
			return nil, err
		}
		return Registration{Status: s}, nil
	case "info":
		return parseInfo(line, args)
	case "option":
		return parseOption(line, args)
	default:
		return nil, parseErr(line, "unknown reply %q", keyword)
	}
}

func parseBestMove(line string, args []string) (GUICommand, error) {
	switch {
	case len(args) == 1:
		return BestMove{Move: args[0]}, nil
	case len(args) == 3 && args[1] == "ponder":
		return BestMove{Move: args[0], Ponder: args[2]}, nil
	default:
		return nil, parseErr(line, "bestmove expects <move> [ponder <move>]")
	}
}

func parseStatus(line string, args []string) (Status, error) {
	if len(args) != 1 {
		return "", parseErr(line, "expected a single status")
	}
	switch s := Status(args[0]); s {
	case StatusChecking, StatusOK, StatusError:
		return s, nil
	default:
		return "", parseErr(line, "unknown status %q", args[0])
	}
}

func parseInfo(line string, args []string) (GUICommand, error) {
	var info Info
	for i := 0; i < len(args); {
		key := args[i]
		i++
		if kind, ok := numberKinds[key]; ok {
			if i >= len(args) {
				return nil, parseErr(line, "info %s needs a value", key)
			}
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return nil, parseErr(line, "info %s: %q is not a number", key, args[i])
			}
			info.Params = append(info.Params, InfoNumber{Kind: kind, N: n})
			i++
			continue
		}
		switch key {
		case "string":
			info.Params = append(info.Params, InfoString{Text: strings.Join(args[i:], " ")})
			i = len(args)
		case "currmove":
			if i >= len(args) {
				return nil, parseErr(line, "info currmove needs a move")
			}
			info.Params = append(info.Params, InfoCurrMove{Move: args[i]})
			i++
		case "pv", "refutation":
			j := scanMoves(args, i)
			moves := append([]string{}, args[i:j]...)
			if key == "pv" {
				info.Params = append(info.Params, InfoPV{Moves: moves})
			} else {
				info.Params = append(info.Params, InfoRefutation{Moves: moves})
			}
			i = j
		case "currline":
			cl := InfoCurrLine{}
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					cl.CPU = n
					i++
				}
			}
			j := scanMoves(args, i)
			cl.Moves = append([]string{}, args[i:j]...)
			info.Params = append(info.Params, cl)
			i = j
		case "score":
			var s InfoScore
			for i < len(args) {
				kind := ScoreKind(args[i])
				if kind == ScoreCentipawns || kind == ScoreMate {
					if i+1 >= len(args) {
						return nil, parseErr(line, "score %s needs a value", kind)
					}
					n, err := strconv.Atoi(args[i+1])
					if err != nil {
						return nil, parseErr(line, "score %s: %q is not a number", kind, args[i+1])
					}
					s.Parts = append(s.Parts, Score{Kind: kind, N: n})
					i += 2
				} else if kind == ScoreLowerbound || kind == ScoreUpperbound {
					s.Parts = append(s.Parts, Score{Kind: kind})
					i++
				} else {
					break
				}
			}
			if len(s.Parts) == 0 {
				return nil, parseErr(line, "score has no parts")
			}
			info.Params = append(info.Params, s)
		default:
			return nil, parseErr(line, "info: unknown field %q", key)
		}
	}
	return info, nil
}

// scanMoves returns the index of the first token at or after i that starts a
// new info field.
func scanMoves(args []string, i int) int {
	for i < len(args) && !isInfoKeyword(args[i]) {
		i++
	}
	return i
}

func parseOption(line string, args []string) (GUICommand, error) {
	if len(args) == 0 || args[0] != "name" {
		return nil, parseErr(line, "option expects name")
	}
	typeAt := indexOf(args, "type")
	if typeAt < 2 || typeAt+1 >= len(args) {
		return nil, parseErr(line, "option expects name <x> type <t>")
	}
	opt := Option{
		Name: strings.Join(args[1:typeAt], " "),
		Type: OptionType(args[typeAt+1]),
	}
	switch opt.Type {
	case OptionCheck, OptionSpin, OptionCombo, OptionButton, OptionString:
	default:
		return nil, parseErr(line, "unknown option type %q", args[typeAt+1])
	}

	isKey := func(s string) bool { return s == "default" || s == "min" || s == "max" || s == "var" }
	rest := args[typeAt+2:]
	for i := 0; i < len(rest); {
		key := rest[i]
		if !isKey(key) {
			return nil, parseErr(line, "option: unexpected token %q", key)
		}
		j := i + 1
		for j < len(rest) && !isKey(rest[j]) {
			j++
		}
		value := strings.Join(rest[i+1:j], " ")
		switch key {
		case "default":
			opt.Default = value
		case "min":
			opt.Min = value
		case "max":
			opt.Max = value
		case "var":
			opt.Vars = append(opt.Vars, value)
		}
		i = j
	}
	return opt, nil
}
