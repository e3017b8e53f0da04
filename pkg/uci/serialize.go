package uci

import (
	"strconv"
	"strings"
)

// Serialize renders a GUI command as one protocol line, without the trailing
// newline.
func Serialize(cmd GUICommand) string {
	return strings.Join(cmd.guiTokens(), " ")
}

// FormatEngineCommand renders an engine command as one protocol line, without
// the trailing newline. It is the inverse of ParseEngineCommand.
func FormatEngineCommand(cmd EngineCommand) string {
	return strings.Join(cmd.engineTokens(), " ")
}

func (i ID) guiTokens() []string             { return []string{"id", string(i.Field), i.Value} }
func (UCIOk) guiTokens() []string            { return []string{"uciok"} }
func (ReadyOk) guiTokens() []string          { return []string{"readyok"} }
func (c CopyProtection) guiTokens() []string { return []string{"copyprotection", string(c.Status)} }
func (r Registration) guiTokens() []string   { return []string{"registration", string(r.Status)} }

func (b BestMove) guiTokens() []string {
	out := []string{"bestmove", b.Move}
	if b.Ponder != "" {
		out = append(out, "ponder", b.Ponder)
	}
	return out
}

func (i Info) guiTokens() []string {
	out := []string{"info"}
	for _, p := range i.Params {
		out = append(out, p.infoTokens()...)
	}
	return out
}

func (o Option) guiTokens() []string {
	out := []string{"option", "name", o.Name, "type", string(o.Type)}
	if o.Default != "" {
		out = append(out, "default", o.Default)
	}
	if o.Min != "" {
		out = append(out, "min", o.Min)
	}
	if o.Max != "" {
		out = append(out, "max", o.Max)
	}
	for _, v := range o.Vars {
		out = append(out, "var", v)
	}
	return out
}

func (n InfoNumber) infoTokens() []string   { return []string{string(n.Kind), itoa(n.N)} }
func (p InfoPV) infoTokens() []string       { return append([]string{"pv"}, p.Moves...) }
func (c InfoCurrMove) infoTokens() []string { return []string{"currmove", c.Move} }

// infoTokens collapses whitespace runs, including newlines, so the line
// stays one line.
func (s InfoString) infoTokens() []string {
	return append([]string{"string"}, strings.Fields(s.Text)...)
}

func (r InfoRefutation) infoTokens() []string {
	return append([]string{"refutation"}, r.Moves...)
}

func (c InfoCurrLine) infoTokens() []string {
	out := []string{"currline"}
	if c.CPU > 0 {
		out = append(out, strconv.Itoa(c.CPU))
	}
	return append(out, c.Moves...)
}

func (s InfoScore) infoTokens() []string {
	out := []string{"score"}
	for _, p := range s.Parts {
		switch p.Kind {
		case ScoreCentipawns, ScoreMate:
			out = append(out, string(p.Kind), strconv.Itoa(p.N))
		default:
			out = append(out, string(p.Kind))
		}
	}
	return out
}

// --- engine command tokens ---

func (Init) engineTokens() []string      { return []string{"uci"} }
func (IsReady) engineTokens() []string   { return []string{"isready"} }
func (NewGame) engineTokens() []string   { return []string{"ucinewgame"} }
func (Stop) engineTokens() []string      { return []string{"stop"} }
func (PonderHit) engineTokens() []string { return []string{"ponderhit"} }
func (Quit) engineTokens() []string      { return []string{"quit"} }

func (d Debug) engineTokens() []string {
	switch {
	case d.On == nil:
		return []string{"debug"}
	case *d.On:
		return []string{"debug", "on"}
	default:
		return []string{"debug", "off"}
	}
}

func (s SetOption) engineTokens() []string {
	out := []string{"setoption", "name", s.Name}
	if s.Value != nil {
		out = append(out, "value", *s.Value)
	}
	return out
}

func (r Register) engineTokens() []string {
	if r.Later {
		return []string{"register", "later"}
	}
	out := []string{"register"}
	if r.Name != "" {
		out = append(out, "name", r.Name)
	}
	if r.Code != "" {
		out = append(out, "code", r.Code)
	}
	return out
}

func (p Position) engineTokens() []string {
	out := []string{"position"}
	if p.Base.IsStart() {
		out = append(out, "startpos")
	} else {
		out = append(out, "fen", p.Base.FEN)
	}
	if len(p.Moves) > 0 {
		out = append(out, "moves")
		out = append(out, p.Moves...)
	}
	return out
}

func (g Go) engineTokens() []string {
	out := []string{"go"}
	for _, p := range g.Params {
		out = append(out, string(p.Kind))
		switch {
		case p.Kind == GoSearchMoves:
			out = append(out, p.Moves...)
		case p.Kind.IsNumeric():
			out = append(out, itoa(p.N))
		}
	}
	return out
}
