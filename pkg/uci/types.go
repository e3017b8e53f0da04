// Package uci implements the Universal Chess Interface wire format: the
// closed set of GUI-to-engine commands and engine-to-GUI replies, a parser
// for each direction, and a serializer for each direction.
//
// Both command families are sealed interfaces. Every variant renders its own
// tokens, so serializing a constructed value cannot fail.
package uci

import "strconv"

// EngineCommand is a command sent by the GUI to the engine.
type EngineCommand interface {
	engineTokens() []string
}

// GUICommand is a reply sent by the engine to the GUI.
type GUICommand interface {
	guiTokens() []string
}

// --- GUI -> engine ---

// Init is the "uci" handshake.
type Init struct{}

// Debug switches debug mode. A nil On toggles the current mode.
type Debug struct {
	On *bool
}

// IsReady is the "isready" ping.
type IsReady struct{}

// SetOption sets an engine option. Value is nil for button options.
type SetOption struct {
	Name  string
	Value *string
}

// Register is the "register" command. Exactly one of Later or Name/Code is used.
type Register struct {
	Later bool
	Name  string
	Code  string
}

// NewGame is "ucinewgame".
type NewGame struct{}

// Base is the starting point of a position command. The zero value is the
// standard start position.
type Base struct {
	FEN string
}

// StartPos returns the standard start position base.
func StartPos() Base { return Base{} }

// FENBase returns a base built from an explicit FEN string.
func FENBase(fen string) Base { return Base{FEN: fen} }

// IsStart reports whether b is the standard start position.
func (b Base) IsStart() bool { return b.FEN == "" }

// Position sets the current position: a base plus long-algebraic moves.
type Position struct {
	Base  Base
	Moves []string
}

// Go starts a search.
type Go struct {
	Params []GoParam
}

// Stop ends the current search.
type Stop struct{}

// PonderHit tells the engine the opponent played the pondered move.
type PonderHit struct{}

// Quit terminates the engine.
type Quit struct{}

// GoKind names a go parameter; the value is its wire keyword.
type GoKind string

// Go parameter keywords.
const (
	GoSearchMoves GoKind = "searchmoves"
	GoPonder      GoKind = "ponder"
	GoWTime       GoKind = "wtime"
	GoBTime       GoKind = "btime"
	GoWInc        GoKind = "winc"
	GoBInc        GoKind = "binc"
	GoMovesToGo   GoKind = "movestogo"
	GoDepth       GoKind = "depth"
	GoNodes       GoKind = "nodes"
	GoMate        GoKind = "mate"
	GoMoveTime    GoKind = "movetime"
	GoInfinite    GoKind = "infinite"
)

// IsFlag reports whether k takes no value.
func (k GoKind) IsFlag() bool { return k == GoPonder || k == GoInfinite }

// IsNumeric reports whether k takes a single integer value.
func (k GoKind) IsNumeric() bool {
	switch k {
	case GoWTime, GoBTime, GoWInc, GoBInc, GoMovesToGo, GoDepth, GoNodes, GoMate, GoMoveTime:
		return true
	default:
		return false
	}
}

// Valid reports whether k is a known go keyword.
func (k GoKind) Valid() bool {
	return k == GoSearchMoves || k.IsFlag() || k.IsNumeric()
}

// GoParam is one parameter of a go command. N is used by numeric kinds and
// Moves by searchmoves.
type GoParam struct {
	Kind  GoKind
	N     int64
	Moves []string
}

// Value returns the first numeric parameter of kind k.
func (g Go) Value(k GoKind) (int64, bool) {
	for _, p := range g.Params {
		if p.Kind == k {
			return p.N, true
		}
	}
	return 0, false
}

// Has reports whether the go command carries a parameter of kind k.
func (g Go) Has(k GoKind) bool {
	for _, p := range g.Params {
		if p.Kind == k {
			return true
		}
	}
	return false
}

// --- engine -> GUI ---

// IDField selects which identity line an ID carries.
type IDField string

// Identity fields.
const (
	IDName   IDField = "name"
	IDAuthor IDField = "author"
)

// ID is "id name <x>" or "id author <x>".
type ID struct {
	Field IDField
	Value string
}

// UCIOk ends the init sequence.
type UCIOk struct{}

// ReadyOk answers IsReady.
type ReadyOk struct{}

// BestMove reports the search result. Ponder is optional.
type BestMove struct {
	Move   string
	Ponder string
}

// NullMove is sent as a bestmove when a search ends without a move.
const NullMove = "0000"

// Status is the value carried by copyprotection and registration lines.
type Status string

// Status values.
const (
	StatusChecking Status = "checking"
	StatusOK       Status = "ok"
	StatusError    Status = "error"
)

// CopyProtection is "copyprotection <status>".
type CopyProtection struct {
	Status Status
}

// Registration is "registration <status>".
type Registration struct {
	Status Status
}

// Info carries search telemetry.
type Info struct {
	Params []InfoParam
}

// OptionType is the type of an advertised option.
type OptionType string

// Option types.
const (
	OptionCheck  OptionType = "check"
	OptionSpin   OptionType = "spin"
	OptionCombo  OptionType = "combo"
	OptionButton OptionType = "button"
	OptionString OptionType = "string"
)

// Option advertises a configurable engine option. Empty fields are omitted
// on the wire.
type Option struct {
	Name    string
	Type    OptionType
	Default string
	Min     string
	Max     string
	Vars    []string
}

// --- info payloads ---

// InfoParam is one element of an info line.
type InfoParam interface {
	infoTokens() []string
}

// NumberKind names a numeric info field; the value is its wire keyword.
type NumberKind string

// Numeric info keywords.
const (
	InfoDepth          NumberKind = "depth"
	InfoSelDepth       NumberKind = "seldepth"
	InfoTime           NumberKind = "time"
	InfoNodes          NumberKind = "nodes"
	InfoMultiPV        NumberKind = "multipv"
	InfoCurrMoveNumber NumberKind = "currmovenumber"
	InfoHashFull       NumberKind = "hashfull"
	InfoNPS            NumberKind = "nps"
	InfoTBHits         NumberKind = "tbhits"
	InfoSBHits         NumberKind = "sbhits"
	InfoCPULoad        NumberKind = "cpuload"
)

var numberKinds = map[string]NumberKind{
	"depth": InfoDepth, "seldepth": InfoSelDepth, "time": InfoTime, "nodes": InfoNodes,
	"multipv": InfoMultiPV, "currmovenumber": InfoCurrMoveNumber, "hashfull": InfoHashFull,
	"nps": InfoNPS, "tbhits": InfoTBHits, "sbhits": InfoSBHits, "cpuload": InfoCPULoad,
}

// InfoNumber is a single numeric field such as "depth 12".
type InfoNumber struct {
	Kind NumberKind
	N    int64
}

// InfoPV is the principal variation.
type InfoPV struct {
	Moves []string
}

// InfoRefutation is "refutation <move> <moves...>".
type InfoRefutation struct {
	Moves []string
}

// InfoCurrLine is "currline [cpunr] <moves...>". CPU zero is omitted.
type InfoCurrLine struct {
	CPU   int
	Moves []string
}

// InfoCurrMove is the move currently searched.
type InfoCurrMove struct {
	Move string
}

// InfoString is free text; it always ends the line.
type InfoString struct {
	Text string
}

// ScoreKind names one part of a score field.
type ScoreKind string

// Score parts.
const (
	ScoreCentipawns ScoreKind = "cp"
	ScoreMate       ScoreKind = "mate"
	ScoreLowerbound ScoreKind = "lowerbound"
	ScoreUpperbound ScoreKind = "upperbound"
)

// Score is one part of a score field. N is ignored for bounds.
type Score struct {
	Kind ScoreKind
	N    int
}

// InfoScore is "score <parts...>".
type InfoScore struct {
	Parts []Score
}

// Text is shorthand for an info line holding a single string.
func Text(s string) Info { return Info{Params: []InfoParam{InfoString{Text: s}}} }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
