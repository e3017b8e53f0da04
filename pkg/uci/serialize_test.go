package uci_test

import (
	"reflect"
	"testing"

	"gnomes/pkg/uci"
)

func TestSerialize(t *testing.T) {
	tests := []struct {
		name string
		cmd  uci.GUICommand
		want string
	}{
		{"id name", uci.ID{Field: uci.IDName, Value: "Gnomes"}, "id name Gnomes"},
		{"id author", uci.ID{Field: uci.IDAuthor, Value: "The Gnomes"}, "id author The Gnomes"},
		{"uciok", uci.UCIOk{}, "uciok"},
		{"readyok", uci.ReadyOk{}, "readyok"},
		{"bestmove", uci.BestMove{Move: "e2e4"}, "bestmove e2e4"},
		{"bestmove ponder", uci.BestMove{Move: "e2e4", Ponder: "e7e5"}, "bestmove e2e4 ponder e7e5"},
		{"copyprotection", uci.CopyProtection{Status: uci.StatusChecking}, "copyprotection checking"},
		{"registration", uci.Registration{Status: uci.StatusOK}, "registration ok"},
		{"info string", uci.Text("asking robot"), "info string asking robot"},
		{"info string collapses newlines", uci.Text("robot on\nfire  now"), "info string robot on fire now"},
		{"info full", uci.Info{Params: []uci.InfoParam{
			uci.InfoNumber{Kind: uci.InfoDepth, N: 12},
			uci.InfoNumber{Kind: uci.InfoSelDepth, N: 20},
			uci.InfoScore{Parts: []uci.Score{{Kind: uci.ScoreCentipawns, N: -35}, {Kind: uci.ScoreLowerbound}}},
			uci.InfoNumber{Kind: uci.InfoNodes, N: 123456},
			uci.InfoNumber{Kind: uci.InfoNPS, N: 99000},
			uci.InfoPV{Moves: []string{"e2e4", "e7e5", "g1f3"}},
		}}, "info depth 12 seldepth 20 score cp -35 lowerbound nodes 123456 nps 99000 pv e2e4 e7e5 g1f3"},
		{"info mate and currline", uci.Info{Params: []uci.InfoParam{
			uci.InfoScore{Parts: []uci.Score{{Kind: uci.ScoreMate, N: 3}}},
			uci.InfoCurrMove{Move: "d2d4"},
			uci.InfoNumber{Kind: uci.InfoCurrMoveNumber, N: 2},
			uci.InfoCurrLine{CPU: 1, Moves: []string{"d2d4", "d7d5"}},
			uci.InfoRefutation{Moves: []string{"d1h5", "g6h5"}},
		}}, "info score mate 3 currmove d2d4 currmovenumber 2 currline 1 d2d4 d7d5 refutation d1h5 g6h5"},
		{"option spin", uci.Option{Name: "RobotTimeout", Type: uci.OptionSpin, Default: "5000", Min: "100", Max: "60000"},
			"option name RobotTimeout type spin default 5000 min 100 max 60000"},
		{"option combo", uci.Option{Name: "Style", Type: uci.OptionCombo, Default: "Normal", Vars: []string{"Solid", "Normal", "Risky"}},
			"option name Style type combo default Normal var Solid var Normal var Risky"},
		{"option button", uci.Option{Name: "Clear Hash", Type: uci.OptionButton}, "option name Clear Hash type button"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uci.Serialize(tt.cmd); got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSerialize_Distinct checks that structurally different replies never
// render to the same line.
func TestSerialize_Distinct(t *testing.T) {
	cmds := []uci.GUICommand{
		uci.ID{Field: uci.IDName, Value: "x"},
		uci.ID{Field: uci.IDAuthor, Value: "x"},
		uci.UCIOk{},
		uci.ReadyOk{},
		uci.BestMove{Move: "e2e4"},
		uci.BestMove{Move: "e2e4", Ponder: "e7e5"},
		uci.CopyProtection{Status: uci.StatusOK},
		uci.Registration{Status: uci.StatusOK},
		uci.Text("x"),
		uci.Info{Params: []uci.InfoParam{uci.InfoPV{Moves: []string{"e2e4"}}}},
		uci.Info{Params: []uci.InfoParam{uci.InfoCurrMove{Move: "e2e4"}}},
		uci.Option{Name: "x", Type: uci.OptionCheck},
		uci.Option{Name: "x", Type: uci.OptionCheck, Default: "true"},
	}
	seen := make(map[string]uci.GUICommand)
	for _, c := range cmds {
		line := uci.Serialize(c)
		if prev, ok := seen[line]; ok {
			t.Errorf("%#v and %#v both serialize to %q", prev, c, line)
		}
		seen[line] = c
	}
}

func TestParseGUICommand_InvertsSerialize(t *testing.T) {
	cmds := []uci.GUICommand{
		uci.ID{Field: uci.IDName, Value: "Stock fish 17"},
		uci.UCIOk{},
		uci.ReadyOk{},
		uci.BestMove{Move: "e7e8q"},
		uci.BestMove{Move: "e2e4", Ponder: "c7c5"},
		uci.CopyProtection{Status: uci.StatusError},
		uci.Registration{Status: uci.StatusChecking},
		uci.Info{Params: []uci.InfoParam{
			uci.InfoNumber{Kind: uci.InfoDepth, N: 3},
			uci.InfoScore{Parts: []uci.Score{{Kind: uci.ScoreCentipawns, N: 20}, {Kind: uci.ScoreUpperbound}}},
			uci.InfoNumber{Kind: uci.InfoTime, N: 11},
			uci.InfoPV{Moves: []string{"e2e4", "e7e5"}},
			uci.InfoNumber{Kind: uci.InfoHashFull, N: 7},
			uci.InfoString{Text: "pv is a word here"},
		}},
		uci.Info{Params: []uci.InfoParam{uci.InfoCurrLine{Moves: []string{"a2a3"}}}},
		uci.Option{Name: "Skill Level", Type: uci.OptionSpin, Default: "20", Min: "0", Max: "20"},
		uci.Option{Name: "Style", Type: uci.OptionCombo, Default: "Normal", Vars: []string{"Solid", "Normal"}},
	}
	for _, want := range cmds {
		line := uci.Serialize(want)
		got, err := uci.ParseGUICommand(line)
		if err != nil {
			t.Errorf("ParseGUICommand(%q) error: %v", line, err)
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ParseGUICommand(%q)\n  got:  %#v\n  want: %#v", line, got, want)
		}
	}
}

func TestParseGUICommand_Rejects(t *testing.T) {
	lines := []string{
		"nonsense",
		"id",
		"id version 3",
		"bestmove",
		"bestmove e2e4 e7e5",
		"copyprotection maybe",
		"info depth",
		"info depth x",
		"info score",
		"info score cp",
		"info wibble 3",
		"option type spin",
		"option name Hash",
		"option name Hash type slider",
	}
	for _, line := range lines {
		if cmd, err := uci.ParseGUICommand(line); err == nil {
			t.Errorf("ParseGUICommand(%q) = %#v, want error", line, cmd)
		}
	}
}
