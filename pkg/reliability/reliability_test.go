package reliability_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"gnomes/pkg/bridge"
	"gnomes/pkg/reliability"
	"gnomes/pkg/rules"
	"gnomes/pkg/uci"
	"gnomes/pkg/uciclient"
)

func TestParseEngineSpec(t *testing.T) {
	tests := []struct {
		in   string
		want reliability.EngineSpec
	}{
		{"proto:http,url:http://localhost:8000/move", reliability.EngineSpec{Proto: "http", URL: "http://localhost:8000/move"}},
		{"proto:http,url:http://x/move?a=1,b=2", reliability.EngineSpec{Proto: "http", URL: "http://x/move?a=1,b=2"}},
		{"proto:uci,path:/usr/bin/stockfish", reliability.EngineSpec{Proto: "uci", Path: "/usr/bin/stockfish"}},
		{"proto:random", reliability.EngineSpec{Proto: "random"}},
		{"proto:random,seed:7", reliability.EngineSpec{Proto: "random", Seed: 7, Seeded: true}},
	}
	for _, tt := range tests {
		got, err := reliability.ParseEngineSpec(tt.in)
		if err != nil {
			t.Errorf("ParseEngineSpec(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEngineSpec(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}

	for _, bad := range []string{"", "http,url:x", "proto:http", "proto:http,path:x", "proto:uci,url:x", "proto:random,seed:abc", "proto:tcp,url:x"} {
		if _, err := reliability.ParseEngineSpec(bad); err == nil {
			t.Errorf("ParseEngineSpec(%q) accepted", bad)
		}
	}
}

// scriptedAsker replays answers in order; a nil-string entry stands for a
// timeout.
type scriptedAsker struct {
	answers []string
	reqs    []bridge.Request
}

const timeoutAnswer = "<timeout>"

func (a *scriptedAsker) Ask(_ context.Context, req bridge.Request) (string, error) {
	a.reqs = append(a.reqs, req)
	if len(a.answers) == 0 {
		return "", errors.New("script exhausted")
	}
	ans := a.answers[0]
	a.answers = a.answers[1:]
	if ans == timeoutAnswer {
		return "", &bridge.TimeoutError{URL: "fake", After: time.Second}
	}
	return ans, nil
}

func TestHTTPPlayer_RetriesAndRecords(t *testing.T) {
	asker := &scriptedAsker{answers: []string{"Ke2", timeoutAnswer, "Qh5", "e4"}}
	p := reliability.NewHTTPPlayer(asker, 0, nil)
	g, _ := rules.NewGame("")

	st, err := p.Move(context.Background(), g)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := g.LongMoves(); !reflect.DeepEqual(got, []string{"e2e4"}) {
		t.Errorf("moves = %v", got)
	}
	want := reliability.Stats{
		FailedMoves: []reliability.FailedMove{{FEN: rules.StartFEN, Move: "Ke2"}, {FEN: rules.StartFEN, Move: "Qh5"}},
		Timeouts:    []reliability.Timeout{{FEN: rules.StartFEN, Count: 1}},
	}
	if !reflect.DeepEqual(st, want) {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
	last := asker.reqs[len(asker.reqs)-1]
	if last.Turn != "white" || !reflect.DeepEqual(last.FailedMoves, []string{"Ke2", "Qh5"}) {
		t.Errorf("last request = %+v", last)
	}
}

func TestHTTPPlayer_GivesUp(t *testing.T) {
	asker := &scriptedAsker{answers: []string{"Ke2", "Ke2", "Ke2", "e4"}}
	p := reliability.NewHTTPPlayer(asker, 0, nil)
	g, _ := rules.NewGame("")

	st, err := p.Move(context.Background(), g)
	var gu *reliability.GaveUpError
	if !errors.As(err, &gu) || gu.FailedMoves != reliability.MaxFailedMoves {
		t.Fatalf("Move = %v, want GaveUpError", err)
	}
	if len(st.FailedMoves) != 3 || len(g.History()) != 0 {
		t.Errorf("stats = %+v, history = %v", st, g.History())
	}
}

func TestHTTPPlayer_TimeoutLimit(t *testing.T) {
	answers := make([]string, reliability.MaxTimeouts)
	for i := range answers {
		answers[i] = timeoutAnswer
	}
	p := reliability.NewHTTPPlayer(&scriptedAsker{answers: answers}, 0, nil)
	g, _ := rules.NewGame("")
	st, err := p.Move(context.Background(), g)
	var gu *reliability.GaveUpError
	if !errors.As(err, &gu) || gu.Timeouts != reliability.MaxTimeouts || len(st.Timeouts) != reliability.MaxTimeouts {
		t.Fatalf("Move = %v, stats %+v", err, st)
	}
}

func TestHTTPPlayer_OverBridge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req bridge.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Turn == "white" {
			_, _ = w.Write([]byte("e4"))
		} else {
			_, _ = w.Write([]byte("e5"))
		}
	}))
	defer srv.Close()

	spec, err := reliability.ParseEngineSpec("proto:http,url:" + srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	white, err := reliability.NewPlayer(context.Background(), spec, reliability.PlayerOptions{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	c := &reliability.Checker{White: white, Black: white, MaxPlies: 2}
	st, err := c.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(st.FailedMoves) != 0 || len(st.Timeouts) != 0 {
		t.Errorf("stats = %+v", st)
	}

	// Third ply: white asks for e4 again, which is now blocked.
	c.MaxPlies = 3
	st, err = c.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(st.FailedMoves) != reliability.MaxFailedMoves {
		t.Errorf("failed moves = %+v", st.FailedMoves)
	}
}

func TestRandomPlayer_Deterministic(t *testing.T) {
	play := func() []string {
		g, _ := rules.NewGame("")
		white, black := reliability.NewRandomPlayer(1), reliability.NewRandomPlayer(2)
		for ply := 0; ply < 40 && !g.Board().IsGameOver(); ply++ {
			p := white
			if ply%2 == 1 {
				p = black
			}
			if _, err := p.Move(context.Background(), g); err != nil {
				t.Fatalf("Move: %v", err)
			}
		}
		return g.LongMoves()
	}
	a, b := play(), play()
	if len(a) == 0 || !reflect.DeepEqual(a, b) {
		t.Errorf("games differ:\n%v\n%v", a, b)
	}
}

func TestChecker_RunN(t *testing.T) {
	c := &reliability.Checker{
		White:    reliability.NewRandomPlayer(3),
		Black:    reliability.NewRandomPlayer(4),
		MaxPlies: 20,
	}
	st, err := c.RunN(context.Background(), 3)
	if err != nil {
		t.Fatalf("RunN: %v", err)
	}
	out, _ := json.Marshal(st)
	if string(out) != `{"failed_moves":[],"timeouts":[]}` {
		t.Errorf("stats json = %s", out)
	}
}

func TestChecker_StopsOnPlayerError(t *testing.T) {
	boom := errors.New("connection refused")
	c := &reliability.Checker{
		White: reliability.NewRandomPlayer(1),
		Black: failingPlayer{err: boom},
	}
	if _, err := c.RunN(context.Background(), 5); !errors.Is(err, boom) {
		t.Fatalf("RunN = %v, want %v", err, boom)
	}
}

type failingPlayer struct{ err error }

func (f failingPlayer) Move(context.Context, *rules.Game) (reliability.Stats, error) {
	return reliability.Stats{}, f.err
}
func (f failingPlayer) Close() error { return nil }

type fakeEngine struct {
	best     []string
	stall    int
	newGames int
	fen      string
	moves    []string
}

func (e *fakeEngine) IsReady(context.Context) error { return nil }
func (e *fakeEngine) NewGame() error                { e.newGames++; return nil }
func (e *fakeEngine) Position(fen string, moves []string) error {
	e.fen, e.moves = fen, moves
	return nil
}

func (e *fakeEngine) Go(ctx context.Context, _ ...uci.GoParam) (uciclient.SearchResult, error) {
	if e.stall > 0 {
		e.stall--
		<-ctx.Done()
		return uciclient.SearchResult{}, ctx.Err()
	}
	mv := e.best[0]
	e.best = e.best[1:]
	return uciclient.SearchResult{BestMove: mv}, nil
}
func (e *fakeEngine) Quit() error { return nil }

func TestUCIPlayer(t *testing.T) {
	engine := &fakeEngine{best: []string{"e2e5", "e2e4", "e7e5"}, stall: 1}
	p := reliability.NewUCIPlayer(engine, 10*time.Millisecond, nil)
	c := &reliability.Checker{White: p, Black: p, MaxPlies: 2}

	st, err := c.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if engine.newGames != 2 {
		t.Errorf("newGames = %d", engine.newGames)
	}
	if len(st.Timeouts) != 1 || len(st.FailedMoves) != 1 || st.FailedMoves[0].Move != "e2e5" {
		t.Errorf("stats = %+v", st)
	}
	if engine.fen != rules.StartFEN || !reflect.DeepEqual(engine.moves, []string{"e2e4"}) {
		t.Errorf("last position = %s %v", engine.fen, engine.moves)
	}
}
