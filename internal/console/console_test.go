package console

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

var resultLine = regexp.MustCompile(`(?m)^[a-h][1-8][a-h][1-8][qrbn]? \d+ms d=\d+ kn=\d+ nps=\d+$`)

func newTestConsole(t *testing.T, cfg Config) (*Console, *bytes.Buffer) {
	t.Helper()
	log := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.InfoLevel)
	eng := engine.New(engine.Options{HashMB: 1, Logger: log})
	cfg.Logger = log
	if cfg.Limits == (engine.Limits{}) {
		cfg.Limits = engine.Limits{Depth: 2, MoveTime: -1}
	}
	var out bytes.Buffer
	return New(eng, &out, cfg), &out
}

func TestFormatResult(t *testing.T) {
	res := engine.Result{
		Move:    board.NewMove(board.E2, board.E4),
		Depth:   7,
		Nodes:   250000,
		Elapsed: 500 * time.Millisecond,
	}
	want := "e2e4 500ms d=7 kn=250 nps=500000"
	if got := FormatResult(res); got != want {
		t.Errorf("FormatResult = %q, want %q", got, want)
	}

	res.Elapsed = 0
	if got := FormatResult(res); !strings.HasPrefix(got, "e2e4 0ms") {
		t.Errorf("FormatResult with no elapsed time = %q", got)
	}
}

func TestEngineRepliesToHumanMove(t *testing.T) {
	c, out := newTestConsole(t, Config{Human: board.White, AutoReply: true})
	if err := c.Run(strings.NewReader("e2e4\nquit\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !resultLine.MatchString(out.String()) {
		t.Fatalf("no engine result line in output:\n%s", out)
	}
	if c.Position().SideToMove != board.White {
		t.Errorf("side to move = %v after the reply, want white", c.Position().SideToMove)
	}
	if len(c.played) != 2 || len(c.hashes) != 2 {
		t.Errorf("played %d moves, %d hashes, want 2 and 2", len(c.played), len(c.hashes))
	}
}

func TestEngineMovesFirstAsWhite(t *testing.T) {
	c, out := newTestConsole(t, Config{Human: board.Black, AutoReply: true})
	if err := c.Run(strings.NewReader("")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !resultLine.MatchString(out.String()) {
		t.Fatalf("engine did not open the game:\n%s", out)
	}
	if c.Position().SideToMove != board.Black {
		t.Errorf("side to move = %v, want black", c.Position().SideToMove)
	}
}

func TestGoFindsMate(t *testing.T) {
	c, out := newTestConsole(t, Config{})
	script := "fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1\ngo 3\n"
	if err := c.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "a1a8 ") {
		t.Errorf("output = %q, want a1a8 first", got)
	}
	if !strings.Contains(got, "checkmate, white wins") {
		t.Errorf("output = %q, want the mate announced", got)
	}
}

func TestRejectedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"IllegalMove", "e2e5", "error: e2e5"},
		{"EmptySquare", "e3e4", "error: e3e4"},
		{"Garbage", "hello", "error: hello"},
		{"BadFEN", "fen not/a/fen", "error:"},
		{"BadDepth", "go x", `error: go: bad depth "x"`},
		{"NothingToUndo", "undo", "error: undo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestConsole(t, Config{Human: board.White, AutoReply: true})
			c.Execute(tt.input)
			if !strings.HasPrefix(out.String(), tt.want) {
				t.Errorf("output = %q, want prefix %q", out.String(), tt.want)
			}
			if c.Position().ToFEN() != board.StartFEN {
				t.Errorf("position changed to %s", c.Position().ToFEN())
			}
		})
	}
}

func TestUndo(t *testing.T) {
	c, _ := newTestConsole(t, Config{})
	for _, cmd := range []string{"e2e4", "e7e5", "g1f3", "undo"} {
		if c.Execute(cmd) {
			t.Fatalf("%s reported quit", cmd)
		}
	}
	want := "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"
	if got := c.Position().ToFEN(); got != want {
		t.Errorf("after undo FEN = %s, want %s", got, want)
	}
	if len(c.hashes) != 2 {
		t.Errorf("hash history has %d entries, want 2", len(c.hashes))
	}
}

func TestNewAndQuit(t *testing.T) {
	c, _ := newTestConsole(t, Config{})
	c.Execute("d2d4")
	c.Execute("new")
	if c.Position().ToFEN() != board.StartFEN {
		t.Errorf("new left %s", c.Position().ToFEN())
	}
	if !c.Execute("quit") {
		t.Error("quit did not stop the loop")
	}
}

func TestPerftCommand(t *testing.T) {
	c, out := newTestConsole(t, Config{})
	c.Execute("perft 2")
	got := out.String()
	if !strings.Contains(got, "total 400 ") {
		t.Errorf("perft 2 output missing total:\n%s", got)
	}
	if n := strings.Count(got, "\n"); n != 21 {
		t.Errorf("perft 2 printed %d lines, want 20 moves and a total", n)
	}
}

func TestStalemateAnnounced(t *testing.T) {
	c, out := newTestConsole(t, Config{})
	if err := c.SetPosition("k7/8/1Q6/8/8/8/8/7K b - - 0 1"); err != nil {
		t.Fatal(err)
	}
	res := c.Think()
	if res.Move != board.NoMove {
		t.Errorf("Think played %v in stalemate", res.Move)
	}
	if strings.TrimSpace(out.String()) != "stalemate" {
		t.Errorf("output = %q, want stalemate", out.String())
	}
}

func TestImplausibleEnPassantIgnored(t *testing.T) {
	c, out := newTestConsole(t, Config{})
	script := "fen 4k3/8/8/3P4/8/8/8/4K3 w - e6 0 1\ngo 3\n"
	if err := c.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !resultLine.MatchString(out.String()) {
		t.Errorf("no engine move after loading the position:\n%s", out)
	}
}

func TestPromotionNeedsLetter(t *testing.T) {
	c, out := newTestConsole(t, Config{})
	if err := c.SetPosition("7k/P7/8/8/8/8/8/K7 w - - 0 1"); err != nil {
		t.Fatal(err)
	}
	c.Execute("a7a8")
	if !strings.HasPrefix(out.String(), "error: a7a8") {
		t.Errorf("output = %q, want an error", out.String())
	}
	c.Execute("a7a8r")
	if got := c.Position().ToFEN(); got != "R6k/8/8/8/8/8/8/K7 b - - 0 1" {
		t.Errorf("after a7a8r FEN = %s", got)
	}
}
