package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Options{
		HashMB: 4,
		Logger: zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.InfoLevel),
	})
}

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func isLegal(pos *board.Position, m board.Move) bool {
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	return ml.Contains(m)
}

func TestSearchStartPositionDepth1(t *testing.T) {
	pos := board.NewPosition()
	eng := newTestEngine(t)

	move, score := eng.Search(pos, 1)
	if !isLegal(pos, move) {
		t.Fatalf("Search returned %v, not a legal opening move", move)
	}
	if isMate(score) {
		t.Errorf("score = %d, want a finite evaluation", score)
	}
	if eng.LastDepth() != 1 {
		t.Errorf("LastDepth() = %d, want 1", eng.LastDepth())
	}
	if eng.Nodes() == 0 {
		t.Error("Nodes() = 0 after a search")
	}
}

func TestSearchReplyAfterKnightDevelopment(t *testing.T) {
	// 1.e4 e5 2.Nf3
	pos := mustFEN(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2")
	eng := newTestEngine(t)

	res := eng.SearchWithLimits(pos, Limits{Depth: 4, MoveTime: 30 * time.Second})
	if !isLegal(pos, res.Move) {
		t.Fatalf("move %v is not legal for black", res.Move)
	}
	if res.Depth != 4 {
		t.Errorf("Depth = %d, want 4", res.Depth)
	}
	if len(res.PV) == 0 || res.PV[0] != res.Move {
		t.Errorf("PV %v does not start with %v", res.PV, res.Move)
	}
}

func TestSearchFindsMateInOne(t *testing.T) {
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	eng := newTestEngine(t)

	move, score := eng.Search(pos, 3)
	if got := move.String(); got != "a1a8" {
		t.Errorf("move = %s, want a1a8", got)
	}
	if score != MateScore-1 {
		t.Errorf("score = %d, want %d", score, MateScore-1)
	}
	if got := ScoreToString(score); got != "mate 1" {
		t.Errorf("ScoreToString(%d) = %q, want %q", score, got, "mate 1")
	}
}

func TestSearchNoLegalMove(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		score int
	}{
		{"checkmate", "R5k1/5ppp/8/8/8/8/8/6K1 b - - 1 1", -MateScore},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", DrawScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(t)
			move, score := eng.Search(mustFEN(t, tt.fen), 4)
			if move != board.NoMove {
				t.Errorf("move = %v, want NoMove", move)
			}
			if score != tt.score {
				t.Errorf("score = %d, want %d", score, tt.score)
			}
		})
	}
}

func TestSearchDeterministic(t *testing.T) {
	pos := mustFEN(t, kiwipete)

	m1, s1 := newTestEngine(t).Search(pos, 4)
	m2, s2 := newTestEngine(t).Search(pos, 4)
	if m1 != m2 || s1 != s2 {
		t.Errorf("fresh engines disagree: %v/%d vs %v/%d", m1, s1, m2, s2)
	}

	eng := newTestEngine(t)
	r1 := eng.SearchWithLimits(pos, Limits{Depth: 4, MoveTime: -1, ClearTT: true})
	r2 := eng.SearchWithLimits(pos, Limits{Depth: 4, MoveTime: -1, ClearTT: true})
	if r1.Move != r2.Move || r1.Score != r2.Score || r1.Nodes != r2.Nodes {
		t.Errorf("repeat with cleared table differs: %+v vs %+v", r1, r2)
	}
}

func TestSearchLeavesPositionUntouched(t *testing.T) {
	pos := mustFEN(t, kiwipete)
	before := pos.ToFEN()
	hash := pos.Hash

	newTestEngine(t).Search(pos, 3)

	if pos.ToFEN() != before || pos.Hash != hash {
		t.Errorf("position changed by search: %s -> %s", before, pos.ToFEN())
	}
}

func TestSearchRespectsMoveTime(t *testing.T) {
	pos := mustFEN(t, kiwipete)
	eng := newTestEngine(t)

	res := eng.SearchWithLimits(pos, Limits{MoveTime: 100 * time.Millisecond})
	if !isLegal(pos, res.Move) {
		t.Fatalf("move %v is not legal", res.Move)
	}
	if res.Elapsed > 2*time.Second {
		t.Errorf("search took %v with a 100ms budget", res.Elapsed)
	}
}

func TestRepetitionAgainstGameHistory(t *testing.T) {
	pos := board.NewPosition()
	var hist []uint64
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		hist = append(hist, pos.Hash)
		m, err := board.ParseMove(s, pos)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", s, err)
		}
		pos.MakeMove(m)
	}
	pos.Commit()

	eng := newTestEngine(t)
	s := eng.searcher
	s.reset(pos, hist)
	if !s.isDraw(0) {
		t.Error("position repeating the start was not detected")
	}

	s.reset(pos, hist[2:])
	if s.isDraw(0) {
		t.Error("repetition reported without the matching history entry")
	}
}

func TestDrawScoreContempt(t *testing.T) {
	p := DefaultParams()
	p.Search.Contempt = 20
	eng := New(Options{HashMB: 1, Params: p, Logger: zerolog.Nop()})
	s := eng.searcher

	pos := board.NewPosition()
	s.reset(pos, nil)
	if got := s.drawScore(); got != -20 {
		t.Errorf("root side draw score = %d, want -20", got)
	}
	pos.TryNull(func() {
		if got := s.drawScore(); got != 20 {
			t.Errorf("opponent draw score = %d, want 20", got)
		}
	})
}

func TestTimeManager(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(0, time.Second)
	if tm.ShouldStop() || tm.Budget() != 0 {
		t.Error("zero move time should mean no deadline")
	}

	tm.Init(time.Millisecond, time.Millisecond)
	if tm.Budget() != 2*time.Millisecond {
		t.Errorf("Budget() = %v, want 2ms", tm.Budget())
	}
	time.Sleep(5 * time.Millisecond)
	if !tm.ShouldStop() || !tm.PastHalf() {
		t.Error("budget should be spent")
	}
}

func TestPawnHashTable(t *testing.T) {
	pt := NewPawnTable(1)
	pos := board.NewPosition()

	if _, _, found := pt.Probe(pos.PawnKey); found {
		t.Error("expected miss on first probe")
	}
	pt.Store(pos.PawnKey, -15, -20)
	mg, eg, found := pt.Probe(pos.PawnKey)
	if !found || mg != -15 || eg != -20 {
		t.Errorf("Probe = %d, %d, %v; want -15, -20, true", mg, eg, found)
	}

	oldKey := pos.PawnKey
	m := board.NewMove(board.E2, board.E4)
	pos.MakeMove(m)
	if pos.PawnKey == oldKey {
		t.Error("PawnKey should change when a pawn moves")
	}
	pos.UnmakeMove(m)
	if pos.PawnKey != oldKey {
		t.Error("PawnKey should be restored on unmake")
	}

	pt.Clear()
	if _, _, found := pt.Probe(oldKey); found {
		t.Error("Clear left an entry behind")
	}
}

func TestScoreToString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0.00"},
		{125, "1.25"},
		{-7, "-0.07"},
		{MateScore - 3, "mate 2"},
		{-MateScore + 2, "mate -1"},
		{-MateScore + 100, "mate -50"},
	}
	for _, tt := range tests {
		if got := ScoreToString(tt.score); got != tt.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNullMoveNeedsPieces(t *testing.T) {
	tests := []struct {
		name     string
		fen      string
		wantNull bool
	}{
		{"PawnsOnly", "4k3/3ppp2/8/8/8/8/3PPP2/4K3 w - - 0 1", false},
		{"WhiteKnight", "4k3/3ppp2/8/8/8/8/3PPP2/1N2K3 w - - 0 1", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			eng := newTestEngine(t)
			eng.Search(mustFEN(t, tc.fen), 6)
			if got := eng.searcher.nullTries > 0; got != tc.wantNull {
				t.Errorf("null-move searches = %d, want any: %v", eng.searcher.nullTries, tc.wantNull)
			}
		})
	}
}

func TestAspirationResearchesSameDepth(t *testing.T) {
	p := DefaultParams()
	p.Search.AspirationMinDepth = 2
	p.Search.AspirationDelta = 1
	var logs bytes.Buffer
	eng := New(Options{HashMB: 4, Params: p, Logger: zerolog.New(&logs).Level(zerolog.DebugLevel)})

	res := eng.SearchWithLimits(mustFEN(t, kiwipete), Limits{Depth: 4, MoveTime: -1})
	if res.Depth != 4 {
		t.Fatalf("Depth = %d, want 4", res.Depth)
	}

	var iterations []int
	failures := map[int]int{}
	dec := json.NewDecoder(&logs)
	for {
		var line struct {
			Message string `json:"message"`
			Depth   int    `json:"depth"`
		}
		if err := dec.Decode(&line); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			t.Fatalf("decoding log line: %v", err)
		}
		switch line.Message {
		case "iteration":
			iterations = append(iterations, line.Depth)
		case "fail-low", "fail-high":
			failures[line.Depth]++
		}
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, iterations); diff != "" {
		t.Errorf("completed iterations (-want +got):\n%s", diff)
	}
	if len(failures) == 0 {
		t.Fatal("a one-centipawn window never failed")
	}
	for depth := range failures {
		if depth < p.Search.AspirationMinDepth || depth > 4 {
			t.Errorf("window failure logged at depth %d", depth)
		}
	}
}

func TestQuiescenceMateBeyondMaxPly(t *testing.T) {
	eng := New(Options{HashMB: 1, Logger: zerolog.Nop()})
	s := eng.searcher
	s.reset(mustFEN(t, "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1"), nil)
	s.tm.Init(0, 0)

	ply := MaxPly + 20
	score := s.quiescence(ply, 0, -Infinity, Infinity)
	if score != -MateScore+ply {
		t.Fatalf("quiescence = %d, want %d", score, -MateScore+ply)
	}
	if !isMate(score) {
		t.Errorf("score %d not recognised as a mate", score)
	}
	if got := ScoreToTT(score, ply); got != -MateScore {
		t.Errorf("ScoreToTT(%d, %d) = %d, want %d", score, ply, got, -MateScore)
	}
}
