package engine

import (
	"strings"
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

// mirrorFEN flips the board vertically and swaps the colours.
func mirrorFEN(fen string) string {
	f := strings.Fields(fen)
	ranks := strings.Split(f[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	swap := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return r - 'a' + 'A'
			case r >= 'A' && r <= 'Z':
				return r - 'A' + 'a'
			}
			return r
		}, s)
	}
	out := []string{swap(strings.Join(ranks, "/")), "w", swap(f[2]), f[3]}
	if f[1] == "w" {
		out[1] = "b"
	}
	if ep := f[3]; ep != "-" {
		out[3] = ep[:1] + string('1'+'8'-ep[1])
	}
	return strings.Join(append(out, f[4:]...), " ")
}

func TestEvaluateSymmetry(t *testing.T) {
	ev := NewEvaluator(DefaultParams().Eval)
	fens := []string{
		board.StartFEN,
		kiwipete,
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	}
	for _, fen := range fens {
		pos := mustFEN(t, fen)
		mirrored := mustFEN(t, mirrorFEN(fen))
		if a, b := ev.Evaluate(pos), ev.Evaluate(mirrored); a != b {
			t.Errorf("%s: %d, mirrored %d", fen, a, b)
		}
	}
}

func TestEvaluateStartPositionIsTempo(t *testing.T) {
	p := DefaultParams().Eval
	ev := NewEvaluator(p)
	if got := ev.Evaluate(board.NewPosition()); got != p.Tempo {
		t.Errorf("Evaluate(start) = %d, want %d", got, p.Tempo)
	}
	if mg, eg := ev.Material(board.NewPosition()); mg != 0 || eg != 0 {
		t.Errorf("Material(start) = %d, %d; want 0, 0", mg, eg)
	}
}

func TestEvaluateSideToMovePerspective(t *testing.T) {
	p := DefaultParams().Eval
	ev := NewEvaluator(p)
	w := ev.Evaluate(mustFEN(t, "4k3/8/8/8/8/8/8/3QK3 w - - 0 1"))
	b := ev.Evaluate(mustFEN(t, "4k3/8/8/8/8/8/8/3QK3 b - - 0 1"))
	if w <= 0 || b >= 0 {
		t.Errorf("white up a queen: white to move %d, black to move %d", w, b)
	}
	if w+b != 2*p.Tempo {
		t.Errorf("scores differ by more than tempo: %d and %d", w, b)
	}
}

func TestEvalComponents(t *testing.T) {
	p := DefaultParams().Eval
	tests := []struct {
		name   string
		fen    string
		fn     func(*Evaluator, *board.Position) (int, int)
		mg, eg int
	}{
		{
			name: "doubled isolated passed",
			fen:  "4k3/8/8/8/8/P7/P7/4K3 w - - 0 1",
			fn:   (*Evaluator).PawnStructure,
			mg:   -p.DoubledPawn - 2*p.IsolatedPawn + p.PassedPawnMg[1] + p.PassedPawnMg[2],
			eg:   -p.DoubledPawn - 2*p.IsolatedPawn + p.PassedPawnEg[1] + p.PassedPawnEg[2],
		},
		{
			name: "blocked pawns are not passed",
			fen:  "4k3/8/8/3p4/3P4/8/8/4K3 w - - 0 1",
			fn:   (*Evaluator).PawnStructure,
			mg:   0,
			eg:   0,
		},
		{
			name: "bishop pair",
			fen:  "4k3/8/8/8/8/8/8/2B1KB2 w - - 0 1",
			fn:   (*Evaluator).Pieces,
			mg:   p.BishopPair,
			eg:   p.BishopPair,
		},
		{
			name: "rook on open file",
			fen:  "4k3/8/8/8/8/8/8/R3K3 w - - 0 1",
			fn:   (*Evaluator).Pieces,
			mg:   p.RookOpenFile,
			eg:   p.RookOpenFile,
		},
		{
			name: "rook on semi-open file",
			fen:  "4k3/p7/8/8/8/8/8/R3K3 w - - 0 1",
			fn:   (*Evaluator).Pieces,
			mg:   p.RookSemiOpenFile,
			eg:   p.RookSemiOpenFile,
		},
		{
			name: "rook on seventh",
			fen:  "4k3/R7/8/8/8/8/8/4K3 w - - 0 1",
			fn:   (*Evaluator).Pieces,
			mg:   p.RookOpenFile + p.RookSeventh,
			eg:   p.RookOpenFile + p.RookSeventh,
		},
		{
			name: "pawn shield against open king file",
			fen:  "4k3/8/8/8/8/8/5PPP/6K1 w - - 0 1",
			fn:   (*Evaluator).KingSafety,
			mg:   3*p.ShieldRank1 + p.KingOpenFile,
			eg:   0,
		},
		{
			name: "back rank without luft",
			fen:  "r3k3/8/8/8/8/8/5PPP/6K1 w - - 0 1",
			fn:   (*Evaluator).KingSafety,
			mg:   3*p.ShieldRank1 + p.KingOpenFile - p.BackRankWeakness,
			eg:   0,
		},
		{
			name: "undefended knight",
			fen:  "4k3/8/8/3n4/8/8/8/3RK3 w - - 0 1",
			fn:   (*Evaluator).Hanging,
			mg:   board.PieceValue[board.Knight] * p.HangingPercent / 100,
			eg:   board.PieceValue[board.Knight] * p.HangingPercent / 100,
		},
		{
			name: "defended knight",
			fen:  "4k3/8/4p3/3n4/8/8/8/3RK3 w - - 0 1",
			fn:   (*Evaluator).Hanging,
			mg:   0,
			eg:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mg, eg := tt.fn(NewEvaluator(p), mustFEN(t, tt.fen))
			if mg != tt.mg || eg != tt.eg {
				t.Errorf("got (%d, %d), want (%d, %d)", mg, eg, tt.mg, tt.eg)
			}
		})
	}
}

func TestMobilityAndKingAttackFavourActivePieces(t *testing.T) {
	ev := NewEvaluator(DefaultParams().Eval)
	// White queen bears on the black king's zone, black's is buried.
	pos := mustFEN(t, "6kq/5ppp/8/8/8/8/5Q2/6K1 w - - 0 1")
	if mg, _ := ev.Mobility(pos); mg <= 0 {
		t.Errorf("Mobility mg = %d, want > 0", mg)
	}
	if mg, _ := ev.KingAttack(pos); mg <= 0 {
		t.Errorf("KingAttack mg = %d, want > 0", mg)
	}
}

func TestPhase(t *testing.T) {
	tests := []struct {
		fen  string
		want int
	}{
		{board.StartFEN, MaxPhase},
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", 0},
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", 2},
		{"4k3/8/8/8/8/8/8/QQQQKQQQ w - - 0 1", MaxPhase},
	}
	for _, tt := range tests {
		if got := Phase(mustFEN(t, tt.fen)); got != tt.want {
			t.Errorf("Phase(%s) = %d, want %d", tt.fen, got, tt.want)
		}
	}
}

func TestEvaluateCachesPawnStructure(t *testing.T) {
	ev := NewEvaluator(DefaultParams().Eval)
	pos := mustFEN(t, kiwipete)
	first := ev.Evaluate(pos)
	mg, eg, ok := ev.pawns.Probe(pos.PawnKey)
	if !ok {
		t.Fatal("pawn structure was not cached")
	}
	if wmg, weg := ev.PawnStructure(pos); mg != wmg || eg != weg {
		t.Errorf("cached (%d, %d), computed (%d, %d)", mg, eg, wmg, weg)
	}
	if second := ev.Evaluate(pos); second != first {
		t.Errorf("cached evaluation %d differs from first %d", second, first)
	}
}
