package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

func orderedMoves(mo *MoveOrderer, pos *board.Position, ply int, ttMove board.Move) []board.Move {
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	scores := make([]int, ml.Len())
	mo.ScoreMoves(pos, &ml, scores, ply, ttMove)
	out := make([]board.Move, 0, ml.Len())
	for i := 0; i < ml.Len(); i++ {
		PickMove(&ml, scores, i)
		out = append(out, ml.Get(i))
	}
	return out
}

func TestMoveOrderingPriorities(t *testing.T) {
	// d5 is defended by e6: taking it with the pawn is even, with the queen
	// it loses material.
	pos := mustFEN(t, "4k3/8/2r1p3/3p4/4P3/8/3Q4/4K3 w - - 0 1")
	parse := func(s string) board.Move {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", s, err)
		}
		return m
	}
	ttMove := parse("e1f1")
	killer := parse("d2b4")
	goodCapture := parse("e4d5")
	badCapture := parse("d2d5")

	mo := NewMoveOrderer(DefaultParams().Search.HistoryMax)
	mo.UpdateKillers(killer, 2)

	got := orderedMoves(mo, pos, 2, ttMove)
	index := make(map[board.Move]int, len(got))
	for i, m := range got {
		index[m] = i
	}
	if got[0] != ttMove {
		t.Errorf("first move = %v, want the hash move %v", got[0], ttMove)
	}
	if got[1] != goodCapture {
		t.Errorf("second move = %v, want the winning capture %v", got[1], goodCapture)
	}
	if got[2] != killer {
		t.Errorf("third move = %v, want the killer %v", got[2], killer)
	}
	if index[badCapture] != len(got)-1 {
		t.Errorf("losing capture at %d of %d, want last", index[badCapture], len(got))
	}
}

func TestKillersShiftAndIgnoreDuplicates(t *testing.T) {
	mo := NewMoveOrderer(1000)
	a := board.NewMove(board.G1, board.F3)
	b := board.NewMove(board.B1, board.C3)

	mo.UpdateKillers(a, 5)
	mo.UpdateKillers(a, 5)
	if mo.killers[5] != [2]board.Move{a, board.NoMove} {
		t.Errorf("killers = %v after duplicate update", mo.killers[5])
	}
	mo.UpdateKillers(b, 5)
	if mo.killers[5] != [2]board.Move{b, a} {
		t.Errorf("killers = %v, want [%v %v]", mo.killers[5], b, a)
	}
	if !mo.IsKiller(a, 5) || mo.IsKiller(a, 6) {
		t.Error("IsKiller reports the wrong ply")
	}

	mo.UpdateKillers(a, MaxPly) // out of range is ignored
	mo.Clear()
	if mo.IsKiller(b, 5) {
		t.Error("Clear kept killers")
	}
}

func TestHistoryHalvesPastLimit(t *testing.T) {
	mo := NewMoveOrderer(100)
	quiet := board.NewMove(board.G1, board.F3)
	other := board.NewMove(board.B1, board.C3)

	mo.UpdateHistory(board.White, other, 4) // 16
	mo.UpdateHistory(board.White, quiet, 9) // 81
	if got := mo.HistoryScore(board.White, quiet); got != 81 {
		t.Fatalf("history = %d, want 81", got)
	}
	mo.UpdateHistory(board.White, quiet, 5) // 106 > 100, halve everything
	if got := mo.HistoryScore(board.White, quiet); got != 53 {
		t.Errorf("history after halving = %d, want 53", got)
	}
	if got := mo.HistoryScore(board.White, other); got != 8 {
		t.Errorf("other history after halving = %d, want 8", got)
	}
	if got := mo.HistoryScore(board.Black, quiet); got != 0 {
		t.Errorf("black history = %d, want 0", got)
	}
}
