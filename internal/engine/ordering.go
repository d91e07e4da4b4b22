package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // hash move first
	GoodCaptureBase = 1000000  // captures and promotions that do not lose material
	KillerScore1    = 900000
	KillerScore2    = 800000
	BadCaptureBase  = -1000000 // captures that SEE says lose material
)

// MVV-LVA: victim*10 - attacker, so QxP sorts below PxQ.
var mvvLva = func() [6][6]int {
	var t [6][6]int
	for victim := board.Pawn; victim < board.King; victim++ {
		for attacker := board.Pawn; attacker <= board.King; attacker++ {
			t[victim][attacker] = int(victim+1)*10 - int(attacker)
		}
	}
	return t
}()

// MoveOrderer holds the killer and history heuristics of one search.
type MoveOrderer struct {
	killers    [MaxPly][2]board.Move
	history    [2][64][64]int
	historyMax int
}

// NewMoveOrderer creates an orderer that halves history past historyMax.
func NewMoveOrderer(historyMax int) *MoveOrderer {
	return &MoveOrderer{historyMax: historyMax}
}

// Clear resets killers and history.
func (mo *MoveOrderer) Clear() {
	mo.killers = [MaxPly][2]board.Move{}
	mo.history = [2][64][64]int{}
}

// ScoreMoves fills scores[i] with the ordering key of moves[i].
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, scores []int, ply int, ttMove board.Move) {
	for i, m := range moves.Slice() {
		scores[i] = mo.scoreMove(pos, m, ply, ttMove)
	}
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}

	if m.IsCapture(pos) {
		attacker := pos.PieceAt(m.From()).Type()
		victim := board.Pawn
		if !m.IsEnPassant() {
			victim = pos.PieceAt(m.To()).Type()
		}
		score := mvvLva[victim][attacker] * 1000
		if m.IsPromotion() {
			score += board.PieceValue[m.Promotion()]
		}
		if board.PieceValue[victim] >= board.PieceValue[attacker] || pos.SEE(m) >= 0 {
			return GoodCaptureBase + score
		}
		return BadCaptureBase + score
	}

	if m.IsPromotion() {
		if m.Promotion() == board.Queen {
			return GoodCaptureBase - 1000 + board.PieceValue[board.Queen]
		}
		return BadCaptureBase + int(m.Promotion())
	}

	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			return KillerScore1
		}
		if m == mo.killers[ply][1] {
			return KillerScore2
		}
	}

	return mo.history[pos.SideToMove][m.From()][m.To()]
}

// PickMove moves the best-scored remaining move to index.
// Selection on demand is cheaper than a full sort when cutoffs come early.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// IsKiller reports whether m is a killer at ply.
func (mo *MoveOrderer) IsKiller(m board.Move, ply int) bool {
	return ply < MaxPly && (mo.killers[ply][0] == m || mo.killers[ply][1] == m)
}

// UpdateKillers records a quiet move that caused a cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory rewards a quiet cutoff move of side c with depth².
// When a counter passes the limit the whole table is halved, so older
// successes fade.
func (mo *MoveOrderer) UpdateHistory(c board.Color, m board.Move, depth int) {
	h := &mo.history[c][m.From()][m.To()]
	*h += depth * depth
	if *h > mo.historyMax {
		for s := range mo.history {
			for from := range mo.history[s] {
				for to := range mo.history[s][from] {
					mo.history[s][from][to] /= 2
				}
			}
		}
	}
}

// HistoryScore returns the history counter of m for side c.
func (mo *MoveOrderer) HistoryScore(c board.Color, m board.Move) int {
	return mo.history[c][m.From()][m.To()]
}
