// Package engine implements the evaluator, transposition table and the
// iterative-deepening alpha-beta search.
package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// MaxPhase is the phase of a board with all minor and major pieces.
const MaxPhase = 24

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// Piece-square tables, drawn with rank 8 on top as seen by white.
// Index with sq.Mirror() for white pieces and sq for black ones.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

// King tables: shelter in the middlegame, centralize in the endgame.
var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

func pstIndex(c board.Color, sq board.Square) board.Square {
	if c == board.White {
		return sq.Mirror()
	}
	return sq
}

// sign is +1 for white and -1 for black.
func sign(c board.Color) int {
	return 1 - 2*int(c)
}

// Evaluator scores positions statically. The pawn-structure cache makes it
// unsafe for concurrent use; give each search its own.
type Evaluator struct {
	params EvalParams
	pawns  *PawnTable
}

// NewEvaluator builds an evaluator with the given weights.
func NewEvaluator(p EvalParams) *Evaluator {
	return &Evaluator{params: p, pawns: NewPawnTable(max(p.PawnHashMB, 1))}
}

// Evaluate returns the score of pos from the side to move's point of view,
// tempo included.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	mg, eg := e.Material(pos)

	pmg, peg, ok := e.pawns.Probe(pos.PawnKey)
	if !ok {
		pmg, peg = e.PawnStructure(pos)
		e.pawns.Store(pos.PawnKey, pmg, peg)
	}
	mg += pmg
	eg += peg

	for _, f := range [...]func(*board.Position) (int, int){
		e.KingSafety, e.Pieces, e.KingAttack, e.Mobility, e.Hanging,
	} {
		m, n := f(pos)
		mg += m
		eg += n
	}

	phase := Phase(pos)
	score := (mg*phase + eg*(MaxPhase-phase)) / MaxPhase
	if pos.SideToMove == board.Black {
		score = -score
	}
	return score + e.params.Tempo
}

// Phase measures remaining non-pawn material, clamped to [0, MaxPhase].
func Phase(pos *board.Position) int {
	phase := 0
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Knight; pt <= board.Queen; pt++ {
			phase += pos.Pieces[c][pt].PopCount() * phaseWeight[pt]
		}
	}
	return min(max(phase, 0), MaxPhase)
}

// Material sums piece values and square tables, white minus black.
func (e *Evaluator) Material(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		s := sign(c)
		for pt := board.Pawn; pt <= board.King; pt++ {
			for bb := pos.Pieces[c][pt]; bb != 0; {
				idx := pstIndex(c, bb.PopLSB())
				if pt == board.King {
					mg += s * kingMidgamePST[idx]
					eg += s * kingEndgamePST[idx]
					continue
				}
				v := board.PieceValue[pt] + psts[pt][idx]
				mg += s * v
				eg += s * v
			}
		}
	}
	return mg, eg
}

// aheadOf returns every square on ranks in front of sq from c's side.
func aheadOf(c board.Color, sq board.Square) board.Bitboard {
	return board.RankMask[sq.Rank()].ForwardFill(c)
}

// PawnStructure scores doubled, isolated and passed pawns.
func (e *Evaluator) PawnStructure(pos *board.Position) (mg, eg int) {
	p := &e.params
	for c := board.White; c <= board.Black; c++ {
		s := sign(c)
		own := pos.Pieces[c][board.Pawn]
		enemy := pos.Pieces[c.Other()][board.Pawn]

		for f := 0; f < 8; f++ {
			if (own & board.FileMask[f]).PopCount() >= 2 {
				mg -= s * p.DoubledPawn
				eg -= s * p.DoubledPawn
			}
		}

		for bb := own; bb != 0; {
			sq := bb.PopLSB()
			f := sq.File()
			if own&board.AdjacentFiles(f) == 0 {
				mg -= s * p.IsolatedPawn
				eg -= s * p.IsolatedPawn
			}
			span := (board.FileMask[f] | board.AdjacentFiles(f)) & aheadOf(c, sq)
			if enemy&span == 0 {
				r := sq.RelativeRank(c)
				mg += s * p.PassedPawnMg[r]
				eg += s * p.PassedPawnEg[r]
			}
		}
	}
	return mg, eg
}

// KingSafety scores the pawn shield, an open king file and a back rank
// with no escape square. It only matters in the middlegame.
func (e *Evaluator) KingSafety(pos *board.Position) (mg, eg int) {
	p := &e.params
	pawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	for c := board.White; c <= board.Black; c++ {
		s := sign(c)
		them := c.Other()
		ksq := pos.KingSquare[c]
		f := ksq.File()
		files := board.FileMask[f] | board.AdjacentFiles(f)
		own := pos.Pieces[c][board.Pawn]

		if r := ksq.Rank() + sign(c); r >= 0 && r < 8 {
			front := files & board.RankMask[r]
			mg += s * p.ShieldRank1 * (own & front).PopCount()
			if r2 := r + sign(c); r2 >= 0 && r2 < 8 {
				mg += s * p.ShieldRank2 * (own & files & board.RankMask[r2]).PopCount()
			}
			heavy := pos.Pieces[them][board.Rook] | pos.Pieces[them][board.Queen]
			if ksq.RelativeRank(c) == 0 && heavy != 0 && front&^pos.Occupied[c] == 0 {
				mg -= s * p.BackRankWeakness
			}
		}

		if pawns&board.FileMask[f] == 0 {
			mg -= s * p.KingOpenFile
		}
	}
	return mg, 0
}

// Pieces scores the bishop pair and rook placement.
func (e *Evaluator) Pieces(pos *board.Position) (mg, eg int) {
	p := &e.params
	allPawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	for c := board.White; c <= board.Black; c++ {
		s := sign(c)
		if pos.Pieces[c][board.Bishop].PopCount() >= 2 {
			mg += s * p.BishopPair
			eg += s * p.BishopPair
		}
		for bb := pos.Pieces[c][board.Rook]; bb != 0; {
			sq := bb.PopLSB()
			file := board.FileMask[sq.File()]
			switch {
			case allPawns&file == 0:
				mg += s * p.RookOpenFile
				eg += s * p.RookOpenFile
			case pos.Pieces[c][board.Pawn]&file == 0:
				mg += s * p.RookSemiOpenFile
				eg += s * p.RookSemiOpenFile
			}
			if sq.RelativeRank(c) == 6 {
				mg += s * p.RookSeventh
				eg += s * p.RookSeventh
			}
		}
	}
	return mg, eg
}

// KingAttack counts attacked squares in the zone around the enemy king,
// weighted by attacker kind.
func (e *Evaluator) KingAttack(pos *board.Position) (mg, eg int) {
	t := pos.Tables()
	occ := pos.AllOccupied
	for c := board.White; c <= board.Black; c++ {
		ksq := pos.KingSquare[c.Other()]
		zone := t.KingAttacks(ksq) | board.SquareBB(ksq)
		score := 0
		for pt := board.Pawn; pt < board.King; pt++ {
			w := e.params.KingAttackWeight[pt]
			for bb := pos.Pieces[c][pt]; bb != 0; {
				score += w * (t.Attacks(pt, c, bb.PopLSB(), occ) & zone).PopCount()
			}
		}
		mg += sign(c) * score
		eg += sign(c) * score / 2
	}
	return mg, eg
}

// Mobility counts squares each piece can move to, per side.
func (e *Evaluator) Mobility(pos *board.Position) (mg, eg int) {
	t := pos.Tables()
	occ := pos.AllOccupied
	for c := board.White; c <= board.Black; c++ {
		s := sign(c)
		for pt := board.Knight; pt <= board.Queen; pt++ {
			for bb := pos.Pieces[c][pt]; bb != 0; {
				n := (t.Attacks(pt, c, bb.PopLSB(), occ) &^ pos.Occupied[c]).PopCount()
				mg += s * n * e.params.MobilityMg[pt]
				eg += s * n * e.params.MobilityEg[pt]
			}
		}
	}
	return mg, eg
}

// attackedBy returns every square attacked by c.
func attackedBy(pos *board.Position, c board.Color) board.Bitboard {
	t := pos.Tables()
	var att board.Bitboard
	for pt := board.Pawn; pt <= board.King; pt++ {
		for bb := pos.Pieces[c][pt]; bb != 0; {
			att |= t.Attacks(pt, c, bb.PopLSB(), pos.AllOccupied)
		}
	}
	return att
}

// Hanging penalizes pieces other than the king that are attacked and not
// defended.
func (e *Evaluator) Hanging(pos *board.Position) (mg, eg int) {
	attacks := [2]board.Bitboard{attackedBy(pos, board.White), attackedBy(pos, board.Black)}
	for c := board.White; c <= board.Black; c++ {
		hanging := pos.Occupied[c] &^ pos.Pieces[c][board.King] & attacks[c.Other()] &^ attacks[c]
		for hanging != 0 {
			pen := pos.PieceAt(hanging.PopLSB()).Value() * e.params.HangingPercent / 100
			mg -= sign(c) * pen
			eg -= sign(c) * pen
		}
	}
	return mg, eg
}
