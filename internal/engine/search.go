package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = max(pv.length[ply+1], ply+1)
}

// Searcher runs negamax and quiescence on one position. The position is
// mutated in place and restored on every exit path through Position.Try.
type Searcher struct {
	pos    *board.Position
	tt     *TranspositionTable
	eval   *Evaluator
	order  *MoveOrderer
	params *SearchParams
	tm     *TimeManager

	lmr [MaxPly][MaxPly]int

	game     []uint64
	path     [board.MaxHistory]uint64
	moves    [board.MaxHistory]board.MoveList
	scores   [board.MaxHistory][board.MaxMoves]int
	pv       PVTable
	rootSide board.Color
	rootBest board.Move

	nodes     uint64
	nullTries uint64 // null-move searches since reset
	aborted   bool
	stopFlag  atomic.Bool
}

// NewSearcher creates a searcher sharing tt. The searcher owns its
// evaluator and move-ordering tables.
func NewSearcher(tt *TranspositionTable, p Params) *Searcher {
	s := &Searcher{
		tt:     tt,
		eval:   NewEvaluator(p.Eval),
		order:  NewMoveOrderer(p.Search.HistoryMax),
		params: &p.Search,
		tm:     NewTimeManager(),
	}
	for d := 1; d < MaxPly; d++ {
		for m := 1; m < MaxPly; m++ {
			r := p.Search.LMRBase + math.Log(float64(d))*math.Log(float64(m))/p.Search.LMRDivisor
			s.lmr[d][m] = int(r)
		}
	}
	return s
}

// Stop asks a running search to unwind at its next clock check.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// Nodes returns the nodes visited since the last reset.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// Aborted reports whether the last search ran out of budget.
func (s *Searcher) Aborted() bool {
	return s.aborted
}

// PV returns the principal variation of the last completed root search.
func (s *Searcher) PV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

// reset prepares a search of pos. game lists the hashes of the positions
// played before pos, oldest first.
func (s *Searcher) reset(pos *board.Position, game []uint64) {
	s.pos = pos
	s.game = game
	s.path[0] = pos.Hash
	s.rootSide = pos.SideToMove
	s.rootBest = board.NoMove
	s.nodes = 0
	s.nullTries = 0
	s.aborted = false
	s.stopFlag.Store(false)
	s.order.Clear()
	s.pv = PVTable{}
}

// checkAbort polls the clock every CheckInterval nodes.
func (s *Searcher) checkAbort() bool {
	if s.aborted {
		return true
	}
	if s.nodes&(s.params.CheckInterval-1) == 0 && (s.stopFlag.Load() || s.tm.ShouldStop()) {
		s.aborted = true
	}
	return s.aborted
}

// drawScore is the value of a draw for the side to move: the root side
// sees -Contempt.
func (s *Searcher) drawScore() int {
	if s.pos.SideToMove == s.rootSide {
		return DrawScore - s.params.Contempt
	}
	return DrawScore + s.params.Contempt
}

// isDraw checks the no-progress rule, dead material and repetition of any
// earlier position in the search path or game history. Only positions
// since the last irreversible move can repeat.
func (s *Searcher) isDraw(ply int) bool {
	pos := s.pos
	if pos.HalfMoveClock >= s.params.DrawHalfMoves || pos.IsInsufficientMaterial() {
		return true
	}
	for d := 2; d <= pos.HalfMoveClock; d += 2 {
		i := ply - d
		var h uint64
		if i >= 0 {
			h = s.path[i]
		} else {
			j := len(s.game) + i
			if j < 0 {
				break
			}
			h = s.game[j]
		}
		if h == pos.Hash {
			return true
		}
	}
	return false
}

func (s *Searcher) reduction(depth, searched int) int {
	return s.lmr[min(depth, MaxPly-1)][min(searched, MaxPly-1)]
}

// searchRoot searches every legal root move. There is no TT cutoff at the
// root so a move is always produced. On a fail low the returned score is
// alpha and rootBest keeps the previous iteration's move.
func (s *Searcher) searchRoot(depth, alpha, beta int) int {
	pos := s.pos
	s.nodes++
	s.pv.length[0] = 0

	inCheck := pos.InCheck()
	if inCheck {
		depth++
	}

	ttMove := board.NoMove
	if e, ok := s.tt.Probe(pos.Hash); ok {
		ttMove = e.BestMove
	}

	ml := &s.moves[0]
	ml.Clear()
	pos.GenerateLegalMoves(ml)
	if ml.Len() == 0 {
		if inCheck {
			return -MateScore
		}
		return DrawScore
	}
	scores := s.scores[0][:ml.Len()]
	s.order.ScoreMoves(pos, ml, scores, 0, ttMove)

	alphaOrig := alpha
	bestMove := board.NoMove
	for i := 0; i < ml.Len(); i++ {
		PickMove(ml, scores, i)
		m := ml.Get(i)
		quiet := m.IsQuiet(pos)

		var score int
		pos.Try(m, func() {
			s.path[1] = pos.Hash
			s.pv.length[1] = 1
			if i == 0 {
				score = -s.negamax(depth-1, 1, -beta, -alpha, true)
				return
			}
			score = -s.negamax(depth-1, 1, -alpha-1, -alpha, true)
			if score > alpha && score < beta {
				score = -s.negamax(depth-1, 1, -beta, -alpha, true)
			}
		})
		if s.aborted {
			return alpha
		}

		if score >= beta {
			if quiet {
				s.order.UpdateKillers(m, 0)
				s.order.UpdateHistory(pos.SideToMove, m, depth)
			}
			s.rootBest = m
			s.pv.moves[0][0] = m
			s.pv.length[0] = max(s.pv.length[0], 1)
			s.tt.Store(pos.Hash, depth, beta, TTLowerBound, m, 0)
			return beta
		}
		if score > alpha {
			alpha = score
			bestMove = m
			s.rootBest = m
			s.pv.update(0, m)
		}
	}

	flag := TTUpperBound
	if alpha > alphaOrig {
		flag = TTExact
	}
	s.tt.Store(pos.Hash, depth, alpha, flag, bestMove, 0)
	return alpha
}

// negamax is the fail-hard alpha-beta search below the root.
func (s *Searcher) negamax(depth, ply, alpha, beta int, allowNull bool) int {
	pos := s.pos
	if s.checkAbort() || ply >= MaxPly-1 {
		return s.eval.Evaluate(pos)
	}
	s.nodes++
	s.pv.length[ply] = ply

	if s.isDraw(ply) {
		return s.drawScore()
	}

	inCheck := pos.InCheck()
	if inCheck && ply+depth < MaxPly-1 {
		depth++
	}
	if depth <= 0 {
		return s.quiescence(ply, 0, alpha, beta)
	}

	p := s.params
	pvNode := beta-alpha > 1

	if !inCheck && !pvNode {
		static := s.eval.Evaluate(pos)
		if depth < len(p.FutilityMargin) && p.FutilityMargin[depth] > 0 && static+p.FutilityMargin[depth] <= alpha {
			return static
		}
		if depth <= p.RazorDepth && static+p.RazorMargin+p.RazorDepthMargin*depth <= alpha {
			if score := s.quiescence(ply, 0, alpha, beta); score <= alpha {
				return score
			}
		}
	}

	ttMove := board.NoMove
	if e, ok := s.tt.Probe(pos.Hash); ok {
		ttMove = e.BestMove
		if int(e.Depth) >= depth {
			score := ScoreFromTT(int(e.Score), ply)
			switch {
			case e.Flag == TTExact,
				e.Flag == TTLowerBound && score >= beta,
				e.Flag == TTUpperBound && score <= alpha:
				return score
			}
		}
	}

	ml := &s.moves[ply]
	ml.Clear()
	pos.GenerateLegalMoves(ml)
	if ml.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return s.drawScore()
	}

	if allowNull && !inCheck && !pvNode && depth >= p.NullMinDepth && pos.HasNonPawnMaterial(pos.SideToMove) {
		r := min(p.NullReduction+depth/p.NullDepthDivisor, depth-1)
		s.nullTries++
		var score int
		pos.TryNull(func() {
			s.path[ply+1] = pos.Hash
			score = -s.negamax(depth-1-r, ply+1, -beta, -beta+1, false)
		})
		if s.aborted {
			return alpha
		}
		if score >= beta {
			return beta
		}
	}

	scores := s.scores[ply][:ml.Len()]
	s.order.ScoreMoves(pos, ml, scores, ply, ttMove)

	alphaOrig := alpha
	bestMove := board.NoMove
	quietsTried := 0
	for i := 0; i < ml.Len(); i++ {
		PickMove(ml, scores, i)
		m := ml.Get(i)
		quiet := m.IsQuiet(pos)

		if quiet && !inCheck && m != ttMove && depth < len(p.LMPMoveCount) &&
			p.LMPMoveCount[depth] > 0 && quietsTried >= p.LMPMoveCount[depth] {
			continue
		}

		var score int
		pos.Try(m, func() {
			s.path[ply+1] = pos.Hash
			s.pv.length[ply+1] = ply + 1
			newDepth := depth - 1
			if i == 0 {
				score = -s.negamax(newDepth, ply+1, -beta, -alpha, true)
				return
			}
			r := 0
			if quiet && !inCheck && !pos.InCheck() && m != ttMove && !s.order.IsKiller(m, ply) &&
				depth >= p.LMRMinDepth && i >= p.LMRMinMoves {
				r = max(min(s.reduction(depth, i), newDepth-1), 0)
			}
			score = -s.negamax(newDepth-r, ply+1, -alpha-1, -alpha, true)
			if r > 0 && score > alpha {
				score = -s.negamax(newDepth, ply+1, -alpha-1, -alpha, true)
			}
			if score > alpha && score < beta {
				score = -s.negamax(newDepth, ply+1, -beta, -alpha, true)
			}
		})
		if quiet {
			quietsTried++
		}
		if s.aborted {
			return alpha
		}

		if score >= beta {
			if quiet {
				s.order.UpdateKillers(m, ply)
				s.order.UpdateHistory(pos.SideToMove, m, depth)
			}
			s.tt.Store(pos.Hash, depth, beta, TTLowerBound, m, ply)
			return beta
		}
		if score > alpha {
			alpha = score
			bestMove = m
			s.pv.update(ply, m)
		}
	}

	flag := TTUpperBound
	if alpha > alphaOrig {
		flag = TTExact
	}
	s.tt.Store(pos.Hash, depth, alpha, flag, bestMove, ply)
	return alpha
}

// quiescence resolves captures and promotions below the horizon. In check
// every evasion is searched and there is no stand pat.
func (s *Searcher) quiescence(ply, qply, alpha, beta int) int {
	pos := s.pos
	if s.checkAbort() || ply >= board.MaxHistory-1 || qply >= s.params.QuiescenceMaxPly {
		return s.eval.Evaluate(pos)
	}
	s.nodes++

	inCheck := pos.InCheck()
	ml := &s.moves[ply]
	ml.Clear()

	standPat := 0
	if inCheck {
		pos.GenerateLegalMoves(ml)
		if ml.Len() == 0 {
			return -MateScore + ply
		}
	} else {
		standPat = s.eval.Evaluate(pos)
		if standPat >= beta {
			return beta
		}
		alpha = max(alpha, standPat)
		pos.GenerateNoisy(ml)
	}

	scores := s.scores[ply][:ml.Len()]
	s.order.ScoreMoves(pos, ml, scores, ply, board.NoMove)

	for i := 0; i < ml.Len(); i++ {
		PickMove(ml, scores, i)
		m := ml.Get(i)

		if !inCheck {
			gain := 0
			if m.IsCapture(pos) {
				if pos.SEE(m) < 0 {
					continue
				}
				gain = board.PieceValue[board.Pawn]
				if !m.IsEnPassant() {
					gain = pos.PieceAt(m.To()).Value()
				}
			}
			if m.IsPromotion() {
				gain += board.PieceValue[m.Promotion()] - board.PieceValue[board.Pawn]
			}
			if standPat+gain+s.params.DeltaMargin <= alpha {
				continue
			}
		}

		var score int
		if !pos.Try(m, func() { score = -s.quiescence(ply+1, qply+1, -beta, -alpha) }) {
			continue
		}
		if s.aborted {
			return alpha
		}
		if score >= beta {
			return beta
		}
		alpha = max(alpha, score)
	}
	return alpha
}
