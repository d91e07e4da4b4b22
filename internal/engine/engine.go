package engine

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

// Options configures a new Engine.
type Options struct {
	HashMB int    // transposition table size, default 16
	Params Params // zero value means DefaultParams
	Logger zerolog.Logger
}

// Limits bounds one search.
type Limits struct {
	Depth     int           // maximum depth, 0 means MaxPly-1
	MoveTime  time.Duration // 0 uses Params.Search.MoveTime, negative means no deadline
	Increment time.Duration // added to the move time
	ClearTT   bool          // empty the transposition table first
}

// Result is the outcome of a search.
type Result struct {
	Move    board.Move // NoMove when the side to move has no legal move
	Score   int        // from the side to move's point of view
	Depth   int        // last completed iteration
	Nodes   uint64
	PV      []board.Move
	Elapsed time.Duration
}

// Engine drives iterative deepening over a Searcher. It is not safe for
// concurrent searches.
type Engine struct {
	searcher  *Searcher
	tt        *TranspositionTable
	params    Params
	log       zerolog.Logger
	game      []uint64
	lastDepth int
	nodes     uint64
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.HashMB <= 0 {
		opts.HashMB = 16
	}
	if opts.Params.Search.CheckInterval == 0 {
		opts.Params = DefaultParams()
	}
	tt := NewTranspositionTable(opts.HashMB)
	return &Engine{
		searcher: NewSearcher(tt, opts.Params),
		tt:       tt,
		params:   opts.Params,
		log:      opts.Logger,
	}
}

// Search runs a depth-limited search with no deadline and returns the best
// move and its score.
func (e *Engine) Search(pos *board.Position, maxDepth int) (board.Move, int) {
	r := e.SearchWithLimits(pos, Limits{Depth: maxDepth, MoveTime: -1})
	return r.Move, r.Score
}

// SearchWithLimits searches a copy of pos; pos itself is never modified.
func (e *Engine) SearchWithLimits(pos *board.Position, limits Limits) Result {
	log := e.log.With().Str("search", uuid.NewString()).Logger()
	if limits.ClearTT {
		e.tt.Clear()
	}

	moveTime := limits.MoveTime
	if moveTime == 0 {
		moveTime = e.params.Search.MoveTime
	}
	maxDepth := limits.Depth
	if maxDepth <= 0 || maxDepth >= MaxPly {
		maxDepth = MaxPly - 1
	}

	root := pos.Copy()
	root.Commit()

	s := e.searcher
	s.reset(root, e.game)
	s.tm.Init(moveTime, limits.Increment)

	log.Debug().
		Str("fen", root.ToFEN()).
		Int("max_depth", maxDepth).
		Dur("budget", s.tm.Budget()).
		Msg("search-start")

	var legal board.MoveList
	root.GenerateLegalMoves(&legal)
	if legal.Len() == 0 {
		score := DrawScore
		if root.InCheck() {
			score = -MateScore
		}
		e.lastDepth, e.nodes = 0, 0
		log.Info().Int("score", score).Msg("no-legal-move")
		return Result{Move: board.NoMove, Score: score, Elapsed: s.tm.Elapsed()}
	}

	res := Result{Move: board.NoMove}
	sp := &e.params.Search
	for depth := 1; depth <= maxDepth; depth++ {
		alpha, beta := -Infinity, Infinity
		delta := sp.AspirationDelta
		if depth >= sp.AspirationMinDepth && !isMate(res.Score) {
			alpha = max(res.Score-delta, -Infinity)
			beta = min(res.Score+delta, Infinity)
		}

		var score int
	aspiration:
		for {
			score = s.searchRoot(depth, alpha, beta)
			if s.Aborted() {
				break
			}
			switch {
			case score <= alpha && alpha > -Infinity:
				log.Debug().Int("depth", depth).Int("alpha", alpha).Msg("fail-low")
			case score >= beta && beta < Infinity:
				log.Debug().Int("depth", depth).Int("beta", beta).Msg("fail-high")
			default:
				break aspiration
			}
			delta *= max(sp.AspirationGrowth, 2)
			if score <= alpha {
				alpha = max(alpha-delta, -Infinity)
			} else {
				beta = min(beta+delta, Infinity)
			}
		}
		if s.Aborted() {
			log.Debug().Int("depth", depth).Msg("iteration-aborted")
			break
		}

		res.Move = s.rootBest
		res.Score = score
		res.Depth = depth
		res.PV = s.PV()
		if len(res.PV) == 0 || res.PV[0] != res.Move {
			res.PV = []board.Move{res.Move}
		}

		log.Debug().
			Int("depth", depth).
			Int("score", score).
			Str("move", res.Move.String()).
			Uint64("nodes", s.Nodes()).
			Int("hashfull", e.tt.HashFull()).
			Msg("iteration")

		if isMate(score) || s.tm.PastHalf() {
			break
		}
	}

	if res.Move == board.NoMove {
		res.Move = s.rootBest
		if res.Move == board.NoMove {
			res.Move = legal.Get(0)
		}
		res.PV = []board.Move{res.Move}
	}
	res.Nodes = s.Nodes()
	res.Elapsed = s.tm.Elapsed()
	e.lastDepth = res.Depth
	e.nodes = res.Nodes

	if ev := log.Info(); ev.Enabled() {
		ev.Str("move", res.Move.String()).
			Str("score", ScoreToString(res.Score)).
			Int("depth", res.Depth).
			Uint64("nodes", res.Nodes).
			Dur("elapsed", res.Elapsed).
			Strs("pv", board.MovesToSAN(pos, res.PV)).
			Msg("search-done")
	}
	return res
}

func isMate(score int) bool {
	return score > MateBound || score < -MateBound
}

// LastDepth returns the deepest completed iteration of the last search.
func (e *Engine) LastDepth() int {
	return e.lastDepth
}

// Nodes returns the nodes visited by the last search.
func (e *Engine) Nodes() uint64 {
	return e.nodes
}

// TT exposes the transposition table for persistence.
func (e *Engine) TT() *TranspositionTable {
	return e.tt
}

// Params returns the parameters the engine was built with.
func (e *Engine) Params() Params {
	return e.params
}

// SetGameHistory sets the hashes of the positions played before the next
// search root, oldest first, so repetitions of them are scored as draws.
func (e *Engine) SetGameHistory(hashes []uint64) {
	e.game = append(e.game[:0], hashes...)
}

// Stop asks a running search to return early.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.order.Clear()
	e.searcher.eval.pawns.Clear()
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.searcher.eval.Evaluate(pos)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateBound {
		return "mate " + strconv.Itoa((MateScore-score+1)/2)
	}
	if score < -MateBound {
		return "mate -" + strconv.Itoa((MateScore+score+1)/2)
	}
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return sign + strconv.Itoa(score/100) + "." + strconv.Itoa(score%100/10) + strconv.Itoa(score%10)
}
