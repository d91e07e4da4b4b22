package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Score bounds. Mate scores are MateScore minus the distance to mate in
// plies. Quiescence can find a mate as deep as board.MaxHistory plies, so
// any |score| above MateBound is a forced mate.
const (
	Infinity  = 30000
	MateScore = 29000
	MateBound = MateScore - board.MaxHistory
	MaxPly    = 64
	DrawScore = 0
)

// Params gathers every tunable number used by the search and the evaluator.
// It is plain data so it can be persisted and reloaded; DefaultParams
// returns the tuned baseline.
type Params struct {
	Search SearchParams `json:"search"`
	Eval   EvalParams   `json:"eval"`
}

// SearchParams controls pruning, reductions and ordering.
type SearchParams struct {
	// QuiescenceMaxPly caps quiescence recursion below the horizon.
	QuiescenceMaxPly int `json:"quiescence_max_ply"`

	// Null move: tried from NullMinDepth with reduction NullReduction+depth/NullDepthDivisor.
	NullMinDepth     int `json:"null_min_depth"`
	NullReduction    int `json:"null_reduction"`
	NullDepthDivisor int `json:"null_depth_divisor"`

	// Late move reductions apply to quiet moves from LMRMinMoves at depth
	// LMRMinDepth or more.
	LMRMinDepth int     `json:"lmr_min_depth"`
	LMRMinMoves int     `json:"lmr_min_moves"`
	LMRBase     float64 `json:"lmr_base"`
	LMRDivisor  float64 `json:"lmr_divisor"`

	// Late move pruning: at depth <= len(LMPMoveCount)-1, quiet moves past
	// LMPMoveCount[depth] are skipped.
	LMPMoveCount []int `json:"lmp_move_count"`

	// FutilityMargin is indexed by remaining depth; 0 disables.
	FutilityMargin []int `json:"futility_margin"`

	// Razoring drops to quiescence at depth <= RazorDepth when the static
	// eval is RazorMargin+RazorDepthMargin*depth below alpha.
	RazorDepth       int `json:"razor_depth"`
	RazorMargin      int `json:"razor_margin"`
	RazorDepthMargin int `json:"razor_depth_margin"`

	// DeltaMargin prunes quiescence captures that cannot lift alpha.
	DeltaMargin int `json:"delta_margin"`

	// Aspiration windows start at AspirationMinDepth with half-width
	// AspirationDelta, which is multiplied by AspirationGrowth per failure.
	AspirationMinDepth int `json:"aspiration_min_depth"`
	AspirationDelta    int `json:"aspiration_delta"`
	AspirationGrowth   int `json:"aspiration_growth"`

	// HistoryMax triggers halving of the whole history table.
	HistoryMax int `json:"history_max"`

	// Contempt is the score of a draw for the side to move at the root.
	Contempt int `json:"contempt"`

	// DrawHalfMoves is the no-progress limit (100 plies = 50 moves).
	DrawHalfMoves int `json:"draw_half_moves"`

	// CheckInterval is how many nodes pass between clock checks; must be a
	// power of two.
	CheckInterval uint64 `json:"check_interval"`

	// MoveTime is used when Limits leaves the move time unset.
	MoveTime time.Duration `json:"move_time"`
}

// EvalParams holds evaluation weights in centipawns.
type EvalParams struct {
	Tempo int `json:"tempo"`

	DoubledPawn  int    `json:"doubled_pawn"`
	IsolatedPawn int    `json:"isolated_pawn"`
	PassedPawnMg [8]int `json:"passed_pawn_mg"` // by relative rank
	PassedPawnEg [8]int `json:"passed_pawn_eg"`

	ShieldRank1      int `json:"shield_rank1"`
	ShieldRank2      int `json:"shield_rank2"`
	KingOpenFile     int `json:"king_open_file"`
	BackRankWeakness int `json:"back_rank_weakness"`

	BishopPair       int `json:"bishop_pair"`
	RookOpenFile     int `json:"rook_open_file"`
	RookSemiOpenFile int `json:"rook_semi_open_file"`
	RookSeventh      int `json:"rook_seventh"`

	// KingAttackWeight is indexed by attacking piece kind.
	KingAttackWeight [6]int `json:"king_attack_weight"`

	// MobilityMg/Eg are per attacked square, indexed by piece kind.
	MobilityMg [6]int `json:"mobility_mg"`
	MobilityEg [6]int `json:"mobility_eg"`

	// HangingPercent of a piece's value is lost when it is attacked and
	// undefended.
	HangingPercent int `json:"hanging_percent"`

	PawnHashMB int `json:"pawn_hash_mb"`
}

// DefaultParams returns the baseline parameter set.
func DefaultParams() Params {
	return Params{
		Search: SearchParams{
			QuiescenceMaxPly:   32,
			NullMinDepth:       3,
			NullReduction:      2,
			NullDepthDivisor:   4,
			LMRMinDepth:        3,
			LMRMinMoves:        4,
			LMRBase:            0.75,
			LMRDivisor:         2.25,
			LMPMoveCount:       []int{0, 5, 8, 13},
			FutilityMargin:     []int{0, 200},
			RazorDepth:         2,
			RazorMargin:        300,
			RazorDepthMargin:   100,
			DeltaMargin:        200,
			AspirationMinDepth: 3,
			AspirationDelta:    50,
			AspirationGrowth:   2,
			HistoryMax:         2_000_000,
			Contempt:           0,
			DrawHalfMoves:      100,
			CheckInterval:      1024,
			MoveTime:           10 * time.Second,
		},
		Eval: EvalParams{
			Tempo:            10,
			DoubledPawn:      24,
			IsolatedPawn:     12,
			PassedPawnMg:     [8]int{0, 5, 10, 18, 30, 50, 80, 0},
			PassedPawnEg:     [8]int{0, 10, 20, 35, 60, 100, 150, 0},
			ShieldRank1:      15,
			ShieldRank2:      8,
			KingOpenFile:     25,
			BackRankWeakness: 10,
			BishopPair:       30,
			RookOpenFile:     20,
			RookSemiOpenFile: 12,
			RookSeventh:      10,
			KingAttackWeight: [6]int{2, 5, 5, 8, 12, 0},
			MobilityMg:       [6]int{0, 4, 4, 2, 1, 0},
			MobilityEg:       [6]int{0, 4, 4, 4, 2, 0},
			HangingPercent:   15,
			PawnHashMB:       1,
		},
	}
}
