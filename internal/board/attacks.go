package board

import "sync"

// Ray directions. The first four increase the square index, the last four
// decrease it; rayAttacks relies on that split to pick the nearest blocker.
const (
	dirNorth = iota
	dirNorthEast
	dirEast
	dirNorthWest
	dirSouth
	dirSouthWest
	dirWest
	dirSouthEast
	numDirs
)

var dirDelta = [numDirs][2]int{
	dirNorth:     {0, 1},
	dirNorthEast: {1, 1},
	dirEast:      {1, 0},
	dirNorthWest: {-1, 1},
	dirSouth:     {0, -1},
	dirSouthWest: {-1, -1},
	dirWest:      {-1, 0},
	dirSouthEast: {1, -1},
}

// Tables is the immutable lookup context shared by positions, the move
// generator and the evaluator: leaper attack masks, sliding rays and the
// Zobrist keys. Build it once with NewTables and pass it around; it is safe
// for concurrent use because nothing writes to it after construction.
type Tables struct {
	knight        [64]Bitboard
	king          [64]Bitboard
	pawnAttacks   [2][64]Bitboard
	pawnPushes    [2][64]Bitboard
	pawnAttackers [2][64]Bitboard // squares a pawn of [color] would attack [sq] from
	rays          [numDirs][64]Bitboard

	zobrist zobristKeys
}

var defaultTables = sync.OnceValue(NewTables)

// DefaultTables returns a process-wide Tables built on first use.
func DefaultTables() *Tables {
	return defaultTables()
}

// NewTables computes all lookup tables.
func NewTables() *Tables {
	t := &Tables{}
	for sq := A1; sq <= H8; sq++ {
		f, r := sq.File(), sq.Rank()

		t.knight[sq] = leaper(f, r, [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}})
		t.king[sq] = leaper(f, r, [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}})

		t.pawnAttacks[White][sq] = leaper(f, r, [][2]int{{-1, 1}, {1, 1}})
		t.pawnAttacks[Black][sq] = leaper(f, r, [][2]int{{-1, -1}, {1, -1}})
		t.pawnPushes[White][sq] = leaper(f, r, [][2]int{{0, 1}})
		t.pawnPushes[Black][sq] = leaper(f, r, [][2]int{{0, -1}})

		// A white pawn attacks sq from one rank below, a black pawn from one above.
		t.pawnAttackers[White][sq] = leaper(f, r, [][2]int{{-1, -1}, {1, -1}})
		t.pawnAttackers[Black][sq] = leaper(f, r, [][2]int{{-1, 1}, {1, 1}})

		for d := 0; d < numDirs; d++ {
			var ray Bitboard
			for nf, nr := f+dirDelta[d][0], r+dirDelta[d][1]; onBoard(nf, nr); nf, nr = nf+dirDelta[d][0], nr+dirDelta[d][1] {
				ray |= SquareBB(NewSquare(nf, nr))
			}
			t.rays[d][sq] = ray
		}
	}
	t.zobrist.init(zobristSeed)
	return t
}

func onBoard(f, r int) bool {
	return f >= 0 && f < 8 && r >= 0 && r < 8
}

func leaper(f, r int, deltas [][2]int) Bitboard {
	var bb Bitboard
	for _, d := range deltas {
		if nf, nr := f+d[0], r+d[1]; onBoard(nf, nr) {
			bb |= SquareBB(NewSquare(nf, nr))
		}
	}
	return bb
}

// KnightAttacks returns the squares a knight on sq attacks.
func (t *Tables) KnightAttacks(sq Square) Bitboard {
	return t.knight[sq]
}

// KingAttacks returns the squares a king on sq attacks.
func (t *Tables) KingAttacks(sq Square) Bitboard {
	return t.king[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func (t *Tables) PawnAttacks(sq Square, c Color) Bitboard {
	return t.pawnAttacks[c][sq]
}

// PawnPushes returns the single-push target of a pawn of color c on sq.
func (t *Tables) PawnPushes(sq Square, c Color) Bitboard {
	return t.pawnPushes[c][sq]
}

// PawnAttackersTo returns the squares from which a pawn of color c attacks sq.
func (t *Tables) PawnAttackersTo(sq Square, c Color) Bitboard {
	return t.pawnAttackers[c][sq]
}

// rayAttacks walks direction d from sq and stops on the first occupied
// square, which is included.
func (t *Tables) rayAttacks(d int, sq Square, occ Bitboard) Bitboard {
	ray := t.rays[d][sq]
	blockers := ray & occ
	if blockers == 0 {
		return ray
	}
	var first Square
	if d < dirSouth {
		first = blockers.LSB()
	} else {
		first = blockers.MSB()
	}
	return ray &^ t.rays[d][first]
}

// BishopAttacks returns diagonal attacks from sq given the occupancy.
func (t *Tables) BishopAttacks(sq Square, occ Bitboard) Bitboard {
	return t.rayAttacks(dirNorthEast, sq, occ) | t.rayAttacks(dirNorthWest, sq, occ) |
		t.rayAttacks(dirSouthEast, sq, occ) | t.rayAttacks(dirSouthWest, sq, occ)
}

// RookAttacks returns orthogonal attacks from sq given the occupancy.
func (t *Tables) RookAttacks(sq Square, occ Bitboard) Bitboard {
	return t.rayAttacks(dirNorth, sq, occ) | t.rayAttacks(dirSouth, sq, occ) |
		t.rayAttacks(dirEast, sq, occ) | t.rayAttacks(dirWest, sq, occ)
}

// QueenAttacks is the union of bishop and rook attacks.
func (t *Tables) QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return t.BishopAttacks(sq, occ) | t.RookAttacks(sq, occ)
}

// Attacks returns the attack set of a piece of kind pt and color c on sq.
func (t *Tables) Attacks(pt PieceType, c Color, sq Square, occ Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return t.pawnAttacks[c][sq]
	case Knight:
		return t.knight[sq]
	case Bishop:
		return t.BishopAttacks(sq, occ)
	case Rook:
		return t.RookAttacks(sq, occ)
	case Queen:
		return t.QueenAttacks(sq, occ)
	case King:
		return t.king[sq]
	}
	return 0
}

// Tables returns the lookup context the position was built with.
func (p *Position) Tables() *Tables {
	return p.tab
}

// AttackersTo returns pieces of both colors attacking sq under occupancy occ.
func (p *Position) AttackersTo(sq Square, occ Bitboard) Bitboard {
	return p.AttackersByColor(sq, White, occ) | p.AttackersByColor(sq, Black, occ)
}

// AttackersByColor returns pieces of color c attacking sq under occupancy occ.
func (p *Position) AttackersByColor(sq Square, c Color, occ Bitboard) Bitboard {
	t := p.tab
	pc := &p.Pieces[c]
	return (t.pawnAttackers[c][sq] & pc[Pawn]) |
		(t.knight[sq] & pc[Knight]) |
		(t.king[sq] & pc[King]) |
		(t.BishopAttacks(sq, occ) & (pc[Bishop] | pc[Queen])) |
		(t.RookAttacks(sq, occ) & (pc[Rook] | pc[Queen]))
}

// IsAttacked reports whether any piece of color by attacks sq. Cheap leaper
// tests run before the sliding ones.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	t := p.tab
	pc := &p.Pieces[by]
	if t.pawnAttackers[by][sq]&pc[Pawn] != 0 {
		return true
	}
	if t.knight[sq]&pc[Knight] != 0 {
		return true
	}
	if t.king[sq]&pc[King] != 0 {
		return true
	}
	if rq := pc[Rook] | pc[Queen]; rq != 0 && t.RookAttacks(sq, p.AllOccupied)&rq != 0 {
		return true
	}
	if bq := pc[Bishop] | pc[Queen]; bq != 0 && t.BishopAttacks(sq, p.AllOccupied)&bq != 0 {
		return true
	}
	return false
}

// InCheck reports whether the side to move's king is attacked.
func (p *Position) InCheck() bool {
	return p.IsAttacked(p.KingSquare[p.SideToMove], p.SideToMove.Other())
}
