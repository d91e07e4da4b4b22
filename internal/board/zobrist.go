package board

// zobristSeed is fixed so keys, and therefore persisted table entries, are
// stable across runs.
const zobristSeed = 0x98F107A2BEEF1234

type zobristKeys struct {
	piece     [2][6][64]uint64
	enPassant [8]uint64
	castling  [4]uint64 // one per right: K, Q, k, q
	side      uint64    // present when black is to move
}

// prng is xorshift64*.
type prng struct {
	state uint64
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func (z *zobristKeys) init(seed uint64) {
	rng := &prng{state: seed}
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				z.piece[c][pt][sq] = rng.next()
			}
		}
	}
	for f := range z.enPassant {
		z.enPassant[f] = rng.next()
	}
	for i := range z.castling {
		z.castling[i] = rng.next()
	}
	z.side = rng.next()
}

// castlingKey XORs together the key of every right present in cr.
func (z *zobristKeys) castlingKey(cr CastlingRights) uint64 {
	var key uint64
	for i := 0; i < 4; i++ {
		if cr&(1<<i) != 0 {
			key ^= z.castling[i]
		}
	}
	return key
}

// PieceKey returns the key of piece kind pt of color c on sq.
func (t *Tables) PieceKey(c Color, pt PieceType, sq Square) uint64 {
	return t.zobrist.piece[c][pt][sq]
}

// Hash computes the position key from scratch.
func (t *Tables) Hash(p *Position) uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := p.Pieces[c][pt]; bb != 0; {
				h ^= t.zobrist.piece[c][pt][bb.PopLSB()]
			}
		}
	}
	if p.SideToMove == Black {
		h ^= t.zobrist.side
	}
	if p.EnPassant != NoSquare {
		h ^= t.zobrist.enPassant[p.EnPassant.File()]
	}
	return h ^ t.zobrist.castlingKey(p.CastlingRights)
}

// PawnHash computes the pawn-only key from scratch.
func (t *Tables) PawnHash(p *Position) uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for bb := p.Pieces[c][Pawn]; bb != 0; {
			h ^= t.zobrist.piece[c][Pawn][bb.PopLSB()]
		}
	}
	return h
}

// KeyAfterNull returns p's key as it would be after passing the turn: side
// toggled and any en-passant file removed.
func (t *Tables) KeyAfterNull(p *Position) uint64 {
	h := p.Hash ^ t.zobrist.side
	if p.EnPassant != NoSquare {
		h ^= t.zobrist.enPassant[p.EnPassant.File()]
	}
	return h
}
