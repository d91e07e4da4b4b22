package board

import (
	"fmt"
	"strings"
)

// CastlingRights holds the four castling flags.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// CanCastle reports whether side c still holds the given right.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	return cr&castleRight(c, kingSide) != 0
}

func castleRight(c Color, kingSide bool) CastlingRights {
	r := WhiteKingSideCastle
	if !kingSide {
		r = WhiteQueenSideCastle
	}
	if c == Black {
		r <<= 2
	}
	return r
}

// castleMask[sq] is ANDed into the rights whenever a move touches sq, so that
// moving a king or rook, or capturing a rook on its home square, drops the
// matching rights for good.
var castleMask = func() [64]CastlingRights {
	var m [64]CastlingRights
	for i := range m {
		m[i] = AllCastling
	}
	m[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	m[H1] &^= WhiteKingSideCastle
	m[A1] &^= WhiteQueenSideCastle
	m[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	m[H8] &^= BlackKingSideCastle
	m[A8] &^= BlackQueenSideCastle
	return m
}()

// MaxHistory bounds the undo stack: search depth, quiescence plies and
// extensions must all fit. Exceeding it is a programming error and panics.
const MaxHistory = 128

type undoInfo struct {
	move           Move
	captured       Piece
	castlingRights CastlingRights
	enPassant      Square
	halfMoveClock  int
	hash           uint64
	pawnKey        uint64
}

// Position is a complete, mutable board state.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard
	Squares     [64]Piece // owner of each square, NoPiece when empty

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // capture target after a double push, NoSquare otherwise
	HalfMoveClock  int
	FullMoveNumber int

	// Ply counts moves made since the last Commit, i.e. distance from the
	// search root.
	Ply int

	Hash    uint64
	PawnKey uint64

	KingSquare [2]Square

	tab     *Tables
	history [MaxHistory]undoInfo
	histLen int
}

// NewPosition returns the standard starting position using DefaultTables.
func NewPosition() *Position {
	p := NewEmptyPosition(DefaultTables())
	p.Reset()
	return p
}

// NewEmptyPosition returns an empty board bound to t.
func NewEmptyPosition(t *Tables) *Position {
	p := &Position{tab: t}
	p.Clear()
	return p
}

// Reset sets up the standard initial position.
func (p *Position) Reset() {
	if err := p.LoadFEN(StartFEN); err != nil {
		panic(err)
	}
}

// Copy returns an independent copy sharing the same Tables.
func (p *Position) Copy() *Position {
	np := *p
	return &np
}

// Clear empties the board and drops the undo history.
func (p *Position) Clear() {
	tab := p.tab
	if tab == nil {
		tab = DefaultTables()
	}
	*p = Position{
		tab:            tab,
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		KingSquare:     [2]Square{NoSquare, NoSquare},
	}
	for i := range p.Squares {
		p.Squares[i] = NoPiece
	}
}

// Commit makes every move played so far permanent: the undo history is
// dropped and Ply restarts at zero. Call it between game moves so the bounded
// history only ever has to hold one search.
func (p *Position) Commit() {
	p.histLen = 0
	p.Ply = 0
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	return p.Squares[sq]
}

// IsEmpty reports whether sq is unoccupied.
func (p *Position) IsEmpty(sq Square) bool {
	return p.Squares[sq] == NoPiece
}

// putPiece, removePiece and movePiece keep bitboards, the square index, king
// squares and both hash keys in step.
func (p *Position) putPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.Squares[sq] = pc
	key := p.tab.zobrist.piece[c][pt][sq]
	p.Hash ^= key
	switch pt {
	case Pawn:
		p.PawnKey ^= key
	case King:
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(sq Square) Piece {
	pc := p.Squares[sq]
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.Squares[sq] = NoPiece
	key := p.tab.zobrist.piece[c][pt][sq]
	p.Hash ^= key
	if pt == Pawn {
		p.PawnKey ^= key
	}
	return pc
}

func (p *Position) movePiece(from, to Square) {
	p.putPiece(p.removePiece(from), to)
}

func (p *Position) setCastlingRights(cr CastlingRights) {
	z := &p.tab.zobrist
	p.Hash ^= z.castlingKey(p.CastlingRights) ^ z.castlingKey(cr)
	p.CastlingRights = cr
}

func (p *Position) setEnPassant(sq Square) {
	z := &p.tab.zobrist
	if p.EnPassant != NoSquare {
		p.Hash ^= z.enPassant[p.EnPassant.File()]
	}
	if sq != NoSquare {
		p.Hash ^= z.enPassant[sq.File()]
	}
	p.EnPassant = sq
}

func (p *Position) push(u undoInfo) {
	if p.histLen >= MaxHistory {
		panic(fmt.Sprintf("board: undo history overflow (%d plies)", MaxHistory))
	}
	p.history[p.histLen] = u
	p.histLen++
}

// castlingRookSquares returns the rook's origin and destination for a
// castling king move landing on kingTo.
func castlingRookSquares(kingTo Square) (Square, Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	default:
		return A8, D8
	}
}

// MakeMove applies a pseudo-legal move. It returns false, leaving the
// position untouched, when the source square holds no piece of the side to
// move. Legality is not checked; see MakeLegalMove.
func (p *Position) MakeMove(m Move) bool {
	from, to := m.From(), m.To()
	us := p.SideToMove
	pc := p.Squares[from]
	if pc == NoPiece || pc.Color() != us {
		return false
	}

	p.push(undoInfo{
		move:           m,
		captured:       NoPiece,
		castlingRights: p.CastlingRights,
		enPassant:      p.EnPassant,
		halfMoveClock:  p.HalfMoveClock,
		hash:           p.Hash,
		pawnKey:        p.PawnKey,
	})
	u := &p.history[p.histLen-1]

	p.HalfMoveClock++
	p.setEnPassant(NoSquare)

	switch m.Flag() {
	case FlagCastling:
		rookFrom, rookTo := castlingRookSquares(to)
		p.movePiece(from, to)
		p.movePiece(rookFrom, rookTo)
	case FlagEnPassant:
		u.captured = p.removePiece(to.Forward(us.Other()))
		p.movePiece(from, to)
		p.HalfMoveClock = 0
	default:
		if p.Squares[to] != NoPiece {
			u.captured = p.removePiece(to)
			p.HalfMoveClock = 0
		}
		if m.IsPromotion() {
			p.removePiece(from)
			p.putPiece(NewPiece(m.Promotion(), us), to)
		} else {
			p.movePiece(from, to)
		}
		if pc.Type() == Pawn {
			p.HalfMoveClock = 0
			if int(to)-int(from) == 16 || int(from)-int(to) == 16 {
				p.setEnPassant(from.Forward(us))
			}
		}
	}

	if cr := p.CastlingRights & castleMask[from] & castleMask[to]; cr != p.CastlingRights {
		p.setCastlingRights(cr)
	}

	p.SideToMove = us.Other()
	p.Hash ^= p.tab.zobrist.side
	if us == Black {
		p.FullMoveNumber++
	}
	p.Ply++
	return true
}

// UnmakeMove reverts m, which must be the last move made.
func (p *Position) UnmakeMove(m Move) {
	if p.histLen == 0 || p.history[p.histLen-1].move != m {
		panic(fmt.Sprintf("board: unmake %v does not match the last move made", m))
	}
	p.histLen--
	u := &p.history[p.histLen]

	us := p.SideToMove.Other()
	from, to := m.From(), m.To()

	switch m.Flag() {
	case FlagCastling:
		rookFrom, rookTo := castlingRookSquares(to)
		p.movePiece(rookTo, rookFrom)
		p.movePiece(to, from)
	case FlagEnPassant:
		p.movePiece(to, from)
		p.putPiece(u.captured, to.Forward(us.Other()))
	case FlagPromotion:
		p.removePiece(to)
		p.putPiece(NewPiece(Pawn, us), from)
		if u.captured != NoPiece {
			p.putPiece(u.captured, to)
		}
	default:
		p.movePiece(to, from)
		if u.captured != NoPiece {
			p.putPiece(u.captured, to)
		}
	}

	p.SideToMove = us
	p.CastlingRights = u.castlingRights
	p.EnPassant = u.enPassant
	p.HalfMoveClock = u.halfMoveClock
	p.Hash = u.hash
	p.PawnKey = u.pawnKey
	if us == Black {
		p.FullMoveNumber--
	}
	p.Ply--
}

// MakeNullMove passes the turn. It shares the undo stack with MakeMove and
// must be reverted with UnmakeNullMove.
func (p *Position) MakeNullMove() {
	p.push(undoInfo{
		move:           NoMove,
		captured:       NoPiece,
		castlingRights: p.CastlingRights,
		enPassant:      p.EnPassant,
		halfMoveClock:  p.HalfMoveClock,
		hash:           p.Hash,
		pawnKey:        p.PawnKey,
	})
	p.Hash = p.tab.KeyAfterNull(p)
	p.EnPassant = NoSquare
	p.HalfMoveClock++
	p.SideToMove = p.SideToMove.Other()
	p.Ply++
}

// UnmakeNullMove reverts MakeNullMove.
func (p *Position) UnmakeNullMove() {
	if p.histLen == 0 || p.history[p.histLen-1].move != NoMove {
		panic("board: unmake null move does not match the last move made")
	}
	p.histLen--
	u := &p.history[p.histLen]
	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = u.enPassant
	p.HalfMoveClock = u.halfMoveClock
	p.Hash = u.hash
	p.Ply--
}

// MakeLegalMove applies m only if it does not leave the mover's king
// attacked. On false the position is unchanged. This is the one
// apply-check-revert primitive; IsLegal and Try are built on it.
func (p *Position) MakeLegalMove(m Move) bool {
	if !p.MakeMove(m) {
		return false
	}
	us := p.SideToMove.Other()
	if p.IsAttacked(p.KingSquare[us], p.SideToMove) {
		p.UnmakeMove(m)
		return false
	}
	return true
}

// Try applies m if legal, runs fn, and restores the position before
// returning, whichever way fn exits. It reports whether m was applied.
func (p *Position) Try(m Move, fn func()) bool {
	if !p.MakeLegalMove(m) {
		return false
	}
	defer p.UnmakeMove(m)
	fn()
	return true
}

// TryNull passes the turn, runs fn, and restores the position.
func (p *Position) TryNull(fn func()) {
	p.MakeNullMove()
	defer p.UnmakeNullMove()
	fn()
}

// HasNonPawnMaterial reports whether c has a knight, bishop, rook or queen.
func (p *Position) HasNonPawnMaterial(c Color) bool {
	pc := &p.Pieces[c]
	return pc[Knight]|pc[Bishop]|pc[Rook]|pc[Queen] != 0
}

// IsInsufficientMaterial reports positions where neither side can mate:
// bare kings, or a single minor piece against a bare king.
func (p *Position) IsInsufficientMaterial() bool {
	for c := White; c <= Black; c++ {
		if p.Pieces[c][Pawn]|p.Pieces[c][Rook]|p.Pieces[c][Queen] != 0 {
			return false
		}
	}
	minors := (p.Pieces[White][Knight] | p.Pieces[White][Bishop] |
		p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]).PopCount()
	return minors <= 1
}

// String draws the board with rank 8 on top, followed by the FEN.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteString(p.Squares[NewSquare(file, rank)].String())
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "FEN: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Key: %016x\n", p.Hash)
	return sb.String()
}
