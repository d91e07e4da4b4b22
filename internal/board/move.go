package board

import (
	"errors"
	"fmt"
)

// Move encodes a move in 16 bits:
// bits 0-5:   from square
// bits 6-11:  to square
// bits 12-13: promotion kind (0=knight, 1=bishop, 2=rook, 3=queen)
// bits 14-15: flag (normal, promotion, en passant, castling)
type Move uint16

// Move flags
const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// NoMove is the zero move. a1a1 can never be generated, so it doubles as
// "no move" and as the null-move marker on the undo stack.
const NoMove Move = 0

// Errors returned by ParseMove. Callers can tell them apart with errors.Is.
var (
	ErrMoveSyntax  = errors.New("malformed move")
	ErrNoPiece     = errors.New("no piece of the side to move on source square")
	ErrIllegalMove = errors.New("no matching legal move")
	ErrPromotion   = errors.New("promotion piece does not fit the move")
)

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion to promo (knight through queen).
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(FlagPromotion)
}

// NewEnPassant creates an en passant capture.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling creates a castling move, encoded as the king's two-square step.
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagCastling)
}

func (m Move) From() Square {
	return Square(m & 0x3F)
}

func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

func (m Move) Flag() uint16 {
	return uint16(m) & 0xC000
}

// Promotion returns the promotion kind; only meaningful if IsPromotion.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

func (m Move) IsPromotion() bool {
	return m.Flag() == FlagPromotion
}

func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsCapture reports whether m takes a piece in pos.
func (m Move) IsCapture(pos *Position) bool {
	return m.IsEnPassant() || (!m.IsCastling() && pos.Squares[m.To()] != NoPiece)
}

// IsQuiet reports whether m is neither a capture nor a promotion.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// String returns coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove resolves coordinate notation against the legal moves of pos.
// A promotion letter is required on a promoting pawn move and rejected on any
// other; both mistakes return ErrPromotion.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrMoveSyntax, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrMoveSyntax, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrMoveSyntax, err)
	}
	promo := NoPieceType
	if len(s) == 5 {
		switch s[4] {
		case 'n', 'N':
			promo = Knight
		case 'b', 'B':
			promo = Bishop
		case 'r', 'R':
			promo = Rook
		case 'q', 'Q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("%w: bad promotion letter in %q", ErrMoveSyntax, s)
		}
	}

	if pc := pos.PieceAt(from); pc == NoPiece || pc.Color() != pos.SideToMove {
		return NoMove, fmt.Errorf("%w: %s", ErrNoPiece, from)
	}

	var ml MoveList
	pos.GenerateMoves(&ml)
	badPromo := false
	for _, m := range ml.Slice() {
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() != (promo != NoPieceType) {
			badPromo = true
			continue
		}
		if promo != NoPieceType && m.Promotion() != promo {
			continue
		}
		if pos.IsLegal(m) {
			return m, nil
		}
	}
	if badPromo {
		return NoMove, fmt.Errorf("%w: %s", ErrPromotion, s)
	}
	return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}

// MaxMoves is the capacity of a MoveList. No legal chess position has more
// moves; Add panics rather than drop one.
const MaxMoves = 256

// MoveList is a fixed-size move buffer that avoids allocation.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

// Add appends m.
func (ml *MoveList) Add(m Move) {
	if ml.count >= MaxMoves {
		panic("board: move list overflow")
	}
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int {
	return ml.count
}

func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
