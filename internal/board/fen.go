package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrFEN is returned when a FEN string cannot describe a playable position.
var ErrFEN = errors.New("invalid FEN")

// ParseFEN builds a position bound to DefaultTables.
func ParseFEN(fen string) (*Position, error) {
	p := NewEmptyPosition(DefaultTables())
	if err := p.LoadFEN(fen); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFEN replaces the position with the one described by fen.
//
// Parsing is lenient: unknown piece letters and squares past the h-file are
// skipped, and missing trailing fields default to white to move, no
// castling, no en passant and zero clocks. Castling rights whose king or
// rook is not on its home square are dropped, as is an en passant square
// no double push could have produced. An error is returned only if
// the result would be unplayable (no placement, or not exactly one king
// per side); p is left unchanged in that case.
func (p *Position) LoadFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty string", ErrFEN)
	}

	np := NewEmptyPosition(p.tab)
	np.parsePlacement(fields[0])
	if np.Pieces[White][King].PopCount() != 1 || np.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("%w: need exactly one king per side in %q", ErrFEN, fields[0])
	}

	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	if field(1) == "b" {
		np.SideToMove = Black
	}

	var cr CastlingRights
	for _, ch := range field(2) {
		if i := strings.IndexRune("KQkq", ch); i >= 0 {
			cr |= 1 << i
		}
	}
	np.CastlingRights = cr & np.castlingPossible()

	if sq, err := ParseSquare(field(3)); err == nil && np.enPassantPlausible(sq) {
		np.EnPassant = sq
	}
	if n, err := strconv.Atoi(field(4)); err == nil && n >= 0 {
		np.HalfMoveClock = n
	}
	if n, err := strconv.Atoi(field(5)); err == nil && n > 0 {
		np.FullMoveNumber = n
	}

	np.Hash = np.tab.Hash(np)
	np.PawnKey = np.tab.PawnHash(np)
	*p = *np
	return nil
}

func (p *Position) parsePlacement(placement string) {
	rank, file := 7, 0
	for i := 0; i < len(placement) && rank >= 0; i++ {
		ch := placement[i]
		switch {
		case ch == '/':
			rank--
			file = 0
		case ch >= '1' && ch <= '8':
			file += int(ch - '0')
		default:
			pc := PieceFromChar(ch)
			if pc == NoPiece || file > 7 {
				continue
			}
			if pc.Type() != Pawn || (rank != 0 && rank != 7) {
				p.putPiece(pc, NewSquare(file, rank))
			}
			file++
		}
	}
}

// enPassantPlausible reports whether sq could be the en passant target after
// the opponent's double push: empty, with the pushed pawn behind it and its
// start square vacated.
func (p *Position) enPassantPlausible(sq Square) bool {
	us, them := p.SideToMove, p.SideToMove.Other()
	if sq.RelativeRank(us) != 5 {
		return false
	}
	return p.Squares[sq] == NoPiece &&
		p.Squares[sq.Forward(them)] == NewPiece(Pawn, them) &&
		p.Squares[sq.Forward(us)] == NoPiece
}

// castlingPossible returns the rights consistent with the kings and rooks
// standing on their home squares.
func (p *Position) castlingPossible() CastlingRights {
	var cr CastlingRights
	if p.Squares[E1] == WhiteKing {
		if p.Squares[H1] == WhiteRook {
			cr |= WhiteKingSideCastle
		}
		if p.Squares[A1] == WhiteRook {
			cr |= WhiteQueenSideCastle
		}
	}
	if p.Squares[E8] == BlackKing {
		if p.Squares[H8] == BlackRook {
			cr |= BlackKingSideCastle
		}
		if p.Squares[A8] == BlackRook {
			cr |= BlackQueenSideCastle
		}
	}
	return cr
}

// ToFEN serializes the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.Squares[NewSquare(file, rank)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}
	fmt.Fprintf(&sb, " %s %s %s %d %d", side, p.CastlingRights, p.EnPassant, p.HalfMoveClock, p.FullMoveNumber)
	return sb.String()
}
