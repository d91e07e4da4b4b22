package board

import "strings"

// ToSAN renders m in standard algebraic notation for display. m must be
// legal in pos; pos is restored before returning.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}
	from, to := m.From(), m.To()
	pc := pos.PieceAt(from)
	if pc == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.IsCastling() && to > from:
		sb.WriteString("O-O")
	case m.IsCastling():
		sb.WriteString("O-O-O")
	default:
		pt := pc.Type()
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(disambiguation(pos, m, pt))
		}
		if m.IsCapture(pos) {
			if pt == Pawn {
				sb.WriteByte(byte('a' + from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	pos.Try(m, func() {
		if pos.InCheck() {
			if pos.HasLegalMoves() {
				sb.WriteByte('+')
			} else {
				sb.WriteByte('#')
			}
		}
	})
	return sb.String()
}

// disambiguation returns the file, rank or square needed to tell m apart
// from other legal moves of the same piece kind to the same square.
func disambiguation(pos *Position, m Move, pt PieceType) string {
	from, to := m.From(), m.To()
	var ml MoveList
	pos.GenerateLegalMoves(&ml)

	ambiguous, sameFile, sameRank := false, false, false
	for _, other := range ml.Slice() {
		of := other.From()
		if other.To() != to || of == from || pos.PieceAt(of).Type() != pt {
			continue
		}
		ambiguous = true
		sameFile = sameFile || of.File() == from.File()
		sameRank = sameRank || of.Rank() == from.Rank()
	}
	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	default:
		return from.String()
	}
}

// MovesToSAN renders a line of moves played in sequence from pos. Rendering
// stops at the first move that is not legal in its position.
func MovesToSAN(pos *Position, moves []Move) []string {
	p := pos.Copy()
	p.Commit()
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		if !p.IsLegal(m) {
			break
		}
		out = append(out, m.ToSAN(p))
		p.MakeMove(m)
	}
	return out
}
