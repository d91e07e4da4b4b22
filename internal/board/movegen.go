package board

type genMode uint8

const (
	genAll      genMode = iota
	genCaptures         // captures and en passant
	genNoisy            // captures, en passant and every promotion
)

// GenerateMoves appends every pseudo-legal move for the side to move.
func (p *Position) GenerateMoves(ml *MoveList) {
	p.generate(ml, genAll)
}

// GenerateCaptures appends pseudo-legal moves that take an opponent piece,
// en passant included.
func (p *Position) GenerateCaptures(ml *MoveList) {
	p.generate(ml, genCaptures)
}

// GenerateNoisy appends captures plus quiet promotions, the move set the
// quiescence search looks at.
func (p *Position) GenerateNoisy(ml *MoveList) {
	p.generate(ml, genNoisy)
}

// GenerateLegalMoves appends only the moves that do not leave the mover in
// check.
func (p *Position) GenerateLegalMoves(ml *MoveList) {
	var pseudo MoveList
	p.generate(&pseudo, genAll)
	for _, m := range pseudo.Slice() {
		if p.IsLegal(m) {
			ml.Add(m)
		}
	}
}

func (p *Position) generate(ml *MoveList, mode genMode) {
	t := p.tab
	us := p.SideToMove
	occ := p.AllOccupied
	targets := p.Occupied[us.Other()]
	if mode == genAll {
		targets = ^p.Occupied[us]
	}

	p.generatePawnMoves(ml, mode)

	for pt := Knight; pt <= King; pt++ {
		for pieces := p.Pieces[us][pt]; pieces != 0; {
			from := pieces.PopLSB()
			for att := t.Attacks(pt, us, from, occ) & targets; att != 0; {
				ml.Add(NewMove(from, att.PopLSB()))
			}
		}
	}

	if mode == genAll {
		p.generateCastling(ml)
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, mode genMode) {
	t := p.tab
	us := p.SideToMove
	enemies := p.Occupied[us.Other()]
	pawns := p.Pieces[us][Pawn]

	for bb := pawns; bb != 0; {
		from := bb.PopLSB()
		promoting := from.RelativeRank(us) == 6

		if mode == genAll || (mode == genNoisy && promoting) {
			if push := t.pawnPushes[us][from] &^ p.AllOccupied; push != 0 {
				to := push.LSB()
				if promoting {
					addPromotions(ml, from, to)
				} else {
					ml.Add(NewMove(from, to))
					if from.RelativeRank(us) == 1 {
						if double := t.pawnPushes[us][to] &^ p.AllOccupied; double != 0 {
							ml.Add(NewMove(from, double.LSB()))
						}
					}
				}
			}
		}

		for att := t.pawnAttacks[us][from] & enemies; att != 0; {
			to := att.PopLSB()
			if promoting {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}

	if ep := p.EnPassant; ep != NoSquare {
		for att := t.pawnAttackers[us][ep] & pawns; att != 0; {
			ml.Add(NewEnPassant(att.PopLSB(), ep))
		}
	}
}

// addPromotions expands a promoting pawn move, strongest piece first.
func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generateCastling adds castling moves whose rights are held, whose rook is
// still home, whose path is empty, and whose king neither starts in nor
// crosses an attacked square.
func (p *Position) generateCastling(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	home := E1
	if us == Black {
		home = E8
	}
	if p.KingSquare[us] != home || p.CastlingRights&(castleRight(us, true)|castleRight(us, false)) == 0 {
		return
	}
	rooks := p.Pieces[us][Rook]

	if p.CastlingRights.CanCastle(us, true) && rooks.IsSet(home+3) &&
		p.IsEmpty(home+1) && p.IsEmpty(home+2) &&
		!p.IsAttacked(home, them) && !p.IsAttacked(home+1, them) && !p.IsAttacked(home+2, them) {
		ml.Add(NewCastling(home, home+2))
	}
	if p.CastlingRights.CanCastle(us, false) && rooks.IsSet(home-4) &&
		p.IsEmpty(home-1) && p.IsEmpty(home-2) && p.IsEmpty(home-3) &&
		!p.IsAttacked(home, them) && !p.IsAttacked(home-1, them) && !p.IsAttacked(home-2, them) {
		ml.Add(NewCastling(home, home-2))
	}
}

// IsLegal reports whether the pseudo-legal move m keeps the mover's king
// safe. King steps are screened before anything is applied; everything
// else goes through MakeLegalMove and is reverted, so the position is
// unchanged either way.
func (p *Position) IsLegal(m Move) bool {
	from, to := m.From(), m.To()
	pc := p.Squares[from]
	if pc == NoPiece || pc.Color() != p.SideToMove {
		return false
	}
	them := p.SideToMove.Other()

	if pc.Type() == King {
		if m.IsCastling() {
			lo, hi := from, to
			if to < from {
				lo, hi = to, from
			}
			for sq := lo; sq <= hi; sq++ {
				if p.IsAttacked(sq, them) {
					return false
				}
			}
		} else if p.AttackersByColor(to, them, p.AllOccupied&^SquareBB(from)) != 0 {
			return false
		}
	}

	if !p.MakeLegalMove(m) {
		return false
	}
	p.UnmakeMove(m)
	return true
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.GenerateMoves(&ml)
	for _, m := range ml.Slice() {
		if p.IsLegal(m) {
			return true
		}
	}
	return false
}

// IsCheckmate reports whether the side to move is in check with no legal move.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move has no legal move but is not
// in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}
