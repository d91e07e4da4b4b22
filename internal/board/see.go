package board

// SEE statically resolves the exchange started by m on its destination and
// returns the material balance for the side making m. Both sides recapture
// with their least valuable attacker, pieces uncovered behind a capturer
// join in, and either side may stop once continuing would lose material.
// Non-captures that are not promotions score 0 plus whatever the opponent
// can win back on the square.
func (p *Position) SEE(m Move) int {
	from, to := m.From(), m.To()
	attacker := p.Squares[from]
	if attacker == NoPiece || m.IsCastling() {
		return 0
	}
	us := attacker.Color()

	var gain [32]int
	occ := p.AllOccupied &^ SquareBB(from)
	onSquare := PieceValue[attacker.Type()]

	switch {
	case m.IsEnPassant():
		gain[0] = PieceValue[Pawn]
		occ &^= SquareBB(to.Forward(us.Other()))
	case p.Squares[to] != NoPiece:
		gain[0] = p.Squares[to].Value()
	}
	if m.IsPromotion() {
		gain[0] += PieceValue[m.Promotion()] - PieceValue[Pawn]
		onSquare = PieceValue[m.Promotion()]
	}

	side := us.Other()
	d := 0
	for d < len(gain)-1 {
		sq, pt := p.leastValuableAttacker(to, side, occ)
		if sq == NoSquare {
			break
		}
		d++
		gain[d] = onSquare - gain[d-1]
		occ &^= SquareBB(sq)
		onSquare = PieceValue[pt]
		side = side.Other()
	}

	for ; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker finds side's cheapest piece attacking target among
// the pieces still in occ. Sliders are traced through occ so removed
// capturers uncover x-ray attackers.
func (p *Position) leastValuableAttacker(target Square, side Color, occ Bitboard) (Square, PieceType) {
	attackers := p.AttackersByColor(target, side, occ) & occ
	if attackers == 0 {
		return NoSquare, NoPieceType
	}
	for pt := Pawn; pt <= King; pt++ {
		if bb := attackers & p.Pieces[side][pt]; bb != 0 {
			return bb.LSB(), pt
		}
	}
	return NoSquare, NoPieceType
}
