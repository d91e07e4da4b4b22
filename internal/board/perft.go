package board

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	p.GenerateMoves(&ml)
	var nodes uint64
	for _, m := range ml.Slice() {
		if !p.MakeLegalMove(m) {
			continue
		}
		if depth == 1 {
			nodes++
		} else {
			nodes += p.Perft(depth - 1)
		}
		p.UnmakeMove(m)
	}
	return nodes
}

// DivideEntry is the perft count below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide runs Perft(depth-1) under every legal root move, each on its own
// copy of the position and goroutine. Results are sorted by move text.
func (p *Position) Divide(ctx context.Context, depth int) ([]DivideEntry, error) {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	out := make([]DivideEntry, ml.Len())

	g, ctx := errgroup.WithContext(ctx)
	for i, m := range ml.Slice() {
		i, m := i, m
		out[i].Move = m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cp := p.Copy()
			cp.MakeMove(m)
			out[i].Nodes = cp.Perft(depth - 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Move.String() < out[b].Move.String() })
	return out, nil
}
