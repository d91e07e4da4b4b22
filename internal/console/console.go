// Package console implements the line-oriented front end: a human enters
// moves in coordinate notation and the engine replies.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// Config controls how the console plays.
type Config struct {
	Limits    engine.Limits
	Human     board.Color // side entered from the input
	AutoReply bool        // engine answers every human move
	Logger    zerolog.Logger
}

// Console holds the game state between commands.
type Console struct {
	engine *engine.Engine
	cfg    Config
	out    io.Writer
	log    zerolog.Logger

	start  string       // FEN the game started from
	played []board.Move // moves since start
	pos    *board.Position
	hashes []uint64 // positions before pos, oldest first
}

// New creates a console writing to out.
func New(eng *engine.Engine, out io.Writer, cfg Config) *Console {
	c := &Console{
		engine: eng,
		cfg:    cfg,
		out:    out,
		log:    cfg.Logger.With().Str("component", "console").Logger(),
	}
	c.reset(board.NewPosition())
	return c
}

func (c *Console) reset(pos *board.Position) {
	pos.Commit()
	c.pos = pos
	c.start = pos.ToFEN()
	c.played = c.played[:0]
	c.hashes = c.hashes[:0]
}

// Position returns the current position.
func (c *Console) Position() *board.Position {
	return c.pos
}

// SetPosition starts a new game from fen.
func (c *Console) SetPosition(fen string) error {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return err
	}
	c.reset(pos)
	return nil
}

// Run reads commands until quit or end of input.
func (c *Console) Run(in io.Reader) error {
	if c.cfg.AutoReply && c.pos.SideToMove != c.cfg.Human {
		c.Think()
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := c.Execute(line); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute runs one command line and reports whether it was quit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "new":
		c.reset(board.NewPosition())
	case "fen":
		if err := c.SetPosition(strings.Join(args, " ")); err != nil {
			c.errorf("%v", err)
		}
	case "go":
		c.handleGo(args)
	case "perft":
		c.handlePerft(args)
	case "d":
		fmt.Fprintln(c.out, c.pos.String())
	case "undo":
		c.undo()
	default:
		c.handleMove(cmd)
	}
	return false
}

func (c *Console) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "error: "+format+"\n", args...)
}

// handleMove plays a human move and lets the engine answer.
func (c *Console) handleMove(s string) {
	m, err := board.ParseMove(s, c.pos)
	if err != nil {
		c.errorf("%s: %v", s, err)
		return
	}
	c.play(m)
	if over := c.gameOver(); over != "" {
		fmt.Fprintln(c.out, over)
		return
	}
	if c.cfg.AutoReply && c.pos.SideToMove != c.cfg.Human {
		c.Think()
	}
}

func (c *Console) handleGo(args []string) {
	limits := c.cfg.Limits
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d <= 0 {
			c.errorf("go: bad depth %q", args[0])
			return
		}
		limits.Depth = d
	}
	c.think(limits)
}

// Think lets the engine choose and play a move with the configured limits.
func (c *Console) Think() engine.Result {
	return c.think(c.cfg.Limits)
}

func (c *Console) think(limits engine.Limits) engine.Result {
	c.engine.SetGameHistory(c.hashes)
	res := c.engine.SearchWithLimits(c.pos, limits)
	if res.Move == board.NoMove {
		fmt.Fprintln(c.out, c.gameOver())
		return res
	}
	fmt.Fprintln(c.out, FormatResult(res))
	c.play(res.Move)
	if over := c.gameOver(); over != "" {
		fmt.Fprintln(c.out, over)
	}
	return res
}

// play makes m permanent and records it for repetition and undo.
func (c *Console) play(m board.Move) {
	c.hashes = append(c.hashes, c.pos.Hash)
	c.pos.MakeMove(m)
	c.pos.Commit()
	c.played = append(c.played, m)
}

// undo takes back the last move by replaying the game without it.
func (c *Console) undo() {
	if len(c.played) == 0 {
		c.errorf("undo: no move to take back")
		return
	}
	moves := c.played[:len(c.played)-1]
	pos, err := board.ParseFEN(c.start)
	if err != nil {
		c.errorf("undo: %v", err)
		return
	}
	c.played = c.played[:0]
	c.hashes = c.hashes[:0]
	c.pos = pos
	for _, m := range moves {
		c.play(m)
	}
}

// gameOver describes a finished game, or returns "" while play continues.
func (c *Console) gameOver() string {
	switch {
	case c.pos.IsCheckmate():
		return "checkmate, " + c.pos.SideToMove.Other().String() + " wins"
	case c.pos.IsStalemate():
		return "stalemate"
	case c.pos.IsInsufficientMaterial():
		return "draw by insufficient material"
	case c.pos.HalfMoveClock >= 100:
		return "draw by the fifty-move rule"
	}
	return ""
}

func (c *Console) handlePerft(args []string) {
	depth := 1
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			c.errorf("perft: bad depth %q", args[0])
			return
		}
		depth = d
	}

	start := time.Now()
	entries, err := c.pos.Divide(context.Background(), depth)
	if err != nil {
		c.errorf("perft: %v", err)
		return
	}
	var total uint64
	for _, e := range entries {
		fmt.Fprintf(c.out, "%s: %d\n", e.Move, e.Nodes)
		total += e.Nodes
	}
	elapsed := time.Since(start)
	nps := float64(total) / max(elapsed.Seconds(), 1e-9)
	fmt.Fprintf(c.out, "total %d (%s nodes, %s nps, %v)\n",
		total, humanize.Comma(int64(total)), humanize.SIWithDigits(nps, 1, ""), elapsed.Round(time.Millisecond))
	c.log.Debug().Int("depth", depth).Uint64("nodes", total).Dur("elapsed", elapsed).Msg("perft")
}

// FormatResult renders a search result as
// "<move> <ms>ms d=<depth> kn=<knodes> nps=<nodes per second>".
func FormatResult(res engine.Result) string {
	ms := res.Elapsed.Milliseconds()
	nps := res.Nodes * 1000 / uint64(max(ms, 1))
	return fmt.Sprintf("%s %dms d=%d kn=%d nps=%d", res.Move, ms, res.Depth, res.Nodes/1000, nps)
}
