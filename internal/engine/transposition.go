package engine

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hailam/chesscore/internal/board"
)

// TTFlag is the kind of bound a stored score represents.
type TTFlag uint8

const (
	TTNone       TTFlag = iota // empty slot
	TTExact                    // score is exact
	TTLowerBound               // failed high: true score >= stored
	TTUpperBound               // failed low: true score <= stored
)

// TTEntry is one slot of the table.
type TTEntry struct {
	Key      uint64
	BestMove board.Move
	Score    int16 // mate scores are relative to the storing node
	Depth    int8
	Flag     TTFlag
}

// ttEntrySize is the on-disk size of an entry: key, move, score, depth,
// flag and two bytes of padding.
const ttEntrySize = 16

// ttMagic starts every persisted table.
var ttMagic = [8]byte{'C', 'C', 'T', 'T', 'v', '0', '0', '1'}

// ErrIncompatibleTable reports a persisted table that does not match the
// running configuration. The table is left empty.
var ErrIncompatibleTable = errors.New("incompatible transposition table data")

// TranspositionTable is a fixed-size, replace-always hash table keyed by
// position hash. It is not safe for concurrent use.
type TranspositionTable struct {
	entries []TTEntry
	mask    uint64
}

// NewTranspositionTable creates a table of at most sizeMB megabytes,
// rounded down to a power-of-two entry count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	n := roundDownToPowerOf2(uint64(max(sizeMB, 1)) * 1024 * 1024 / ttEntrySize)
	return &TranspositionTable{
		entries: make([]TTEntry, n),
		mask:    n - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe returns the entry stored for key. Only an exact 64-bit key match is
// a hit.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	e := tt.entries[key&tt.mask]
	if e.Flag == TTNone || e.Key != key {
		return TTEntry{}, false
	}
	return e, true
}

// Store overwrites the slot for key unconditionally. ply is the distance of
// the storing node from the root, used to make mate scores node-relative.
func (tt *TranspositionTable) Store(key uint64, depth, score int, flag TTFlag, move board.Move, ply int) {
	tt.entries[key&tt.mask] = TTEntry{
		Key:      key,
		BestMove: move,
		Score:    int16(ScoreToTT(score, ply)),
		Depth:    int8(min(depth, 127)),
		Flag:     flag,
	}
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
}

// Len returns the number of slots.
func (tt *TranspositionTable) Len() int {
	return len(tt.entries)
}

// SizeBytes returns the memory taken by the slots.
func (tt *TranspositionTable) SizeBytes() int {
	return len(tt.entries) * ttEntrySize
}

// HashFull returns the permille of used slots among the first thousand.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.entries))
	used := 0
	for i := 0; i < sample; i++ {
		if tt.entries[i].Flag != TTNone {
			used++
		}
	}
	return used * 1000 / sample
}

// ScoreToTT converts a root-relative mate score into one relative to the
// node at ply.
func ScoreToTT(score, ply int) int {
	switch {
	case score > MateBound:
		return score + ply
	case score < -MateBound:
		return score - ply
	}
	return score
}

// ScoreFromTT is the inverse of ScoreToTT for a probe at ply.
func ScoreFromTT(score, ply int) int {
	switch {
	case score > MateBound:
		return score - ply
	case score < -MateBound:
		return score + ply
	}
	return score
}

// ttHeader precedes the entries in a persisted table.
type ttHeader struct {
	Magic     [8]byte
	Entries   uint64
	EntrySize uint32
	Reserved  uint32
}

// SaveTo writes the header and every slot, in little-endian order.
func (tt *TranspositionTable) SaveTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	hdr := ttHeader{Magic: ttMagic, Entries: uint64(len(tt.entries)), EntrySize: ttEntrySize}
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write table header: %w", err)
	}
	var buf [ttEntrySize]byte
	for i := range tt.entries {
		e := &tt.entries[i]
		binary.LittleEndian.PutUint64(buf[0:], e.Key)
		binary.LittleEndian.PutUint16(buf[8:], uint16(e.BestMove))
		binary.LittleEndian.PutUint16(buf[10:], uint16(e.Score))
		buf[12] = byte(e.Depth)
		buf[13] = byte(e.Flag)
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("write table entry %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// LoadFrom replaces the contents with a table written by SaveTo. If the
// header does not match this table's size and format, or the data is cut
// short, the table is cleared and the error wraps ErrIncompatibleTable.
func (tt *TranspositionTable) LoadFrom(r io.Reader) error {
	br := bufio.NewReader(r)
	var hdr ttHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		tt.Clear()
		return fmt.Errorf("%w: header: %v", ErrIncompatibleTable, err)
	}
	if hdr.Magic != ttMagic || hdr.Entries != uint64(len(tt.entries)) || hdr.EntrySize != ttEntrySize {
		tt.Clear()
		return fmt.Errorf("%w: got %q with %d entries of %d bytes, want %d of %d",
			ErrIncompatibleTable, hdr.Magic[:], hdr.Entries, hdr.EntrySize, len(tt.entries), ttEntrySize)
	}
	var buf [ttEntrySize]byte
	for i := range tt.entries {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			tt.Clear()
			return fmt.Errorf("%w: entry %d: %v", ErrIncompatibleTable, i, err)
		}
		tt.entries[i] = TTEntry{
			Key:      binary.LittleEndian.Uint64(buf[0:]),
			BestMove: board.Move(binary.LittleEndian.Uint16(buf[8:])),
			Score:    int16(binary.LittleEndian.Uint16(buf[10:])),
			Depth:    int8(buf[12]),
			Flag:     TTFlag(buf[13]),
		}
		if tt.entries[i].Flag > TTUpperBound {
			tt.Clear()
			return fmt.Errorf("%w: entry %d has flag %d", ErrIncompatibleTable, i, buf[13])
		}
	}
	return nil
}

// SaveFile writes the table to path, replacing it.
func (tt *TranspositionTable) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tt.SaveTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a table saved with SaveFile. A missing file leaves the
// table empty and returns an error satisfying errors.Is(err, fs.ErrNotExist).
func (tt *TranspositionTable) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		tt.Clear()
		return err
	}
	defer f.Close()
	return tt.LoadFrom(f)
}
