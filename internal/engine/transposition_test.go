package engine

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hailam/chesscore/internal/board"
)

func filledTable(t *testing.T) *TranspositionTable {
	t.Helper()
	tt := NewTranspositionTable(1)
	m := board.NewMove(board.E2, board.E4)
	tt.Store(0x1234_5678_9abc_def0, 5, 42, TTExact, m, 0)
	tt.Store(0x0fed_cba9_8765_4321, 3, -120, TTUpperBound, board.NoMove, 2)
	tt.Store(0x1111_2222_3333_4444, 7, MateScore-5, TTLowerBound, m, 3)
	return tt
}

func TestTranspositionTableSize(t *testing.T) {
	tt := NewTranspositionTable(1)
	if got, want := tt.Len(), 1024*1024/ttEntrySize; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	if tt.SizeBytes() != 1024*1024 {
		t.Errorf("SizeBytes() = %d, want 1MB", tt.SizeBytes())
	}
	if tt.HashFull() != 0 {
		t.Errorf("HashFull() = %d on an empty table", tt.HashFull())
	}
}

func TestTranspositionProbeRequiresExactKey(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0xdead_beef_0000_0001)
	tt.Store(key, 4, 17, TTExact, board.NoMove, 0)

	e, ok := tt.Probe(key)
	if !ok || e.Score != 17 || e.Depth != 4 || e.Flag != TTExact {
		t.Fatalf("Probe = %+v, %v", e, ok)
	}

	alias := key + uint64(tt.Len()) // same slot, different key
	if _, ok := tt.Probe(alias); ok {
		t.Error("probe of an aliasing key hit")
	}

	tt.Store(alias, 1, -3, TTUpperBound, board.NoMove, 0)
	if _, ok := tt.Probe(key); ok {
		t.Error("replace-always store kept the old entry")
	}
}

func TestMateScoreNormalization(t *testing.T) {
	tests := []struct {
		score, ply, stored int
	}{
		{100, 7, 100},
		{-250, 3, -250},
		{MateScore - 10, 4, MateScore - 6},
		{-MateScore + 10, 4, -MateScore + 6},
		{-MateScore + 100, 90, -MateScore + 10},
		{MateScore - 101, 100, MateScore - 1},
	}
	for _, tt := range tests {
		if got := ScoreToTT(tt.score, tt.ply); got != tt.stored {
			t.Errorf("ScoreToTT(%d, %d) = %d, want %d", tt.score, tt.ply, got, tt.stored)
		}
		if got := ScoreFromTT(tt.stored, tt.ply); got != tt.score {
			t.Errorf("ScoreFromTT(%d, %d) = %d, want %d", tt.stored, tt.ply, got, tt.score)
		}
	}

	// A mate stored at ply 3 reads back one move closer at ply 1.
	tbl := NewTranspositionTable(1)
	tbl.Store(99, 2, MateScore-5, TTExact, board.NoMove, 3)
	e, _ := tbl.Probe(99)
	if got := ScoreFromTT(int(e.Score), 1); got != MateScore-3 {
		t.Errorf("mate probed at ply 1 = %d, want %d", got, MateScore-3)
	}
}

func TestTranspositionRoundTrip(t *testing.T) {
	src := filledTable(t)
	var buf bytes.Buffer
	if err := src.SaveTo(&buf); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	dst := NewTranspositionTable(1)
	if err := dst.LoadFrom(&buf); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if diff := cmp.Diff(src.entries, dst.entries); diff != "" {
		t.Errorf("entries differ after round trip (-saved +loaded):\n%s", diff)
	}
}

func TestTranspositionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tt.bin")
	src := filledTable(t)
	if err := src.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	dst := NewTranspositionTable(1)
	if err := dst.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if diff := cmp.Diff(src.entries, dst.entries); diff != "" {
		t.Errorf("entries differ after file round trip:\n%s", diff)
	}

	err := dst.LoadFile(filepath.Join(t.TempDir(), "missing.bin"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadFile(missing) = %v, want fs.ErrNotExist", err)
	}
	if dst.HashFull() != 0 {
		t.Error("missing file left entries behind")
	}
}

func TestTranspositionLoadRejectsMismatch(t *testing.T) {
	var saved bytes.Buffer
	if err := filledTable(t).SaveTo(&saved); err != nil {
		t.Fatal(err)
	}
	data := saved.Bytes()

	badMagic := bytes.Clone(data)
	badMagic[0] = 'X'
	badFlag := bytes.Clone(data)
	flagOffset := 24 + int(0x1234_5678_9abc_def0&uint64(1024*1024/ttEntrySize-1))*ttEntrySize + 13
	badFlag[flagOffset] = 9

	tests := []struct {
		name string
		dst  *TranspositionTable
		data []byte
	}{
		{"different size", NewTranspositionTable(2), data},
		{"bad magic", NewTranspositionTable(1), badMagic},
		{"truncated", NewTranspositionTable(1), data[:len(data)/2]},
		{"short header", NewTranspositionTable(1), data[:10]},
		{"bad flag", NewTranspositionTable(1), badFlag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.dst.Store(0x1234_5678_9abc_def0, 1, 1, TTExact, board.NoMove, 0)
			err := tt.dst.LoadFrom(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrIncompatibleTable) {
				t.Fatalf("LoadFrom error = %v, want ErrIncompatibleTable", err)
			}
			if _, ok := tt.dst.Probe(0x1234_5678_9abc_def0); ok {
				t.Error("table not emptied after rejected load")
			}
		})
	}
}
