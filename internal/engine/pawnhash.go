package engine

// PawnEntry caches the pawn-structure score of one pawn configuration.
type PawnEntry struct {
	Key     uint64
	MgScore int16
	EgScore int16
	valid   bool
}

// PawnTable is a direct-mapped cache of PawnStructure results keyed by
// Position.PawnKey.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64
}

// NewPawnTable creates a pawn hash table of at most sizeMB megabytes.
func NewPawnTable(sizeMB int) *PawnTable {
	const entrySize = 16
	n := roundDownToPowerOf2(uint64(max(sizeMB, 1)) * 1024 * 1024 / entrySize)
	return &PawnTable{
		entries: make([]PawnEntry, n),
		mask:    n - 1,
	}
}

// Probe returns the cached scores for key.
func (pt *PawnTable) Probe(key uint64) (mg, eg int, found bool) {
	e := &pt.entries[key&pt.mask]
	if !e.valid || e.Key != key {
		return 0, 0, false
	}
	return int(e.MgScore), int(e.EgScore), true
}

// Store caches the scores for key, replacing whatever held the slot.
func (pt *PawnTable) Store(key uint64, mg, eg int) {
	pt.entries[key&pt.mask] = PawnEntry{Key: key, MgScore: int16(mg), EgScore: int16(eg), valid: true}
}

// Clear empties the table.
func (pt *PawnTable) Clear() {
	clear(pt.entries)
}
