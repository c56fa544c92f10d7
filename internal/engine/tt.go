package engine

// bound classifies how a stored score relates to the true score of its node.
type bound uint8

const (
	boundExact bound = iota
	boundLower
	boundUpper
)

// ttKey identifies a transposition entry. Keying on the remaining depth means
// an entry is only reused by nodes searching to the same horizon.
type ttKey struct {
	remaining   int
	fingerprint uint64
}

type ttEntry struct {
	score float64
	move  string
	bound bound
}

// transpositionTable holds search results for one deepening iteration.
// Writes overwrite unconditionally.
type transpositionTable struct {
	entries map[ttKey]ttEntry
}

func newTranspositionTable() *transpositionTable {
	return &transpositionTable{
		entries: make(map[ttKey]ttEntry),
	}
}

func (t *transpositionTable) probe(remaining int, fingerprint uint64) (ttEntry, bool) {
	entry, ok := t.entries[ttKey{remaining: remaining, fingerprint: fingerprint}]
	return entry, ok
}

func (t *transpositionTable) store(remaining int, fingerprint uint64, entry ttEntry) {
	t.entries[ttKey{remaining: remaining, fingerprint: fingerprint}] = entry
}

// reset drops every entry. Entries keyed this way are not safe to reuse
// across deepening iterations.
func (t *transpositionTable) reset() {
	clear(t.entries)
}
