package engine

const defaultEvalCacheSize = 1 << 18

// evalCache memoizes static evaluations within one Think invocation. Entries
// carry a generation stamp; bumping the generation invalidates the whole
// cache without touching memory. Scores are perspective-relative, which is
// why the cache must not survive into the next Think.
type evalCache struct {
	entries []evalEntry
	mask    uint64
	gen     uint64
}

type evalEntry struct {
	fingerprint uint64
	score       float64
	gen         uint64
}

func newEvalCache(size int) *evalCache {
	if size < 2 || size&(size-1) != 0 {
		size = defaultEvalCacheSize
	}
	return &evalCache{
		entries: make([]evalEntry, size),
		mask:    uint64(size - 1),
		gen:     1,
	}
}

func (c *evalCache) get(fingerprint uint64) (float64, bool) {
	entry := c.entries[fingerprint&c.mask]
	if entry.gen != c.gen || entry.fingerprint != fingerprint {
		return 0, false
	}
	return entry.score, true
}

func (c *evalCache) put(fingerprint uint64, score float64) {
	c.entries[fingerprint&c.mask] = evalEntry{
		fingerprint: fingerprint,
		score:       score,
		gen:         c.gen,
	}
}

// reset invalidates every entry.
func (c *evalCache) reset() {
	c.gen++
}
