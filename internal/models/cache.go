package models

import (
	"sync"
)

// Cache implements a concurrency-safe in-memory cache for analyses.
type Cache struct {
	// data stores the underlying map
	data map[NormalizedFEN]Analysis

	// dataMutex protects data
	dataMutex sync.Mutex
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[NormalizedFEN]Analysis),
	}
}

// Upsert will add or update an entry in the cache if it adds more reliable
// information, meaning a deeper search of the same position.
func (c *Cache) Upsert(analysis Analysis) {
	c.dataMutex.Lock()
	defer c.dataMutex.Unlock()

	c.upsertIfDeeper(analysis)
}

// BulkUpsert works like Upsert, but for multiple analyses.
func (c *Cache) BulkUpsert(analyses []Analysis) {
	c.dataMutex.Lock()
	defer c.dataMutex.Unlock()

	for _, analysis := range analyses {
		c.upsertIfDeeper(analysis)
	}
}

// upsertIfDeeper does an actual upsert. It assumes dataMutex is locked.
func (c *Cache) upsertIfDeeper(analysis Analysis) {
	nfen := analysis.Position

	found, ok := c.data[nfen]
	if !ok || analysis.Depth > found.Depth {
		c.data[nfen] = analysis
	}
}

// Lookup looks up a position in the cache.
func (c *Cache) Lookup(nfen NormalizedFEN) (Analysis, bool) {
	c.dataMutex.Lock()
	defer c.dataMutex.Unlock()

	analysis, ok := c.data[nfen]
	return analysis, ok
}

// GetMissing returns the positions that are not in the cache.
func (c *Cache) GetMissing(slice []NormalizedFEN) []NormalizedFEN {
	c.dataMutex.Lock()
	defer c.dataMutex.Unlock()

	missing := make([]NormalizedFEN, 0, len(slice))
	for _, nfen := range slice {
		if _, ok := c.data[nfen]; !ok {
			missing = append(missing, nfen)
		}
	}

	return missing
}

// Len returns the number of items in the cache.
func (c *Cache) Len() int {
	c.dataMutex.Lock()
	defer c.dataMutex.Unlock()

	return len(c.data)
}
