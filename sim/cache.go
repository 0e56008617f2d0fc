package sim

import "fmt"

// AddressTrace is an ordered sequence of byte addresses from one workload run.
// Traces are treated as read-only once generated.
type AddressTrace []uint64

// cacheLine is one way of one set.
type cacheLine struct {
	tag      uint64
	lastUsed uint64 // logical timestamp of the most recent access
	valid    bool
}

// Cache is the mutable state of a single simulation run: a set-associative
// cache with true LRU replacement. A Cache is never reused across
// configurations; Simulate builds a fresh one per call.
type Cache struct {
	config     CacheConfig
	numSets    uint64
	ways       int
	offsetBits uint
	indexBits  uint
	lines      []cacheLine // numSets*ways, set-major
	clock      uint64
	stats      Stats
}

// NewCache allocates zeroed state for the given geometry.
func NewCache(config CacheConfig) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	numSets := uint64(config.NumSets())
	return &Cache{
		config:     config,
		numSets:    numSets,
		ways:       int(config.Associativity()),
		offsetBits: uint(config.OffsetBits()),
		indexBits:  uint(config.IndexBits()),
		lines:      make([]cacheLine, numSets*uint64(config.Associativity())),
	}, nil
}

// Config returns the geometry this cache was built with.
func (c *Cache) Config() CacheConfig { return c.config }

// Stats returns the hit/miss counters accumulated so far.
func (c *Cache) Stats() Stats { return c.stats }

// decompose splits an address into set index and tag. Block size and set
// count are powers of two, so division reduces to shifts.
func (c *Cache) decompose(address uint64) (set uint64, tag uint64) {
	block := address >> c.offsetBits
	return block & (c.numSets - 1), block >> c.indexBits
}

func (c *Cache) set(index uint64) []cacheLine {
	start := index * uint64(c.ways)
	return c.lines[start : start+uint64(c.ways)]
}

// Access replays one address and reports whether it hit.
func (c *Cache) Access(address uint64) bool {
	c.clock++
	index, tag := c.decompose(address)
	lines := c.set(index)

	victim := -1
	for i := range lines {
		line := &lines[i]
		if !line.valid {
			if victim < 0 || lines[victim].valid {
				victim = i
			}
			continue
		}
		if line.tag == tag {
			line.lastUsed = c.clock
			c.stats.Hits++
			return true
		}
		if victim < 0 || (lines[victim].valid && line.lastUsed < lines[victim].lastUsed) {
			victim = i
		}
	}

	c.stats.Misses++
	lines[victim] = cacheLine{tag: tag, lastUsed: c.clock, valid: true}
	return false
}

// Resident reports whether the block holding address is currently cached.
// It is an inspection helper for callers stepping a Cache by hand: it does
// not update recency or the hit/miss counters, and Simulate never calls it.
func (c *Cache) Resident(address uint64) bool {
	index, tag := c.decompose(address)
	for _, line := range c.set(index) {
		if line.valid && line.tag == tag {
			return true
		}
	}
	return false
}

// CheckInvariants verifies that no set holds more than associativity valid
// lines and that no tag appears twice within a set.
func (c *Cache) CheckInvariants() error {
	for s := uint64(0); s < c.numSets; s++ {
		seen := make(map[uint64]bool, c.ways)
		valid := 0
		for _, line := range c.set(s) {
			if !line.valid {
				continue
			}
			valid++
			if seen[line.tag] {
				return fmt.Errorf("set %d holds tag %#x twice", s, line.tag)
			}
			seen[line.tag] = true
		}
		if valid > c.ways {
			return fmt.Errorf("set %d holds %d lines, associativity is %d", s, valid, c.ways)
		}
	}
	return nil
}

// Simulate replays trace against a fresh cache built from config and returns
// the hit and miss counts. It keeps no state between calls and is safe to run
// concurrently.
func Simulate(trace AddressTrace, config CacheConfig) (Stats, error) {
	cache, err := NewCache(config)
	if err != nil {
		return Stats{}, err
	}
	for _, addr := range trace {
		cache.Access(addr)
	}
	return cache.Stats(), nil
}
