package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Rates(t *testing.T) {
	s := Stats{Hits: 3, Misses: 1}
	assert.Equal(t, int64(4), s.Accesses())
	assert.Equal(t, 0.25, s.MissRate())
	assert.Equal(t, 0.75, s.HitRate())
}

func TestStats_NoAccesses_ZeroRates(t *testing.T) {
	var s Stats
	assert.Zero(t, s.MissRate())
	assert.Zero(t, s.HitRate())
}

func TestStats_Print(t *testing.T) {
	// GIVEN stats for a 2-way 4KiB cache
	var buf bytes.Buffer
	Stats{Hits: 90, Misses: 10}.Print(&buf, MustCacheConfig(4096, 64, 2))

	// THEN the report names the geometry and both rates
	out := buf.String()
	assert.Contains(t, out, "4KiB/64B/2-way (32 sets)")
	assert.Contains(t, out, "Miss Rate       : 0.1000")
	assert.Contains(t, out, "Hit Rate        : 0.9000")
}
