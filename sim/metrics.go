// Tracks per-run cache statistics.

package sim

import (
	"fmt"
	"io"
)

// Stats aggregates the outcome of replaying a trace.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Accesses returns the total number of replayed addresses.
func (s Stats) Accesses() int64 { return s.Hits + s.Misses }

// MissRate returns misses/accesses, or 0 when nothing was accessed.
func (s Stats) MissRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.Accesses())
}

// HitRate returns hits/accesses, or 0 when nothing was accessed.
func (s Stats) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// Print writes the statistics for one configuration in aligned text.
func (s Stats) Print(w io.Writer, config CacheConfig) {
	fmt.Fprintln(w, "=== Cache Simulation ===")
	fmt.Fprintf(w, "Configuration   : %s (%d sets)\n", config, config.NumSets())
	fmt.Fprintf(w, "Total Accesses  : %d\n", s.Accesses())
	fmt.Fprintf(w, "Hits            : %d\n", s.Hits)
	fmt.Fprintf(w, "Misses          : %d\n", s.Misses)
	fmt.Fprintf(w, "Miss Rate       : %.4f\n", s.MissRate())
	fmt.Fprintf(w, "Hit Rate        : %.4f\n", s.HitRate())
}
