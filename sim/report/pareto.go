// Package report turns optimizer histories into Pareto frontiers, baseline
// comparisons, JSON artifacts and charts.
package report

import (
	"sort"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
)

// ParetoPoint is a non-dominated (size, miss rate) pair.
type ParetoPoint struct {
	SizeBytes int64           `json:"size_bytes"`
	MissRate  float64         `json:"miss_rate"`
	Config    sim.CacheConfig `json:"config"`
}

// ParetoFrontier returns the non-dominated evaluations of h, sorted by size.
//
// A point is dominated when another point has a smaller size and a miss rate
// no higher, or the same size and a strictly lower miss rate. Points that tie
// on both coordinates are all kept. Repeated configurations count once (the
// first record wins). Derived on demand; nothing is cached.
func ParetoFrontier(h *optimize.History) []ParetoPoint {
	seen := make(map[sim.CacheConfig]bool)
	var points []ParetoPoint
	for _, r := range h.Records() {
		if seen[r.Config] {
			continue
		}
		seen[r.Config] = true
		points = append(points, ParetoPoint{SizeBytes: r.Config.SizeBytes(), MissRate: r.MissRate, Config: r.Config})
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].SizeBytes != points[j].SizeBytes {
			return points[i].SizeBytes < points[j].SizeBytes
		}
		if points[i].MissRate != points[j].MissRate {
			return points[i].MissRate < points[j].MissRate
		}
		return points[i].Config.Less(points[j].Config)
	})

	var frontier []ParetoPoint
	bestSmaller := 0.0 // lowest miss rate among strictly smaller sizes
	haveSmaller := false
	for i := 0; i < len(points); {
		// points[i:j] share one size; points[i] has its lowest miss rate
		j := i
		for j < len(points) && points[j].SizeBytes == points[i].SizeBytes {
			j++
		}
		groupBest := points[i].MissRate
		if !haveSmaller || groupBest < bestSmaller {
			for k := i; k < j && points[k].MissRate == groupBest; k++ {
				frontier = append(frontier, points[k])
			}
			bestSmaller = groupBest
			haveSmaller = true
		}
		i = j
	}
	return frontier
}

// Dominates reports whether a dominates b.
func Dominates(a, b ParetoPoint) bool {
	return (a.SizeBytes < b.SizeBytes && a.MissRate <= b.MissRate) ||
		(a.SizeBytes == b.SizeBytes && a.MissRate < b.MissRate)
}
