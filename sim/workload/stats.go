package workload

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/smartcache-sim/smartcache-sim/sim"
)

// statsBlockBytes is the block granularity used for UniqueBlocks.
const statsBlockBytes = 64

// TraceStats summarizes a generated address trace.
type TraceStats struct {
	Accesses        int    `json:"num_accesses"`
	UniqueAddresses int    `json:"unique_addresses"`
	UniqueBlocks    int    `json:"unique_blocks_64b"`
	Digest          string `json:"digest"`
	Empty           bool   `json:"empty_trace"`
}

// Stats computes footprint figures and a content digest for trace.
// Two traces with the same digest are identical with overwhelming probability.
func Stats(trace sim.AddressTrace) TraceStats {
	addrs := make(map[uint64]struct{}, len(trace)/4)
	blocks := make(map[uint64]struct{}, len(trace)/16)
	h := xxhash.New()
	var buf [8]byte
	for _, a := range trace {
		addrs[a] = struct{}{}
		blocks[a/statsBlockBytes] = struct{}{}
		binary.LittleEndian.PutUint64(buf[:], a)
		_, _ = h.Write(buf[:])
	}
	return TraceStats{
		Accesses:        len(trace),
		UniqueAddresses: len(addrs),
		UniqueBlocks:    len(blocks),
		Digest:          fmt.Sprintf("%016x", h.Sum64()),
		Empty:           len(trace) == 0,
	}
}
