package workload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/smartcache-sim/smartcache-sim/sim"
)

// Trace file layout:
//
//	magic "SCTR" | version byte | snappy block
//
// The snappy block decodes to a uvarint address count followed by one
// zigzag varint delta per address (first delta is relative to 0).
const (
	traceMagic   = "SCTR"
	traceVersion = 1
)

// ErrBadTraceFile is returned when a trace file header or payload is malformed.
var ErrBadTraceFile = errors.New("malformed trace file")

// EncodeTrace serializes trace into the compressed trace file format.
func EncodeTrace(trace sim.AddressTrace) []byte {
	raw := make([]byte, 0, binary.MaxVarintLen64*(len(trace)+1)/4)
	raw = binary.AppendUvarint(raw, uint64(len(trace)))
	var prev uint64
	for _, a := range trace {
		raw = binary.AppendVarint(raw, int64(a-prev))
		prev = a
	}
	out := make([]byte, 0, len(traceMagic)+1+snappy.MaxEncodedLen(len(raw)))
	out = append(out, traceMagic...)
	out = append(out, traceVersion)
	return append(out, snappy.Encode(nil, raw)...)
}

// DecodeTrace parses data produced by EncodeTrace.
func DecodeTrace(data []byte) (sim.AddressTrace, error) {
	if len(data) < len(traceMagic)+1 || string(data[:len(traceMagic)]) != traceMagic {
		return nil, fmt.Errorf("%w: missing %q header", ErrBadTraceFile, traceMagic)
	}
	if v := data[len(traceMagic)]; v != traceVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadTraceFile, v)
	}
	raw, err := snappy.Decode(nil, data[len(traceMagic)+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTraceFile, err)
	}

	r := bytes.NewReader(raw)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading count: %v", ErrBadTraceFile, err)
	}
	// each delta takes at least one byte
	if count > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: count %d exceeds payload", ErrBadTraceFile, count)
	}
	trace := make(sim.AddressTrace, count)
	var prev uint64
	for i := range trace {
		d, err := binary.ReadVarint(r)
		if err != nil {
			return nil, fmt.Errorf("%w: address %d: %v", ErrBadTraceFile, i, err)
		}
		prev += uint64(d)
		trace[i] = prev
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadTraceFile, r.Len())
	}
	return trace, nil
}

// WriteTrace writes the encoded trace to w.
func WriteTrace(w io.Writer, trace sim.AddressTrace) error {
	_, err := w.Write(EncodeTrace(trace))
	return err
}

// WriteTraceFile exports trace to path.
func WriteTraceFile(path string, trace sim.AddressTrace) error {
	if err := os.WriteFile(path, EncodeTrace(trace), 0o644); err != nil {
		return fmt.Errorf("writing trace file: %w", err)
	}
	return nil
}

// ReadTraceFile imports a trace previously written by WriteTraceFile.
func ReadTraceFile(path string) (sim.AddressTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace file: %w", err)
	}
	trace, err := DecodeTrace(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trace, nil
}
