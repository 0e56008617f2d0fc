package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcache-sim/smartcache-sim/sim"
)

func seedPtr(v int64) *int64 { return &v }

func TestGenerate_Deterministic_SameSeedSameTrace(t *testing.T) {
	for _, typ := range ValidTypes() {
		t.Run(typ, func(t *testing.T) {
			spec := &Spec{Type: typ, Size: validTypes[typ] / 4, Seed: seedPtr(7)}
			a, err := Generate(spec)
			require.NoError(t, err)
			b, err := Generate(spec)
			require.NoError(t, err)
			assert.Equal(t, a, b)
			assert.Equal(t, Stats(a).Digest, Stats(b).Digest)
		})
	}
}

func TestGenerate_DifferentSeed_ChangesRandomizedTraces(t *testing.T) {
	for _, typ := range []string{TypeRandom, TypeSort, TypeMixed} {
		a, err := Generate(&Spec{Type: typ, Size: 500, Seed: seedPtr(1)})
		require.NoError(t, err)
		b, err := Generate(&Spec{Type: typ, Size: 500, Seed: seedPtr(2)})
		require.NoError(t, err)
		assert.NotEqual(t, a, b, typ)
	}
}

func TestGenerate_UnknownType_ReturnsError(t *testing.T) {
	_, err := Generate(&Spec{Type: "zigzag", Size: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zigzag")
}

func TestGenerate_Sequential_DefaultStrideIsElementSize(t *testing.T) {
	trace, err := Generate(&Spec{Type: TypeSequential, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, sim.AddressTrace{0, 4, 8, 12, 16}, trace)
}

func TestGenerate_Strided_RepeatsPasses(t *testing.T) {
	trace, err := Generate(&Spec{Type: TypeStrided, Size: 3, Stride: 128, Passes: 2})
	require.NoError(t, err)
	assert.Equal(t, sim.AddressTrace{0, 128, 256, 0, 128, 256}, trace)
}

func TestGenerate_Random_AlignedAndInRange(t *testing.T) {
	trace, err := Generate(&Spec{Type: TypeRandom, Size: 2000, Range: 4096})
	require.NoError(t, err)
	require.Len(t, trace, 2000)
	for i, a := range trace {
		if a%elementSize != 0 || a >= 4096 {
			t.Fatalf("address %d = %#x: want 4-byte aligned and < 4096", i, a)
		}
	}
}

func TestGenerate_Matmul_LayoutAndLength(t *testing.T) {
	// GIVEN a 2x2 multiply
	trace, err := Generate(&Spec{Type: TypeMatmul, Size: 2})
	require.NoError(t, err)

	// THEN the length is n²(1+3n) and the first C[0][0] block is A, B, C
	require.Len(t, trace, 2*2*(1+3*2))
	a, b, c := uint64(matmulBase), uint64(matmulBase+16), uint64(matmulBase+32)
	assert.Equal(t, sim.AddressTrace{
		c,               // C[0][0]
		a, b, c,         // k=0: A[0][0], B[0][0], C[0][0]
		a + 4, b + 8, c, // k=1: A[0][1], B[1][0], C[0][0]
	}, trace[:7])
	assert.Equal(t, int64(len(trace)), (&Spec{Type: TypeMatmul, Size: 2}).EstimatedLength())
}

func TestGenerate_Sort_TouchesOnlyArray(t *testing.T) {
	const n = 1000
	spec := &Spec{Type: TypeSort, Size: n}
	trace, err := Generate(spec)
	require.NoError(t, err)

	assert.NotEmpty(t, trace)
	assert.LessOrEqual(t, int64(len(trace)), spec.EstimatedLength()*2)
	for _, a := range trace {
		require.GreaterOrEqual(t, a, uint64(sortBase))
		require.Less(t, a, uint64(sortBase+n*elementSize))
	}
	// every element is visited at least once by some partition pass
	assert.Equal(t, n, Stats(trace).UniqueAddresses)
}

func TestGenerate_Mixed_ComponentProportions(t *testing.T) {
	trace, err := Generate(&Spec{Type: TypeMixed, Size: 1000})
	require.NoError(t, err)
	require.Len(t, trace, 1000)

	counts := map[uint64]int{}
	for _, a := range trace {
		counts[a&^0xfffff]++
	}
	assert.Equal(t, 400, counts[mixedSequentialBase])
	assert.Equal(t, 300, counts[mixedStridedBase])
	assert.Equal(t, 200, counts[mixedRandomBase])
	assert.Equal(t, 100, counts[mixedHotspotBase])

	// shuffled: the first accesses are not just the sequential run
	seq := stridedTrace(10, elementSize, 1, mixedSequentialBase)
	assert.NotEqual(t, seq, trace[:10])
}

func TestGenerate_ZeroSize_EmptyTrace(t *testing.T) {
	for _, typ := range ValidTypes() {
		trace, err := Generate(&Spec{Type: typ, Size: 0})
		require.NoError(t, err, typ)
		assert.Empty(t, trace, typ)
	}
}

func TestGenerate_OversizedSpec_Rejected(t *testing.T) {
	_, err := Generate(&Spec{Type: TypeMatmul, Size: 1024})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}
