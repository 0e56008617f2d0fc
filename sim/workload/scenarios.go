package workload

// Built-in workload suites. Each returns a fresh, valid Suite.

// QuickSuite is the reduced sweep used for smoke runs: four small kernels.
func QuickSuite(seed int64) *Suite {
	return &Suite{
		Version: "1", Seed: &seed,
		Workloads: []Spec{
			{Name: "matmul_32", Type: TypeMatmul, Size: 32},
			{Name: "sort_1000", Type: TypeSort, Size: 1000},
			{Name: "sequential_2000", Type: TypeSequential, Size: 2000},
			{Name: "strided_2000", Type: TypeStrided, Size: 2000, Stride: defaultStridedStride},
		},
	}
}

// FullSuite covers every workload type at two sizes where the kernel scales.
func FullSuite(seed int64) *Suite {
	return &Suite{
		Version: "1", Seed: &seed,
		Workloads: []Spec{
			{Name: "matmul_32", Type: TypeMatmul, Size: 32},
			{Name: "matmul_64", Type: TypeMatmul, Size: 64},
			{Name: "sort_1000", Type: TypeSort, Size: 1000},
			{Name: "sort_5000", Type: TypeSort, Size: 5000},
			{Name: "sequential_5000", Type: TypeSequential, Size: 5000},
			{Name: "random_5000", Type: TypeRandom, Size: 5000},
			{Name: "strided_5000", Type: TypeStrided, Size: 5000, Stride: defaultStridedStride},
			{Name: "mixed_5000", Type: TypeMixed, Size: 5000},
		},
	}
}

// SuiteByName returns a built-in suite ("quick" or "full").
func SuiteByName(name string, seed int64) (*Suite, bool) {
	switch name {
	case "quick":
		return QuickSuite(seed), true
	case "full":
		return FullSuite(seed), true
	}
	return nil, false
}
