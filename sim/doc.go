// Package sim provides the trace-driven cache simulator at the core of the
// design-space explorer.
//
// # Reading Guide
//
//   - config.go: CacheConfig, the validated (size, block, associativity) value type
//   - cache.go: Cache state, true-LRU replacement, and Simulate
//   - metrics.go: hit/miss statistics
//   - rng.go: PartitionedRNG, the source of every random draw
//
// # Architecture
//
// The sim package has no dependencies on its sub-packages:
//   - sim/workload/: synthetic address trace generation and trace files
//   - sim/objective/: config -> miss rate, with per-workload trace caching
//   - sim/optimize/: Gaussian-process Bayesian optimization over the config space
//   - sim/trace/: optimizer decision trace recording
//   - sim/report/: Pareto frontier, baseline comparison, result artifact, charts
//   - sim/recorder/: SQLite sink for evaluation records
//   - sim/experiment/: per-workload orchestration across a workload suite
//
// Every Simulate call builds a fresh Cache. Nothing in this package keeps
// state between simulations, so independent runs may execute concurrently.
package sim
