package recorder

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
	"github.com/smartcache-sim/smartcache-sim/sim/trace"
)

func evalRecord(workload string, iter int, miss float64) optimize.EvaluationRecord {
	return optimize.EvaluationRecord{
		Config:    sim.MustCacheConfig(4096, 64, 2),
		MissRate:  miss,
		Hits:      100 - int64(miss*100),
		Misses:    int64(miss * 100),
		Workload:  workload,
		Iteration: iter,
		Source:    trace.SourceAcquisition,
	}
}

func TestSQLiteRecorder_FlushOnClose(t *testing.T) {
	// GIVEN a recorder with a few buffered rows
	path := filepath.Join(t.TempDir(), "evals.db")
	r, err := Open(path, NewRunID(), "quick")
	require.NoError(t, err)
	r.Record(evalRecord("matmul_32", 1, 0.4))
	r.Record(evalRecord("matmul_32", 2, 0.2))
	r.Record(evalRecord("sort_1000", 1, 0.3))
	assert.Zero(t, r.Written(), "nothing is written before the batch fills")

	// WHEN closed
	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "second close is a no-op")

	// THEN every row is in the database
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM evaluations WHERE run_id = ?`, r.RunID()).Scan(&n))
	assert.Equal(t, 3, n)

	var size, block, assoc int64
	var source string
	require.NoError(t, db.QueryRow(`SELECT size, block, assoc, source FROM evaluations WHERE iteration = 2`).Scan(&size, &block, &assoc, &source))
	assert.Equal(t, []int64{4096, 64, 2}, []int64{size, block, assoc})
	assert.Equal(t, "acquisition", source)

	var mode string
	require.NoError(t, db.QueryRow(`SELECT mode FROM runs WHERE run_id = ?`, r.RunID()).Scan(&mode))
	assert.Equal(t, "quick", mode)
}

func TestSQLiteRecorder_BatchFlushAndSummaries(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "evals.db"), NewRunID(), "full")
	require.NoError(t, err)
	defer r.Close()
	r.batchSize = 4

	// concurrent writers, as with parallel workloads
	var wg sync.WaitGroup
	for _, w := range []string{"a", "b"} {
		wg.Add(1)
		go func(w string) {
			defer wg.Done()
			for i := 1; i <= 5; i++ {
				r.Record(evalRecord(w, i, 1/float64(i)))
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 8, r.Written(), "two full batches committed")

	require.NoError(t, r.Flush())
	summaries, err := r.Summaries()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, RunSummary{Workload: "a", Evaluations: 5, BestMissRate: 0.2}, summaries[0])
	assert.Equal(t, "b", summaries[1].Workload)
}

func TestSQLiteRecorder_SameDatabase_SeparateRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evals.db")
	first, err := Open(path, NewRunID(), "quick")
	require.NoError(t, err)
	first.Record(evalRecord("w", 1, 0.5))
	require.NoError(t, first.Close())

	second, err := Open(path, NewRunID(), "quick")
	require.NoError(t, err)
	defer second.Close()
	assert.NotEqual(t, first.RunID(), second.RunID())

	summaries, err := second.Summaries()
	require.NoError(t, err)
	assert.Empty(t, summaries)

	_, err = Open(path, second.RunID(), "quick")
	assert.Error(t, err, "run ids are unique")
}
