package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for History Store:
// - Open creates the schema and the parent directory of a file database
// - Reopening an existing database keeps its scans
// - SaveScan then LoadScan round-trips occurrences, names and summary
// - SaveScan accepts a scan without occurrences
// - SaveScan stores results larger than one INSERT batch in order
// - ListScans orders newest first, filters by path and honours the limit
// - LoadScan and DeleteScan report ErrScanNotFound for unknown IDs
// - DeleteScan cascades to occurrences

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock returns successive timestamps one second apart.
func fixedClock() func() time.Time {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func sampleScan(path string) *concepts.ScanResult {
	src := "class K8sPipeline(BasePipeline):\n    pass\nAPI_TOKEN = 'x'\n"
	return concepts.New(nil).Scan([]byte(src), concepts.Options{Path: path})
}

func TestOpen_CreatesSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)

	version, err := GetSchemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	id, err := s.SaveScan(sampleScan("a.py"), "hash")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadScan(id)
	require.NoError(t, err)
	assert.Equal(t, "a.py", loaded.Path)
}

func TestSaveScan_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	result := sampleScan("pipelines/k8s.py")

	id, err := s.SaveScan(result, "abc123")
	require.NoError(t, err)
	assert.Len(t, id, 36)

	loaded, err := s.LoadScan(id)
	require.NoError(t, err)

	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, "abc123", loaded.ContentHash)
	assert.Equal(t, "1,2", loaded.Tiers)
	assert.Equal(t, len(result.Occurrences), loaded.Total)
	assert.Equal(t, result.Occurrences, loaded.Result.Occurrences)
	assert.Equal(t, result.Summary, loaded.Result.Summary)

	var inheritance *concepts.Occurrence
	for i := range loaded.Result.Occurrences {
		if loaded.Result.Occurrences[i].Category == concepts.CategoryInheritance {
			inheritance = &loaded.Result.Occurrences[i]
		}
	}
	require.NotNil(t, inheritance)
	assert.Equal(t, []string{"BasePipeline"}, inheritance.Names)
}

func TestSaveScan_Empty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	empty := concepts.New(nil).Scan(nil, concepts.Options{Path: "empty.py", Tiers: concepts.NewTierSet(concepts.Tier2)})

	id, err := s.SaveScan(empty, "e3b0")
	require.NoError(t, err)

	loaded, err := s.LoadScan(id)
	require.NoError(t, err)
	assert.Equal(t, "2", loaded.Tiers)
	assert.Equal(t, 0, loaded.Total)
	assert.Empty(t, loaded.Result.Occurrences)
}

func TestListScans(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.now = fixedClock()

	for _, p := range []string{"ops/a.py", "ops/b.py", "lib/c.py"} {
		_, err := s.SaveScan(sampleScan(p), "h-"+p)
		require.NoError(t, err)
	}

	all, err := s.ListScans("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "lib/c.py", all[0].Path)
	assert.Equal(t, "ops/a.py", all[2].Path)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	ops, err := s.ListScans("ops/", 0)
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	limited, err := s.ListScans("", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "lib/c.py", limited[0].Path)
}

func TestLoadAndDelete_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.LoadScan("nope")
	assert.True(t, errors.Is(err, ErrScanNotFound))

	err = s.DeleteScan("nope")
	assert.True(t, errors.Is(err, ErrScanNotFound))
}

func TestDeleteScan_Cascades(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	id, err := s.SaveScan(sampleScan("a.py"), "h")
	require.NoError(t, err)

	require.NoError(t, s.DeleteScan(id))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM occurrences WHERE scan_id = ?", id).Scan(&count))
	assert.Zero(t, count)
}

func TestSaveScan_LargeResult(t *testing.T) {
	t.Parallel()

	const count = 3500
	occurrences := make([]concepts.Occurrence, 0, count)
	for i := range count {
		occurrences = append(occurrences, concepts.Occurrence{
			RuleID:     "T1-SECRET",
			Tier:       concepts.Tier1,
			Category:   concepts.CategorySecret,
			Label:      "Hardcoded secret",
			Line:       i + 1,
			Identifier: fmt.Sprintf("TOKEN_%d", i),
			Names:      []string{"x"},
			Snippet:    fmt.Sprintf("TOKEN_%d = \"v\"", i),
		})
	}
	result := concepts.BuildResult("big.py", occurrences, nil,
		[]concepts.Category{concepts.CategorySecret}, concepts.NewTierSet(concepts.Tier1))

	s := newTestStore(t)
	id, err := s.SaveScan(result, "hash")
	require.NoError(t, err)

	loaded, err := s.LoadScan(id)
	require.NoError(t, err)
	assert.Equal(t, count, loaded.Total)
	require.Len(t, loaded.Result.Occurrences, count)
	for _, i := range []int{0, occurrenceBatchSize - 1, occurrenceBatchSize, count - 1} {
		assert.Equal(t, fmt.Sprintf("TOKEN_%d", i), loaded.Result.Occurrences[i].Identifier)
		assert.Equal(t, i+1, loaded.Result.Occurrences[i].Line)
	}
}
