package concepts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for CallTable:
// - The built-in table parses and covers every call-driven category
// - Dotted patterns match exactly and on a dot boundary suffix only
// - Single-segment patterns match only the bare chain
// - Instance markers in chains are matched literally
// - Add rejects empty, dangling-dot and unknown-category patterns
// - ParseCallTable rejects malformed YAML and unknown categories
// - Patterns() is ordered by category, then suffix

func TestDefaultCallTable_CoversCallCategories(t *testing.T) {
	t.Parallel()

	table := DefaultCallTable()
	require.Greater(t, table.Len(), 50)

	covered := map[Category]bool{}
	for _, p := range table.Patterns() {
		covered[p.Category] = true
	}
	for _, c := range []Category{
		CategoryEnvAccess, CategoryHTTPCall, CategoryYAMLUsage, CategoryJSONUsage,
		CategoryCloudSDK, CategoryCLIParsing, CategoryFileOp, CategoryLogging,
		CategorySubprocess, CategoryAPIClient,
	} {
		assert.True(t, covered[c], "category %s has no patterns", c)
	}
}

func TestCallTable_Lookup(t *testing.T) {
	t.Parallel()

	table := DefaultCallTable()

	tests := []struct {
		chain string
		want  Category
		found bool
	}{
		{"requests.get", CategoryHTTPCall, true},
		{"vendor.requests.get", CategoryHTTPCall, true},
		{"myrequests.get", "", false},
		{"get", "", false},
		{"open", CategoryFileOp, true},
		{"self.open", "", false},
		{"google.cloud.storage.Client", CategoryCloudSDK, true},
		{"argparse.ArgumentParser().add_argument", CategoryCLIParsing, true},
		{"argparse.ArgumentParser.add_argument", "", false},
		{"logging.getLogger().info", CategoryLogging, true},
		{"subprocess.Popen", CategorySubprocess, true},
		{"github.Github", CategoryAPIClient, true},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.chain, func(t *testing.T) {
			t.Parallel()
			got, ok := table.Lookup(tt.chain)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallTable_Add(t *testing.T) {
	t.Parallel()

	table := NewCallTable()
	require.NoError(t, table.Add("internal.vault.read", CategorySecret))
	assert.True(t, table.Has("acme.internal.vault.read", CategorySecret))
	assert.False(t, table.Has("acme.internal.vault.read", CategoryEnvAccess))

	for _, bad := range []string{"", " ", ".read", "vault.", "a..b", "a b"} {
		err := table.Add(bad, CategoryFileOp)
		assert.True(t, errors.Is(err, ErrInvalidCallPattern), "pattern %q", bad)
	}

	err := table.Add("x.y", Category("Telemetry"))
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestParseCallTable(t *testing.T) {
	t.Parallel()

	table, err := ParseCallTable([]byte(`
entries:
  - category: httpcall
    calls: [fetch.get, fetch.post]
`))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.True(t, table.Has("fetch.post", CategoryHTTPCall))

	_, err = ParseCallTable([]byte("entries: [oops"))
	assert.Error(t, err)

	_, err = ParseCallTable([]byte("entries:\n  - category: Nope\n    calls: [a.b]\n"))
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestCallTable_PatternsOrdered(t *testing.T) {
	t.Parallel()

	table := NewCallTable()
	require.NoError(t, table.AddAll([]CallPattern{
		{Suffix: "z.log", Category: CategoryLogging},
		{Suffix: "b.env", Category: CategoryEnvAccess},
		{Suffix: "a.env", Category: CategoryEnvAccess},
	}))

	assert.Equal(t, []CallPattern{
		{Suffix: "a.env", Category: CategoryEnvAccess},
		{Suffix: "b.env", Category: CategoryEnvAccess},
		{Suffix: "z.log", Category: CategoryLogging},
	}, table.Patterns())
}
