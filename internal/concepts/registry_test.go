package concepts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Registry:
// - Rule IDs are unique and every rule has a matcher
// - Categories shared by both tiers are registered once per tier
// - ForTiers keeps registration order and filters by tier
// - Categories(tiers) lists categories in report order
// - Extra call patterns extend the table without touching built-ins
// - Invalid extra call patterns are rejected
// - ParseTiers accepts 1, 2 and both, and rejects anything else

func TestRegistry_RulesAreWellFormed(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry()
	seen := map[string]bool{}
	for _, rule := range r.Rules() {
		assert.False(t, seen[rule.ID], "duplicate rule %s", rule.ID)
		seen[rule.ID] = true
		assert.NotNil(t, rule.Matcher, rule.ID)
		assert.NotEmpty(t, rule.Label, rule.ID)

		got, ok := r.Rule(rule.ID)
		require.True(t, ok)
		assert.Equal(t, rule.Category, got.Category)
	}

	_, ok := r.Rule("T9-NOPE")
	assert.False(t, ok)
}

func TestRegistry_DualTierCategories(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry()
	tiers := map[Category][]Tier{}
	for _, rule := range r.Rules() {
		tiers[rule.Category] = append(tiers[rule.Category], rule.Tier)
	}

	for _, c := range []Category{CategoryEnvAccess, CategoryHTTPCall, CategoryYAMLUsage, CategoryFileOp, CategorySpecialComment} {
		assert.Equal(t, []Tier{Tier1, Tier2}, tiers[c], "category %s", c)
	}
	assert.Equal(t, []Tier{Tier1}, tiers[CategorySecret])
	assert.Equal(t, []Tier{Tier2}, tiers[CategoryDecorator])

	for _, c := range Categories {
		assert.NotEmpty(t, tiers[c], "category %s has no rule", c)
	}
}

func TestRegistry_ForTiers(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry()

	all := r.ForTiers(AllTiers)
	assert.Len(t, all, len(r.Rules()))

	for _, rule := range r.ForTiers(NewTierSet(Tier2)) {
		assert.Equal(t, Tier2, rule.Tier)
	}

	cats := r.Categories(NewTierSet(Tier1))
	assert.Equal(t, CategorySecret, cats[0])
	assert.NotContains(t, cats, CategoryLogging)
	assert.Len(t, r.Categories(AllTiers), len(Categories))
}

func TestNewRegistryWithCalls(t *testing.T) {
	t.Parallel()

	r, err := NewRegistryWithCalls([]CallPattern{{Suffix: "sh.Command", Category: CategorySubprocess}})
	require.NoError(t, err)

	result := New(r).Scan([]byte("import sh\nsh.Command('ls')\n"), Options{})
	occ := byCategory(result, CategorySubprocess)
	require.Len(t, occ, 1)
	assert.Equal(t, "sh.Command", occ[0].Identifier)

	assert.False(t, DefaultCallTable().Has("sh.Command", CategorySubprocess))

	_, err = NewRegistryWithCalls([]CallPattern{{Suffix: "..", Category: CategoryFileOp}})
	assert.True(t, errors.Is(err, ErrInvalidCallPattern))
}

func TestParseTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    []Tier
		wantErr bool
	}{
		{"", []Tier{Tier1, Tier2}, false},
		{"1", []Tier{Tier1}, false},
		{"2", []Tier{Tier2}, false},
		{"1,2", []Tier{Tier1, Tier2}, false},
		{" 2 , 1 ", []Tier{Tier1, Tier2}, false},
		{"3", nil, true},
		{"1,x", nil, true},
		{"0", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTiers(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidTier))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Tiers())
		})
	}

	assert.Equal(t, "1,2", AllTiers.String())
	assert.Equal(t, "2", NewTierSet(Tier2).String())
}
