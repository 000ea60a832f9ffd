package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/mvp-joe/concept-lens/internal/report"
	"github.com/mvp-joe/concept-lens/internal/storage"
)

// Test Plan for rules, history and logging helpers:
// - writeRules prints a header and one row per rule in text mode
// - writeRules emits a JSON array that round-trips to ConceptRule values
// - writeCallPatterns lists the call table grouped by category
// - writeHistory prints a placeholder when empty and rows otherwise
// - InitLogger maps level names onto slog levels

func TestWriteRules_Text(t *testing.T) {
	t.Parallel()

	rules := concepts.NewDefaultRegistry().ForTiers(concepts.NewTierSet(concepts.Tier1))

	var out bytes.Buffer
	require.NoError(t, writeRules(&out, rules, report.FormatText))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	assert.Len(t, lines, len(rules)+1)
	assert.Contains(t, string(lines[0]), "CATEGORY")
	assert.Contains(t, out.String(), "T1-SECRET")
	assert.NotContains(t, out.String(), "T2-")
}

func TestWriteRules_JSON(t *testing.T) {
	t.Parallel()

	rules := concepts.NewDefaultRegistry().Rules()

	var out bytes.Buffer
	require.NoError(t, writeRules(&out, rules, report.FormatJSON))

	var decoded []concepts.ConceptRule
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, len(rules))
	assert.Equal(t, rules[0].ID, decoded[0].ID)
	assert.Equal(t, rules[0].Category, decoded[0].Category)
}

func TestWriteCallPatterns(t *testing.T) {
	t.Parallel()

	table := concepts.DefaultCallTable()

	var out bytes.Buffer
	require.NoError(t, writeCallPatterns(&out, table.Patterns(), report.FormatText))
	assert.Contains(t, out.String(), "subprocess.run")
	assert.Contains(t, out.String(), "requests.get")
}

func TestWriteHistory(t *testing.T) {
	t.Parallel()

	var empty bytes.Buffer
	require.NoError(t, writeHistory(&empty, nil))
	assert.Equal(t, "No recorded scans\n", empty.String())

	var out bytes.Buffer
	records := []storage.ScanRecord{
		{ID: "scan-1", Path: "ops/deploy.py", Tiers: "1,2", Total: 4, CreatedAt: time.Now()},
		{ID: "scan-2", Path: "", Tiers: "1", Total: 0, Malformed: 1, CreatedAt: time.Now()},
	}
	require.NoError(t, writeHistory(&out, records))
	assert.Contains(t, out.String(), "scan-1")
	assert.Contains(t, out.String(), "ops/deploy.py")
	assert.Contains(t, out.String(), "<stdin>")
}

func TestInitLogger(t *testing.T) {
	// Not parallel: replaces the default logger.
	defer slog.SetDefault(slog.Default())

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelWarn},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := InitLogger(&buf, tt.level)
		assert.True(t, logger.Enabled(context.Background(), tt.want), tt.level)
		if tt.want > slog.LevelDebug {
			assert.False(t, logger.Enabled(context.Background(), tt.want-1), tt.level)
		}
	}
}
