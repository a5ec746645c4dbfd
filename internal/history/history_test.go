package history

// ============================================================================
// History Store Test File
// Purpose: Verify append/list round-trips, retention pruning, and
// recovery from corrupt files.
// ============================================================================

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luyichen/readpulse/pkg/types"
)

func sampleStats(successes int) types.RunStats {
	return types.RunStats{
		Attempts:       40,
		Successes:      successes,
		ReadingMinutes: float64(successes) * 0.5,
		SuccessRate:    float64(successes) / 40 * 100,
		StartedAt:      time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC),
		FinishedAt:     time.Date(2026, 8, 1, 8, 21, 0, 0, time.UTC),
	}
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.json"), 10)
	records, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreAppendAndList(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "history.json"), 10)

	require.NoError(t, s.Append(sampleStats(40)))
	require.NoError(t, s.Append(sampleStats(38)))

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 40, records[0].Successes)
	assert.Equal(t, 38, records[1].Successes)
	assert.Equal(t, 19.0, records[1].ReadingMinutes)
}

func TestStoreRetention(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.json"), 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(sampleStats(i)))
	}

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Oldest records were pruned.
	assert.Equal(t, 2, records[0].Successes)
	assert.Equal(t, 4, records[2].Successes)
}

func TestStoreRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path, 10)
	_, err := s.List()
	assert.Error(t, err)

	// Append starts fresh instead of failing forever.
	require.NoError(t, s.Append(sampleStats(12)))
	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 12, records[0].Successes)
}
