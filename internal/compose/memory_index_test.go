package compose

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bagOfWordsEmbedding keeps index tests offline: each dimension counts a
// fixed vocabulary word.
func bagOfWordsEmbedding(ctx context.Context, text string) ([]float32, error) {
	vocab := []string{"budget", "vendor", "travel", "equipment", "meeting", "deadline"}
	lower := strings.ToLower(text)

	vec := make([]float32, len(vocab))
	for i, word := range vocab {
		vec[i] = float32(strings.Count(lower, word))
	}
	// chromem requires normalized, non-zero vectors
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		norm = 1
	}
	inv := 1 / sqrt32(norm)
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func sqrt32(f float32) float32 {
	x := f
	for i := 0; i < 20; i++ {
		x = (x + f/x) / 2
	}
	return x
}

func TestMemoryIndexPicksRelevantSection(t *testing.T) {
	ix, err := NewMemoryIndex(t.TempDir(), bagOfWordsEmbedding)
	require.NoError(t, err)

	memory := "The quarterly budget review is scheduled.\n\n" +
		"We bought new equipment from the vendor last month.\n\n" +
		"Travel plans for the conference are pending."

	ctx := context.Background()
	require.NoError(t, ix.Rebuild(ctx, memory))

	excerpt, ok := ix.Relevant(ctx, "question about equipment vendor", 1000)
	require.True(t, ok)
	assert.Contains(t, excerpt, "equipment from the vendor")
}

func TestMemoryIndexRespectsCap(t *testing.T) {
	ix, err := NewMemoryIndex(t.TempDir(), bagOfWordsEmbedding)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ix.Rebuild(ctx, "budget budget budget details go here.\n\nvendor notes."))

	excerpt, ok := ix.Relevant(ctx, "budget", 10)
	require.True(t, ok)
	assert.LessOrEqual(t, len(excerpt), 10)
}

func TestMemoryIndexEmptyFallsBack(t *testing.T) {
	ix, err := NewMemoryIndex(t.TempDir(), bagOfWordsEmbedding)
	require.NoError(t, err)

	_, ok := ix.Relevant(context.Background(), "anything", 100)
	assert.False(t, ok, "empty index must signal fallback")
}

func TestSplitSections(t *testing.T) {
	sections := splitSections("one\n\n\n\ntwo\n\n  \n\nthree")
	assert.Equal(t, []string{"one", "two", "three"}, sections)
	assert.Empty(t, splitSections("   \n\n  "))
}
