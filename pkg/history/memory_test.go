package history_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/glance/internal/models"
	"github.com/xhad/glance/pkg/history"
)

func TestMemoryInsertionOrder(t *testing.T) {
	m := history.NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := m.Add(ctx, models.Entry{
			URL: fmt.Sprintf("https://example.com/doc-%d.pdf", i),
		})
		require.NoError(t, err)
	}

	entries, err := m.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first
	assert.Equal(t, "https://example.com/doc-2.pdf", entries[0].URL)
	assert.Equal(t, "https://example.com/doc-0.pdf", entries[2].URL)

	// IDs and timestamps are filled in
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestMemoryNoDeduplication(t *testing.T) {
	m := history.NewMemory()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, m.Add(ctx, models.Entry{URL: "https://example.com/same.pdf"}))
	}

	entries, err := m.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemoryListLimit(t *testing.T) {
	m := history.NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Add(ctx, models.Entry{URL: fmt.Sprintf("u%d", i)}))
	}

	entries, err := m.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "u4", entries[0].URL)
	assert.Equal(t, "u3", entries[1].URL)
}

func TestMemoryConcurrentAdd(t *testing.T) {
	m := history.NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Add(ctx, models.Entry{URL: fmt.Sprintf("u%d", i)})
		}(i)
	}
	wg.Wait()

	entries, err := m.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}
