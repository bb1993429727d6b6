package profile

import (
	"context"
	"testing"

	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, models.Profile{ID: "p1", Name: "Alice", Balance: 900}))
	require.NoError(t, s.Save(ctx, models.Profile{ID: "p1", Name: "Alice", Balance: 1200}))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(1200), all["p1"].Balance)

	all["p1"] = models.Profile{}
	got, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name, "LoadAll must return a copy")

	require.NoError(t, s.Delete(ctx, "p1"))
	assert.ErrorIs(t, s.Delete(ctx, "p1"), ErrNotFound)
}
