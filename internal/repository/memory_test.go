package repository

import (
	"context"
	"testing"

	"tms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySnapshotStore(t *testing.T) {
	repo := NewMemorySnapshotStore()
	ctx := context.Background()

	t.Run("SaveAndLoad", func(t *testing.T) {
		err := repo.Save(ctx, models.KeyOrders, []byte(`[{"id":"ord-1"}]`))
		require.NoError(t, err)

		got, err := repo.Load(ctx, models.KeyOrders)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"ord-1"}]`, string(got))
	})

	t.Run("LoadedBytesAreCopies", func(t *testing.T) {
		got, _ := repo.Load(ctx, models.KeyOrders)
		got[0] = 'X'

		again, _ := repo.Load(ctx, models.KeyOrders)
		assert.Equal(t, byte('['), again[0])
	})

	t.Run("MissingKey", func(t *testing.T) {
		got, err := repo.Load(ctx, models.KeyPeople)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, models.KeyOrders))
		got, _ := repo.Load(ctx, models.KeyOrders)
		assert.Nil(t, got)
		assert.Empty(t, repo.Keys())
	})
}
