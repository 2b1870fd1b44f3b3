package repository

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tms/internal/models"
	"tms/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, key string, data []byte) error {
	return m.Called(ctx, key, data).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func TestFailoverSnapshotStore(t *testing.T) {
	primary := new(mockStore)
	fallback := NewMemorySnapshotStore()
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSnapshotStore(primary, fallback, &logger)
	ctx := context.Background()

	orders := []byte(`[{"id":"ord-1"}]`)
	people := []byte(`[{"id":"p-01"}]`)

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Load", ctx, models.KeyOrders).Return(orders, nil).Once()

		got, err := repo.Load(ctx, models.KeyOrders)
		require.NoError(t, err)
		assert.Equal(t, orders, got)
		assert.True(t, repo.Healthy())
		primary.AssertExpectations(t)

		cached, _ := fallback.Load(ctx, models.KeyOrders)
		assert.Equal(t, orders, cached)
	})

	t.Run("SaveWritesThrough", func(t *testing.T) {
		primary.On("Save", ctx, models.KeyPeople, people).Return(nil).Once()

		require.NoError(t, repo.Save(ctx, models.KeyPeople, people))
		primary.AssertExpectations(t)

		got, _ := fallback.Load(ctx, models.KeyPeople)
		assert.Equal(t, people, got)
	})

	t.Run("PrimaryFailFallbackServesReads", func(t *testing.T) {
		primary.On("Load", ctx, models.KeyPeople).Return(nil, errors.New("fail")).Once()

		got, err := repo.Load(ctx, models.KeyPeople)
		require.NoError(t, err)
		assert.Equal(t, people, got)
		assert.False(t, repo.Healthy())
		primary.AssertExpectations(t)
	})

	t.Run("WritesWhileDownAreReplayed", func(t *testing.T) {
		updated := []byte(`[{"id":"p-02"}]`)
		require.NoError(t, repo.Save(ctx, models.KeyPeople, updated))
		require.NoError(t, repo.Delete(ctx, models.KeyUser))

		// Recovery probe is due.
		repo.mu.Lock()
		repo.lastCheck = time.Now().Add(-2 * time.Minute)
		repo.mu.Unlock()

		primary.On("Save", ctx, models.KeyPeople, updated).Return(nil).Once()
		primary.On("Delete", ctx, models.KeyUser).Return(nil).Once()
		primary.On("Load", ctx, "__ping__").Return(nil, nil).Once()
		primary.On("Load", ctx, models.KeyPeople).Return(updated, nil).Once()

		got, err := repo.Load(ctx, models.KeyPeople)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
		assert.True(t, repo.Healthy())
		assert.Empty(t, repo.dirty)
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		primary.On("Save", ctx, models.KeyOrders, orders).Return(errors.New("fail")).Once()
		require.NoError(t, repo.Save(ctx, models.KeyOrders, orders))
		assert.False(t, repo.Healthy())

		repo.mu.Lock()
		repo.lastCheck = time.Now().Add(-2 * time.Minute)
		repo.mu.Unlock()

		primary.On("Save", ctx, models.KeyOrders, orders).Return(errors.New("still fail")).Once()

		got, err := repo.Load(ctx, models.KeyOrders)
		require.NoError(t, err)
		assert.Equal(t, orders, got)
		assert.False(t, repo.Healthy())
		assert.True(t, repo.dirty[models.KeyOrders])
		primary.AssertExpectations(t)
	})

	t.Run("NoProbeBeforeInterval", func(t *testing.T) {
		// lastCheck was just refreshed, so the primary is not touched.
		got, err := repo.Load(ctx, models.KeyOrders)
		require.NoError(t, err)
		assert.Equal(t, orders, got)
		primary.AssertExpectations(t)
	})
}

// downableStore is a memory store that can be switched off.
type downableStore struct {
	*MemorySnapshotStore
	down atomic.Bool
}

var errStoreDown = errors.New("connection refused")

func (s *downableStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s.down.Load() {
		return nil, errStoreDown
	}
	return s.MemorySnapshotStore.Load(ctx, key)
}

func (s *downableStore) Save(ctx context.Context, key string, data []byte) error {
	if s.down.Load() {
		return errStoreDown
	}
	return s.MemorySnapshotStore.Save(ctx, key, data)
}

func (s *downableStore) Delete(ctx context.Context, key string) error {
	if s.down.Load() {
		return errStoreDown
	}
	return s.MemorySnapshotStore.Delete(ctx, key)
}

func TestFailoverSnapshotStore_UncachedKeyWhileDown(t *testing.T) {
	primary := &downableStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSnapshotStore(primary, NewMemorySnapshotStore(), &logger)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.KeyPeople, []byte(`[]`)))
	primary.down.Store(true)

	_, err := repo.Load(ctx, models.KeyOrders)
	require.ErrorIs(t, err, ErrPrimaryUnavailable)
	assert.False(t, repo.Healthy())

	got, err := repo.Load(ctx, models.KeyPeople)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
}

func TestFailoverSnapshotStore_LedgerBootWithPrimaryDown(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	primary := &downableStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	persisted := []byte(`[{"id":"eq-REAL","name":"Real camera","category":"camera","ownership":"channel","status":"available"}]`)
	require.NoError(t, primary.Save(ctx, models.KeyEquipment, persisted))
	require.NoError(t, primary.Save(ctx, models.KeyPeople, []byte(`[]`)))
	require.NoError(t, primary.Save(ctx, models.KeyOrders, []byte(`[]`)))
	primary.down.Store(true)

	repo := NewFailoverSnapshotStore(primary, NewMemorySnapshotStore(), &logger)
	_, err := service.NewLedgerService(ctx, repo, nil, service.LedgerOptions{}, &logger)
	require.ErrorIs(t, err, ErrPrimaryUnavailable)

	primary.down.Store(false)
	repo.mu.Lock()
	repo.lastCheck = time.Now().Add(-2 * time.Minute)
	repo.mu.Unlock()

	ledger, err := service.NewLedgerService(ctx, repo, nil, service.LedgerOptions{}, &logger)
	require.NoError(t, err)

	_, err = ledger.RegisterPerson(ctx, models.RegisterPersonRequest{FullName: "سالم"})
	require.NoError(t, err)

	items, err := ledger.Equipment(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "eq-REAL", items[0].ID)

	stored, err := primary.Load(ctx, models.KeyEquipment)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(stored), "eq-REAL"))
	assert.False(t, strings.Contains(string(stored), "eq-001"))
}
