package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tms/internal/models"
	"tms/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Load(context.Context, string) ([]byte, error) { return nil, errors.New("offline") }
func (brokenStore) Save(context.Context, string, []byte) error  { return errors.New("offline") }
func (brokenStore) Delete(context.Context, string) error        { return errors.New("offline") }

func newAuth(store *repository.MemorySnapshotStore) *AuthService {
	logger := zerolog.Nop()
	return NewAuthService(NewStaticCredentials(DefaultUsers(), "123456"), store, &logger)
}

func TestStaticCredentials(t *testing.T) {
	creds := NewStaticCredentials(DefaultUsers(), "123456")

	u, err := creds.Verify("  AZIZ ", "123456")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)
	assert.Equal(t, models.RoleHeadArchivist, u.Role)

	_, err = creds.Verify("aziz", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = creds.Verify("ghost", "123456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = creds.Verify("aziz", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySnapshotStore()
	auth := newAuth(store)

	u, err := auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = auth.Login(ctx, "majdi", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	u, _ = auth.CurrentUser(ctx)
	assert.Nil(t, u)

	u, err = auth.Login(ctx, "majdi", "123456")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDirector, u.Role)

	current, err := auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, current)

	data, err := store.Load(ctx, models.KeyUser)
	require.NoError(t, err)
	var stored models.User
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "majdi", stored.Username)

	require.NoError(t, auth.Logout(ctx))
	current, err = auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	data, _ = store.Load(ctx, models.KeyUser)
	assert.Nil(t, data)

	// Logging out twice is harmless.
	assert.NoError(t, auth.Logout(ctx))
}

func TestAuthService_RestoresSession(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySnapshotStore()

	_, err := newAuth(store).Login(ctx, "hossam", "123456")
	require.NoError(t, err)

	restarted := newAuth(store)
	u, err := restarted.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u4", u.ID)
}

func TestAuthService_CorruptSession(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySnapshotStore()
	require.NoError(t, store.Save(ctx, models.KeyUser, []byte("garbage")))

	_, err := newAuth(store).CurrentUser(ctx)
	assert.Error(t, err)
}

func TestAuthService_StoreFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	auth := NewAuthService(NewStaticCredentials(DefaultUsers(), "123456"), brokenStore{}, &logger)

	u, err := auth.Login(ctx, "berish", "123456")
	require.NoError(t, err)

	current, err := auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, current)

	assert.NoError(t, auth.Logout(ctx))
	current, err = auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}
