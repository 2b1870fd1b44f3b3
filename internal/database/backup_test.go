package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tms/internal/config"
	"tms/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Save(ctx, models.KeyEquipment, []byte(`[{"id":"eq-001"}]`)))

	storagePath := filepath.Join(t.TempDir(), "backups")
	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(db, cfg, &logger)

	var backupPath string

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		backupPath = path

		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("BackupIsReadable", func(t *testing.T) {
		copyDB, err := NewDB(backupPath, &logger)
		require.NoError(t, err)
		defer copyDB.Close()

		got, err := copyDB.Load(ctx, models.KeyEquipment)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"eq-001"}]`, string(got))
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "tms_old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		foreign := filepath.Join(storagePath, "keep_me.txt")
		require.NoError(t, os.WriteFile(foreign, []byte("x"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(foreign, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())

		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, foreign)
		assert.FileExists(t, backupPath)
	})
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
