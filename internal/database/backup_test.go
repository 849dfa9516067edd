package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tripplanner/internal/config"
	"tripplanner/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	storagePath := filepath.Join(t.TempDir(), "backups")

	require.NoError(t, db.SaveSession(context.Background(), &models.User{ID: 5, Name: "Backup"}))

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(db, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.FileExists(t, path)

		restored, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer restored.Close()

		user, err := restored.LoadSession(context.Background(), 0)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "Backup", user.Name)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "backup_old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

		s.CleanupOldBackups()

		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.NotEqual(t, "backup_old.db", files[0].Name())
	})
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled backup service did not return")
	}
}
