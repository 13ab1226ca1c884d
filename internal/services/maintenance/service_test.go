package maintenance

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestCleanupRemovesOnlyAgedFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "old.png", 20*24*time.Hour)
	fresh := writeAgedFile(t, dir, "fresh.png", 2*24*time.Hour)

	sub := filepath.Join(dir, "keepdir")
	require.NoError(t, os.Mkdir(sub, 0755))

	svc := NewService(&common.MaintenanceConfig{RetentionDays: 14}, []string{dir}, arbor.NewLogger())
	svc.runCleanup()

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err), "aged file should be removed")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "fresh file should survive")
	_, err = os.Stat(sub)
	assert.NoError(t, err, "subdirectories are not pruned")
}

func TestCleanupMissingDirIsNoop(t *testing.T) {
	svc := NewService(&common.MaintenanceConfig{RetentionDays: 14},
		[]string{filepath.Join(t.TempDir(), "missing")}, arbor.NewLogger())
	svc.runCleanup()
}

func TestStartDisabled(t *testing.T) {
	svc := NewService(&common.MaintenanceConfig{Enabled: false}, nil, arbor.NewLogger())
	require.NoError(t, svc.Start())
	svc.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := NewService(&common.MaintenanceConfig{Enabled: true, Schedule: "not a cron"},
		nil, arbor.NewLogger())
	assert.Error(t, svc.Start())
}
