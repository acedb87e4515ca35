package history

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/imagray/agentcontrol/internal/util"
)

func TestSnapshotBackupAndRestoreCycle(t *testing.T) {
	project := util.CreateTempDir(t)
	target := filepath.Join(project, "docs", "adr", "0001.md")
	util.WriteFile(t, target, "original bytes\n")

	store := NewStore(project)
	snapshot, err := store.NewSnapshot()
	util.AssertNoError(t, err)
	util.AssertNoError(t, snapshot.BackupFile(target))

	backup := snapshot.PathFor(target)
	util.AssertEqual(t, util.ReadFile(t, backup), "original bytes\n")
	util.AssertEqual(t, backup, filepath.Join(snapshot.Dir(), "docs", "adr", "0001.md"))

	files, err := snapshot.Files()
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(files), 1)
	util.AssertEqual(t, files[0], "docs/adr/0001.md")
}

func TestBackupSkipsMissingTarget(t *testing.T) {
	project := util.CreateTempDir(t)
	store := NewStore(project)
	snapshot, err := store.NewSnapshot()
	util.AssertNoError(t, err)

	util.AssertNoError(t, snapshot.BackupFile(filepath.Join(project, "docs", "absent.md")))
	files, err := snapshot.Files()
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(files), 0)
}

func TestOpenUnknownTimestamp(t *testing.T) {
	store := NewStore(util.CreateTempDir(t))
	_, err := store.Open("20240101T000000.000000000Z")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestListReturnsSortedTimestamps(t *testing.T) {
	project := util.CreateTempDir(t)
	store := NewStore(project)

	first, err := store.NewSnapshot()
	util.AssertNoError(t, err)
	second, err := store.NewSnapshot()
	util.AssertNoError(t, err)
	if first.Timestamp == second.Timestamp {
		t.Fatal("snapshots must not share a timestamp")
	}

	timestamps, err := store.List()
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(timestamps), 2)
	util.AssertEqual(t, timestamps[0], first.Timestamp)
	util.AssertEqual(t, timestamps[1], second.Timestamp)

	reopened, err := store.Open(first.Timestamp)
	util.AssertNoError(t, err)
	util.AssertEqual(t, reopened.Dir(), first.Dir())
}

func TestListEmptyStore(t *testing.T) {
	store := NewStore(util.CreateTempDir(t))
	timestamps, err := store.List()
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(timestamps), 0)
}
