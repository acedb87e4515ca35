// Package history stores pre-mutation backup snapshots for the docs
// bridge. Each snapshot is a timestamp-keyed directory mirroring the
// project-relative paths of the files it covers; snapshots are written
// once and never modified afterwards.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/imagray/agentcontrol/internal/util"
)

const (
	// DirPerm is the permission for snapshot directories (rwxr-x---)
	DirPerm = 0o750
	// FilePerm is the permission for snapshot files (rw-r-----)
	FilePerm = 0o640
)

// ErrSnapshotNotFound is returned when a timestamp has no snapshot.
var ErrSnapshotNotFound = errors.New("backup snapshot not found")

// timestampLayout yields UTC keys with nanosecond precision, fine
// enough that two snapshots in quick succession never collide.
const timestampLayout = "20060102T150405.000000000Z"

// Store manages the backup snapshot root of one project.
type Store struct {
	projectRoot string
	root        string
}

// NewStore returns a snapshot store rooted under the project's docs
// state directory.
func NewStore(projectRoot string) *Store {
	return &Store{
		projectRoot: projectRoot,
		root:        util.HistoryDir(projectRoot),
	}
}

// NewSnapshot allocates a fresh snapshot keyed by the current UTC
// time. The directory is created eagerly so a Repair pass has a
// destination before its first mutation.
func (s *Store) NewSnapshot() (*Snapshot, error) {
	for {
		timestamp := time.Now().UTC().Format(timestampLayout)
		dir := filepath.Join(s.root, timestamp)
		if _, err := os.Stat(dir); err == nil {
			// Same-nanosecond collision; take the next stamp.
			continue
		}
		if err := os.MkdirAll(dir, DirPerm); err != nil {
			return nil, fmt.Errorf("failed to create backup directory %q: %w", dir, err)
		}
		return &Snapshot{Timestamp: timestamp, dir: dir, projectRoot: s.projectRoot}, nil
	}
}

// Open returns the snapshot stored under timestamp, or
// ErrSnapshotNotFound when it does not exist.
func (s *Store) Open(timestamp string) (*Snapshot, error) {
	dir := filepath.Join(s.root, timestamp)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("timestamp %q under %s: %w", timestamp, s.root, ErrSnapshotNotFound)
	}
	return &Snapshot{Timestamp: timestamp, dir: dir, projectRoot: s.projectRoot}, nil
}

// List returns all snapshot timestamps, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups under %q: %w", s.root, err)
	}
	var timestamps []string
	for _, entry := range entries {
		if entry.IsDir() {
			timestamps = append(timestamps, entry.Name())
		}
	}
	sort.Strings(timestamps)
	return timestamps, nil
}

// Snapshot is one timestamp-keyed backup directory.
type Snapshot struct {
	Timestamp   string
	dir         string
	projectRoot string
}

// Dir returns the snapshot directory path.
func (s *Snapshot) Dir() string {
	return s.dir
}

// BackupFile copies the current bytes of target into the snapshot,
// mirrored at its project-relative path. Missing targets are skipped:
// there is nothing to preserve for a file that does not exist yet.
func (s *Snapshot) BackupFile(target string) error {
	content, err := os.ReadFile(target) // #nosec G304 - target comes from validated config
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %q for backup: %w", target, err)
	}
	dest := s.PathFor(target)
	if err := os.MkdirAll(filepath.Dir(dest), DirPerm); err != nil {
		return fmt.Errorf("failed to create backup directory for %q: %w", target, err)
	}
	if err := os.WriteFile(dest, content, FilePerm); err != nil {
		return fmt.Errorf("failed to write backup of %q: %w", target, err)
	}
	return nil
}

// PathFor returns where target's backup lives inside the snapshot.
func (s *Snapshot) PathFor(target string) string {
	rel := util.RelToProject(s.projectRoot, target)
	return filepath.Join(s.dir, filepath.FromSlash(rel))
}

// Files returns the project-relative paths of every file captured in
// the snapshot, sorted.
func (s *Snapshot) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk snapshot %q: %w", s.dir, err)
	}
	sort.Strings(files)
	return files, nil
}
