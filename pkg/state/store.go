package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store owns the on-disk assignment map. Saving is atomic (temp file,
// rename, directory fsync) so a crash mid-write can never leave a
// half-written map for a later teardown to misread.
type Store struct {
	path   string
	logger *slog.Logger
}

func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: slog.Default(),
	}
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the persisted map with m.
func (s *Store) Save(m Map) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal assignment map: %w", err)
	}
	data = append(data, '\n')

	if err := WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write state file %s: %w", s.path, err)
	}

	return nil
}

// Load returns the persisted map. A missing file yields an empty map.
// An unreadable or corrupt file also yields an empty map, logged as a
// warning: it means teardown cannot target previously created
// interfaces precisely, but it must not block a fresh run.
func (s *Store) Load() (Map, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Map{}, nil
		}
		s.logger.Warn("state file unreadable, treating as no prior state",
			"path", s.path,
			"error", err)
		return Map{}, nil
	}

	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("state file corrupt, treating as no prior state",
			"path", s.path,
			"error", err)
		return Map{}, nil
	}
	if m == nil {
		m = Map{}
	}

	return m, nil
}

// Clear removes the state file. Removing an already-absent file is
// success, which makes repeated teardowns idempotent.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file %s: %w", s.path, err)
	}
	return nil
}

// WriteFileAtomic writes via a temp file and rename. Atomicity is only
// guaranteed when the temp file lands on the same filesystem, which
// holds because it is created next to the target.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dynadock-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// fsync dir so the rename is durable across power loss
	dfd, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer dfd.Close()
	return dfd.Sync()
}
