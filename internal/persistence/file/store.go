package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sawpanic/baccarun/internal/session"
)

const ext = ".json"

// Store keeps one JSON snapshot per session in a directory
type Store struct {
	dir string
}

// NewStore creates dir if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes through a temp file and rename so readers never see a partial snapshot
func (s *Store) Save(ctx context.Context, snap session.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(snap.SessionID)
	if err != nil {
		return err
	}
	data, err := session.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.SessionID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snap-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", snap.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", snap.SessionID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", snap.SessionID, err)
	}
	return nil
}

// Load reads and validates a snapshot
func (s *Store) Load(ctx context.Context, id string) (session.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return session.Snapshot{}, err
	}
	path, err := s.path(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return session.Snapshot{}, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	return session.UnmarshalSnapshot(data)
}

// Delete removes a snapshot; a missing one is not an error
func (s *Store) Delete(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// List returns the stored session ids, sorted
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.dir, id+ext), nil
}
