package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/conorfennell/molcards/internal/domain"
	"github.com/conorfennell/molcards/internal/tabular"
)

// CSVFile is a record store kept in a single CSV file. The whole set is held
// in memory and the file is rewritten on every append.
type CSVFile struct {
	path string

	mu        sync.RWMutex
	molecules []domain.Molecule
	nextID    int64
	loadErr   error
}

// OpenCSV loads the store at path. A missing file is an empty store; an
// unreadable or malformed one is logged and also treated as empty, and is
// renamed to <path>.corrupt on the first append.
func OpenCSV(path string) *CSVFile {
	s := &CSVFile{path: path, nextID: 1}

	molecules, err := loadCSV(path)
	if err != nil {
		slog.Warn("Could not load molecule file, starting empty", "path", path, "error", err)
		s.loadErr = err
		return s
	}
	for _, m := range molecules {
		m.ID = s.nextID
		s.nextID++
		s.molecules = append(s.molecules, m)
	}
	slog.Debug("Molecule file loaded", "path", path, "molecules", len(s.molecules))
	return s
}

func loadCSV(path string) ([]domain.Molecule, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return tabular.ReadCSV(bytes.NewReader(data))
}

// LoadErr reports why the file could not be loaded at open time, if it could not.
func (s *CSVFile) LoadErr() error {
	return s.loadErr
}

// Close is a no-op; every append is already on disk.
func (s *CSVFile) Close() error {
	return nil
}

// Append adds molecules and rewrites the file. On a write failure the
// in-memory set is left as it was.
func (s *CSVFile) Append(_ context.Context, molecules ...domain.Molecule) error {
	if len(molecules) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Molecule, len(s.molecules), len(s.molecules)+len(molecules))
	copy(next, s.molecules)
	id := s.nextID
	for _, m := range molecules {
		m.ID = id
		id++
		next = append(next, m)
	}

	if s.loadErr != nil {
		if err := s.setAsideCorrupt(); err != nil {
			return err
		}
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.molecules = next
	s.nextID = id
	s.loadErr = nil
	return nil
}

// setAsideCorrupt moves the file that failed to load to <path>.corrupt so the
// rewrite never destroys it.
func (s *CSVFile) setAsideCorrupt() error {
	backup := s.path + ".corrupt"
	err := os.Rename(s.path, backup)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set aside unreadable %s: %w", s.path, err)
	}
	slog.Warn("Unreadable molecule file kept aside", "path", s.path, "backup", backup)
	return nil
}

// write replaces the file atomically through a temporary sibling.
func (s *CSVFile) write(molecules []domain.Molecule) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tabular.WriteCSV(tmp, molecules); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// List returns a copy of every molecule.
func (s *CSVFile) List(_ context.Context) ([]domain.Molecule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Molecule, len(s.molecules))
	copy(out, s.molecules)
	return out, nil
}

// Random returns one molecule chosen uniformly, or nil when the store is empty.
func (s *CSVFile) Random(_ context.Context) (*domain.Molecule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.molecules) == 0 {
		return nil, nil
	}
	m := s.molecules[rand.IntN(len(s.molecules))]
	return &m, nil
}
