package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tmpPrefix = ".tmp-"

// ErrInvalidName is returned for file names that are empty or would
// escape the storage directory.
var ErrInvalidName = errors.New("invalid file name")

// LocalStorage keeps files flat in a single directory.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	return &LocalStorage{basePath: absPath, now: time.Now}, nil
}

// Dir returns the absolute storage directory.
func (s *LocalStorage) Dir() string { return s.basePath }

// fullPath resolves name inside the storage directory. Only plain file
// names are accepted.
func (s *LocalStorage) fullPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		strings.HasPrefix(name, tmpPrefix) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.basePath, name), nil
}

// Write stores the content of r under name. The file appears atomically.
func (s *LocalStorage) Write(_ context.Context, name string, r io.Reader) error {
	path, err := s.fullPath(name)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.basePath, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write content: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Open returns the stored file. Missing files yield an error wrapping
// os.ErrNotExist.
func (s *LocalStorage) Open(_ context.Context, name string) (*os.File, error) {
	path, err := s.fullPath(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes name. Deleting a missing file is not an error.
func (s *LocalStorage) Delete(_ context.Context, name string) error {
	path, err := s.fullPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes every regular file whose modification time is
// more than age in the past, including abandoned temp files. It keeps
// going past individual failures and returns the first one.
func (s *LocalStorage) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read upload dir: %w", err)
	}

	cutoff := s.now().Add(-age)
	deleted := 0
	var firstErr error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete %s: %w", e.Name(), err)
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}
