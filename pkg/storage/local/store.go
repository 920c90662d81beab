package local

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound reports a missing file under the store root.
	ErrNotFound = errors.New("file not found")
	// ErrPathEscapes reports a relative path that resolves outside the root.
	ErrPathEscapes = errors.New("path escapes storage root")
)

// File is an open media file positioned at offset zero.
type File struct {
	io.ReadSeekCloser
	Size int64
	Name string
}

// Store serves files from a single directory tree. Paths handed to it are
// relative and are never allowed to resolve outside the root.
type Store struct {
	root string
}

// NewStore validates that root exists and is a directory.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", abs)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Open returns the file at the given relative path along with its size.
// Callers own the returned file and must close it.
func (s *Store) Open(relPath string) (*File, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", relPath, ErrNotFound)
		}
		return nil, fmt.Errorf("opening %s: %w", relPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", relPath, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", relPath, ErrNotFound)
	}

	return &File{
		ReadSeekCloser: f,
		Size:           info.Size(),
		Name:           filepath.Base(full),
	}, nil
}

// Exists reports whether a regular file is present at the relative path.
func (s *Store) Exists(relPath string) bool {
	full, err := s.resolve(relPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

func (s *Store) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(strings.TrimPrefix(relPath, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", relPath, ErrPathEscapes)
	}
	full := filepath.Join(s.root, cleaned)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", relPath, ErrPathEscapes)
	}
	return full, nil
}
