// Package upload stores visitor-uploaded files for the document tools.
// Files are keyed by generated id; the original name survives only as the
// extension, so path traversal through filenames is impossible.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates no stored file matches the id.
	ErrNotFound = errors.New("uploaded file not found")

	// ErrDisallowedExtension indicates the file type is not accepted.
	ErrDisallowedExtension = errors.New("file extension not allowed")

	// ErrTooLarge indicates the upload exceeds the size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// File describes one stored upload.
type File struct {
	ID       string `json:"file_id"`
	Name     string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"-"`
	MimeHint string `json:"content_type,omitempty"`
}

// Store persists uploads on the local filesystem.
type Store struct {
	dir         string
	maxSize     int64
	allowedExts map[string]bool
}

// NewStore creates a store rooted at dir. allowedExts entries include the
// leading dot and are matched case-insensitively.
func NewStore(dir string, maxSize int64, allowedExts []string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	allowed := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		allowed[strings.ToLower(ext)] = true
	}
	return &Store{dir: dir, maxSize: maxSize, allowedExts: allowed}, nil
}

// Save validates and persists one upload, returning its generated id.
// The stored filename is "<uuid><ext>"; the client-supplied name is kept
// only in the returned metadata.
func (s *Store) Save(filename string, size int64, r io.Reader) (*File, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.allowedExts[ext] {
		return nil, fmt.Errorf("%w: %q", ErrDisallowedExtension, ext)
	}
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	id := uuid.New().String()
	path := filepath.Join(s.dir, id+ext)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	// LimitReader guards against clients lying about the declared size.
	written, err := io.Copy(dst, io.LimitReader(r, s.maxSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if written > s.maxSize {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, written)
	}

	return &File{
		ID:   id,
		Name: filepath.Base(filename),
		Size: written,
		Path: path,
	}, nil
}

// Resolve returns the stored file path for an id, trying each allowed
// extension. The id must parse as a UUID, which also keeps lookups inside
// the store directory.
func (s *Store) Resolve(fileID string) (string, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return "", fmt.Errorf("%w: invalid id", ErrNotFound)
	}
	for ext := range s.allowedExts {
		path := filepath.Join(s.dir, fileID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Read returns the contents of a stored file by id.
func (s *Store) Read(fileID string) ([]byte, error) {
	path, err := s.Resolve(fileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}
