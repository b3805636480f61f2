// Package storage keeps registration photos on the local filesystem, at
// most one per student, named by student id.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxPhotoBytes is the largest accepted photo (500 KiB).
const MaxPhotoBytes = 500 * 1024

var (
	ErrUnsupportedType = errors.New("photo must be a .jpg or .jpeg file")
	ErrTooLarge        = errors.New("photo must be at most 500 KB")
)

// ValidatePhoto checks the upload's extension and size.
func ValidatePhoto(filename string, size int) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
	default:
		return ErrUnsupportedType
	}
	if size > MaxPhotoBytes {
		return ErrTooLarge
	}
	return nil
}

// PhotoStore writes photos into a single directory.
type PhotoStore struct {
	dir string
}

func NewPhotoStore(dir string) *PhotoStore { return &PhotoStore{dir: dir} }

// PathFor returns where the photo for id lives.
func (s *PhotoStore) PathFor(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".jpg")
}

// Save writes data as <dir>/<id>.jpg, replacing any earlier photo.  The
// file is written to a temporary name first so readers never see a
// partial image.
func (s *PhotoStore) Save(id string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp photo: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close photo: %w", err)
	}
	dst := s.PathFor(id)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return dst, nil
}

// Remove deletes the photo for id; a missing file is not an error.
func (s *PhotoStore) Remove(id string) error {
	err := os.Remove(s.PathFor(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
