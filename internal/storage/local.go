// Package storage keeps uploaded files on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"conference_registration/internal/logger"

	"github.com/google/uuid"
)

// ErrInvalidReference is returned for references that escape the base path.
var ErrInvalidReference = errors.New("invalid file reference")

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates basePath if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("local storage directory ensured")
	return &LocalStorage{basePath: basePath}, nil
}

// Save stores the upload under subPath with a random name and returns the
// reference to persist, relative to the base path with forward slashes.
func (ls *LocalStorage) Save(fileHeader *multipart.FileHeader, subPath string) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(ls.basePath, filepath.FromSlash(subPath))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	dstPath := filepath.Join(dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file on server: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	ref := filepath.ToSlash(filepath.Join(subPath, name))
	logger.Debug().Str("filename", fileHeader.Filename).Str("ref", ref).Msg("file saved")
	return ref, nil
}

// FullPath resolves a stored reference to a path on disk.
func (ls *LocalStorage) FullPath(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidReference
	}
	return filepath.Join(ls.basePath, clean), nil
}

// Delete removes a stored file. A missing file is not an error.
func (ls *LocalStorage) Delete(ref string) error {
	path, err := ls.FullPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
