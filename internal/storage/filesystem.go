// Package storage owns the single directory in which uploads, conversion
// outputs, and transient bundles live: naming, atomic visibility, path
// resolution, and age-based expiry.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// BundlePrefix marks transient sub-bundle directories.
const BundlePrefix = "bundle-"

// hintSep separates the uuid from an embedded original-name hint.
const hintSep = "__"

// forbiddenChars are rejected anywhere in a storage name.
const forbiddenChars = `<>:"|?*`

// FileStore persists all conversion artifacts on the local filesystem under a
// single root directory.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath, creating the
// directory if needed.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: abs}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// NewName produces a fresh storage name with the given extension (without
// dot). When hint is non-empty, a cleaned form of it is embedded so the
// download endpoint can restore a friendly filename.
func NewName(ext, hint string) string {
	id := uuid.NewString()
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	base := id
	if clean := cleanHint(hint); clean != "" {
		base = id + hintSep + clean
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// NewBundleName produces a fresh bundle directory name.
func NewBundleName() string {
	return BundlePrefix + uuid.NewString()
}

// cleanHint reduces an arbitrary original filename to a short, safe token.
func cleanHint(hint string) string {
	hint = filepath.Base(strings.TrimSpace(hint))
	hint = strings.TrimSuffix(hint, filepath.Ext(hint))
	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}

// DisplayName strips the uuid noise from a storage name, restoring the
// embedded original-name hint when one exists.
func DisplayName(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if i := strings.Index(stem, hintSep); i >= 0 {
		if _, err := uuid.Parse(stem[:i]); err == nil && stem[i+len(hintSep):] != "" {
			return stem[i+len(hintSep):] + ext
		}
	}
	return base
}

// Resolve validates name against the path-safety rules and returns the
// absolute path inside the storage root. At most one level of nesting is
// accepted, for bundle children. Anything else yields invalid-path.
func (s *FileStore) Resolve(name string) (string, error) {
	cleaned, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(cleaned))
	// Re-validate after the join: the canonical path must stay under root.
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.NewError(domain.ErrInvalidPath, "invalid file name")
	}
	return full, nil
}

// sanitizeName enforces the storage naming rules: no traversal, no absolute
// paths, no reserved characters, at most one path separator.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.NewError(domain.ErrInvalidPath, "empty file name")
	}
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || strings.Contains(name, "..") || strings.ContainsAny(name, forbiddenChars) {
		return "", domain.NewError(domain.ErrInvalidPath, "invalid file name")
	}
	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return "", domain.NewError(domain.ErrInvalidPath, "invalid file name")
	}
	for _, part := range parts {
		if part == "" || strings.HasPrefix(part, ".") {
			return "", domain.NewError(domain.ErrInvalidPath, "invalid file name")
		}
	}
	return strings.Join(parts, "/"), nil
}

// Stage streams r into a new entry under name. The write goes to a temp file
// first and becomes visible only via rename, so partial uploads never appear.
// Returns the number of bytes written.
func (s *FileStore) Stage(name string, r io.Reader) (int64, error) {
	full, err := s.Resolve(name)
	if err != nil {
		return 0, err
	}
	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("storage: create temp file: %w", err)
	}
	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("storage: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("storage: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("storage: rename: %w", err)
	}
	return size, nil
}

// MakeBundleDir creates a fresh transient bundle directory and returns its
// name and absolute path.
func (s *FileStore) MakeBundleDir() (string, string, error) {
	name := NewBundleName()
	full := filepath.Join(s.basePath, name)
	if err := os.Mkdir(full, 0o755); err != nil {
		return "", "", fmt.Errorf("storage: create bundle dir: %w", err)
	}
	return name, full, nil
}

// Open opens the named entry for reading. Missing entries map to not-found.
func (s *FileStore) Open(name string) (*os.File, os.FileInfo, error) {
	full, err := s.Resolve(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domain.NewError(domain.ErrNotFound, "file not found")
		}
		return nil, nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, domain.NewError(domain.ErrNotFound, "file not found")
	}
	return f, info, nil
}

// Size returns the size of the named entry in bytes.
func (s *FileStore) Size(name string) (int64, error) {
	full, err := s.Resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, domain.NewError(domain.ErrNotFound, "file not found")
		}
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes the named entry. Missing entries are not an error: another
// worker or the sweep may have removed them first. Bundle directories are
// removed recursively.
func (s *FileStore) Remove(name string) error {
	full, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove %s: %w", name, err)
	}
	return nil
}
