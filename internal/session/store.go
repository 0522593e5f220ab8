// Package session persists uploaded images on the local filesystem, one
// directory per session id. There is no expiry: sessions accumulate until
// cleaned externally.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound reports a missing session directory or stored file.
var ErrNotFound = errors.New("session: not found")

// imageMimeTypes maps recognized image extensions to their content types.
// Listing is filtered to these; anything else in a session directory is
// ignored.
var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// StoredFile describes one file inside a session.
type StoredFile struct {
	Name     string
	MimeType string
	Size     int64
}

// Store is a directory-per-session file store rooted at a base path.
type Store struct {
	basePath string
}

// NewStore initializes a Store rooted at basePath, creating it if needed.
func NewStore(basePath string) (*Store, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("session: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("session: ensure base path: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// NewID returns a fresh opaque session token.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// Exists reports whether a session directory is present.
func (s *Store) Exists(id string) bool {
	dir, err := s.sessionDir(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Save writes data into the session under a server-generated,
// collision-resistant name, creating the session directory on first use.
func (s *Store) Save(id, originalName, mimeType string, data []byte) (StoredFile, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return StoredFile{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("session: ensure session dir: %w", err)
	}
	name := generateName(originalName, mimeType)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return StoredFile{}, fmt.Errorf("session: write file: %w", err)
	}
	return StoredFile{Name: name, MimeType: mimeTypeFor(name), Size: int64(len(data))}, nil
}

// List enumerates the session's image files, sorted by name.
func (s *Store) List(id string) ([]StoredFile, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: read session dir: %w", err)
	}
	var files []StoredFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		mimeType, ok := imageMimeTypes[ext]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{Name: entry.Name(), MimeType: mimeType, Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// FilePath resolves a stored file to its absolute path and content type.
func (s *Store) FilePath(id, name string) (string, string, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return "", "", err
	}
	clean, err := sanitizeName(name)
	if err != nil {
		return "", "", err
	}
	full := filepath.Join(dir, clean)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", "", ErrNotFound
	}
	return full, mimeTypeFor(clean), nil
}

// Read returns the bytes of one stored file.
func (s *Store) Read(id, name string) ([]byte, error) {
	full, _, err := s.FilePath(id, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("session: read file: %w", err)
	}
	return data, nil
}

// Delete removes one stored file.
func (s *Store) Delete(id, name string) error {
	full, _, err := s.FilePath(id, name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("session: delete file: %w", err)
	}
	return nil
}

// sessionDir validates the id against traversal and maps it to a directory.
func (s *Store) sessionDir(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || !isSafeToken(id) {
		return "", ErrNotFound
	}
	return filepath.Join(s.basePath, id), nil
}

func isSafeToken(v string) bool {
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// sanitizeName rejects anything that could escape the session directory.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNotFound
	}
	return name, nil
}

// generateName builds a collision-resistant stored name that keeps a
// sanitized trace of the original filename for operators browsing the
// directory by hand.
func generateName(originalName, mimeType string) string {
	base := strings.ToLower(filepath.Base(originalName))
	ext := filepath.Ext(base)
	if _, ok := imageMimeTypes[ext]; !ok {
		ext = extensionFor(mimeType)
	}
	stem := sanitizeStem(strings.TrimSuffix(base, filepath.Ext(base)))
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if stem == "" {
		return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), token, ext)
	}
	return fmt.Sprintf("%d_%s_%s%s", time.Now().UnixMilli(), token, stem, ext)
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	const maxStem = 40
	out := b.String()
	if len(out) > maxStem {
		out = out[:maxStem]
	}
	return out
}

func extensionFor(mimeType string) string {
	for ext, mt := range imageMimeTypes {
		if mt == mimeType && ext != ".jpeg" {
			return ext
		}
	}
	return ".png"
}

func mimeTypeFor(name string) string {
	if mt, ok := imageMimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}
