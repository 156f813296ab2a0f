package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const ext = ".md"

// Entry describes one mirrored file.
type Entry struct {
	Name     string
	Checksum string
}

// FileName maps a note name to its file name. The mapping is reversible and
// keeps every file directly under the mirror root.
func FileName(note string) string {
	return url.PathEscape(note) + ext
}

// NoteName reverses FileName. ok is false for files that are not notes.
func NoteName(file string) (string, bool) {
	base := filepath.Base(file)
	if !strings.HasSuffix(base, ext) || strings.HasPrefix(base, ".linkbook-tmp-") {
		return "", false
	}
	name, err := url.PathUnescape(strings.TrimSuffix(base, ext))
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// FS is a flat directory of note files.
type FS struct {
	root string // absolute path to mirror directory
}

// NewFS creates an FS rooted at the given directory, creating it if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("mirror: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("mirror: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("mirror: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mirror: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute mirror directory.
func (f *FS) Root() string { return f.root }

// path resolves a note name to its absolute file path.
func (f *FS) path(note string) (string, error) {
	if note == "" {
		return "", fmt.Errorf("mirror: empty note name")
	}
	abs := filepath.Join(f.root, FileName(note))
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("mirror: path escapes mirror root: %s", note)
	}
	return abs, nil
}

// List returns the notes currently on disk.
func (f *FS) List() ([]Entry, error) {
	des, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("mirror: list: %w", err)
	}
	var out []Entry
	for _, d := range des {
		if d.IsDir() {
			continue
		}
		name, ok := NoteName(d.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.root, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("mirror: list: %w", err)
		}
		out = append(out, Entry{Name: name, Checksum: sum(data)})
	}
	return out, nil
}

// Read returns the text of a mirrored note.
func (f *FS) Read(note string) ([]byte, error) {
	abs, err := f.path(note)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("mirror: read %s: %w", note, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(note string, content []byte) error {
	abs, err := f.path(note)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".linkbook-tmp-*")
	if err != nil {
		return fmt.Errorf("mirror: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("mirror: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("mirror: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("mirror: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("mirror: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a mirrored note.
func (f *FS) Delete(note string) error {
	abs, err := f.path(note)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("mirror: delete %s: %w", note, err)
	}
	return nil
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
