package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Backend is the minimal key-value surface the store needs. The default is
// a directory of JSON files; an embedded store can replace it without
// touching anything above.
type Backend interface {
	// Get returns the raw record, or ErrNotFound.
	Get(name string) ([]byte, error)
	// Put fully overwrites the record, creating storage if absent.
	Put(name string, data []byte) error
	// Delete removes the record. Deleting an absent record is a no-op.
	Delete(name string) error
	// List returns all record names in lexicographic order.
	List() ([]string, error)
}

// DirBackend keeps one <name>.json file per account under a directory.
type DirBackend struct {
	dir string
}

// NewDirBackend returns a backend rooted at dir. The directory is created
// lazily on first write.
func NewDirBackend(dir string) *DirBackend {
	return &DirBackend{dir: dir}
}

func (b *DirBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *DirBackend) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read account %q: %w", name, err)
	}
	return data, nil
}

func (b *DirBackend) Put(name string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return fmt.Errorf("create accounts dir: %w", err)
	}
	return atomicWrite(b.path(name), data)
}

func (b *DirBackend) Delete(name string) error {
	err := os.Remove(b.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete account %q: %w", name, err)
	}
	return nil
}

func (b *DirBackend) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// atomicWrite replaces path in a single rename so a concurrent reader never
// observes a partial record.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
