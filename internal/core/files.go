package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileEntry is a CSV file available in the data directory.
type FileEntry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Catalog exposes the CSV files of one directory. It is the only way the
// adapters turn a user-supplied name into a path.
type Catalog struct {
	dir string
}

// NewCatalog returns a catalog rooted at dir.
func NewCatalog(dir string) (*Catalog, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	return &Catalog{dir: abs}, nil
}

// Dir returns the absolute data directory.
func (c *Catalog) Dir() string { return c.dir }

// List returns the .csv files in the directory sorted by name. Hidden files
// (including temporary files left by an interrupted save) are skipped.
func (c *Catalog) List() ([]FileEntry, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("list data dir: %w", err)
	}

	files := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !hasCSVExt(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileEntry{Name: name, Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Resolve validates name and returns its path inside the directory. The name
// must be a plain .csv file name; separators, "..", and hidden names are
// rejected with ErrInvalidFileName. The file does not need to exist.
func (c *Catalog) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNoFileSelected
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		strings.HasPrefix(name, ".") || !hasCSVExt(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}

	path := filepath.Join(c.dir, name)
	if filepath.Dir(path) != c.dir {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return path, nil
}

func hasCSVExt(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
