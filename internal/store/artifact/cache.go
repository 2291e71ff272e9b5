// Package artifact implements the sharded local filesystem cache for
// raw journal pages.
package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/faarchive/journaliser/internal/journal"
)

// Config captures the parameters for the artifact cache.
type Config struct {
	// BaseDir is the root directory where page files are stored.
	BaseDir string `mapstructure:"base_dir"`
}

// Cache stores one file per journal ID under a two-level shard layout
// so no single directory holds more than a thousand files.
type Cache struct {
	baseDir string
}

// New creates the cache root if needed and verifies it is writable.
func New(cfg Config) (*Cache, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case err != nil && os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up writability probe: %w", err)
	}

	return &Cache{baseDir: cfg.BaseDir}, nil
}

func (c *Cache) path(id int64) string {
	return filepath.Join(c.baseDir, journal.ArtifactRelPath(id))
}

// Write stores the raw page for id, replacing any previous copy.
func (c *Cache) Write(id int64, data []byte) error {
	path := c.path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create shard directories: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write artifact %d: %w", id, err)
	}
	return nil
}

// Read returns the stored page bytes for id.
func (c *Cache) Read(id int64) ([]byte, error) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		return nil, fmt.Errorf("read artifact %d: %w", id, err)
	}
	return data, nil
}

// Exists reports whether an artifact is stored for id.
func (c *Cache) Exists(id int64) (bool, error) {
	_, err := os.Stat(c.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact %d: %w", id, err)
}

// Delete removes the artifact for id. Deleting an absent artifact is
// not an error.
func (c *Cache) Delete(id int64) error {
	if err := os.Remove(c.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact %d: %w", id, err)
	}
	return nil
}

// ListIDs returns the sorted archived IDs within [min, max]. A max of
// 0 means no upper bound.
func (c *Cache) ListIDs(min, max int64) ([]int64, error) {
	var ids []int64
	err := filepath.WalkDir(c.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		id, err := journal.IDFromArtifactPath(path)
		if err != nil {
			// Foreign files in the store tree are skipped, not fatal.
			return nil
		}
		if id < min || (max > 0 && id > max) {
			return nil
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk artifact store: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
