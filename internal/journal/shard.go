package journal

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ArtifactRelPath maps a journal ID to its sharded path under the
// artifact cache root: a 2-digit millions directory, a 3-digit
// thousands directory, then the ID itself.
func ArtifactRelPath(id int64) string {
	millions := id / 1_000_000
	thousands := (id % 1_000_000) / 1_000
	return filepath.Join(
		fmt.Sprintf("%02d", millions),
		fmt.Sprintf("%03d", thousands),
		fmt.Sprintf("%d.html", id),
	)
}

// IDFromArtifactPath recovers the journal ID from an artifact filename.
func IDFromArtifactPath(path string) (int64, error) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".html") {
		return 0, fmt.Errorf("artifact file %q does not end with .html", name)
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(name, ".html"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse artifact id from %q: %w", name, err)
	}
	return id, nil
}

// FetchURL is the canonical URL a journal is fetched from.
func FetchURL(base string, id int64) string {
	return fmt.Sprintf("%s/journal/%d", strings.TrimRight(base, "/"), id)
}

// Permalink is the canonical link recorded in the extracted payload.
func Permalink(base string, id int64) string {
	return fmt.Sprintf("%s/journal/%d/", strings.TrimRight(base, "/"), id)
}
