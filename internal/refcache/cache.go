// Package refcache caches downloaded reference index archives on disk. The
// archives are opaque, immutable blobs fetched fresh per job in the original
// CI setup; caching them by URL digest lets the test jobs of one run (and
// subsequent runs on the same machine) share a single download. A bounded LRU
// tracks which cached entries have already been verified against their
// expected checksum so verification work is not repeated.
package refcache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// verifiedEntries bounds the in-process verification LRU. Reference sets are
// small; this exists to cap memory on long-lived daemon use, not to evict
// aggressively.
const verifiedEntries = 256

// Store is an on-disk cache of downloaded reference archives.
type Store struct {
	dir      string
	verified *lru.Cache[string, string]
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	verified, err := lru.New[string, string](verifiedEntries)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, verified: verified}, nil
}

// Dir returns the cache's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// entryPath maps a URL to its on-disk cache location, preserving the original
// file name for readability while keying on the URL digest for uniqueness.
func (s *Store) entryPath(url string) string {
	sum := md5.Sum([]byte(url))
	name := filepath.Base(url)
	if name == "." || name == "/" || name == "" {
		name = "blob"
	}
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+"_"+name)
}

// Lookup returns the cached path for url, if present.
func (s *Store) Lookup(url string) (string, bool) {
	path := s.entryPath(url)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Put streams content into the cache entry for url and returns its path. The
// write goes through a temp file and rename so concurrent readers never see a
// partial entry.
func (s *Store) Put(url string, content io.Reader) (string, error) {
	path := s.entryPath(url)

	tmp, err := os.CreateTemp(s.dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing cache entry for %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("committing cache entry for %s: %w", url, err)
	}

	// Content changed; any previous verification no longer applies.
	s.verified.Remove(url)
	return path, nil
}

// Verify checks the cached entry for url against the expected md5 hex digest.
// A successful check is remembered so repeat calls skip rehashing.
func (s *Store) Verify(url, expectedMD5 string) error {
	if got, ok := s.verified.Get(url); ok && got == expectedMD5 {
		return nil
	}

	path, ok := s.Lookup(url)
	if !ok {
		return fmt.Errorf("no cache entry for %s", url)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hashing cache entry for %s: %w", url, err)
	}
	observed := hex.EncodeToString(h.Sum(nil))
	if observed != expectedMD5 {
		return fmt.Errorf("cache entry for %s has md5 %s, expected %s", url, observed, expectedMD5)
	}

	s.verified.Add(url, expectedMD5)
	return nil
}
