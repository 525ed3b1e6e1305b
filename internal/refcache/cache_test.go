package refcache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// md5 of "index-bytes"
const indexMD5 = "aa2f6674810610b49163e4d3bdc1dcf2"

func TestPutAndLookup(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	url := "https://example.org/refs/chr19_index.tar.gz"
	_, found := store.Lookup(url)
	assert.False(t, found)

	path, err := store.Put(url, strings.NewReader("index-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_chr19_index.tar.gz"))

	got, found := store.Lookup(url)
	require.True(t, found)
	assert.Equal(t, path, got)

	content, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "index-bytes", string(content))
}

func TestEntryPathsAreDistinctPerURL(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := store.Put("https://host-a/index.tar.gz", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.Put("https://host-b/index.tar.gz", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	url := "https://example.org/index.tar.gz"
	_, err = store.Put(url, strings.NewReader("index-bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Verify(url, indexMD5))
	// Second call hits the verification memo.
	require.NoError(t, store.Verify(url, indexMD5))

	err = store.Verify(url, "0000deadbeef0000deadbeef0000dead")
	assert.ErrorContains(t, err, "expected")
}

func TestVerify_NoEntry(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	err = store.Verify("https://example.org/missing.tar.gz", indexMD5)
	assert.ErrorContains(t, err, "no cache entry")
}

func TestPut_InvalidatesVerification(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	url := "https://example.org/index.tar.gz"
	_, err = store.Put(url, strings.NewReader("index-bytes"))
	require.NoError(t, err)
	require.NoError(t, store.Verify(url, indexMD5))

	// Replacing the entry must drop the memoized verification.
	_, err = store.Put(url, strings.NewReader("different-bytes"))
	require.NoError(t, err)
	assert.Error(t, store.Verify(url, indexMD5))
}
