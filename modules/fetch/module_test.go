package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// md5 of the literal "index-bytes".
const indexMD5 = "aa2f6674810610b49163e4d3bdc1dcf2"

func TestMaterialize_CopiesContentIntact(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()

	content := bytes.Repeat([]byte("chr19\n"), 1<<19) // a few MB
	cached := filepath.Join(tmp, "cached_entry")
	require.NoError(t, os.WriteFile(cached, content, 0o644))

	destDir := filepath.Join(tmp, "refs")
	dest, err := materialize(cached, destDir, "https://example.org/indices/star_chr19_index.tar.gz")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(destDir, "star_chr19_index.tar.gz"), dest)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "materialized copy must match the cached entry byte for byte")
}

func TestMaterialize_MissingSourceFails(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()

	_, err := materialize(filepath.Join(tmp, "no_such_entry"), filepath.Join(tmp, "refs"), "https://example.org/blob")
	assert.Error(t, err)
}

func TestOnRunFetch_DownloadsVerifiesAndCaches(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("index-bytes"))
	}))
	defer server.Close()

	url := server.URL + "/refs/star_chr19_index.tar.gz"
	m := &Module{CacheDir: t.TempDir()}
	destDir := filepath.Join(t.TempDir(), "refs")
	input := &Input{
		URLs:    []string{url},
		MD5s:    map[string]string{url: indexMD5},
		DestDir: destDir,
	}
	deps := &Deps{Client: server.Client()}

	out, err := m.OnRunFetch(context.Background(), deps, input)
	require.NoError(t, err)
	require.Contains(t, out.Paths, url)

	got, err := os.ReadFile(out.Paths[url])
	require.NoError(t, err)
	assert.Equal(t, "index-bytes", string(got))
	assert.Equal(t, filepath.Join(destDir, "star_chr19_index.tar.gz"), out.Paths[url])

	// A second run resolves from the cache without touching the server.
	_, err = m.OnRunFetch(context.Background(), deps, input)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestOnRunFetch_ChecksumMismatchFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("corrupted-bytes"))
	}))
	defer server.Close()

	url := server.URL + "/refs/star_chr19_index.tar.gz"
	m := &Module{CacheDir: t.TempDir()}
	input := &Input{
		URLs: []string{url},
		MD5s: map[string]string{url: indexMD5},
	}

	_, err := m.OnRunFetch(context.Background(), &Deps{Client: server.Client()}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "md5")
}
