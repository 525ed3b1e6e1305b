// Package fetch downloads reference archives over HTTP into a local content
// cache. Multiple URLs are fetched in parallel through a shared http_client
// resource, and entries with a known md5 are verified before use.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/refcache"
	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package. The
// cache directory comes from the application configuration; the store itself
// is created lazily so registration has no filesystem side effects.
type Module struct {
	CacheDir string

	once  sync.Once
	store *refcache.Store
	err   error
}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	URLs    []string          `hcl:"urls"`
	MD5s    map[string]string `hcl:"md5s,optional"`
	DestDir string            `hcl:"dest_dir,optional"`
}

// Deps defines the injected resources from the 'uses' HCL block.
type Deps struct {
	Client *http.Client `uses:"client"`
}

// Output defines the data structure returned by the runner.
type Output struct {
	Paths map[string]string `cty:"paths"`
}

func (m *Module) cache() (*refcache.Store, error) {
	m.once.Do(func() {
		m.store, m.err = refcache.New(m.CacheDir)
	})
	return m.store, m.err
}

// fetchOne resolves a single URL to a local path, downloading on cache miss.
func (m *Module) fetchOne(ctx context.Context, client *http.Client, url, expectedMD5 string) (string, error) {
	logger := ctxlog.FromContext(ctx).With("url", url)

	store, err := m.cache()
	if err != nil {
		return "", err
	}

	if path, ok := store.Lookup(url); ok {
		if expectedMD5 == "" {
			logger.Debug("Cache hit.")
			return path, nil
		}
		if err := store.Verify(url, expectedMD5); err == nil {
			logger.Debug("Cache hit, checksum verified.")
			return path, nil
		}
		logger.Warn("Cached entry failed verification, refetching.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	path, err := store.Put(url, resp.Body)
	if err != nil {
		return "", err
	}
	logger.Info("Downloaded reference archive.", "path", path)

	if expectedMD5 != "" {
		if err := store.Verify(url, expectedMD5); err != nil {
			return "", err
		}
	}
	return path, nil
}

// materialize copies a cached entry into destDir under the URL's base name.
// Reference archives run to tens of gigabytes, so the copy streams rather
// than buffering the blob in memory.
func materialize(cachedPath, destDir, url string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	src, err := os.Open(cachedPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dest := filepath.Join(destDir, filepath.Base(url))
	dst, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copying cache entry into %s: %w", destDir, err)
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return dest, nil
}

// OnRunFetch is the handler for the 'fetch' task's on_run lifecycle event.
func (m *Module) OnRunFetch(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("http client dependency was not injected")
	}
	if len(input.URLs) == 0 {
		return nil, fmt.Errorf("at least one url is required")
	}

	paths := make([]string, len(input.URLs))
	g, gctx := errgroup.WithContext(ctx)
	for i, url := range input.URLs {
		g.Go(func() error {
			path, err := m.fetchOne(gctx, deps.Client, url, input.MD5s[url])
			if err != nil {
				return err
			}
			if input.DestDir != "" {
				path, err = materialize(path, input.DestDir, url)
				if err != nil {
					return err
				}
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Output{Paths: make(map[string]string, len(input.URLs))}
	for i, url := range input.URLs {
		out.Paths[url] = paths[i]
	}
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunFetch", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        m.OnRunFetch,
	})
}
