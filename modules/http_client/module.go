// Package http_client provides a stateful, shareable HTTP client asset with
// pooled connections, used by download tasks.
package http_client

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for creating an http_client resource.
type Input struct {
	Timeout string `hcl:"timeout,optional"`
}

// CreateHTTPClient is the 'create' handler for the asset. It returns a live
// *http.Client object that will be shared across jobs.
func CreateHTTPClient(ctx context.Context, input *Input) (*http.Client, error) {
	timeout, err := time.ParseDuration(input.Timeout)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return client, nil
}

// DestroyHTTPClient is the 'destroy' handler. For an http.Client, we just
// need to close idle connections.
func DestroyHTTPClient(client *http.Client) error {
	client.CloseIdleConnections()
	return nil
}

// Register registers the asset handlers and interface with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAssetHandler("CreateHTTPClient", &registry.RegisteredAsset{
		NewInput: func() any { return new(Input) },
		CreateFn: CreateHTTPClient,
	})
	r.RegisterAssetHandler("DestroyHTTPClient", &registry.RegisteredAsset{
		DestroyFn: DestroyHTTPClient,
	})
	r.RegisterAssetInterface("http_client", reflect.TypeOf((*http.Client)(nil)))
}
