// Package object_store provides a shared S3-compatible client asset for
// publishing run artifacts.
package object_store

import (
	"context"
	"fmt"
	"reflect"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for creating an object_store resource.
type Input struct {
	Endpoint  string `hcl:"endpoint"`
	AccessKey string `hcl:"access_key"`
	SecretKey string `hcl:"secret_key"`
	Region    string `hcl:"region,optional"`
	UseSSL    bool   `hcl:"use_ssl,optional"`
}

// CreateObjectStore is the 'create' handler for the asset. It returns a live
// *minio.Client shared across jobs. Construction does not dial the endpoint;
// the first operation does.
func CreateObjectStore(ctx context.Context, input *Input) (*minio.Client, error) {
	client, err := minio.New(input.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(input.AccessKey, input.SecretKey, ""),
		Secure: input.UseSSL,
		Region: input.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client for '%s': %w", input.Endpoint, err)
	}
	return client, nil
}

// DestroyObjectStore is the 'destroy' handler. The client holds no
// connections that need explicit teardown.
func DestroyObjectStore(client *minio.Client) error {
	return nil
}

// Register registers the asset handlers and interface with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAssetHandler("CreateObjectStore", &registry.RegisteredAsset{
		NewInput: func() any { return new(Input) },
		CreateFn: CreateObjectStore,
	})
	r.RegisterAssetHandler("DestroyObjectStore", &registry.RegisteredAsset{
		DestroyFn: DestroyObjectStore,
	})
	r.RegisterAssetInterface("object_store", reflect.TypeOf((*minio.Client)(nil)))
}
