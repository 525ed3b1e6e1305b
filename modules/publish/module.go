// Package publish uploads run artifacts, such as comparison result JSONs, to
// a shared object_store resource.
package publish

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"reflect"

	"github.com/minio/minio-go/v7"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Bucket      string `hcl:"bucket"`
	SourcePath  string `hcl:"source_path"`
	ObjectKey   string `hcl:"object_key,optional"`
	ContentType string `hcl:"content_type,optional"`
}

// Deps defines the injected resources from the 'uses' HCL block.
type Deps struct {
	Store *minio.Client `uses:"store"`
}

// OnRunPublish is the handler for the 'publish' task's on_run lifecycle event.
func OnRunPublish(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("bucket", input.Bucket)

	if deps.Store == nil {
		return cty.NilVal, fmt.Errorf("object store dependency was not injected")
	}

	key := input.ObjectKey
	if key == "" {
		key = filepath.Base(input.SourcePath)
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(input.SourcePath))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	logger.Info("Uploading artifact", "source", input.SourcePath, "key", key)
	info, err := deps.Store.FPutObject(ctx, input.Bucket, key, input.SourcePath,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return cty.NilVal, fmt.Errorf("uploading '%s' to bucket '%s': %w", input.SourcePath, input.Bucket, err)
	}
	logger.Info("Artifact uploaded", "key", info.Key, "size", info.Size)

	return cty.ObjectVal(map[string]cty.Value{
		"bucket": cty.StringVal(input.Bucket),
		"key":    cty.StringVal(info.Key),
		"size":   cty.NumberIntVal(info.Size),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunPublish", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunPublish,
	})
}
