package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/seqci/internal/config"
	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/fsutil"
	"github.com/vk/seqci/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Manifests and workflow blocks may be mixed freely across files.
type fileRoot struct {
	Tasks     []*schema.TaskDefinition  `hcl:"task,block"`
	Assets    []*schema.AssetDefinition `hcl:"asset,block"`
	Jobs      []*schema.Job             `hcl:"job,block"`
	Resources []*schema.Resource        `hcl:"resource,block"`
	Remain    hcl.Body                  `hcl:",remain"`
}

// Load orchestrates the entire HCL configuration loading process. It is
// agnostic to the origin of the paths and parses any valid block from any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{
		Tasks:    make(map[string]*config.TaskDefinition),
		Assets:   make(map[string]*config.AssetDefinition),
		Pipeline: &config.Pipeline{},
	}

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		// Translate and merge all discovered blocks into the model.
		for _, task := range root.Tasks {
			def, err := l.translateTaskDefinition(ctx, task)
			if err != nil {
				return nil, nil, err
			}
			model.Tasks[def.Type] = def
		}
		for _, asset := range root.Assets {
			def, err := l.translateAssetDefinition(ctx, asset)
			if err != nil {
				return nil, nil, err
			}
			model.Assets[def.Type] = def
		}
		for _, job := range root.Jobs {
			model.Pipeline.Jobs = append(model.Pipeline.Jobs, l.translateJob(job))
		}
		for _, resource := range root.Resources {
			model.Pipeline.Resources = append(model.Pipeline.Resources, l.translateResource(resource))
		}
	}

	logger.Debug("HCL loading complete.",
		"tasks", len(model.Tasks),
		"assets", len(model.Assets),
		"jobs", len(model.Pipeline.Jobs),
		"resources", len(model.Pipeline.Resources),
	)
	return model, NewConverter(), nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				if _, wasSeen := seen[p]; !wasSeen {
					allFiles = append(allFiles, p)
					seen[p] = struct{}{}
				}
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
