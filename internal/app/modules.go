package app

import (
	"github.com/vk/seqci/internal/registry"
	"github.com/vk/seqci/modules/align"
	"github.com/vk/seqci/modules/compare"
	"github.com/vk/seqci/modules/docker"
	"github.com/vk/seqci/modules/env_vars"
	"github.com/vk/seqci/modules/exec"
	"github.com/vk/seqci/modules/fetch"
	"github.com/vk/seqci/modules/http_client"
	"github.com/vk/seqci/modules/object_store"
	"github.com/vk/seqci/modules/publish"
	"github.com/vk/seqci/modules/report"
)

// coreModules returns the compiled-in module set. Modules needing run-level
// configuration receive it here.
func coreModules(appConfig *Config) []registry.Module {
	return []registry.Module{
		&docker.Module{},
		&fetch.Module{CacheDir: appConfig.CacheDir},
		&exec.Module{},
		&compare.Module{},
		&report.Module{},
		&env_vars.Module{},
		&align.Module{},
		&publish.Module{},
		&http_client.Module{},
		&object_store.Module{},
	}
}
