package registry

import (
	"fmt"
	"log/slog"
	"reflect"
)

// RegisteredTask holds the compiled Go parts of a task's lifecycle function.
type RegisteredTask struct {
	NewInput  func() any
	InputType reflect.Type
	NewDeps   func() any
	Fn        any
}

// RegisterTask registers a Go function for a task's lifecycle event.
func (r *Registry) RegisterTask(name string, handler *RegisteredTask) {
	if _, exists := r.TaskHandlerRegistry[name]; exists {
		panic(fmt.Sprintf("task handler with name '%s' already registered", name))
	}
	slog.Debug("Registering task handler.", "name", name)
	r.TaskHandlerRegistry[name] = handler
}

// RegisteredAsset holds Go functions for an asset's lifecycle.
type RegisteredAsset struct {
	NewInput  func() any
	CreateFn  any
	DestroyFn any
}

// RegisterAssetHandler registers Go functions for an asset's lifecycle events.
func (r *Registry) RegisterAssetHandler(name string, handler *RegisteredAsset) {
	if _, exists := r.AssetHandlerRegistry[name]; exists {
		panic(fmt.Sprintf("asset handler with name '%s' already registered", name))
	}
	slog.Debug("Registering asset handler.", "name", name)
	r.AssetHandlerRegistry[name] = handler
}

// RegisterAssetInterface registers the Go interface contract for an asset type.
func (r *Registry) RegisterAssetInterface(assetType string, iface reflect.Type) {
	if _, exists := r.AssetInterfaceRegistry[assetType]; exists {
		panic(fmt.Sprintf("interface for asset type '%s' already registered", assetType))
	}
	slog.Debug("Registering asset interface.", "assetType", assetType, "interface", iface.String())
	r.AssetInterfaceRegistry[assetType] = iface
}
