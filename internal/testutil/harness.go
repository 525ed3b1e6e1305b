// Package testutil holds shared helpers for integration tests: a thread-safe
// log buffer and a harness that materializes HCL fixtures on disk and boots a
// fully wired application around them.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vk/seqci/internal/app"
	"github.com/vk/seqci/internal/hcl"
	"github.com/vk/seqci/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Result holds the outcome of booting a test application.
type Result struct {
	App        *app.App
	Config     *app.Config
	Logs       *SafeBuffer
	StartupErr error
}

// Setup writes the given HCL fixture files into a temp directory and boots an
// application over them. File keys are paths relative to the temp root;
// "workflow.hcl" and "modules/<name>/manifest.hcl" are the usual shape. A
// startup panic (bad config, failed validation) is captured in StartupErr
// instead of killing the test process.
func Setup(t *testing.T, files map[string]string, modules ...registry.Module) *Result {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create fixture directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}

	appConfig := &app.Config{
		WorkflowPath: filepath.Join(tmpDir, "workflow.hcl"),
		ModulesPath:  filepath.Join(tmpDir, "modules"),
		EnvFile:      filepath.Join(tmpDir, ".seqci_env"),
		CacheDir:     filepath.Join(tmpDir, "cache"),
		LogFormat:    "text",
		LogLevel:     "debug",
		WorkerCount:  4,
	}
	if _, ok := files["workflow.hcl"]; !ok {
		appConfig.WorkflowPath = tmpDir
	}
	if _, ok := files["modules"]; !ok {
		// Keep the modules path valid even when a test ships no manifests.
		if err := os.MkdirAll(appConfig.ModulesPath, 0o755); err != nil {
			t.Fatalf("failed to create modules directory: %v", err)
		}
	}

	logs := &SafeBuffer{}
	result := &Result{Config: appConfig, Logs: logs}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.StartupErr = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App = app.NewApp(logs, appConfig, hcl.NewLoader(), modules...)
	}()

	return result
}
