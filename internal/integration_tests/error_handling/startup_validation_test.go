package integration_tests

import (
	"context"
	"strings"
	"testing"

	"github.com/vk/seqci/internal/testutil"
)

// A manifest naming an unregistered handler is caught at startup, before any
// job runs.
func TestErrorHandling_ManifestHandlerMismatchFailsStartup(t *testing.T) {
	files := map[string]string{
		"modules/ghost/manifest.hcl": `
			task "ghost" {
				lifecycle { on_run = "OnRunGhost" }
			}
		`,
		"workflow.hcl": `
			job "ghost" "g" {}
		`,
	}

	res := testutil.Setup(t, files, &mockFlakyModule{})
	if res.StartupErr == nil {
		t.Fatal("expected startup to fail validation")
	}
	if !strings.Contains(res.StartupErr.Error(), "OnRunGhost") {
		t.Errorf("expected the unregistered handler to be named, got: %v", res.StartupErr)
	}
}

// A manifest input with no matching Go struct field is a parity error.
func TestErrorHandling_ManifestInputParityFailsStartup(t *testing.T) {
	files := map[string]string{
		"modules/flaky/manifest.hcl": `
			task "flaky" {
				lifecycle { on_run = "OnRunFlaky" }
				input "id" {
					type = string
				}
				input "fail" {
					type    = bool
					default = false
				}
				input "phantom" {
					type = string
				}
			}
		`,
		"workflow.hcl": `
			job "flaky" "f" {
				arguments { id = "f" }
			}
		`,
	}

	res := testutil.Setup(t, files, &mockFlakyModule{})
	if res.StartupErr == nil {
		t.Fatal("expected startup to fail validation")
	}
	if !strings.Contains(res.StartupErr.Error(), "phantom") {
		t.Errorf("expected the phantom input to be named, got: %v", res.StartupErr)
	}
}

// A job omitting a required argument fails when the job is decoded.
func TestErrorHandling_MissingRequiredArgument(t *testing.T) {
	files := map[string]string{
		"modules/flaky/manifest.hcl": flakyManifest,
		"workflow.hcl": `
			job "flaky" "incomplete" {
				arguments { fail = false }
			}
		`,
	}
	mock := &mockFlakyModule{}

	res := testutil.Setup(t, files, mock)
	if res.StartupErr != nil {
		t.Fatalf("unexpected startup error: %v", res.StartupErr)
	}

	err := res.App.Run(context.Background(), res.Config)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !strings.Contains(err.Error(), `required argument "id"`) {
		t.Errorf("expected missing argument error, got: %v", err)
	}
}

// An argument the manifest does not declare is rejected.
func TestErrorHandling_UndeclaredArgumentRejected(t *testing.T) {
	files := map[string]string{
		"modules/flaky/manifest.hcl": flakyManifest,
		"workflow.hcl": `
			job "flaky" "typo" {
				arguments {
					id      = "typo"
					retries = 3
				}
			}
		`,
	}
	mock := &mockFlakyModule{}

	res := testutil.Setup(t, files, mock)
	if res.StartupErr != nil {
		t.Fatalf("unexpected startup error: %v", res.StartupErr)
	}

	err := res.App.Run(context.Background(), res.Config)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !strings.Contains(err.Error(), `unsupported argument "retries"`) {
		t.Errorf("expected unsupported argument error, got: %v", err)
	}
}

// Referencing a job that does not exist fails graph construction.
func TestErrorHandling_UnknownRequireFailsBuild(t *testing.T) {
	files := map[string]string{
		"modules/flaky/manifest.hcl": flakyManifest,
		"workflow.hcl": `
			job "flaky" "orphan" {
				arguments { id = "orphan" }
				requires = ["flaky.does_not_exist"]
			}
		`,
	}
	mock := &mockFlakyModule{}

	res := testutil.Setup(t, files, mock)
	if res.StartupErr != nil {
		t.Fatalf("unexpected startup error: %v", res.StartupErr)
	}

	err := res.App.Run(context.Background(), res.Config)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !strings.Contains(err.Error(), "does_not_exist") {
		t.Errorf("expected unknown dependency error, got: %v", err)
	}
}
