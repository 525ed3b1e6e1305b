// Package envfile manages the shared run environment file. The file is
// written once at startup and read by every job in the run, which is what
// keeps run-scoped values (most importantly the image tag) consistent across
// concurrently executing jobs.
package envfile

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Well-known variables of the run environment.
const (
	KeyRepoName   = "CIRCLE_PROJECT_REPONAME"
	KeyBranch     = "CIRCLE_BRANCH"
	KeyWorkflowID = "CIRCLE_WORKFLOW_ID"
	KeySHA1       = "CIRCLE_SHA1"
	KeyImageTag   = "SEQCI_IMAGE_TAG"

	// KeyTemplateTag is the reference the image is republished under once
	// every verification job has passed.
	KeyTemplateTag = "SEQCI_TEMPLATE_TAG"

	KeyRegistryUser = "DOCKERHUB_USER"
	KeyRegistryPass = "DOCKERHUB_PASS"
)

// Env is the merged run environment: the process environment overlaid with
// the contents of an optional env file. Values set during a run are persisted
// back to the file so sibling processes observe them.
type Env struct {
	path string

	mu   sync.RWMutex
	vals map[string]string
}

// Load builds the run environment. The process environment is read first;
// entries from the env file at path (if it exists) take precedence. An empty
// path yields a purely process-backed environment that cannot be persisted.
func Load(path string) (*Env, error) {
	vals := make(map[string]string)
	for _, entry := range os.Environ() {
		if k, v, found := strings.Cut(entry, "="); found {
			vals[k] = v
		}
	}

	if path != "" {
		fileVals, err := godotenv.Read(path)
		if err == nil {
			for k, v := range fileVals {
				vals[k] = v
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading env file %s: %w", path, err)
		}
	}

	return &Env{path: path, vals: vals}, nil
}

// Lookup returns the value for key and whether it is present.
func (e *Env) Lookup(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vals[key]
	return v, ok
}

// Get returns the value for key, or the empty string.
func (e *Env) Get(key string) string {
	v, _ := e.Lookup(key)
	return v
}

// SetOnce stores a run-scoped value and persists it to the env file. Setting
// a key that already holds a different value is an error: run-scoped values
// are written once and must stay consistent for the lifetime of the run.
func (e *Env) SetOnce(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.vals[key]; ok && existing != value {
		return fmt.Errorf("env key %s already set to %q, refusing to overwrite with %q", key, existing, value)
	}
	e.vals[key] = value
	return e.saveLocked()
}

// Snapshot returns a copy of the current environment map.
func (e *Env) Snapshot() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.vals))
	for k, v := range e.vals {
		out[k] = v
	}
	return out
}

// WorkflowID returns the run's workflow ID, minting and persisting a fresh
// UUID when the CI platform did not provide one.
func (e *Env) WorkflowID() (string, error) {
	if id, ok := e.Lookup(KeyWorkflowID); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	if err := e.SetOnce(KeyWorkflowID, id); err != nil {
		return "", err
	}
	return id, nil
}

// saveLocked persists file-backed keys. Only keys that differ from the plain
// process environment are written, so secrets inherited from the process are
// not copied onto disk. Callers must hold e.mu.
func (e *Env) saveLocked() error {
	if e.path == "" {
		return nil
	}
	toWrite := make(map[string]string)
	for k, v := range e.vals {
		if osVal, ok := os.LookupEnv(k); ok && osVal == v {
			continue
		}
		toWrite[k] = v
	}
	if err := godotenv.Write(toWrite, e.path); err != nil {
		return fmt.Errorf("writing env file %s: %w", e.path, err)
	}
	return nil
}
