package integration_tests

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/registry"
)

// mockFlakyModule registers a "flaky" task whose handler fails when asked to,
// and records which jobs actually executed.
type mockFlakyModule struct {
	mu  sync.Mutex
	ran []string

	sleep time.Duration
}

type flakyInput struct {
	ID   string `hcl:"id"`
	Fail bool   `hcl:"fail"`
}

func (m *mockFlakyModule) Register(r *registry.Registry) {
	r.RegisterTask("OnRunFlaky", &registry.RegisteredTask{
		NewInput:  func() any { return new(flakyInput) },
		InputType: reflect.TypeOf(flakyInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, _ *struct{}, input *flakyInput) (cty.Value, error) {
			m.mu.Lock()
			m.ran = append(m.ran, input.ID)
			m.mu.Unlock()

			if m.sleep > 0 {
				select {
				case <-time.After(m.sleep):
				case <-ctx.Done():
					return cty.NilVal, ctx.Err()
				}
			}
			if input.Fail {
				return cty.NilVal, fmt.Errorf("job %s exploded", input.ID)
			}
			return cty.NilVal, nil
		},
	})
}

func (m *mockFlakyModule) didRun(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ran := range m.ran {
		if ran == id {
			return true
		}
	}
	return false
}

const flakyManifest = `
	task "flaky" {
		lifecycle { on_run = "OnRunFlaky" }
		input "id" {
			type = string
		}
		input "fail" {
			type    = bool
			default = false
		}
	}
`

// mockStubbornModule registers a "stubborn" task whose handler sleeps without
// watching the context, like an external command that cannot be interrupted
// mid-flight.
type mockStubbornModule struct {
	mu  sync.Mutex
	ran []string
}

type stubbornInput struct {
	ID      string `hcl:"id"`
	SleepMs int64  `hcl:"sleep_ms,optional"`
}

func (m *mockStubbornModule) Register(r *registry.Registry) {
	r.RegisterTask("OnRunStubborn", &registry.RegisteredTask{
		NewInput:  func() any { return new(stubbornInput) },
		InputType: reflect.TypeOf(stubbornInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ *struct{}, input *stubbornInput) (cty.Value, error) {
			m.mu.Lock()
			m.ran = append(m.ran, input.ID)
			m.mu.Unlock()

			time.Sleep(time.Duration(input.SleepMs) * time.Millisecond)
			return cty.NilVal, nil
		},
	})
}

func (m *mockStubbornModule) didRun(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ran := range m.ran {
		if ran == id {
			return true
		}
	}
	return false
}

const stubbornManifest = `
	task "stubborn" {
		lifecycle { on_run = "OnRunStubborn" }
		input "id" {
			type = string
		}
		input "sleep_ms" {
			type    = number
			default = 0
		}
	}
`
