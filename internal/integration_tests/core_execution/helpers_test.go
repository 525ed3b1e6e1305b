package integration_tests

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/registry"
)

// executionRecord holds the start and end times of a single job execution.
type executionRecord struct {
	Start time.Time
	End   time.Time
}

// mockSleeperModule registers a "sleeper" task whose handler sleeps for a
// fixed duration and records when each job ran.
type mockSleeperModule struct {
	mu             sync.Mutex
	executionTimes map[string]*executionRecord
	sleepDuration  time.Duration
}

func newMockSleeperModule(sleep time.Duration) *mockSleeperModule {
	return &mockSleeperModule{
		executionTimes: make(map[string]*executionRecord),
		sleepDuration:  sleep,
	}
}

func (m *mockSleeperModule) record(id string) *executionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executionTimes[id]
}

type sleeperInput struct {
	ID string `hcl:"id"`
}

// Register registers the "sleeper" task's Go handler. The HCL manifest is
// discovered from the fixture files.
func (m *mockSleeperModule) Register(r *registry.Registry) {
	r.RegisterTask("OnRunSleeper", &registry.RegisteredTask{
		NewInput:  func() any { return new(sleeperInput) },
		InputType: reflect.TypeOf(sleeperInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ *struct{}, input *sleeperInput) (cty.Value, error) {
			start := time.Now()
			time.Sleep(m.sleepDuration)
			end := time.Now()

			m.mu.Lock()
			m.executionTimes[input.ID] = &executionRecord{Start: start, End: end}
			m.mu.Unlock()
			return cty.NilVal, nil
		},
	})
}

const sleeperManifest = `
	task "sleeper" {
		lifecycle { on_run = "OnRunSleeper" }
		input "id" {
			type = string
		}
	}
`

// mockEchoModule registers an "echo" task that returns its message as output,
// for exercising output passing between jobs.
type mockEchoModule struct {
	mu       sync.Mutex
	received []string
}

type echoInput struct {
	Message string `hcl:"message"`
}

func (m *mockEchoModule) Register(r *registry.Registry) {
	r.RegisterTask("OnRunEcho", &registry.RegisteredTask{
		NewInput:  func() any { return new(echoInput) },
		InputType: reflect.TypeOf(echoInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ *struct{}, input *echoInput) (cty.Value, error) {
			m.mu.Lock()
			m.received = append(m.received, input.Message)
			m.mu.Unlock()
			return cty.ObjectVal(map[string]cty.Value{
				"message": cty.StringVal(input.Message),
			}), nil
		},
	})
}

const echoManifest = `
	task "echo" {
		lifecycle { on_run = "OnRunEcho" }
		input "message" {
			type = string
		}
		output "message" {
			type = string
		}
	}
`
