package cloudbuild

import (
	"context"
	"errors"
	"testing"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/gcperr"
)

type fakeBackend struct {
	builds   []Build
	triggers []Trigger
	err      error

	submitted *BuildSpec
}

func (f *fakeBackend) ListBuilds(ctx context.Context, project, filter string, pageSize int) ([]Build, error) {
	return f.builds, f.err
}

func (f *fakeBackend) ListTriggers(ctx context.Context, project string) ([]Trigger, error) {
	return f.triggers, f.err
}

func (f *fakeBackend) SubmitBuild(ctx context.Context, project string, spec BuildSpec) (*Build, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = &spec
	return &Build{ID: "b-123", Status: "QUEUED", LogsURL: "https://console/logs/b-123"}, nil
}

func handlerFor(t *testing.T, a *Adapter, name string) func(context.Context, envelope.Params) (map[string]any, error) {
	t.Helper()
	for _, op := range a.Operations() {
		if op.Name == name {
			return op.Handler
		}
	}
	t.Fatalf("operation %q not registered", name)
	return nil
}

func TestListBuilds(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{builds: []Build{
		{ID: "b-1", Status: "SUCCESS", CommitSHA: "abc123"},
		{ID: "b-2", Status: "FAILURE"},
	}}
	a := New(backend)

	payload, err := handlerFor(t, a, "list_builds")(context.Background(), envelope.Params{
		"project_id": "p1",
	})
	if err != nil {
		t.Fatalf("list_builds: %v", err)
	}
	if payload["count"] != 2 {
		t.Errorf("count = %v, want 2", payload["count"])
	}
	items := payload["builds"].([]map[string]any)
	if items[0]["source"] != "abc123" {
		t.Errorf("builds[0] = %v", items[0])
	}
	if items[1]["substitutions"] == nil {
		t.Error("substitutions must be an empty map, not nil")
	}
}

func TestListTriggers(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{triggers: []Trigger{
		{ID: "t-1", Name: "deploy-main", RepoName: "app", BranchName: "main"},
	}}
	a := New(backend)

	payload, err := handlerFor(t, a, "list_triggers")(context.Background(), envelope.Params{
		"project_id": "p1",
	})
	if err != nil {
		t.Fatalf("list_triggers: %v", err)
	}
	items := payload["triggers"].([]map[string]any)
	if items[0]["branch_name"] != "main" {
		t.Errorf("triggers = %v", items)
	}
}

func TestTriggerBuild(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	a := New(backend)

	payload, err := handlerFor(t, a, "trigger_build")(context.Background(), envelope.Params{
		"project_id": "p1",
		"steps": []any{
			map[string]any{"name": "gcr.io/cloud-builders/docker", "args": []any{"build", "-t", "img", "."}},
			map[string]any{"name": "gcr.io/cloud-builders/docker", "args": []any{"push", "img"}},
		},
		"images":          []any{"img"},
		"timeout_seconds": float64(600),
	})
	if err != nil {
		t.Fatalf("trigger_build: %v", err)
	}
	if payload["build_id"] != "b-123" {
		t.Errorf("build_id = %v", payload["build_id"])
	}
	if len(backend.submitted.Steps) != 2 || backend.submitted.Steps[0].Args[0] != "build" {
		t.Errorf("steps = %+v", backend.submitted.Steps)
	}
	if backend.submitted.TimeoutSecs != 600 {
		t.Errorf("timeout = %d", backend.submitted.TimeoutSecs)
	}
}

func TestTriggerBuildRejectsBadSteps(t *testing.T) {
	t.Parallel()

	a := New(&fakeBackend{})

	tests := []struct {
		name  string
		steps any
	}{
		{"missing", nil},
		{"empty list", []any{}},
		{"not a list", "docker build"},
		{"step without image", []any{map[string]any{"args": []any{"build"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := envelope.Params{"project_id": "p1"}
			if tt.steps != nil {
				p["steps"] = tt.steps
			}
			_, err := handlerFor(t, a, "trigger_build")(context.Background(), p)
			if gcperr.KindOf(err) != gcperr.KindMissingParameter {
				t.Errorf("kind = %v, want MissingParameterError", gcperr.KindOf(err))
			}
		})
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("build quota exhausted")
	a := New(&fakeBackend{err: backendErr})

	_, err := handlerFor(t, a, "list_builds")(context.Background(), envelope.Params{
		"project_id": "p1",
	})
	if !errors.Is(err, backendErr) {
		t.Errorf("err = %v, want backend error", err)
	}
}
