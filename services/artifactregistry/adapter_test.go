package artifactregistry

import (
	"context"
	"errors"
	"testing"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/gcperr"
)

type fakeBackend struct {
	repos []Repository
	err   error

	createdName   string
	createdFormat string
}

func (f *fakeBackend) ListRepositories(ctx context.Context, project, location string) ([]Repository, error) {
	return f.repos, f.err
}

func (f *fakeBackend) CreateRepository(ctx context.Context, project, location, name, format, description string) (*Repository, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdName = name
	f.createdFormat = format
	return &Repository{Name: name, Format: format, Description: description}, nil
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

func TestListRepositories(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{repos: []Repository{
		{Name: "images", Format: "DOCKER"},
		{Name: "charts", Format: "DOCKER", Labels: map[string]string{"team": "infra"}},
	}}
	a := New(backend)

	payload, err := handlerFor(t, a, "list_repositories")(context.Background(), envelope.Params{
		"project_id": "p1",
		"location":   "us-central1",
	})
	if err != nil {
		t.Fatalf("list_repositories: %v", err)
	}
	if payload["count"] != 2 {
		t.Errorf("count = %v, want 2", payload["count"])
	}
	items := payload["repositories"].([]map[string]any)
	if items[0]["labels"] == nil {
		t.Error("labels must be an empty map, not nil")
	}
}

func TestCreateRepositoryUppercasesFormat(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	a := New(backend)

	payload, err := handlerFor(t, a, "create_repository")(context.Background(), envelope.Params{
		"project_id":      "p1",
		"location":        "us-central1",
		"repository_name": "images",
		"format":          "docker",
	})
	if err != nil {
		t.Fatalf("create_repository: %v", err)
	}
	if backend.createdFormat != "DOCKER" {
		t.Errorf("format = %q, want DOCKER", backend.createdFormat)
	}
	if payload["name"] != "images" {
		t.Errorf("name = %v", payload["name"])
	}
}

func TestCreateRepositoryRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	a := New(&fakeBackend{})

	_, err := handlerFor(t, a, "create_repository")(context.Background(), envelope.Params{
		"project_id":      "p1",
		"location":        "us-central1",
		"repository_name": "images",
		"format":          "tarball",
	})
	if gcperr.KindOf(err) != gcperr.KindMissingParameter {
		t.Errorf("kind = %v, want MissingParameterError", gcperr.KindOf(err))
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("location not supported")
	a := New(&fakeBackend{err: backendErr})

	_, err := handlerFor(t, a, "list_repositories")(context.Background(), envelope.Params{
		"project_id": "p1",
		"location":   "us-central1",
	})
	if !errors.Is(err, backendErr) {
		t.Errorf("err = %v, want backend error", err)
	}
}
