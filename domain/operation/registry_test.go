package operation_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// fakeAdapter implements operation.Adapter for tests.
type fakeAdapter struct {
	service string
	ops     []operation.Operation
}

func (f *fakeAdapter) Service() string                   { return f.service }
func (f *fakeAdapter) Operations() []operation.Operation { return f.ops }

func newFakeAdapter(service string, opNames ...string) *fakeAdapter {
	a := &fakeAdapter{service: service}
	for _, name := range opNames {
		a.ops = append(a.ops, operation.Operation{
			Name: name,
			Handler: func(ctx context.Context, p envelope.Params) (map[string]any, error) {
				return map[string]any{}, nil
			},
		})
	}
	return a
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	r := operation.NewRegistry()

	if err := r.Register(newFakeAdapter("storage", "storage_list_buckets")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.Register(newFakeAdapter("storage")); !errors.Is(err, operation.ErrAdapterExists) {
		t.Errorf("duplicate Register() error = %v, want ErrAdapterExists", err)
	}
	if err := r.Register(nil); !errors.Is(err, operation.ErrNilAdapter) {
		t.Errorf("nil Register() error = %v, want ErrNilAdapter", err)
	}
	if err := r.Register(newFakeAdapter("")); !errors.Is(err, operation.ErrEmptyService) {
		t.Errorf("empty Register() error = %v, want ErrEmptyService", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	t.Parallel()

	r := operation.NewRegistry()
	a := newFakeAdapter("bigquery", "bigquery_list_datasets")
	if err := r.Register(a); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := r.Get("bigquery")
	if !ok || got != operation.Adapter(a) {
		t.Errorf("Get() = %v, %v; want registered adapter", got, ok)
	}
	if _, ok := r.Get("compute"); ok {
		t.Error("Get() found unregistered service")
	}
}

func TestRegistry_WalkDeterministic(t *testing.T) {
	t.Parallel()

	r := operation.NewRegistry()
	for _, svc := range []string{"storage", "bigquery", "compute"} {
		if err := r.Register(newFakeAdapter(svc, svc+"_list", svc+"_get")); err != nil {
			t.Fatalf("Register(%s) error = %v", svc, err)
		}
	}

	var visited []string
	r.Walk(func(service string, op operation.Operation) {
		visited = append(visited, op.Name)
	})

	want := []string{
		"bigquery_list", "bigquery_get",
		"compute_list", "compute_get",
		"storage_list", "storage_get",
	}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("Walk() order = %v, want %v", visited, want)
	}
}
