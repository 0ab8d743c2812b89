package compute

import (
	"context"
	"errors"
	"testing"

	"github.com/enesbol/gcp-mcp/domain/envelope"
)

type fakeBackend struct {
	instances []Instance
	err       error

	createdSpec *InstanceSpec
	started     []string
	stopped     []string
	deleted     []string
	filter      string
}

func (f *fakeBackend) ListInstances(ctx context.Context, project, zone, filter string) ([]Instance, error) {
	f.filter = filter
	return f.instances, f.err
}

func (f *fakeBackend) CreateInstance(ctx context.Context, project, zone string, spec InstanceSpec) error {
	if f.err != nil {
		return f.err
	}
	f.createdSpec = &spec
	return nil
}

func (f *fakeBackend) StartInstance(ctx context.Context, project, zone, name string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, zone+"/"+name)
	return nil
}

func (f *fakeBackend) StopInstance(ctx context.Context, project, zone, name string) error {
	if f.err != nil {
		return f.err
	}
	f.stopped = append(f.stopped, zone+"/"+name)
	return nil
}

func (f *fakeBackend) DeleteInstance(ctx context.Context, project, zone, name string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, zone+"/"+name)
	return nil
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

func TestListInstances(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{instances: []Instance{
		{Name: "web-1", Status: "RUNNING", MachineType: "n2-standard-2", InternalIP: "10.0.0.2"},
		{Name: "web-2", Status: "TERMINATED", MachineType: "e2-small"},
	}}
	a := New(backend)

	payload, err := handlerFor(t, a, "list_instances")(context.Background(), envelope.Params{
		"project_id": "p1",
		"zone":       "us-central1-a",
		"filter":     "status=RUNNING",
	})
	if err != nil {
		t.Fatalf("list_instances: %v", err)
	}
	if backend.filter != "status=RUNNING" {
		t.Errorf("filter = %q", backend.filter)
	}
	items := payload["instances"].([]map[string]any)
	if items[0]["machine_type"] != "n2-standard-2" {
		t.Errorf("instances[0] = %v", items[0])
	}
	if items[1]["labels"] == nil {
		t.Error("labels must be an empty map, not nil")
	}
}

func TestLifecycleOperations(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	a := New(backend)
	params := envelope.Params{
		"instance_name": "web-1",
		"project_id":    "p1",
		"zone":          "us-central1-a",
	}

	for _, op := range []string{"start_instance", "stop_instance", "delete_instance"} {
		payload, err := handlerFor(t, a, op)(context.Background(), params)
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if payload["operation_status"] != "DONE" {
			t.Errorf("%s operation_status = %v", op, payload["operation_status"])
		}
	}
	if len(backend.started) != 1 || backend.started[0] != "us-central1-a/web-1" {
		t.Errorf("started = %v", backend.started)
	}
	if len(backend.stopped) != 1 {
		t.Errorf("stopped = %v", backend.stopped)
	}
	if len(backend.deleted) != 1 {
		t.Errorf("deleted = %v", backend.deleted)
	}
}

func TestCreateInstanceDefaults(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	a := New(backend)

	payload, err := handlerFor(t, a, "create_instance")(context.Background(), envelope.Params{
		"instance_name": "vm-1",
		"machine_type":  "n2-standard-2",
		"project_id":    "p1",
		"zone":          "us-central1-a",
	})
	if err != nil {
		t.Fatalf("create_instance: %v", err)
	}

	spec := backend.createdSpec
	if spec.Image != "projects/debian-cloud/global/images/family/debian-11" {
		t.Errorf("image = %q", spec.Image)
	}
	if spec.Network != "global/networks/default" {
		t.Errorf("network = %q", spec.Network)
	}
	if spec.DiskSizeGB != 10 {
		t.Errorf("disk_size_gb = %d, want 10", spec.DiskSizeGB)
	}
	if payload["operation_type"] != "insert" || payload["operation_status"] != "DONE" {
		t.Errorf("payload = %v", payload)
	}
}

func TestCreateInstanceOverrides(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	a := New(backend)

	_, err := handlerFor(t, a, "create_instance")(context.Background(), envelope.Params{
		"instance_name": "vm-2",
		"machine_type":  "e2-medium",
		"project_id":    "p1",
		"zone":          "us-central1-a",
		"image":         "projects/ubuntu-os-cloud/global/images/family/ubuntu-2204-lts",
		"disk_size_gb":  float64(50),
	})
	if err != nil {
		t.Fatalf("create_instance: %v", err)
	}

	spec := backend.createdSpec
	if spec.Image != "projects/ubuntu-os-cloud/global/images/family/ubuntu-2204-lts" {
		t.Errorf("image = %q", spec.Image)
	}
	if spec.DiskSizeGB != 50 {
		t.Errorf("disk_size_gb = %d, want 50", spec.DiskSizeGB)
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("zone exhausted")
	a := New(&fakeBackend{err: backendErr})

	_, err := handlerFor(t, a, "start_instance")(context.Background(), envelope.Params{
		"instance_name": "web-1",
		"project_id":    "p1",
		"zone":          "us-central1-a",
	})
	if !errors.Is(err, backendErr) {
		t.Errorf("err = %v, want backend error", err)
	}
}
