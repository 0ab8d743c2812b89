// Package compute exposes Compute Engine instance operations.
package compute

import (
	"context"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// Instance is the outward shape of a VM instance.
type Instance struct {
	Name        string
	Status      string
	MachineType string
	Zone        string
	InternalIP  string
	ExternalIP  string
	Labels      map[string]string
	Created     time.Time
}

// InstanceSpec describes a new VM instance. Image is a source image path
// for the boot disk; Network is the network to attach with a NAT access
// config.
type InstanceSpec struct {
	Name        string
	MachineType string
	Image       string
	Network     string
	DiskSizeGB  int64
}

// Backend is the slice of Compute Engine the adapter needs.
type Backend interface {
	ListInstances(ctx context.Context, project, zone, filter string) ([]Instance, error)
	CreateInstance(ctx context.Context, project, zone string, spec InstanceSpec) error
	StartInstance(ctx context.Context, project, zone, name string) error
	StopInstance(ctx context.Context, project, zone, name string) error
	DeleteInstance(ctx context.Context, project, zone, name string) error
}

// Adapter wires Compute Engine operations into the dispatch registry.
type Adapter struct {
	backend Backend
}

// New creates a Compute Engine adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "compute"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	instanceFields := []envelope.Field{
		{Name: "instance_name", Required: true},
		{Name: "project_id", Source: envelope.SourceProject},
		{Name: "zone", Source: envelope.SourceRegion},
	}
	return []operation.Operation{
		{
			Name:        "list_instances",
			Description: "List Compute Engine instances in a zone, optionally filtered",
			Fields: []envelope.Field{
				{Name: "project_id", Source: envelope.SourceProject},
				{Name: "zone", Source: envelope.SourceRegion},
				{Name: "filter"},
			},
			ReadOnly: true,
			Handler:  a.listInstances,
		},
		{
			Name:        "create_instance",
			Description: "Create a new Compute Engine instance with a boot disk and NAT access",
			Fields: []envelope.Field{
				{Name: "instance_name", Required: true},
				{Name: "machine_type", Required: true},
				{Name: "project_id", Source: envelope.SourceProject},
				{Name: "zone", Source: envelope.SourceRegion},
			},
			Handler: a.createInstance,
		},
		{
			Name:        "start_instance",
			Description: "Start a stopped Compute Engine instance",
			Fields:      instanceFields,
			Handler:     a.startInstance,
		},
		{
			Name:        "stop_instance",
			Description: "Stop a running Compute Engine instance",
			Fields:      instanceFields,
			Handler:     a.stopInstance,
		},
		{
			Name:        "delete_instance",
			Description: "Delete a Compute Engine instance",
			Fields:      instanceFields,
			Handler:     a.deleteInstance,
		},
	}
}

func (a *Adapter) listInstances(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	zone, _ := p.String("zone")
	filter, _ := p.String("filter")

	instances, err := a.backend.ListInstances(ctx, project, zone, filter)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(instances))
	for _, inst := range instances {
		items = append(items, map[string]any{
			"name":          inst.Name,
			"status":        inst.Status,
			"machine_type":  inst.MachineType,
			"zone":          inst.Zone,
			"internal_ip":   inst.InternalIP,
			"external_ip":   inst.ExternalIP,
			"labels":        envelope.Labels(inst.Labels),
			"creation_time": envelope.Timestamp(inst.Created),
		})
	}
	return map[string]any{"instances": items, "count": len(items)}, nil
}

func (a *Adapter) createInstance(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	zone, _ := p.String("zone")

	spec := InstanceSpec{
		Name:        p.StringOr("instance_name", ""),
		MachineType: p.StringOr("machine_type", ""),
		Image:       p.StringOr("image", "projects/debian-cloud/global/images/family/debian-11"),
		Network:     p.StringOr("network", "global/networks/default"),
		DiskSizeGB:  10,
	}
	if v, ok := p.Int("disk_size_gb"); ok {
		spec.DiskSizeGB = v
	}

	if err := a.backend.CreateInstance(ctx, project, zone, spec); err != nil {
		return nil, err
	}
	return map[string]any{
		"instance_name":    spec.Name,
		"zone":             zone,
		"operation_type":   "insert",
		"operation_status": "DONE",
	}, nil
}

func (a *Adapter) startInstance(ctx context.Context, p envelope.Params) (map[string]any, error) {
	return a.lifecycle(ctx, p, "started", a.backend.StartInstance)
}

func (a *Adapter) stopInstance(ctx context.Context, p envelope.Params) (map[string]any, error) {
	return a.lifecycle(ctx, p, "stopped", a.backend.StopInstance)
}

func (a *Adapter) deleteInstance(ctx context.Context, p envelope.Params) (map[string]any, error) {
	return a.lifecycle(ctx, p, "deleted", a.backend.DeleteInstance)
}

func (a *Adapter) lifecycle(ctx context.Context, p envelope.Params, verb string, fn func(context.Context, string, string, string) error) (map[string]any, error) {
	project, _ := p.String("project_id")
	zone, _ := p.String("zone")
	name, _ := p.String("instance_name")

	if err := fn(ctx, project, zone, name); err != nil {
		return nil, err
	}
	return map[string]any{
		"instance_name":    name,
		"zone":             zone,
		"operation_status": "DONE",
		"message":          "instance " + name + " " + verb,
	}, nil
}
