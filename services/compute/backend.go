package compute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/proto"

	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

type gceBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates a Compute Engine adapter backed by the real client.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&gceBackend{reg: reg})
}

func (b *gceBackend) ListInstances(ctx context.Context, project, zone, filter string) ([]Instance, error) {
	client, err := b.reg.Compute(ctx)
	if err != nil {
		return nil, err
	}

	req := &computepb.ListInstancesRequest{
		Project: project,
		Zone:    zone,
	}
	if filter != "" {
		req.Filter = proto.String(filter)
	}

	var instances []Instance
	it := client.List(ctx, req)
	for {
		inst, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing instances in %s: %w", zone, err)
		}
		instances = append(instances, instanceFromProto(inst))
	}
	return instances, nil
}

func (b *gceBackend) CreateInstance(ctx context.Context, project, zone string, spec InstanceSpec) error {
	client, err := b.reg.Compute(ctx)
	if err != nil {
		return err
	}

	resource := &computepb.Instance{
		Name:        proto.String(spec.Name),
		MachineType: proto.String(fmt.Sprintf("zones/%s/machineTypes/%s", zone, spec.MachineType)),
		Disks: []*computepb.AttachedDisk{{
			Boot:       proto.Bool(true),
			AutoDelete: proto.Bool(true),
			InitializeParams: &computepb.AttachedDiskInitializeParams{
				SourceImage: proto.String(spec.Image),
				DiskSizeGb:  proto.Int64(spec.DiskSizeGB),
			},
		}},
		NetworkInterfaces: []*computepb.NetworkInterface{{
			Network: proto.String(spec.Network),
			AccessConfigs: []*computepb.AccessConfig{{
				Type: proto.String("ONE_TO_ONE_NAT"),
				Name: proto.String("External NAT"),
			}},
		}},
	}

	op, err := client.Insert(ctx, &computepb.InsertInstanceRequest{
		Project:          project,
		Zone:             zone,
		InstanceResource: resource,
	})
	if err != nil {
		return fmt.Errorf("creating instance %s: %w", spec.Name, err)
	}
	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for creation of %s: %w", spec.Name, err)
	}
	return nil
}

func (b *gceBackend) StartInstance(ctx context.Context, project, zone, name string) error {
	client, err := b.reg.Compute(ctx)
	if err != nil {
		return err
	}
	op, err := client.Start(ctx, &computepb.StartInstanceRequest{
		Project:  project,
		Zone:     zone,
		Instance: name,
	})
	if err != nil {
		return fmt.Errorf("starting instance %s: %w", name, err)
	}
	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for start of %s: %w", name, err)
	}
	return nil
}

func (b *gceBackend) StopInstance(ctx context.Context, project, zone, name string) error {
	client, err := b.reg.Compute(ctx)
	if err != nil {
		return err
	}
	op, err := client.Stop(ctx, &computepb.StopInstanceRequest{
		Project:  project,
		Zone:     zone,
		Instance: name,
	})
	if err != nil {
		return fmt.Errorf("stopping instance %s: %w", name, err)
	}
	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for stop of %s: %w", name, err)
	}
	return nil
}

func (b *gceBackend) DeleteInstance(ctx context.Context, project, zone, name string) error {
	client, err := b.reg.Compute(ctx)
	if err != nil {
		return err
	}
	op, err := client.Delete(ctx, &computepb.DeleteInstanceRequest{
		Project:  project,
		Zone:     zone,
		Instance: name,
	})
	if err != nil {
		return fmt.Errorf("deleting instance %s: %w", name, err)
	}
	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for deletion of %s: %w", name, err)
	}
	return nil
}

func instanceFromProto(inst *computepb.Instance) Instance {
	out := Instance{
		Name:        inst.GetName(),
		Status:      inst.GetStatus(),
		MachineType: lastSegment(inst.GetMachineType()),
		Zone:        lastSegment(inst.GetZone()),
		Labels:      inst.GetLabels(),
	}
	if ts := inst.GetCreationTimestamp(); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.Created = t
		}
	}
	if nics := inst.GetNetworkInterfaces(); len(nics) > 0 {
		out.InternalIP = nics[0].GetNetworkIP()
		if acs := nics[0].GetAccessConfigs(); len(acs) > 0 {
			out.ExternalIP = acs[0].GetNatIP()
		}
	}
	return out
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
