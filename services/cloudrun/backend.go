package cloudrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/run/apiv2/runpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

type runBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates a Cloud Run adapter backed by the real clients.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&runBackend{reg: reg})
}

func locationPath(project, region string) string {
	return fmt.Sprintf("projects/%s/locations/%s", project, region)
}

func servicePath(project, region, name string) string {
	return locationPath(project, region) + "/services/" + name
}

func shortName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}

func (b *runBackend) ListServices(ctx context.Context, project, region string) ([]Service, error) {
	clients, err := b.reg.Run(ctx)
	if err != nil {
		return nil, err
	}

	var services []Service
	it := clients.Services.ListServices(ctx, &runpb.ListServicesRequest{
		Parent: locationPath(project, region),
	})
	for {
		svc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing services in %s: %w", region, err)
		}
		services = append(services, serviceFromProto(svc))
	}
	return services, nil
}

func (b *runBackend) GetService(ctx context.Context, project, region, name string) (*Service, error) {
	clients, err := b.reg.Run(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := clients.Services.GetService(ctx, &runpb.GetServiceRequest{
		Name: servicePath(project, region, name),
	})
	if err != nil {
		return nil, fmt.Errorf("getting service %s: %w", name, err)
	}
	out := serviceFromProto(svc)
	return &out, nil
}

func (b *runBackend) ListRevisions(ctx context.Context, project, region, service string) ([]Revision, error) {
	clients, err := b.reg.Run(ctx)
	if err != nil {
		return nil, err
	}

	var revisions []Revision
	it := clients.Revisions.ListRevisions(ctx, &runpb.ListRevisionsRequest{
		Parent: servicePath(project, region, service),
	})
	for {
		rev, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing revisions of %s: %w", service, err)
		}
		revisions = append(revisions, revisionFromProto(rev))
	}
	return revisions, nil
}

func (b *runBackend) CreateService(ctx context.Context, project, region string, spec ServiceSpec) (*Service, error) {
	clients, err := b.reg.Run(ctx)
	if err != nil {
		return nil, err
	}

	container := &runpb.Container{
		Image: spec.Image,
		Resources: &runpb.ResourceRequirements{
			Limits: map[string]string{
				"memory": spec.MemoryLimit,
				"cpu":    spec.CPULimit,
			},
		},
		Ports: []*runpb.ContainerPort{{ContainerPort: spec.Port}},
	}
	for name, value := range spec.Env {
		container.Env = append(container.Env, &runpb.EnvVar{
			Name:   name,
			Values: &runpb.EnvVar_Value{Value: value},
		})
	}

	template := &runpb.RevisionTemplate{
		Containers: []*runpb.Container{container},
		Scaling: &runpb.RevisionScaling{
			MinInstanceCount: spec.MinInstances,
			MaxInstanceCount: spec.MaxInstances,
		},
		Timeout:        durationpb.New(time.Duration(spec.TimeoutSeconds) * time.Second),
		ServiceAccount: spec.ServiceAccount,
	}
	if spec.VPCConnector != "" {
		template.VpcAccess = &runpb.VpcAccess{
			Connector: spec.VPCConnector,
			Egress:    runpb.VpcAccess_ALL_TRAFFIC,
		}
	}

	ingress := runpb.IngressTraffic_INGRESS_TRAFFIC_ALL
	if !spec.AllowUnauthenticated {
		ingress = runpb.IngressTraffic_INGRESS_TRAFFIC_INTERNAL_ONLY
	}

	op, err := clients.Services.CreateService(ctx, &runpb.CreateServiceRequest{
		Parent:    locationPath(project, region),
		ServiceId: spec.Name,
		Service: &runpb.Service{
			Template: template,
			Ingress:  ingress,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating service %s: %w", spec.Name, err)
	}
	created, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for creation of %s: %w", spec.Name, err)
	}
	out := serviceFromProto(created)
	return &out, nil
}

func (b *runBackend) UpdateService(ctx context.Context, project, region string, upd ServiceUpdate) (*Service, error) {
	clients, err := b.reg.Run(ctx)
	if err != nil {
		return nil, err
	}

	// Read-modify-write: fetch the current service, apply only the
	// supplied fields, and send the whole resource back.
	svc, err := clients.Services.GetService(ctx, &runpb.GetServiceRequest{
		Name: servicePath(project, region, upd.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("getting service %s: %w", upd.Name, err)
	}

	template := svc.GetTemplate()
	if template == nil {
		template = &runpb.RevisionTemplate{}
		svc.Template = template
	}
	container := firstContainer(template)

	if upd.Image != nil {
		container.Image = *upd.Image
	}
	if upd.Memory != nil {
		containerLimits(container)["memory"] = *upd.Memory
	}
	if upd.CPU != nil {
		containerLimits(container)["cpu"] = *upd.CPU
	}
	if upd.MinInstances != nil || upd.MaxInstances != nil {
		if template.Scaling == nil {
			template.Scaling = &runpb.RevisionScaling{}
		}
		if upd.MinInstances != nil {
			template.Scaling.MinInstanceCount = *upd.MinInstances
		}
		if upd.MaxInstances != nil {
			template.Scaling.MaxInstanceCount = *upd.MaxInstances
		}
	}
	if upd.Concurrency != nil {
		template.MaxInstanceRequestConcurrency = *upd.Concurrency
	}
	if upd.TimeoutSeconds != nil {
		template.Timeout = durationpb.New(time.Duration(*upd.TimeoutSeconds) * time.Second)
	}
	if upd.ServiceAccount != nil {
		template.ServiceAccount = *upd.ServiceAccount
	}
	if upd.Env != nil {
		container.Env = container.Env[:0]
		for name, value := range upd.Env {
			container.Env = append(container.Env, &runpb.EnvVar{
				Name:   name,
				Values: &runpb.EnvVar_Value{Value: value},
			})
		}
	}
	if upd.Labels != nil {
		svc.Labels = upd.Labels
	}

	op, err := clients.Services.UpdateService(ctx, &runpb.UpdateServiceRequest{Service: svc})
	if err != nil {
		return nil, fmt.Errorf("updating service %s: %w", upd.Name, err)
	}
	updated, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for update of %s: %w", upd.Name, err)
	}
	out := serviceFromProto(updated)
	return &out, nil
}

func firstContainer(template *runpb.RevisionTemplate) *runpb.Container {
	if len(template.GetContainers()) == 0 {
		template.Containers = []*runpb.Container{{}}
	}
	return template.Containers[0]
}

func containerLimits(container *runpb.Container) map[string]string {
	if container.Resources == nil {
		container.Resources = &runpb.ResourceRequirements{}
	}
	if container.Resources.Limits == nil {
		container.Resources.Limits = map[string]string{}
	}
	return container.Resources.Limits
}

func (b *runBackend) DeleteService(ctx context.Context, project, region, name string) error {
	clients, err := b.reg.Run(ctx)
	if err != nil {
		return err
	}

	op, err := clients.Services.DeleteService(ctx, &runpb.DeleteServiceRequest{
		Name: servicePath(project, region, name),
	})
	if err != nil {
		return fmt.Errorf("deleting service %s: %w", name, err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for deletion of %s: %w", name, err)
	}
	return nil
}

func serviceFromProto(svc *runpb.Service) Service {
	out := Service{
		Name:         shortName(svc.GetName()),
		UID:          svc.GetUid(),
		URI:          svc.GetUri(),
		Generation:   svc.GetGeneration(),
		Labels:       svc.GetLabels(),
		LastModifier: svc.GetLastModifier(),
		Ingress:      svc.GetIngress().String(),
	}
	if t := svc.GetCreateTime(); t != nil {
		out.Created = t.AsTime()
	}
	if t := svc.GetUpdateTime(); t != nil {
		out.Updated = t.AsTime()
	}
	for _, c := range svc.GetTemplate().GetContainers() {
		env := map[string]string{}
		for _, e := range c.GetEnv() {
			env[e.GetName()] = e.GetValue()
		}
		out.Containers = append(out.Containers, Container{
			Image:  c.GetImage(),
			Env:    env,
			Limits: c.GetResources().GetLimits(),
		})
	}
	for _, t := range svc.GetTraffic() {
		out.Traffic = append(out.Traffic, TrafficTarget{
			Type:     t.GetType().String(),
			Revision: shortName(t.GetRevision()),
			Percent:  t.GetPercent(),
			Tag:      t.GetTag(),
		})
	}
	for _, c := range svc.GetConditions() {
		out.Conditions = append(out.Conditions, Condition{
			Type:    c.GetType(),
			State:   c.GetState().String(),
			Message: c.GetMessage(),
		})
	}
	return out
}

func revisionFromProto(rev *runpb.Revision) Revision {
	out := Revision{
		Name:    shortName(rev.GetName()),
		Service: shortName(rev.GetService()),
	}
	if t := rev.GetCreateTime(); t != nil {
		out.Created = t.AsTime()
	}
	if s := rev.GetScaling(); s != nil {
		out.MinInstances = s.GetMinInstanceCount()
		out.MaxInstances = s.GetMaxInstanceCount()
	}
	for _, c := range rev.GetConditions() {
		out.Conditions = append(out.Conditions, Condition{
			Type:    c.GetType(),
			State:   c.GetState().String(),
			Message: c.GetMessage(),
		})
	}
	return out
}
