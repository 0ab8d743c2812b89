// Package cloudrun exposes Cloud Run services and revisions as
// dispatchable operations.
package cloudrun

import (
	"context"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// Container describes a container in a service template.
type Container struct {
	Image  string
	Env    map[string]string
	Limits map[string]string
}

// TrafficTarget describes one traffic split entry.
type TrafficTarget struct {
	Type     string
	Revision string
	Percent  int32
	Tag      string
}

// Service is the outward shape of a Cloud Run service.
type Service struct {
	Name         string
	UID          string
	URI          string
	Generation   int64
	Labels       map[string]string
	Created      time.Time
	Updated      time.Time
	LastModifier string
	Ingress      string
	Containers   []Container
	Traffic      []TrafficTarget
	Conditions   []Condition
}

// ServiceSpec describes a new service deployment.
type ServiceSpec struct {
	Name                 string
	Image                string
	Env                  map[string]string
	MemoryLimit          string
	CPULimit             string
	MinInstances         int32
	MaxInstances         int32
	Port                 int32
	AllowUnauthenticated bool
	ServiceAccount       string
	VPCConnector         string
	TimeoutSeconds       int64
}

// ServiceUpdate carries the mutable fields of a service. Nil pointers and
// nil maps leave the corresponding field untouched.
type ServiceUpdate struct {
	Name           string
	Image          *string
	Memory         *string
	CPU            *string
	MinInstances   *int32
	MaxInstances   *int32
	Concurrency    *int32
	TimeoutSeconds *int64
	ServiceAccount *string
	Env            map[string]string
	Labels         map[string]string
}

// Condition is a revision readiness condition.
type Condition struct {
	Type    string
	State   string
	Message string
}

// Revision is the outward shape of a service revision.
type Revision struct {
	Name         string
	Service      string
	Created      time.Time
	MinInstances int32
	MaxInstances int32
	Conditions   []Condition
}

// Backend is the slice of Cloud Run the adapter needs.
type Backend interface {
	ListServices(ctx context.Context, project, region string) ([]Service, error)
	GetService(ctx context.Context, project, region, name string) (*Service, error)
	ListRevisions(ctx context.Context, project, region, service string) ([]Revision, error)
	CreateService(ctx context.Context, project, region string, spec ServiceSpec) (*Service, error)
	UpdateService(ctx context.Context, project, region string, upd ServiceUpdate) (*Service, error)
	DeleteService(ctx context.Context, project, region, name string) error
}

// Adapter wires Cloud Run operations into the dispatch registry.
type Adapter struct {
	backend Backend
}

// New creates a Cloud Run adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "cloudrun"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	locationFields := []envelope.Field{
		{Name: "project_id", Source: envelope.SourceProject},
		{Name: "region", Source: envelope.SourceRegion},
	}
	return []operation.Operation{
		{
			Name:        "list_services",
			Description: "List Cloud Run services in a region",
			Fields:      locationFields,
			ReadOnly:    true,
			Handler:     a.listServices,
		},
		{
			Name:        "get_service",
			Description: "Get details for a Cloud Run service, including containers and traffic",
			Fields: append([]envelope.Field{
				{Name: "service_name", Required: true},
			}, locationFields...),
			ReadOnly: true,
			Handler:  a.getService,
		},
		{
			Name:        "list_revisions",
			Description: "List revisions of a Cloud Run service",
			Fields: append([]envelope.Field{
				{Name: "service_name", Required: true},
			}, locationFields...),
			ReadOnly: true,
			Handler:  a.listRevisions,
		},
		{
			Name:        "create_service",
			Description: "Deploy a new Cloud Run service from a container image",
			Fields: append([]envelope.Field{
				{Name: "service_name", Required: true},
				{Name: "image", Required: true},
			}, locationFields...),
			Handler: a.createService,
		},
		{
			Name:        "update_service",
			Description: "Update an existing Cloud Run service; only supplied fields change",
			Fields: append([]envelope.Field{
				{Name: "service_name", Required: true},
			}, locationFields...),
			Handler: a.updateService,
		},
		{
			Name:        "delete_service",
			Description: "Delete a Cloud Run service",
			Fields: append([]envelope.Field{
				{Name: "service_name", Required: true},
			}, locationFields...),
			Handler: a.deleteService,
		},
	}
}

func servicePayload(s Service) map[string]any {
	return map[string]any{
		"name":        s.Name,
		"uri":         s.URI,
		"labels":      envelope.Labels(s.Labels),
		"create_time": envelope.Timestamp(s.Created),
		"update_time": envelope.Timestamp(s.Updated),
	}
}

func (a *Adapter) listServices(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	region, _ := p.String("region")

	services, err := a.backend.ListServices(ctx, project, region)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(services))
	for _, s := range services {
		items = append(items, servicePayload(s))
	}
	return map[string]any{"services": items, "count": len(items)}, nil
}

func (a *Adapter) getService(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	region, _ := p.String("region")
	name, _ := p.String("service_name")

	s, err := a.backend.GetService(ctx, project, region, name)
	if err != nil {
		return nil, err
	}

	containers := make([]map[string]any, 0, len(s.Containers))
	for _, c := range s.Containers {
		containers = append(containers, map[string]any{
			"image":    c.Image,
			"env_vars": envelope.Labels(c.Env),
			"limits":   envelope.Labels(c.Limits),
		})
	}
	traffic := make([]map[string]any, 0, len(s.Traffic))
	for _, t := range s.Traffic {
		traffic = append(traffic, map[string]any{
			"type":     t.Type,
			"revision": t.Revision,
			"percent":  t.Percent,
			"tag":      t.Tag,
		})
	}

	payload := servicePayload(*s)
	payload["uid"] = s.UID
	payload["generation"] = s.Generation
	payload["last_modifier"] = s.LastModifier
	payload["ingress"] = s.Ingress
	payload["containers"] = containers
	payload["traffic"] = traffic
	return payload, nil
}

func (a *Adapter) listRevisions(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	region, _ := p.String("region")
	service, _ := p.String("service_name")

	revisions, err := a.backend.ListRevisions(ctx, project, region, service)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(revisions))
	for _, r := range revisions {
		conditions := make([]map[string]any, 0, len(r.Conditions))
		for _, c := range r.Conditions {
			conditions = append(conditions, map[string]any{
				"type":    c.Type,
				"state":   c.State,
				"message": c.Message,
			})
		}
		items = append(items, map[string]any{
			"name":               r.Name,
			"service":            r.Service,
			"create_time":        envelope.Timestamp(r.Created),
			"min_instance_count": r.MinInstances,
			"max_instance_count": r.MaxInstances,
			"conditions":         conditions,
		})
	}
	return map[string]any{"service": service, "revisions": items, "count": len(items)}, nil
}

func (a *Adapter) createService(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	region, _ := p.String("region")

	spec := ServiceSpec{
		Name:                 p.StringOr("service_name", ""),
		Image:                p.StringOr("image", ""),
		Env:                  p.StringMap("env_vars"),
		MemoryLimit:          p.StringOr("memory_limit", "512Mi"),
		CPULimit:             p.StringOr("cpu_limit", "1"),
		MinInstances:         0,
		MaxInstances:         100,
		Port:                 8080,
		AllowUnauthenticated: true,
		ServiceAccount:       p.StringOr("service_account", ""),
		VPCConnector:         p.StringOr("vpc_connector", ""),
		TimeoutSeconds:       300,
	}
	if v, ok := p.Int("min_instances"); ok {
		spec.MinInstances = int32(v)
	}
	if v, ok := p.Int("max_instances"); ok {
		spec.MaxInstances = int32(v)
	}
	if v, ok := p.Int("port"); ok {
		spec.Port = int32(v)
	}
	if v, ok := p.Int("timeout_seconds"); ok {
		spec.TimeoutSeconds = v
	}
	if v, ok := p["allow_unauthenticated"].(bool); ok {
		spec.AllowUnauthenticated = v
	}

	s, err := a.backend.CreateService(ctx, project, region, spec)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":        s.Name,
		"uri":         s.URI,
		"create_time": envelope.Timestamp(s.Created),
		"update_time": envelope.Timestamp(s.Updated),
	}, nil
}

func (a *Adapter) updateService(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	region, _ := p.String("region")

	upd := ServiceUpdate{Name: p.StringOr("service_name", "")}
	updated := []string{}
	if v, ok := p.String("image"); ok {
		upd.Image = &v
		updated = append(updated, "image")
	}
	if v, ok := p.String("memory"); ok {
		upd.Memory = &v
		updated = append(updated, "memory")
	}
	if v, ok := p.String("cpu"); ok {
		upd.CPU = &v
		updated = append(updated, "cpu")
	}
	if v, ok := p.Int("min_instances"); ok {
		n := int32(v)
		upd.MinInstances = &n
		updated = append(updated, "min_instances")
	}
	if v, ok := p.Int("max_instances"); ok {
		n := int32(v)
		upd.MaxInstances = &n
		updated = append(updated, "max_instances")
	}
	if v, ok := p.Int("concurrency"); ok {
		n := int32(v)
		upd.Concurrency = &n
		updated = append(updated, "concurrency")
	}
	if v, ok := p.Int("timeout_seconds"); ok {
		upd.TimeoutSeconds = &v
		updated = append(updated, "timeout_seconds")
	}
	if v, ok := p.String("service_account"); ok {
		upd.ServiceAccount = &v
		updated = append(updated, "service_account")
	}
	if _, ok := p["env_vars"]; ok {
		upd.Env = p.StringMap("env_vars")
		updated = append(updated, "env_vars")
	}
	if _, ok := p["labels"]; ok {
		upd.Labels = p.StringMap("labels")
		updated = append(updated, "labels")
	}

	if len(updated) == 0 {
		return map[string]any{
			"message":        "no updates specified",
			"updated_fields": updated,
		}, nil
	}

	s, err := a.backend.UpdateService(ctx, project, region, upd)
	if err != nil {
		return nil, err
	}

	conditions := make([]map[string]any, 0, len(s.Conditions))
	for _, c := range s.Conditions {
		conditions = append(conditions, map[string]any{
			"type":    c.Type,
			"state":   c.State,
			"message": c.Message,
		})
	}
	return map[string]any{
		"name":           s.Name,
		"uri":            s.URI,
		"updated_fields": updated,
		"conditions":     conditions,
	}, nil
}

func (a *Adapter) deleteService(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	region, _ := p.String("region")
	name, _ := p.String("service_name")

	if err := a.backend.DeleteService(ctx, project, region, name); err != nil {
		return nil, err
	}
	return map[string]any{
		"message": "service " + name + " deleted",
	}, nil
}
