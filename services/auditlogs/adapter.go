// Package auditlogs exposes Cloud Audit Logs entries and log sink
// management as dispatchable operations.
package auditlogs

import (
	"context"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// DefaultFilter selects audit log entries only.
const DefaultFilter = `logName:"cloudaudit.googleapis.com"`

// Entry is the outward shape of a log entry.
type Entry struct {
	Timestamp      time.Time
	Severity       string
	LogName        string
	ResourceType   string
	ResourceLabels map[string]string
	Summary        string
}

// Sink is the outward shape of a log sink.
type Sink struct {
	Name            string
	Destination     string
	Filter          string
	WriterIdentity  string
	IncludeChildren bool
}

// SinkSpec describes a sink to create.
type SinkSpec struct {
	Name            string
	Destination     string
	Filter          string
	IncludeChildren bool
}

// Backend is the slice of Cloud Logging the adapter needs.
type Backend interface {
	ListEntries(ctx context.Context, project, filter string, pageSize int) ([]Entry, error)
	ListSinks(ctx context.Context, project string) ([]Sink, error)
	CreateSink(ctx context.Context, project string, spec SinkSpec) (*Sink, error)
}

// Adapter wires audit log operations into the dispatch registry.
type Adapter struct {
	backend Backend
}

// New creates an audit logs adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "auditlogs"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	projectField := []envelope.Field{
		{Name: "project_id", Source: envelope.SourceProject},
	}
	return []operation.Operation{
		{
			Name:        "list_audit_logs",
			Description: "List recent audit log entries, optionally with a custom filter",
			Fields: append([]envelope.Field{
				{Name: "filter"},
			}, projectField...),
			ReadOnly: true,
			Handler:  a.listAuditLogs,
		},
		{
			Name:        "list_log_sinks",
			Description: "List log sinks configured for a project",
			Fields:      projectField,
			ReadOnly:    true,
			Handler:     a.listLogSinks,
		},
		{
			Name:        "create_log_sink",
			Description: "Create a log sink routing entries to a destination",
			Fields: append([]envelope.Field{
				{Name: "sink_name", Required: true},
				{Name: "destination", Required: true},
			}, projectField...),
			Handler: a.createLogSink,
		},
	}
}

func (a *Adapter) listAuditLogs(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	filter := p.StringOr("filter", DefaultFilter)
	size64, _ := p.Int("page_size")
	size := int(size64)
	if size <= 0 {
		size = 10
	}

	entries, err := a.backend.ListEntries(ctx, project, filter, size)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"timestamp": envelope.Timestamp(e.Timestamp),
			"severity":  e.Severity,
			"log_name":  e.LogName,
			"resource": map[string]any{
				"type":   e.ResourceType,
				"labels": envelope.Labels(e.ResourceLabels),
			},
			"summary": e.Summary,
		})
	}
	return map[string]any{"entries": items, "count": len(items), "filter": filter}, nil
}

func (a *Adapter) listLogSinks(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")

	sinks, err := a.backend.ListSinks(ctx, project)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(sinks))
	for _, s := range sinks {
		items = append(items, sinkPayload(s))
	}
	return map[string]any{"sinks": items, "count": len(items)}, nil
}

func (a *Adapter) createLogSink(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	spec := SinkSpec{
		Name:            p.StringOr("sink_name", ""),
		Destination:     p.StringOr("destination", ""),
		Filter:          p.StringOr("filter", ""),
		IncludeChildren: p.Bool("include_children"),
	}

	s, err := a.backend.CreateSink(ctx, project, spec)
	if err != nil {
		return nil, err
	}
	return sinkPayload(*s), nil
}

func sinkPayload(s Sink) map[string]any {
	return map[string]any{
		"name":             s.Name,
		"destination":      s.Destination,
		"filter":           s.Filter,
		"writer_identity":  s.WriterIdentity,
		"include_children": s.IncludeChildren,
	}
}
