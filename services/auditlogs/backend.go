package auditlogs

import (
	"context"
	"fmt"

	"cloud.google.com/go/logging/logadmin"
	"google.golang.org/api/iterator"

	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

type logBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates an audit logs adapter backed by the real client.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&logBackend{reg: reg})
}

func (b *logBackend) ListEntries(ctx context.Context, project, filter string, pageSize int) ([]Entry, error) {
	client, err := b.reg.LogAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	it := client.Entries(ctx, logadmin.Filter(filter), logadmin.NewestFirst())
	for len(entries) < pageSize {
		e, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing log entries: %w", err)
		}
		entry := Entry{
			Timestamp: e.Timestamp,
			Severity:  e.Severity.String(),
			LogName:   e.LogName,
			Summary:   summarizePayload(e.Payload),
		}
		if e.Resource != nil {
			entry.ResourceType = e.Resource.Type
			entry.ResourceLabels = e.Resource.Labels
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (b *logBackend) ListSinks(ctx context.Context, project string) ([]Sink, error) {
	client, err := b.reg.LogAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var sinks []Sink
	it := client.Sinks(ctx)
	for {
		s, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing log sinks: %w", err)
		}
		sinks = append(sinks, sinkFromAdmin(s))
	}
	return sinks, nil
}

func (b *logBackend) CreateSink(ctx context.Context, project string, spec SinkSpec) (*Sink, error) {
	client, err := b.reg.LogAdmin(ctx)
	if err != nil {
		return nil, err
	}

	created, err := client.CreateSinkOpt(ctx, &logadmin.Sink{
		ID:              spec.Name,
		Destination:     spec.Destination,
		Filter:          spec.Filter,
		IncludeChildren: spec.IncludeChildren,
	}, logadmin.SinkOptions{UniqueWriterIdentity: true})
	if err != nil {
		return nil, fmt.Errorf("creating log sink %s: %w", spec.Name, err)
	}
	sink := sinkFromAdmin(created)
	return &sink, nil
}

func sinkFromAdmin(s *logadmin.Sink) Sink {
	return Sink{
		Name:            s.ID,
		Destination:     s.Destination,
		Filter:          s.Filter,
		WriterIdentity:  s.WriterIdentity,
		IncludeChildren: s.IncludeChildren,
	}
}

// summarizePayload renders a log payload as a short single line.
func summarizePayload(payload any) string {
	if payload == nil {
		return ""
	}
	s := fmt.Sprintf("%v", payload)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
