// Package bigquery exposes BigQuery datasets, tables and queries as
// dispatchable operations.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// Dataset is the outward shape of a dataset.
type Dataset struct {
	ID           string
	FullID       string
	FriendlyName string
	Description  string
	Location     string
	Labels       map[string]string
	Created      time.Time
	Modified     time.Time
}

// Table is the outward shape of a table reference within a dataset.
type Table struct {
	ID        string
	FullID    string
	TableType string
}

// QueryResult carries the rows and job statistics of a completed query.
type QueryResult struct {
	Schema         []string
	Rows           []map[string]any
	TotalRows      uint64
	BytesProcessed int64
	Started        time.Time
	Ended          time.Time
}

// QuerySpec describes a query to run. DryRun validates the query and
// estimates its cost without executing it.
type QuerySpec struct {
	SQL          string
	Location     string
	MaxResults   int
	UseLegacySQL bool
	DryRun       bool
}

// DatasetSpec describes a dataset to create.
type DatasetSpec struct {
	ID           string
	Location     string
	Description  string
	FriendlyName string
	Labels       map[string]string
}

// Backend is the slice of BigQuery the adapter needs.
type Backend interface {
	ListDatasets(ctx context.Context) ([]Dataset, error)
	ListTables(ctx context.Context, dataset string) ([]Table, error)
	RunQuery(ctx context.Context, spec QuerySpec) (*QueryResult, error)
	CreateDataset(ctx context.Context, spec DatasetSpec) (*Dataset, error)
	DeleteTable(ctx context.Context, dataset, table string) error
}

// Adapter wires BigQuery operations into the dispatch registry.
type Adapter struct {
	backend Backend
}

// New creates a BigQuery adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "bigquery"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	return []operation.Operation{
		{
			Name:        "list_datasets",
			Description: "List BigQuery datasets in the configured project",
			Fields: []envelope.Field{
				{Name: "project_id", Source: envelope.SourceProject},
			},
			ReadOnly: true,
			Handler:  a.listDatasets,
		},
		{
			Name:        "list_tables",
			Description: "List tables in a BigQuery dataset",
			Fields: []envelope.Field{
				{Name: "dataset_id", Required: true},
			},
			ReadOnly: true,
			Handler:  a.listTables,
		},
		{
			Name:        "run_query",
			Description: "Run a BigQuery SQL query and return rows with job statistics; set dry_run to validate the query and estimate bytes processed without executing it",
			Fields: []envelope.Field{
				{Name: "query", Required: true},
				{Name: "location", Source: envelope.SourceRegion},
			},
			ReadOnly: true,
			Handler:  a.runQuery,
		},
		{
			Name:        "create_dataset",
			Description: "Create a BigQuery dataset",
			Fields: []envelope.Field{
				{Name: "dataset_id", Required: true},
				{Name: "location", Source: envelope.SourceRegion},
			},
			Handler: a.createDataset,
		},
		{
			Name:        "delete_table",
			Description: "Delete a table from a BigQuery dataset",
			Fields: []envelope.Field{
				{Name: "dataset_id", Required: true},
				{Name: "table_id", Required: true},
			},
			Handler: a.deleteTable,
		},
	}
}

func datasetPayload(d Dataset) map[string]any {
	return map[string]any{
		"id":            d.ID,
		"full_id":       d.FullID,
		"friendly_name": d.FriendlyName,
		"location":      d.Location,
		"labels":        envelope.Labels(d.Labels),
		"created":       envelope.Timestamp(d.Created),
	}
}

func (a *Adapter) listDatasets(ctx context.Context, p envelope.Params) (map[string]any, error) {
	datasets, err := a.backend.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(datasets))
	for _, d := range datasets {
		items = append(items, datasetPayload(d))
	}
	return map[string]any{"datasets": items, "count": len(items)}, nil
}

func (a *Adapter) listTables(ctx context.Context, p envelope.Params) (map[string]any, error) {
	dataset, _ := p.String("dataset_id")

	tables, err := a.backend.ListTables(ctx, dataset)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(tables))
	for _, t := range tables {
		items = append(items, map[string]any{
			"id":         t.ID,
			"full_id":    t.FullID,
			"table_type": t.TableType,
		})
	}
	return map[string]any{"dataset_id": dataset, "tables": items, "count": len(items)}, nil
}

func (a *Adapter) runQuery(ctx context.Context, p envelope.Params) (map[string]any, error) {
	sql, _ := p.String("query")
	max64, _ := p.Int("max_results")
	max := int(max64)
	if max <= 0 {
		max = 100
	}

	spec := QuerySpec{
		SQL:          sql,
		Location:     p.StringOr("location", ""),
		MaxResults:   max,
		UseLegacySQL: p.Bool("use_legacy_sql"),
		DryRun:       p.Bool("dry_run"),
	}

	res, err := a.backend.RunQuery(ctx, spec)
	if err != nil {
		return nil, err
	}

	if spec.DryRun {
		return map[string]any{
			"dry_run":               true,
			"total_bytes_processed": res.BytesProcessed,
			"message":               "query validated, no data read",
		}, nil
	}

	stats := map[string]any{
		"total_rows":            res.TotalRows,
		"total_bytes_processed": res.BytesProcessed,
		"started":               envelope.Timestamp(res.Started),
		"ended":                 envelope.Timestamp(res.Ended),
	}
	if !res.Started.IsZero() && !res.Ended.IsZero() {
		stats["duration_ms"] = res.Ended.Sub(res.Started).Milliseconds()
	}

	return map[string]any{
		"schema":        envelope.List(res.Schema),
		"rows":          envelope.List(res.Rows),
		"returned_rows": len(res.Rows),
		"stats":         stats,
	}, nil
}

func (a *Adapter) createDataset(ctx context.Context, p envelope.Params) (map[string]any, error) {
	spec := DatasetSpec{
		ID:           p.StringOr("dataset_id", ""),
		Location:     p.StringOr("location", ""),
		Description:  p.StringOr("description", ""),
		FriendlyName: p.StringOr("friendly_name", ""),
		Labels:       p.StringMap("labels"),
	}

	d, err := a.backend.CreateDataset(ctx, spec)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"dataset_id":      d.ID,
		"full_dataset_id": d.FullID,
		"location":        d.Location,
		"created":         envelope.Timestamp(d.Created),
	}, nil
}

func (a *Adapter) deleteTable(ctx context.Context, p envelope.Params) (map[string]any, error) {
	dataset, _ := p.String("dataset_id")
	table, _ := p.String("table_id")

	if err := a.backend.DeleteTable(ctx, dataset, table); err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("table %s.%s deleted", dataset, table),
	}, nil
}
