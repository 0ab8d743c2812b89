package bigquery

import (
	"context"
	"fmt"
	"time"

	bq "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

type bqBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates a BigQuery adapter backed by the real client.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&bqBackend{reg: reg})
}

func (b *bqBackend) ListDatasets(ctx context.Context) ([]Dataset, error) {
	client, err := b.reg.BigQuery(ctx)
	if err != nil {
		return nil, err
	}

	var datasets []Dataset
	it := client.Datasets(ctx)
	for {
		ds, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing datasets: %w", err)
		}
		md, err := ds.Metadata(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading dataset %s: %w", ds.DatasetID, err)
		}
		datasets = append(datasets, datasetFromMetadata(ds.ProjectID, ds.DatasetID, md))
	}
	return datasets, nil
}

func (b *bqBackend) ListTables(ctx context.Context, dataset string) ([]Table, error) {
	client, err := b.reg.BigQuery(ctx)
	if err != nil {
		return nil, err
	}

	var tables []Table
	it := client.Dataset(dataset).Tables(ctx)
	for {
		t, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing tables in %s: %w", dataset, err)
		}
		tables = append(tables, Table{
			ID:     t.TableID,
			FullID: fmt.Sprintf("%s.%s.%s", t.ProjectID, t.DatasetID, t.TableID),
		})
	}
	return tables, nil
}

func (b *bqBackend) RunQuery(ctx context.Context, spec QuerySpec) (*QueryResult, error) {
	client, err := b.reg.BigQuery(ctx)
	if err != nil {
		return nil, err
	}

	q := client.Query(spec.SQL)
	q.Location = spec.Location
	q.UseLegacySQL = spec.UseLegacySQL
	q.DryRun = spec.DryRun

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting query: %w", err)
	}

	// Dry-run jobs never execute; the only output is the statistics block.
	if spec.DryRun {
		res := &QueryResult{}
		if status := job.LastStatus(); status != nil && status.Statistics != nil {
			res.BytesProcessed = status.Statistics.TotalBytesProcessed
		}
		return res, nil
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query results: %w", err)
	}

	res := &QueryResult{TotalRows: it.TotalRows}
	for len(res.Rows) < spec.MaxResults {
		var row map[string]bq.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating query rows: %w", err)
		}
		res.Rows = append(res.Rows, normalizeRow(row))
	}
	for _, field := range it.Schema {
		res.Schema = append(res.Schema, field.Name)
	}

	if status := job.LastStatus(); status != nil && status.Statistics != nil {
		res.Started = status.Statistics.StartTime
		res.Ended = status.Statistics.EndTime
		res.BytesProcessed = status.Statistics.TotalBytesProcessed
	}
	return res, nil
}

func (b *bqBackend) CreateDataset(ctx context.Context, spec DatasetSpec) (*Dataset, error) {
	client, err := b.reg.BigQuery(ctx)
	if err != nil {
		return nil, err
	}

	ds := client.Dataset(spec.ID)
	md := &bq.DatasetMetadata{
		Location:    spec.Location,
		Description: spec.Description,
		Name:        spec.FriendlyName,
		Labels:      spec.Labels,
	}
	if err := ds.Create(ctx, md); err != nil {
		return nil, fmt.Errorf("creating dataset %s: %w", spec.ID, err)
	}

	created, err := ds.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading created dataset %s: %w", spec.ID, err)
	}
	out := datasetFromMetadata(ds.ProjectID, ds.DatasetID, created)
	return &out, nil
}

func (b *bqBackend) DeleteTable(ctx context.Context, dataset, table string) error {
	client, err := b.reg.BigQuery(ctx)
	if err != nil {
		return err
	}
	if err := client.Dataset(dataset).Table(table).Delete(ctx); err != nil {
		return fmt.Errorf("deleting table %s.%s: %w", dataset, table, err)
	}
	return nil
}

func datasetFromMetadata(project, id string, md *bq.DatasetMetadata) Dataset {
	return Dataset{
		ID:           id,
		FullID:       project + ":" + id,
		FriendlyName: md.Name,
		Description:  md.Description,
		Location:     md.Location,
		Labels:       md.Labels,
		Created:      md.CreationTime,
		Modified:     md.LastModifiedTime,
	}
}

// normalizeRow converts BigQuery values into JSON-friendly Go values.
func normalizeRow(row map[string]bq.Value) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		switch tv := v.(type) {
		case time.Time:
			out[k] = tv.UTC().Format(time.RFC3339)
		case []byte:
			out[k] = fmt.Sprintf("%x", tv)
		default:
			out[k] = tv
		}
	}
	return out
}
