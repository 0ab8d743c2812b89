// Package storage exposes Cloud Storage operations. The adapter declares
// its operations as descriptors and talks to the backend through a narrow
// interface so tests can substitute a fake.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// Bucket is the outward shape of a bucket.
type Bucket struct {
	Name              string
	Location          string
	StorageClass      string
	Created           time.Time
	VersioningEnabled bool
	Labels            map[string]string
}

// Object is the outward shape of an object.
type Object struct {
	Name        string
	Size        int64
	Updated     time.Time
	ContentType string
	MD5         string
	Generation  int64
	Metadata    map[string]string
}

// BucketSpec describes a bucket to create.
type BucketSpec struct {
	Name              string
	Location          string
	StorageClass      string
	Labels            map[string]string
	VersioningEnabled bool
}

// Backend is the slice of Cloud Storage the adapter needs.
type Backend interface {
	ListBuckets(ctx context.Context, project string) ([]Bucket, error)
	GetBucket(ctx context.Context, name string) (*Bucket, error)
	ListObjects(ctx context.Context, bucket, prefix string, max int) ([]Object, error)
	CreateBucket(ctx context.Context, project string, spec BucketSpec) (*Bucket, error)
	DeleteObject(ctx context.Context, bucket, object string) error
	ObjectMetadata(ctx context.Context, bucket, object string) (*Object, error)
}

// Adapter exposes Cloud Storage operations.
type Adapter struct {
	backend Backend
}

// New creates a storage adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "storage"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	return []operation.Operation{
		{
			Name:        "list_buckets",
			Description: "List Cloud Storage buckets in a project, optionally filtered by name prefix",
			Fields: []envelope.Field{
				{Name: "project_id", Source: envelope.SourceProject},
				{Name: "prefix"},
			},
			ReadOnly: true,
			Handler:  a.listBuckets,
		},
		{
			Name:        "get_bucket",
			Description: "Get details for a specific Cloud Storage bucket",
			Fields: []envelope.Field{
				{Name: "bucket_name", Required: true},
			},
			ReadOnly: true,
			Handler:  a.getBucket,
		},
		{
			Name:        "list_objects",
			Description: "List objects in a Cloud Storage bucket, optionally filtered by prefix",
			Fields: []envelope.Field{
				{Name: "bucket_name", Required: true},
				{Name: "prefix"},
			},
			ReadOnly: true,
			Handler:  a.listObjects,
		},
		{
			Name:        "create_bucket",
			Description: "Create a Cloud Storage bucket",
			Fields: []envelope.Field{
				{Name: "bucket_name", Required: true},
				{Name: "project_id", Source: envelope.SourceProject},
				{Name: "location", Source: envelope.SourceRegion},
				{Name: "storage_class"},
			},
			Handler: a.createBucket,
		},
		{
			Name:        "delete_object",
			Description: "Delete an object from a Cloud Storage bucket",
			Fields: []envelope.Field{
				{Name: "bucket_name", Required: true},
				{Name: "object_name", Required: true},
			},
			Handler: a.deleteObject,
		},
		{
			Name:        "get_object_metadata",
			Description: "Get metadata for an object in a Cloud Storage bucket",
			Fields: []envelope.Field{
				{Name: "bucket_name", Required: true},
				{Name: "object_name", Required: true},
			},
			ReadOnly: true,
			Handler:  a.objectMetadata,
		},
	}
}

func bucketPayload(b Bucket) map[string]any {
	return map[string]any{
		"name":               b.Name,
		"location":           b.Location,
		"storage_class":      b.StorageClass,
		"time_created":       envelope.Timestamp(b.Created),
		"versioning_enabled": b.VersioningEnabled,
		"labels":             envelope.Labels(b.Labels),
	}
}

func objectPayload(o Object) map[string]any {
	return map[string]any{
		"name":         o.Name,
		"size":         o.Size,
		"updated":      envelope.Timestamp(o.Updated),
		"content_type": o.ContentType,
		"md5_hash":     o.MD5,
		"generation":   o.Generation,
		"metadata":     envelope.Labels(o.Metadata),
	}
}

func (a *Adapter) listBuckets(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	prefix, _ := p.String("prefix")

	buckets, err := a.backend.ListBuckets(ctx, project)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(buckets))
	for _, b := range buckets {
		if prefix != "" && !strings.HasPrefix(b.Name, prefix) {
			continue
		}
		items = append(items, bucketPayload(b))
	}
	return map[string]any{"buckets": items, "count": len(items)}, nil
}

func (a *Adapter) getBucket(ctx context.Context, p envelope.Params) (map[string]any, error) {
	name, _ := p.String("bucket_name")
	b, err := a.backend.GetBucket(ctx, name)
	if err != nil {
		return nil, err
	}
	return bucketPayload(*b), nil
}

func (a *Adapter) listObjects(ctx context.Context, p envelope.Params) (map[string]any, error) {
	bucket, _ := p.String("bucket_name")
	prefix, _ := p.String("prefix")
	max64, _ := p.Int("max_results")

	objects, err := a.backend.ListObjects(ctx, bucket, prefix, int(max64))
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(objects))
	for _, o := range objects {
		items = append(items, objectPayload(o))
	}
	return map[string]any{"objects": items, "count": len(items)}, nil
}

func (a *Adapter) createBucket(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	spec := BucketSpec{
		Name:              p.StringOr("bucket_name", ""),
		Location:          p.StringOr("location", ""),
		StorageClass:      p.StringOr("storage_class", "STANDARD"),
		Labels:            p.StringMap("labels"),
		VersioningEnabled: p.Bool("versioning_enabled"),
	}

	b, err := a.backend.CreateBucket(ctx, project, spec)
	if err != nil {
		return nil, err
	}
	payload := bucketPayload(*b)
	payload["url"] = "gs://" + b.Name + "/"
	return payload, nil
}

func (a *Adapter) deleteObject(ctx context.Context, p envelope.Params) (map[string]any, error) {
	bucket, _ := p.String("bucket_name")
	object, _ := p.String("object_name")

	if err := a.backend.DeleteObject(ctx, bucket, object); err != nil {
		return nil, err
	}
	return map[string]any{
		"message": "deleted gs://" + bucket + "/" + object,
	}, nil
}

func (a *Adapter) objectMetadata(ctx context.Context, p envelope.Params) (map[string]any, error) {
	bucket, _ := p.String("bucket_name")
	object, _ := p.String("object_name")

	o, err := a.backend.ObjectMetadata(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	payload := objectPayload(*o)
	payload["bucket"] = bucket
	return payload, nil
}
