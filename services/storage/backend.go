package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

// gcsBackend implements Backend against the real Cloud Storage client,
// borrowed from the registry per call.
type gcsBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates a storage adapter backed by the real client.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&gcsBackend{reg: reg})
}

func (b *gcsBackend) ListBuckets(ctx context.Context, project string) ([]Bucket, error) {
	client, err := b.reg.Storage(ctx)
	if err != nil {
		return nil, err
	}

	var buckets []Bucket
	it := client.Buckets(ctx, project)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing buckets: %w", err)
		}
		buckets = append(buckets, bucketFromAttrs(attrs))
	}
	return buckets, nil
}

func (b *gcsBackend) GetBucket(ctx context.Context, name string) (*Bucket, error) {
	client, err := b.reg.Storage(ctx)
	if err != nil {
		return nil, err
	}
	attrs, err := client.Bucket(name).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting bucket %s: %w", name, err)
	}
	bucket := bucketFromAttrs(attrs)
	return &bucket, nil
}

func (b *gcsBackend) ListObjects(ctx context.Context, bucket, prefix string, max int) ([]Object, error) {
	client, err := b.reg.Storage(ctx)
	if err != nil {
		return nil, err
	}

	var objects []Object
	it := client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		if max > 0 && len(objects) >= max {
			break
		}
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing objects in %s: %w", bucket, err)
		}
		objects = append(objects, objectFromAttrs(attrs))
	}
	return objects, nil
}

func (b *gcsBackend) CreateBucket(ctx context.Context, project string, spec BucketSpec) (*Bucket, error) {
	client, err := b.reg.Storage(ctx)
	if err != nil {
		return nil, err
	}

	handle := client.Bucket(spec.Name)
	attrs := &gcs.BucketAttrs{
		Location:          spec.Location,
		StorageClass:      spec.StorageClass,
		Labels:            spec.Labels,
		VersioningEnabled: spec.VersioningEnabled,
	}
	if err := handle.Create(ctx, project, attrs); err != nil {
		return nil, fmt.Errorf("creating bucket %s: %w", spec.Name, err)
	}

	created, err := handle.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading created bucket %s: %w", spec.Name, err)
	}
	bucket := bucketFromAttrs(created)
	return &bucket, nil
}

func (b *gcsBackend) DeleteObject(ctx context.Context, bucket, object string) error {
	client, err := b.reg.Storage(ctx)
	if err != nil {
		return err
	}
	if err := client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("deleting gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

func (b *gcsBackend) ObjectMetadata(ctx context.Context, bucket, object string) (*Object, error) {
	client, err := b.reg.Storage(ctx)
	if err != nil {
		return nil, err
	}
	attrs, err := client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gs://%s/%s: %w", bucket, object, err)
	}
	obj := objectFromAttrs(attrs)
	return &obj, nil
}

func bucketFromAttrs(attrs *gcs.BucketAttrs) Bucket {
	return Bucket{
		Name:              attrs.Name,
		Location:          attrs.Location,
		StorageClass:      attrs.StorageClass,
		Created:           attrs.Created,
		VersioningEnabled: attrs.VersioningEnabled,
		Labels:            attrs.Labels,
	}
}

func objectFromAttrs(attrs *gcs.ObjectAttrs) Object {
	return Object{
		Name:        attrs.Name,
		Size:        attrs.Size,
		Updated:     attrs.Updated,
		ContentType: attrs.ContentType,
		MD5:         fmt.Sprintf("%x", attrs.MD5),
		Generation:  attrs.Generation,
		Metadata:    attrs.Metadata,
	}
}
