package registry

import (
	"context"

	artifactregistry "cloud.google.com/go/artifactregistry/apiv1"
	"cloud.google.com/go/bigquery"
	cloudbuild "cloud.google.com/go/cloudbuild/apiv1/v2"
	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/logging/logadmin"
	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	run "cloud.google.com/go/run/apiv2"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// RunClients bundles the Cloud Run admin clients behind one handle, so the
// service keeps the one-handle-per-service invariant.
type RunClients struct {
	Services  *run.ServicesClient
	Revisions *run.RevisionsClient
}

func (c *RunClients) close() error {
	err := c.Services.Close()
	if cerr := c.Revisions.Close(); err == nil {
		err = cerr
	}
	return err
}

// MonitoringClients bundles the Cloud Monitoring clients behind one handle.
type MonitoringClients struct {
	Metrics  *monitoring.MetricClient
	Alerts   *monitoring.AlertPolicyClient
	Channels *monitoring.NotificationChannelClient
}

func (c *MonitoringClients) close() error {
	err := c.Metrics.Close()
	if cerr := c.Alerts.Close(); err == nil {
		err = cerr
	}
	if cerr := c.Channels.Close(); err == nil {
		err = cerr
	}
	return err
}

// Storage returns the Cloud Storage client.
func (r *Registry) Storage(ctx context.Context) (*storage.Client, error) {
	h, err := r.handle(ctx, ServiceStorage, func(ctx context.Context, _ *Registry, opts []option.ClientOption) (any, func() error, error) {
		c, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*storage.Client), nil
}

// BigQuery returns the BigQuery client, bound to the default project.
func (r *Registry) BigQuery(ctx context.Context) (*bigquery.Client, error) {
	h, err := r.handle(ctx, ServiceBigQuery, func(ctx context.Context, r *Registry, opts []option.ClientOption) (any, func() error, error) {
		project, err := r.Project()
		if err != nil {
			return nil, nil, err
		}
		c, err := bigquery.NewClient(ctx, project, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*bigquery.Client), nil
}

// Run returns the Cloud Run admin clients.
func (r *Registry) Run(ctx context.Context) (*RunClients, error) {
	h, err := r.handle(ctx, ServiceRun, func(ctx context.Context, _ *Registry, opts []option.ClientOption) (any, func() error, error) {
		services, err := run.NewServicesClient(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		revisions, err := run.NewRevisionsClient(ctx, opts...)
		if err != nil {
			services.Close()
			return nil, nil, err
		}
		c := &RunClients{Services: services, Revisions: revisions}
		return c, c.close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*RunClients), nil
}

// Build returns the Cloud Build client.
func (r *Registry) Build(ctx context.Context) (*cloudbuild.Client, error) {
	h, err := r.handle(ctx, ServiceBuild, func(ctx context.Context, _ *Registry, opts []option.ClientOption) (any, func() error, error) {
		c, err := cloudbuild.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*cloudbuild.Client), nil
}

// Compute returns the Compute Engine instances client.
func (r *Registry) Compute(ctx context.Context) (*compute.InstancesClient, error) {
	h, err := r.handle(ctx, ServiceCompute, func(ctx context.Context, _ *Registry, opts []option.ClientOption) (any, func() error, error) {
		c, err := compute.NewInstancesRESTClient(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*compute.InstancesClient), nil
}

// Monitoring returns the Cloud Monitoring clients.
func (r *Registry) Monitoring(ctx context.Context) (*MonitoringClients, error) {
	h, err := r.handle(ctx, ServiceMonitoring, func(ctx context.Context, _ *Registry, opts []option.ClientOption) (any, func() error, error) {
		metrics, err := monitoring.NewMetricClient(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		alerts, err := monitoring.NewAlertPolicyClient(ctx, opts...)
		if err != nil {
			metrics.Close()
			return nil, nil, err
		}
		channels, err := monitoring.NewNotificationChannelClient(ctx, opts...)
		if err != nil {
			metrics.Close()
			alerts.Close()
			return nil, nil, err
		}
		c := &MonitoringClients{Metrics: metrics, Alerts: alerts, Channels: channels}
		return c, c.close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*MonitoringClients), nil
}

// LogAdmin returns the Cloud Logging admin client, bound to the default
// project.
func (r *Registry) LogAdmin(ctx context.Context) (*logadmin.Client, error) {
	h, err := r.handle(ctx, ServiceLogging, func(ctx context.Context, r *Registry, opts []option.ClientOption) (any, func() error, error) {
		project, err := r.Project()
		if err != nil {
			return nil, nil, err
		}
		c, err := logadmin.NewClient(ctx, project, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*logadmin.Client), nil
}

// ArtifactRegistry returns the Artifact Registry client.
func (r *Registry) ArtifactRegistry(ctx context.Context) (*artifactregistry.Client, error) {
	h, err := r.handle(ctx, ServiceArtifactRegistry, func(ctx context.Context, _ *Registry, opts []option.ClientOption) (any, func() error, error) {
		c, err := artifactregistry.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	})
	if err != nil {
		return nil, err
	}
	return h.client.(*artifactregistry.Client), nil
}
