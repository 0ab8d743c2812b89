// Package monitoring exposes Cloud Monitoring metadata operations:
// metric descriptors, alert policies and notification channels.
package monitoring

import (
	"context"
	"strings"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// MetricDescriptor is the outward shape of a metric descriptor.
type MetricDescriptor struct {
	Name        string
	Type        string
	DisplayName string
	Description string
	Kind        string
	ValueType   string
	Unit        string
}

// AlertPolicy is the outward shape of an alert policy.
type AlertPolicy struct {
	Name            string
	DisplayName     string
	Enabled         bool
	ConditionsCount int
	Channels        []string
}

// NotificationChannel is the outward shape of a notification channel.
type NotificationChannel struct {
	Name         string
	Type         string
	DisplayName  string
	Description  string
	Verification string
	Enabled      bool
	Labels       map[string]string
}

// Point is one aligned data point of a time series.
type Point struct {
	Time  time.Time
	Value any
}

// TimeSeries is the outward shape of one metric time series.
type TimeSeries struct {
	MetricLabels   map[string]string
	ResourceType   string
	ResourceLabels map[string]string
	Points         []Point
}

// TimeSeriesQuery describes an aligned time-series fetch.
type TimeSeriesQuery struct {
	MetricType      string
	FilterAdditions string
	Start           time.Time
	End             time.Time
	AlignmentPeriod time.Duration
}

// AlertPolicySpec describes a metric threshold alert policy to create.
type AlertPolicySpec struct {
	DisplayName     string
	MetricType      string
	Filter          string
	Threshold       float64
	Comparison      string
	Duration        time.Duration
	AlignmentPeriod time.Duration
	Aligner         string
	Reducer         string
	Channels        []string
	Documentation   string
	Enabled         bool
}

// validComparisons are the threshold comparison types the alert creation
// operation accepts.
var validComparisons = map[string]bool{
	"COMPARISON_GT": true,
	"COMPARISON_GE": true,
	"COMPARISON_LT": true,
	"COMPARISON_LE": true,
	"COMPARISON_EQ": true,
	"COMPARISON_NE": true,
}

// Backend is the slice of Cloud Monitoring the adapter needs.
type Backend interface {
	ListMetricDescriptors(ctx context.Context, project, filter string) ([]MetricDescriptor, error)
	ListTimeSeries(ctx context.Context, project string, q TimeSeriesQuery) ([]TimeSeries, error)
	ListAlertPolicies(ctx context.Context, project string) ([]AlertPolicy, error)
	CreateAlertPolicy(ctx context.Context, project string, spec AlertPolicySpec) (*AlertPolicy, error)
	ListNotificationChannels(ctx context.Context, project string) ([]NotificationChannel, error)
	DeleteAlertPolicy(ctx context.Context, name string) error
}

// Adapter wires Cloud Monitoring operations into the dispatch registry.
type Adapter struct {
	backend Backend
}

// New creates a monitoring adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "monitoring"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	projectField := []envelope.Field{
		{Name: "project_id", Source: envelope.SourceProject},
	}
	return []operation.Operation{
		{
			Name:        "list_metric_descriptors",
			Description: "List Cloud Monitoring metric descriptors, optionally filtered",
			Fields: append([]envelope.Field{
				{Name: "filter"},
			}, projectField...),
			ReadOnly: true,
			Handler:  a.listMetricDescriptors,
		},
		{
			Name:        "fetch_metric_timeseries",
			Description: "Fetch aligned time series data for a metric over a recent window",
			Fields: append([]envelope.Field{
				{Name: "metric_type", Required: true},
			}, projectField...),
			ReadOnly: true,
			Handler:  a.fetchMetricTimeseries,
		},
		{
			Name:        "list_alert_policies",
			Description: "List alerting policies in a project",
			Fields:      projectField,
			ReadOnly:    true,
			Handler:     a.listAlertPolicies,
		},
		{
			Name:        "list_notification_channels",
			Description: "List notification channels in a project",
			Fields:      projectField,
			ReadOnly:    true,
			Handler:     a.listNotificationChannels,
		},
		{
			Name:        "create_metric_threshold_alert",
			Description: "Create an alerting policy that fires when a metric crosses a threshold",
			Fields: append([]envelope.Field{
				{Name: "display_name", Required: true},
				{Name: "metric_type", Required: true},
				{Name: "filter", Required: true},
				{Name: "threshold_value", Required: true},
			}, projectField...),
			Handler: a.createMetricThresholdAlert,
		},
		{
			Name:        "delete_alert_policy",
			Description: "Delete an alerting policy by its resource name",
			Fields: append([]envelope.Field{
				{Name: "policy_name", Required: true},
			}, projectField...),
			Handler: a.deleteAlertPolicy,
		},
	}
}

func (a *Adapter) listMetricDescriptors(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	filter, _ := p.String("filter")

	descriptors, err := a.backend.ListMetricDescriptors(ctx, project, filter)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(descriptors))
	for _, d := range descriptors {
		items = append(items, map[string]any{
			"name":         d.Name,
			"type":         d.Type,
			"display_name": d.DisplayName,
			"description":  d.Description,
			"kind":         d.Kind,
			"value_type":   d.ValueType,
			"unit":         d.Unit,
		})
	}
	return map[string]any{"metric_descriptors": items, "count": len(items)}, nil
}

func (a *Adapter) fetchMetricTimeseries(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	metricType, _ := p.String("metric_type")

	hours := int64(1)
	if v, ok := p.Int("hours"); ok && v > 0 {
		hours = v
	}
	alignment := 60 * time.Second
	if v, ok := p.Int("alignment_period_seconds"); ok && v > 0 {
		alignment = time.Duration(v) * time.Second
	}

	end := time.Now().UTC().Truncate(time.Second)
	q := TimeSeriesQuery{
		MetricType:      metricType,
		FilterAdditions: p.StringOr("filter_additions", ""),
		Start:           end.Add(-time.Duration(hours) * time.Hour),
		End:             end,
		AlignmentPeriod: alignment,
	}

	series, err := a.backend.ListTimeSeries(ctx, project, q)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(series))
	for _, s := range series {
		points := make([]map[string]any, 0, len(s.Points))
		for _, pt := range s.Points {
			points = append(points, map[string]any{
				"time":  envelope.Timestamp(pt.Time),
				"value": pt.Value,
			})
		}
		items = append(items, map[string]any{
			"metric": envelope.Labels(s.MetricLabels),
			"resource": map[string]any{
				"type":   s.ResourceType,
				"labels": envelope.Labels(s.ResourceLabels),
			},
			"points": points,
		})
	}
	return map[string]any{
		"metric_type": metricType,
		"time_range": map[string]any{
			"start": envelope.Timestamp(q.Start),
			"end":   envelope.Timestamp(q.End),
		},
		"time_series": items,
		"count":       len(items),
	}, nil
}

func (a *Adapter) createMetricThresholdAlert(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")

	threshold, ok := p.Float("threshold_value")
	if !ok {
		return nil, gcperr.New(gcperr.KindMissingParameter, "threshold_value must be a number")
	}
	comparison := p.StringOr("comparison", "COMPARISON_GT")
	if !validComparisons[comparison] {
		return nil, gcperr.Newf(gcperr.KindMissingParameter, "unknown comparison %q", comparison)
	}

	spec := AlertPolicySpec{
		DisplayName:     p.StringOr("display_name", ""),
		MetricType:      p.StringOr("metric_type", ""),
		Filter:          p.StringOr("filter", ""),
		Threshold:       threshold,
		Comparison:      comparison,
		Duration:        300 * time.Second,
		AlignmentPeriod: 60 * time.Second,
		Aligner:         p.StringOr("aligner", "ALIGN_MEAN"),
		Reducer:         p.StringOr("reducer", "REDUCE_MEAN"),
		Documentation:   p.StringOr("documentation", ""),
		Enabled:         true,
	}
	if v, ok := p.Int("duration_seconds"); ok && v > 0 {
		spec.Duration = time.Duration(v) * time.Second
	}
	if v, ok := p.Int("alignment_period_seconds"); ok && v > 0 {
		spec.AlignmentPeriod = time.Duration(v) * time.Second
	}
	if v, ok := p["enabled"].(bool); ok {
		spec.Enabled = v
	}
	for _, c := range p.StringList("notification_channels") {
		if !strings.HasPrefix(c, "projects/") {
			c = projectPath(project) + "/notificationChannels/" + c
		}
		spec.Channels = append(spec.Channels, c)
	}

	policy, err := a.backend.CreateAlertPolicy(ctx, project, spec)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":                  policy.Name,
		"display_name":          policy.DisplayName,
		"enabled":               policy.Enabled,
		"conditions_count":      policy.ConditionsCount,
		"notification_channels": envelope.List(policy.Channels),
	}, nil
}

func (a *Adapter) listAlertPolicies(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")

	policies, err := a.backend.ListAlertPolicies(ctx, project)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(policies))
	for _, policy := range policies {
		items = append(items, map[string]any{
			"name":                  policy.Name,
			"display_name":          policy.DisplayName,
			"enabled":               policy.Enabled,
			"conditions_count":      policy.ConditionsCount,
			"notification_channels": envelope.List(policy.Channels),
		})
	}
	return map[string]any{"alert_policies": items, "count": len(items)}, nil
}

func (a *Adapter) listNotificationChannels(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")

	channels, err := a.backend.ListNotificationChannels(ctx, project)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(channels))
	for _, c := range channels {
		items = append(items, map[string]any{
			"name":                c.Name,
			"type":                c.Type,
			"display_name":        c.DisplayName,
			"description":         c.Description,
			"verification_status": c.Verification,
			"enabled":             c.Enabled,
			"labels":              envelope.Labels(c.Labels),
		})
	}
	return map[string]any{"notification_channels": items, "count": len(items)}, nil
}

func (a *Adapter) deleteAlertPolicy(ctx context.Context, p envelope.Params) (map[string]any, error) {
	name, _ := p.String("policy_name")

	if err := a.backend.DeleteAlertPolicy(ctx, name); err != nil {
		return nil, err
	}
	return map[string]any{
		"message": "alert policy " + name + " deleted",
	}, nil
}
