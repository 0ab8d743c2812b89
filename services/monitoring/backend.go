package monitoring

import (
	"context"
	"fmt"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

type monitoringBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates a monitoring adapter backed by the real clients.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&monitoringBackend{reg: reg})
}

func projectPath(project string) string {
	return "projects/" + project
}

func (b *monitoringBackend) ListMetricDescriptors(ctx context.Context, project, filter string) ([]MetricDescriptor, error) {
	clients, err := b.reg.Monitoring(ctx)
	if err != nil {
		return nil, err
	}

	var descriptors []MetricDescriptor
	it := clients.Metrics.ListMetricDescriptors(ctx, &monitoringpb.ListMetricDescriptorsRequest{
		Name:   projectPath(project),
		Filter: filter,
	})
	for {
		d, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing metric descriptors: %w", err)
		}
		descriptors = append(descriptors, MetricDescriptor{
			Name:        d.GetName(),
			Type:        d.GetType(),
			DisplayName: d.GetDisplayName(),
			Description: d.GetDescription(),
			Kind:        d.GetMetricKind().String(),
			ValueType:   d.GetValueType().String(),
			Unit:        d.GetUnit(),
		})
	}
	return descriptors, nil
}

func (b *monitoringBackend) ListTimeSeries(ctx context.Context, project string, q TimeSeriesQuery) ([]TimeSeries, error) {
	clients, err := b.reg.Monitoring(ctx)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("metric.type = %q", q.MetricType)
	if q.FilterAdditions != "" {
		filter += " AND " + q.FilterAdditions
	}

	var series []TimeSeries
	it := clients.Metrics.ListTimeSeries(ctx, &monitoringpb.ListTimeSeriesRequest{
		Name:   projectPath(project),
		Filter: filter,
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(q.Start),
			EndTime:   timestamppb.New(q.End),
		},
		View: monitoringpb.ListTimeSeriesRequest_FULL,
		Aggregation: &monitoringpb.Aggregation{
			AlignmentPeriod:  durationpb.New(q.AlignmentPeriod),
			PerSeriesAligner: monitoringpb.Aggregation_ALIGN_MEAN,
		},
	})
	for {
		ts, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing time series for %s: %w", q.MetricType, err)
		}
		series = append(series, timeSeriesFromProto(ts))
	}
	return series, nil
}

func timeSeriesFromProto(ts *monitoringpb.TimeSeries) TimeSeries {
	out := TimeSeries{
		MetricLabels:   ts.GetMetric().GetLabels(),
		ResourceType:   ts.GetResource().GetType(),
		ResourceLabels: ts.GetResource().GetLabels(),
	}
	for _, p := range ts.GetPoints() {
		point := Point{Value: pointValue(p.GetValue())}
		if t := p.GetInterval().GetEndTime(); t != nil {
			point.Time = t.AsTime()
		}
		out.Points = append(out.Points, point)
	}
	return out
}

// pointValue flattens the typed-value oneof. Distributions are collapsed
// to a marker; the envelope has no sensible flat shape for them.
func pointValue(v *monitoringpb.TypedValue) any {
	switch tv := v.GetValue().(type) {
	case *monitoringpb.TypedValue_DoubleValue:
		return tv.DoubleValue
	case *monitoringpb.TypedValue_Int64Value:
		return tv.Int64Value
	case *monitoringpb.TypedValue_BoolValue:
		return tv.BoolValue
	case *monitoringpb.TypedValue_StringValue:
		return tv.StringValue
	case *monitoringpb.TypedValue_DistributionValue:
		return "distribution"
	default:
		return nil
	}
}

func (b *monitoringBackend) ListAlertPolicies(ctx context.Context, project string) ([]AlertPolicy, error) {
	clients, err := b.reg.Monitoring(ctx)
	if err != nil {
		return nil, err
	}

	var policies []AlertPolicy
	it := clients.Alerts.ListAlertPolicies(ctx, &monitoringpb.ListAlertPoliciesRequest{
		Name: projectPath(project),
	})
	for {
		p, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing alert policies: %w", err)
		}
		policies = append(policies, AlertPolicy{
			Name:            p.GetName(),
			DisplayName:     p.GetDisplayName(),
			Enabled:         p.GetEnabled().GetValue(),
			ConditionsCount: len(p.GetConditions()),
			Channels:        p.GetNotificationChannels(),
		})
	}
	return policies, nil
}

func (b *monitoringBackend) CreateAlertPolicy(ctx context.Context, project string, spec AlertPolicySpec) (*AlertPolicy, error) {
	clients, err := b.reg.Monitoring(ctx)
	if err != nil {
		return nil, err
	}

	aligner, ok := monitoringpb.Aggregation_Aligner_value[spec.Aligner]
	if !ok {
		return nil, gcperr.Newf(gcperr.KindMissingParameter, "unknown aligner %q", spec.Aligner)
	}
	reducer, ok := monitoringpb.Aggregation_Reducer_value[spec.Reducer]
	if !ok {
		return nil, gcperr.Newf(gcperr.KindMissingParameter, "unknown reducer %q", spec.Reducer)
	}

	condition := &monitoringpb.AlertPolicy_Condition{
		DisplayName: "Threshold condition for " + spec.DisplayName,
		Condition: &monitoringpb.AlertPolicy_Condition_ConditionThreshold{
			ConditionThreshold: &monitoringpb.AlertPolicy_Condition_MetricThreshold{
				Filter:         fmt.Sprintf("metric.type = %q AND %s", spec.MetricType, spec.Filter),
				Comparison:     monitoringpb.ComparisonType(monitoringpb.ComparisonType_value[spec.Comparison]),
				ThresholdValue: spec.Threshold,
				Duration:       durationpb.New(spec.Duration),
				Aggregations: []*monitoringpb.Aggregation{{
					AlignmentPeriod:    durationpb.New(spec.AlignmentPeriod),
					PerSeriesAligner:   monitoringpb.Aggregation_Aligner(aligner),
					CrossSeriesReducer: monitoringpb.Aggregation_Reducer(reducer),
				}},
			},
		},
	}

	policy := &monitoringpb.AlertPolicy{
		DisplayName:          spec.DisplayName,
		Conditions:           []*monitoringpb.AlertPolicy_Condition{condition},
		Combiner:             monitoringpb.AlertPolicy_OR,
		NotificationChannels: spec.Channels,
		Enabled:              wrapperspb.Bool(spec.Enabled),
	}
	if spec.Documentation != "" {
		policy.Documentation = &monitoringpb.AlertPolicy_Documentation{
			Content:  spec.Documentation,
			MimeType: "text/markdown",
		}
	}

	created, err := clients.Alerts.CreateAlertPolicy(ctx, &monitoringpb.CreateAlertPolicyRequest{
		Name:        projectPath(project),
		AlertPolicy: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating alert policy %s: %w", spec.DisplayName, err)
	}
	return &AlertPolicy{
		Name:            created.GetName(),
		DisplayName:     created.GetDisplayName(),
		Enabled:         created.GetEnabled().GetValue(),
		ConditionsCount: len(created.GetConditions()),
		Channels:        created.GetNotificationChannels(),
	}, nil
}

func (b *monitoringBackend) ListNotificationChannels(ctx context.Context, project string) ([]NotificationChannel, error) {
	clients, err := b.reg.Monitoring(ctx)
	if err != nil {
		return nil, err
	}

	var channels []NotificationChannel
	it := clients.Channels.ListNotificationChannels(ctx, &monitoringpb.ListNotificationChannelsRequest{
		Name: projectPath(project),
	})
	for {
		c, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing notification channels: %w", err)
		}
		channels = append(channels, NotificationChannel{
			Name:         c.GetName(),
			Type:         c.GetType(),
			DisplayName:  c.GetDisplayName(),
			Description:  c.GetDescription(),
			Verification: c.GetVerificationStatus().String(),
			Enabled:      c.GetEnabled().GetValue(),
			Labels:       c.GetLabels(),
		})
	}
	return channels, nil
}

func (b *monitoringBackend) DeleteAlertPolicy(ctx context.Context, name string) error {
	clients, err := b.reg.Monitoring(ctx)
	if err != nil {
		return err
	}
	if err := clients.Alerts.DeleteAlertPolicy(ctx, &monitoringpb.DeleteAlertPolicyRequest{
		Name: name,
	}); err != nil {
		return fmt.Errorf("deleting alert policy %s: %w", name, err)
	}
	return nil
}
