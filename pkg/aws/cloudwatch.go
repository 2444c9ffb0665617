package aws

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/younsl/idlesweep/internal/cloud"
)

// dimensionProcess names the sweep process that emitted a metric
const dimensionProcess = "Process"

// Count-valued metrics; everything else is a dollar amount without unit
var countMetrics = map[string]bool{
	"FindingsCount":    true,
	"ResourcesDeleted": true,
	"Skipped":          true,
}

// CloudWatchAPI is the subset of the CloudWatch client used by CloudWatchMetrics
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics publishes run totals as custom metrics
type CloudWatchMetrics struct {
	client    CloudWatchAPI
	namespace string
	now       func() time.Time
}

// NewCloudWatchMetrics creates a CloudWatchMetrics in namespace
func NewCloudWatchMetrics(client CloudWatchAPI, namespace string) *CloudWatchMetrics {
	return &CloudWatchMetrics{client: client, namespace: namespace, now: time.Now}
}

// NewCloudWatchMetricsFromConfig creates a CloudWatchMetrics from an AWS config
func NewCloudWatchMetricsFromConfig(cfg aws.Config, namespace string) *CloudWatchMetrics {
	return NewCloudWatchMetrics(cloudwatch.NewFromConfig(cfg), namespace)
}

// PutRunMetrics publishes values with a Process dimension in one call
func (m *CloudWatchMetrics) PutRunMetrics(ctx context.Context, process string, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	timestamp := m.now()
	data := make([]cwtypes.MetricDatum, 0, len(names))
	for _, name := range names {
		unit := cwtypes.StandardUnitNone
		if countMetrics[name] {
			unit = cwtypes.StandardUnitCount
		}
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(values[name]),
			Unit:       unit,
			Timestamp:  aws.Time(timestamp),
			Dimensions: []cwtypes.Dimension{{
				Name:  aws.String(dimensionProcess),
				Value: aws.String(process),
			}},
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	return cloud.Wrap("PutMetricData", m.namespace, err)
}
