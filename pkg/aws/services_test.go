package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/younsl/idlesweep/internal/models"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSNotifierPublish(t *testing.T) {
	api := &fakeSNS{}
	id, err := NewSNSNotifier(api, "arn:aws:sns:ap-south-1:000000000000:cost-alerts-topic").
		Publish(context.Background(), "Cost Alert: $1.00/mo", "body")
	if err != nil || id != "m-1" {
		t.Fatalf("Publish() = %q, %v", id, err)
	}
	if *api.input.Subject != "Cost Alert: $1.00/mo" || *api.input.Message != "body" {
		t.Errorf("input = %+v", api.input)
	}

	if _, err := NewSNSNotifier(api, "").Publish(context.Background(), "s", "b"); err == nil {
		t.Error("expected error without topic")
	}
	api.err = errors.New("AuthorizationError")
	if _, err := NewSNSNotifier(api, "arn").Publish(context.Background(), "s", "b"); err == nil {
		t.Error("expected publish error")
	}
}

type fakeDynamo struct {
	items [][]map[string]types.AttributeValue
	puts  []*dynamodb.PutItemInput
	scans int
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	page := f.scans
	f.scans++
	out := &dynamodb.ScanOutput{}
	if page < len(f.items) {
		out.Items = f.items[page]
	}
	if page+1 < len(f.items) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"deletion_id": &types.AttributeValueMemberS{Value: "cursor"},
		}
	}
	return out, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoLedgerPut(t *testing.T) {
	api := &fakeDynamo{}
	entry := models.LedgerEntry{
		Kind:           models.KindVolume,
		ResourceID:     "vol-123",
		DeletedDate:    civil.Date{Year: 2025, Month: time.January, Day: 1},
		MonthlySavings: 11.4,
		SizeGB:         100,
		VolumeType:     "gp2",
		SnapshotID:     "snap-1",
	}

	if err := NewDynamoLedger(api, "CostOptimizationLog").Put(context.Background(), "volume-vol-123-2025-01-01", entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	item := api.puts[0].Item
	if *api.puts[0].TableName != "CostOptimizationLog" {
		t.Errorf("TableName = %s", *api.puts[0].TableName)
	}
	if v := item["deletion_id"].(*types.AttributeValueMemberS).Value; v != "volume-vol-123-2025-01-01" {
		t.Errorf("deletion_id = %s", v)
	}
	if v := item["monthly_savings"].(*types.AttributeValueMemberN).Value; v != "11.4" {
		t.Errorf("monthly_savings = %s", v)
	}
	if v := item["resource_type"].(*types.AttributeValueMemberS).Value; v != "ebs_volume" {
		t.Errorf("resource_type = %s", v)
	}
	if _, ok := item["public_ip"]; ok {
		t.Error("empty public_ip should be omitted")
	}
}

func TestDynamoLedgerScan(t *testing.T) {
	api := &fakeDynamo{items: [][]map[string]types.AttributeValue{
		{{
			"deletion_id":     &types.AttributeValueMemberS{Value: "eip-eipalloc-1-2025-01-01"},
			"deleted_date":    &types.AttributeValueMemberS{Value: "2025-01-01"},
			"resource_type":   &types.AttributeValueMemberS{Value: "elastic_ip"},
			"resource_id":     &types.AttributeValueMemberS{Value: "eipalloc-1"},
			"public_ip":       &types.AttributeValueMemberS{Value: "203.0.113.9"},
			"monthly_savings": &types.AttributeValueMemberS{Value: "3.5999999999999996"},
		}},
		{{
			"deletion_id":     &types.AttributeValueMemberS{Value: "volume-vol-1-2025-01-03"},
			"deleted_date":    &types.AttributeValueMemberS{Value: "2025-01-03"},
			"resource_type":   &types.AttributeValueMemberS{Value: "ebs_volume"},
			"resource_id":     &types.AttributeValueMemberS{Value: "vol-1"},
			"size_gb":         &types.AttributeValueMemberN{Value: "50"},
			"monthly_savings": &types.AttributeValueMemberN{Value: "5"},
		}},
	}}

	entries, err := NewDynamoLedger(api, "CostOptimizationLog").Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(entries) != 2 || api.scans != 2 {
		t.Fatalf("entries = %d, scans = %d", len(entries), api.scans)
	}
	if entries[0].Kind != models.KindAddress || entries[0].MonthlySavings < 3.59 || entries[0].PublicIP != "203.0.113.9" {
		t.Errorf("entry[0] = %+v", entries[0])
	}
	if entries[1].SizeGB != 50 || entries[1].MonthlySavings != 5 || entries[1].DeletedDate.Day != 3 {
		t.Errorf("entry[1] = %+v", entries[1])
	}
}

func TestDynamoLedgerScanBadDate(t *testing.T) {
	api := &fakeDynamo{items: [][]map[string]types.AttributeValue{{{
		"deletion_id":     &types.AttributeValueMemberS{Value: "x"},
		"deleted_date":    &types.AttributeValueMemberS{Value: "yesterday"},
		"monthly_savings": &types.AttributeValueMemberN{Value: "1"},
	}}}}

	if _, err := NewDynamoLedger(api, "t").Scan(context.Background()); err == nil {
		t.Error("expected error for invalid deleted_date")
	}
}

type fakeCloudWatch struct {
	input *cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.input = in
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCloudWatchMetrics(t *testing.T) {
	api := &fakeCloudWatch{}
	m := NewCloudWatchMetrics(api, "IdleSweep")

	err := m.PutRunMetrics(context.Background(), "reaper", map[string]float64{
		"ResourcesDeleted": 2,
		"MonthlySavings":   14.25,
	})
	if err != nil {
		t.Fatalf("PutRunMetrics() error = %v", err)
	}
	if *api.input.Namespace != "IdleSweep" || len(api.input.MetricData) != 2 {
		t.Fatalf("input = %+v", api.input)
	}
	savings := api.input.MetricData[0]
	if *savings.MetricName != "MonthlySavings" || savings.Unit != cwtypes.StandardUnitNone {
		t.Errorf("first datum = %+v", savings)
	}
	deleted := api.input.MetricData[1]
	if deleted.Unit != cwtypes.StandardUnitCount || *deleted.Dimensions[0].Value != "reaper" {
		t.Errorf("second datum = %+v", deleted)
	}

	api.input = nil
	if err := m.PutRunMetrics(context.Background(), "finder", nil); err != nil || api.input != nil {
		t.Error("empty values should not call the API")
	}
}
