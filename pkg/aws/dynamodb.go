package aws

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/younsl/idlesweep/internal/cloud"
	"github.com/younsl/idlesweep/internal/models"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoLedger
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoLedger stores ledger entries in a DynamoDB table keyed by deletion_id
type DynamoLedger struct {
	client DynamoAPI
	table  string
}

// NewDynamoLedger creates a DynamoLedger over table
func NewDynamoLedger(client DynamoAPI, table string) *DynamoLedger {
	return &DynamoLedger{client: client, table: table}
}

// NewDynamoLedgerFromConfig creates a DynamoLedger from an AWS config
func NewDynamoLedgerFromConfig(cfg aws.Config, table string) *DynamoLedger {
	return NewDynamoLedger(dynamodb.NewFromConfig(cfg), table)
}

// Savings is a dollar amount stored as a number. Older items stored it as a
// string, so both are accepted when reading.
type Savings float64

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler
func (s Savings) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(float64(s), 'f', -1, 64)}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler
func (s *Savings) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	case *types.AttributeValueMemberNULL:
		*s = 0
		return nil
	default:
		return fmt.Errorf("unsupported monthly_savings attribute type %T", av)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid monthly_savings %q: %w", raw, err)
	}
	*s = Savings(f)
	return nil
}

type ledgerItem struct {
	DeletionID     string  `dynamodbav:"deletion_id"`
	DeletedDate    string  `dynamodbav:"deleted_date"`
	ResourceType   string  `dynamodbav:"resource_type"`
	ResourceID     string  `dynamodbav:"resource_id"`
	SizeGB         int     `dynamodbav:"size_gb,omitempty"`
	VolumeType     string  `dynamodbav:"volume_type,omitempty"`
	MonthlySavings Savings `dynamodbav:"monthly_savings"`
	SnapshotID     string  `dynamodbav:"snapshot_id,omitempty"`
	PublicIP       string  `dynamodbav:"public_ip,omitempty"`
}

func newLedgerItem(key string, entry models.LedgerEntry) ledgerItem {
	return ledgerItem{
		DeletionID:     key,
		DeletedDate:    entry.DeletedDate.String(),
		ResourceType:   string(entry.Kind),
		ResourceID:     entry.ResourceID,
		SizeGB:         entry.SizeGB,
		VolumeType:     entry.VolumeType,
		MonthlySavings: Savings(entry.MonthlySavings),
		SnapshotID:     entry.SnapshotID,
		PublicIP:       entry.PublicIP,
	}
}

func (i ledgerItem) entry() (models.LedgerEntry, error) {
	date, err := civil.ParseDate(i.DeletedDate)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("ledger item %s: invalid deleted_date %q", i.DeletionID, i.DeletedDate)
	}
	return models.LedgerEntry{
		Kind:           models.Kind(i.ResourceType),
		ResourceID:     i.ResourceID,
		DeletedDate:    date,
		MonthlySavings: float64(i.MonthlySavings),
		SizeGB:         i.SizeGB,
		VolumeType:     i.VolumeType,
		SnapshotID:     i.SnapshotID,
		PublicIP:       i.PublicIP,
	}, nil
}

// Put writes entry under key, replacing any item with the same key
func (l *DynamoLedger) Put(ctx context.Context, key string, entry models.LedgerEntry) error {
	item, err := attributevalue.MarshalMap(newLedgerItem(key, entry))
	if err != nil {
		return fmt.Errorf("failed to marshal ledger item %s: %w", key, err)
	}
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	})
	return cloud.Wrap("PutItem", key, err)
}

// Scan reads every ledger entry
func (l *DynamoLedger) Scan(ctx context.Context) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	paginator := dynamodb.NewScanPaginator(l.client, &dynamodb.ScanInput{
		TableName: aws.String(l.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloud.Wrap("Scan", l.table, err)
		}

		var items []ledgerItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger items: %w", err)
		}
		for _, item := range items {
			entry, err := item.entry()
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
