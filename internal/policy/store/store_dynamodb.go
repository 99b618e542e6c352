package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
)

// DefaultDynamoTable is the table name used by the original deployment.
const DefaultDynamoTable = "iam-policies"

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps one item per record keyed by policy_id. The ttl attribute
// holds epoch seconds so DynamoDB's TTL feature can expire items natively.
type DynamoStore struct {
	api   DynamoAPI
	table string
}

// NewDynamo constructs a DynamoDB-backed record store.
func NewDynamo(api DynamoAPI, table string) *DynamoStore {
	if table == "" {
		table = DefaultDynamoTable
	}
	return &DynamoStore{api: api, table: table}
}

type dynamoItem struct {
	PolicyID    string `dynamodbav:"policy_id"`
	Timestamp   string `dynamodbav:"timestamp"`
	Description string `dynamodbav:"description"`
	PolicyJSON  string `dynamodbav:"policy_json"`
	TTL         int64  `dynamodbav:"ttl,omitempty"`
}

func toDynamoItem(rec *models.Record) dynamoItem {
	item := dynamoItem{
		PolicyID:    rec.ID,
		Timestamp:   rec.Timestamp(),
		Description: rec.Description,
		PolicyJSON:  rec.PolicyJSON,
	}
	if !rec.ExpiresAt.IsZero() {
		item.TTL = rec.TTL()
	}
	return item
}

func (i dynamoItem) record() (*models.Record, error) {
	created, err := models.ParseTimestamp(i.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	rec := &models.Record{
		ID:          i.PolicyID,
		CreatedAt:   created,
		Description: i.Description,
		PolicyJSON:  i.PolicyJSON,
	}
	if i.TTL > 0 {
		rec.ExpiresAt = time.Unix(i.TTL, 0).UTC()
	}
	return rec, nil
}

func (s *DynamoStore) Create(ctx context.Context, rec *models.Record) error {
	av, err := attributevalue.MarshalMap(toDynamoItem(rec))
	if err != nil {
		return fmt.Errorf("marshal policy %s: %w", rec.ID, err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(" + attrPolicyID + ")"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDuplicateID
		}
		return fmt.Errorf("put policy %s: %w", rec.ID, err)
	}
	return nil
}

// List performs a full paginated scan. DynamoDB deletes expired items lazily,
// so callers still filter by expiry.
func (s *DynamoStore) List(ctx context.Context) ([]*models.Record, error) {
	out := []*models.Record{}
	pages := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{TableName: aws.String(s.table)})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan policies: %w", err)
		}
		var items []dynamoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal policies: %w", err)
		}
		for _, item := range items {
			rec, err := item.record()
			if err != nil {
				return nil, fmt.Errorf("decode policy %s: %w", item.PolicyID, err)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// Delete is idempotent; DeleteItem on a missing key succeeds.
func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrPolicyID: &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("delete policy %s: %w", id, err)
	}
	return nil
}
