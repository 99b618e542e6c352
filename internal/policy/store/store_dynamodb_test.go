package store

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/suite"
)

// fakeDynamo is a single-table DynamoDB stand-in. Scan returns pages of
// pageSize items so the paginator path is exercised.
type fakeDynamo struct {
	mu       sync.Mutex
	order    []string
	items    map[string]map[string]types.AttributeValue
	pageSize int
	tables   map[string]bool
	scans    int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, pageSize: 2, tables: map[string]bool{}}
}

func keyOf(item map[string]types.AttributeValue) string {
	if v, ok := item[attrPolicyID].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[aws.ToString(in.TableName)] = true
	key := keyOf(in.Item)
	if _, ok := f.items[key]; ok && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
	}
	if _, ok := f.items[key]; !ok {
		f.order = append(f.order, key)
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	start := 0
	if in.ExclusiveStartKey != nil {
		last := keyOf(in.ExclusiveStartKey)
		for i, k := range f.order {
			if k == last {
				start = i + 1
				break
			}
		}
	}
	end := min(start+f.pageSize, len(f.order))
	out := &dynamodb.ScanOutput{}
	for _, k := range f.order[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(f.order) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			attrPolicyID: &types.AttributeValueMemberS{Value: f.order[end-1]},
		}
	}
	return out, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyOf(in.Key)
	delete(f.items, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

type DynamoStoreSuite struct {
	storeContractSuite
	fake   *fakeDynamo
	dynamo *DynamoStore
}

func TestDynamoStoreSuite(t *testing.T) {
	suite.Run(t, new(DynamoStoreSuite))
}

func (s *DynamoStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.fake = newFakeDynamo()
	s.dynamo = NewDynamo(s.fake, "")
	s.store = s.dynamo
}

func (s *DynamoStoreSuite) TestItemLayout() {
	rec := newTestRecord("layout", time.Now())
	s.Require().NoError(s.dynamo.Create(s.ctx, rec))

	s.True(s.fake.tables[DefaultDynamoTable])
	item := s.fake.items[rec.ID]
	s.Require().NotNil(item)
	s.Equal(&types.AttributeValueMemberS{Value: rec.Timestamp()}, item[attrTimestamp])
	s.Equal(&types.AttributeValueMemberS{Value: rec.PolicyJSON}, item[attrPolicyJSON])
	ttl, ok := item[attrTTL].(*types.AttributeValueMemberN)
	s.Require().True(ok)
	n, err := strconv.ParseInt(ttl.Value, 10, 64)
	s.Require().NoError(err)
	s.Equal(rec.TTL(), n)
}

func (s *DynamoStoreSuite) TestListFollowsPages() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.dynamo.Create(s.ctx, newTestRecord("paged", time.Now())))
	}
	records, err := s.dynamo.List(s.ctx)
	s.Require().NoError(err)
	s.Len(records, 5)
	s.Equal(3, s.fake.scans)
}
