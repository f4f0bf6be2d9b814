package publish

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoLedger is a Ledger on a DynamoDB table.
//
// Table schema:
//   - Partition key: base_uri (string)
//   - Sort key: version (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name yyy-versions \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DynamoLedger struct {
	client    DDBClient
	tableName string
}

var _ Ledger = (*DynamoLedger)(nil)

// NewDynamoLedger creates a ledger on tableName.
func NewDynamoLedger(client DDBClient, tableName string) *DynamoLedger {
	return &DynamoLedger{client: client, tableName: tableName}
}

// Latest implements Ledger.
func (l *DynamoLedger) Latest(ctx context.Context, base string) (Version, bool, error) {
	resp, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: base},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Version{}, false, fmt.Errorf("query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return Version{}, false, nil
	}
	v, err := decodeVersion(resp.Items[0])
	if err != nil {
		return Version{}, false, err
	}
	return v, true, nil
}

// Commit implements Ledger with a conditional write.
func (l *DynamoLedger) Commit(ctx context.Context, base string, v Version) error {
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":  &types.AttributeValueMemberS{Value: base},
			"version":   &types.AttributeValueMemberN{Value: strconv.FormatUint(v.Number, 10)},
			"blob_name": &types.AttributeValueMemberS{Value: v.Name},
			"sha256":    &types.AttributeValueMemberS{Value: v.SHA256},
			"size":      &types.AttributeValueMemberN{Value: strconv.FormatInt(v.Size, 10)},
			"published": &types.AttributeValueMemberS{Value: v.Time.UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("commit version to DynamoDB: %w", err)
	}
	return nil
}

func decodeVersion(item map[string]types.AttributeValue) (Version, error) {
	str := func(key string) (string, error) {
		a, ok := item[key].(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("invalid %s attribute in DynamoDB", key)
		}
		return a.Value, nil
	}
	num := func(key string) (string, error) {
		a, ok := item[key].(*types.AttributeValueMemberN)
		if !ok {
			return "", fmt.Errorf("invalid %s attribute in DynamoDB", key)
		}
		return a.Value, nil
	}

	var v Version
	raw, err := num("version")
	if err != nil {
		return v, err
	}
	if v.Number, err = strconv.ParseUint(raw, 10, 64); err != nil {
		return v, fmt.Errorf("parse version: %w", err)
	}
	if raw, err = num("size"); err != nil {
		return v, err
	}
	if v.Size, err = strconv.ParseInt(raw, 10, 64); err != nil {
		return v, fmt.Errorf("parse size: %w", err)
	}
	if v.Name, err = str("blob_name"); err != nil {
		return v, err
	}
	if v.SHA256, err = str("sha256"); err != nil {
		return v, err
	}
	if raw, err = str("published"); err != nil {
		return v, err
	}
	if v.Time, err = time.Parse(time.RFC3339, raw); err != nil {
		return v, fmt.Errorf("parse published: %w", err)
	}
	return v, nil
}
