package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	SessionKeyAttribute = "request_id"
	SessionTTLAttribute = "expires_at_epoch"
)

type tableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// NewClientFromConfig returns a DynamoDB client built from a shared AWS
// config, so the AWS_ENDPOINT override applies to it too.
func NewClientFromConfig(cfg sdkaws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// EnsureSessionTable creates the payment session table (hash key request_id,
// on-demand billing) and enables TTL on expires_at_epoch. An existing table is
// left untouched.
func EnsureSessionTable(ctx context.Context, client tableAPI, table string) (created bool, err error) {
	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: sdkaws.String(table)})
	if err == nil {
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("describe table %s: %w", table, err)
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: sdkaws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{{
			AttributeName: sdkaws.String(SessionKeyAttribute),
			AttributeType: types.ScalarAttributeTypeS,
		}},
		KeySchema: []types.KeySchemaElement{{
			AttributeName: sdkaws.String(SessionKeyAttribute),
			KeyType:       types.KeyTypeHash,
		}},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return false, fmt.Errorf("create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: sdkaws.String(table)}, 2*time.Minute); err != nil {
		return true, fmt.Errorf("wait for table %s: %w", table, err)
	}

	_, err = client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: sdkaws.String(table),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: sdkaws.String(SessionTTLAttribute),
			Enabled:       sdkaws.Bool(true),
		},
	})
	if err != nil {
		return true, fmt.Errorf("enable ttl on %s: %w", table, err)
	}
	return true, nil
}
