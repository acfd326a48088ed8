package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yashrajoria/checkout-service/models"
)

// dynamoAPI is the subset of the DynamoDB client the session store uses.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoSessionRepository implements SessionRepository using DynamoDB.
// The table's TTL attribute should be set to expires_at_epoch.
type DynamoSessionRepository struct {
	client dynamoAPI
	table  string
}

func NewDynamoSessionRepository(client *dynamodb.Client, table string) *DynamoSessionRepository {
	return &DynamoSessionRepository{client: client, table: table}
}

type ddbSession struct {
	models.PaymentSession
	ExpiresAtEpoch int64 `dynamodbav:"expires_at_epoch"`
}

// Create writes the session only if no item with the same request id exists.
func (r *DynamoSessionRepository) Create(ctx context.Context, session *models.PaymentSession) error {
	item, err := attributevalue.MarshalMap(ddbSession{
		PaymentSession: *session,
		ExpiresAtEpoch: session.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(request_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDuplicateRequestID
		}
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoSessionRepository) FindByRequestID(ctx context.Context, requestID string) (*models.PaymentSession, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"request_id": requestID})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.table,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrSessionNotFound
	}

	var ds ddbSession
	if err := attributevalue.UnmarshalMap(out.Item, &ds); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &ds.PaymentSession, nil
}
