package dynamodb

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTables struct {
	exists      bool
	describeErr error
	createIn    *dynamodb.CreateTableInput
	ttlIn       *dynamodb.UpdateTimeToLiveInput
}

func (f *fakeTables) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if !f.exists {
		return nil, &types.ResourceNotFoundException{Message: sdkaws.String("no table")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeTables) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.createIn = in
	f.exists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeTables) UpdateTimeToLive(_ context.Context, in *dynamodb.UpdateTimeToLiveInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	f.ttlIn = in
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}

func TestEnsureSessionTable_Creates(t *testing.T) {
	fake := &fakeTables{}
	created, err := EnsureSessionTable(context.Background(), fake, "checkout-payment-sessions")
	require.NoError(t, err)
	assert.True(t, created)

	require.NotNil(t, fake.createIn)
	assert.Equal(t, "request_id", *fake.createIn.KeySchema[0].AttributeName)
	assert.Equal(t, types.BillingModePayPerRequest, fake.createIn.BillingMode)
	require.NotNil(t, fake.ttlIn)
	assert.Equal(t, "expires_at_epoch", *fake.ttlIn.TimeToLiveSpecification.AttributeName)
}

func TestEnsureSessionTable_Existing(t *testing.T) {
	fake := &fakeTables{exists: true}
	created, err := EnsureSessionTable(context.Background(), fake, "checkout-payment-sessions")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, fake.createIn)
}

func TestEnsureSessionTable_DescribeError(t *testing.T) {
	fake := &fakeTables{describeErr: errors.New("AccessDenied")}
	_, err := EnsureSessionTable(context.Background(), fake, "t")
	assert.ErrorContains(t, err, "AccessDenied")
}
