package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	calls  int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

func TestSecretsClient_GetSecretJSON(t *testing.T) {
	fake := &fakeSecrets{values: map[string]string{
		"checkout/GATEWAY_SECRETS": `{"PROVIDER_A_HASH_SECRET":"a","PROVIDER_B_SECRET_KEY":"b"}`,
		"checkout/BROKEN":          `not json`,
	}}
	c := &SecretsClient{client: fake}

	got, err := c.GetSecretJSON(context.Background(), "checkout/GATEWAY_SECRETS")
	require.NoError(t, err)
	assert.Equal(t, "a", got["PROVIDER_A_HASH_SECRET"])

	_, err = c.GetSecretJSON(context.Background(), "checkout/GATEWAY_SECRETS")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls, "second read is served from cache")

	_, err = c.GetSecretJSON(context.Background(), "checkout/BROKEN")
	assert.ErrorContains(t, err, "not a JSON object")

	_, err = c.GetSecretJSON(context.Background(), "checkout/MISSING")
	assert.ErrorContains(t, err, "failed to get secret checkout/MISSING")
}
