package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const defaultRegion = "eu-west-2"

// LoadAWSConfig loads the shared AWS config. When AWS_ENDPOINT is set
// (LocalStack) every client built from it targets that URL, and dummy static
// credentials are used unless explicit keys are given.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	return loadAWSConfig(ctx, os.Getenv)
}

func loadAWSConfig(ctx context.Context, getenv func(string) string) (sdkaws.Config, error) {
	region := getenv("AWS_REGION")
	if region == "" {
		region = defaultRegion
	}
	endpoint := getenv("AWS_ENDPOINT")
	accessKey := getenv("AWS_ACCESS_KEY_ID")
	secretKey := getenv("AWS_SECRET_ACCESS_KEY")

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	switch {
	case accessKey != "" && secretKey != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, getenv("AWS_SESSION_TOKEN")),
		))
	case endpoint != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}
	if endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}
	return cfg, nil
}
