// Package awsconfig loads the shared AWS SDK configuration used by the
// DynamoDB store and the Bedrock oracle.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/ThomasGates3/ai-powered-iam/internal/platform/config"
)

// Load resolves credentials from the default chain (env, shared config, role).
func Load(ctx context.Context, cfg config.AWS) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	c, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return c, nil
}

// DynamoDB builds a DynamoDB client.
func DynamoDB(c aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(c)
}

// Bedrock builds a Bedrock runtime client.
func Bedrock(c aws.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(c)
}
