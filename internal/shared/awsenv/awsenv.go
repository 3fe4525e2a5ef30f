// Package awsenv loads the AWS configuration shared by the S3 store, the SQS producer and the worker.
package awsenv

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

const (
	DefaultRegion = "us-east-1"

	// Upload and receive calls ride out short throttling bursts before surfacing an error.
	maxAttempts = 5
)

// Region returns region trimmed, or DefaultRegion when empty.
func Region(region string) string {
	if r := strings.TrimSpace(region); r != "" {
		return r
	}
	return DefaultRegion
}

// Load resolves credentials from the default chain for region.
func Load(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(Region(region)),
		awsconfig.WithRetryMaxAttempts(maxAttempts),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
