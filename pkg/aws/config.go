package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/younsl/idlesweep/internal/version"
)

// LoadConfig loads the shared AWS configuration for region. Credentials come
// from the default chain; on EC2 the instance metadata service is used.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithAppID(version.AppID()),
		config.WithEC2IMDSClientEnableState(imds.ClientEnabled),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config for region %s: %w", region, err)
	}
	return cfg, nil
}
