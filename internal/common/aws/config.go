// internal/common/aws/config.go
package aws

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

var (
	cfgMu    sync.Mutex
	cfgCache = map[string]aws.Config{}
)

// loadConfig resolves the SDK config once per region so the SES and SNS
// clients created together at startup share credentials resolution.
func loadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	if cfg, ok := cfgCache[region]; ok {
		return cfg, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, err
	}
	cfgCache[region] = cfg
	return cfg, nil
}
