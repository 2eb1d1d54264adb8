// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"modeltest-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client. The broker connection is verified
// with a topology request before the client is handed out, so startup
// retry loops see connection problems immediately.
type Client struct {
	client  zbc.Client
	timeout time.Duration
}

const connectionTimeout = 10 * time.Second

// NewClient connects to the broker at address using a plaintext
// connection. TLS setups configure the raw zbc client directly.
func NewClient(address string) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", address, err)
	}

	return &Client{
		client:  zeebeClient,
		timeout: connectionTimeout,
	}, nil
}

// GetClient returns the raw Zeebe client for job worker registration.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck performs a topology request against the broker. Used by the
// readiness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return errors.NewExternalServiceError("zeebe", fmt.Errorf("health check failed: %w", err))
	}
	return nil
}
