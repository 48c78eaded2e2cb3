// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gig-dispatch/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// ClientConfig holds connection settings for the Zeebe gateway.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
}

// RetryConfig bounds the backoff loop for broker commands.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    10 * time.Second,
}

// Client wraps the Zeebe gRPC client. The wrapper owns connection probing
// and translation of broker failures into the local error taxonomy.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// NewClientWithConfig connects to the gateway and requests its topology so a
// dead broker fails startup instead of the first job.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("connect to zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{client: zeebeClient, config: config}, nil
}

// GetClient returns the raw Zeebe client for worker registration.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck sends a topology request; used by the readiness endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// SendWithRetry runs a broker command, backing off exponentially on
// transient gRPC failures. Non-transient failures return immediately.
func SendWithRetry(ctx context.Context, retry *RetryConfig, name string, send func(context.Context) error) error {
	if retry == nil {
		retry = DefaultRetryConfig
	}

	var lastErr error
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		lastErr = send(ctx)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return classifyBrokerError(name, lastErr)
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.NewTimeoutError("zeebe", fmt.Errorf("%s cancelled after %d attempts: %w", name, attempt+1, ctx.Err()))
		}
	}

	return classifyBrokerError(name, lastErr)
}

// isTransient reports whether the broker failure is worth another attempt.
func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// classifyBrokerError maps a broker failure onto the error taxonomy. The
// dispatch pass only ever sees connectivity and timeout failures here; the
// rest fall through as a generic external-service error.
func classifyBrokerError(operation string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return errors.NewTimeoutError("zeebe", fmt.Errorf("%s: %w", operation, err))
	}
	return errors.NewExternalServiceError("zeebe", fmt.Errorf("%s: %w", operation, err))
}
