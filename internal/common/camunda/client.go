// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"xtenda-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// Client wraps the Zeebe gRPC client the worker manager opens job workers on.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	// ConnectionTimeout bounds each topology request.
	ConnectionTimeout time.Duration
	RetryConfig       *RetryConfig
}

// RetryConfig controls how long startup waits for the gateway.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// Topology summarises the broker cluster behind the gateway.
type Topology struct {
	GatewayVersion    string `json:"gatewayVersion"`
	Brokers           int    `json:"brokers"`
	ClusterSize       int    `json:"clusterSize"`
	PartitionsCount   int    `json:"partitionsCount"`
	ReplicationFactor int    `json:"replicationFactor"`
}

// NewClientWithConfig dials the gateway and waits, retrying transient
// failures, until it answers a topology request. A client is only returned
// once the broker is reachable.
func NewClientWithConfig(ctx context.Context, config *ClientConfig, log *zap.Logger) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}

	var topo *Topology
	err = withRetry(ctx, config.RetryConfig, "topology", log, func(ctx context.Context) error {
		var err error
		topo, err = c.Topology(ctx)
		return err
	})
	if err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("zeebe gateway %s unreachable: %w", config.GatewayAddress, err)
	}

	log.Info("Zeebe gateway reachable",
		zap.String("gateway", config.GatewayAddress),
		zap.String("gatewayVersion", topo.GatewayVersion),
		zap.Int("brokers", topo.Brokers),
		zap.Int("partitions", topo.PartitionsCount),
	)
	return c, nil
}

// GetClient returns the raw Zeebe client for opening job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Topology(ctx context.Context) (*Topology, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	resp, err := c.client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return nil, err
	}
	return &Topology{
		GatewayVersion:    resp.GetGatewayVersion(),
		Brokers:           len(resp.GetBrokers()),
		ClusterSize:       int(resp.GetClusterSize()),
		PartitionsCount:   int(resp.GetPartitionsCount()),
		ReplicationFactor: int(resp.GetReplicationFactor()),
	}, nil
}

// HealthCheck fails when the gateway is unreachable or reports no brokers.
func (c *Client) HealthCheck(ctx context.Context) error {
	topo, err := c.Topology(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	if topo.Brokers == 0 {
		return fmt.Errorf("zeebe health check failed: gateway reports no brokers")
	}
	return nil
}

// withRetry runs fn with exponential backoff while the error is transient.
func withRetry(ctx context.Context, rc *RetryConfig, operation string, log *zap.Logger, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryableZeebeError(err) || attempt >= rc.MaxRetries {
			return mapZeebeError(err, operation, attempt)
		}

		delay := rc.BaseDelay * time.Duration(1<<attempt)
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
		log.Warn("zeebe request failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("nextRetryIn", delay),
			zap.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("operation %s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
	}
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapZeebeError converts a gRPC failure into a StandardError.
func mapZeebeError(err error, operation string, attempt int) error {
	msg := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		msg += fmt.Sprintf(" after %d attempts", attempt+1)
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return errors.NewTimeoutError("zeebe", wrapped)
	}
	return errors.NewExternalServiceError("zeebe", wrapped)
}
