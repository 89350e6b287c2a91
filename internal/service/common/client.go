//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/face-sentry/internal/api/grpc/control"
	"github.com/oshokin/face-sentry/internal/config"
	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// Client wraps a connection to the control service.
type Client struct {
	// conn is the underlying gRPC connection.
	conn *grpc.ClientConn

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithConn uses an existing connection instead of dialing.
func WithConn(conn *grpc.ClientConn) Option {
	return func(c *Client) {
		c.conn = conn
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial connects to the control service.
// The connection is plaintext; the control API is meant for the local host or a trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.conn != nil {
		return client, nil
	}

	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial control server: %w", err)
	}

	client.conn = conn

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the current detection state.
func (c *Client) GetStatus(ctx context.Context) (*domain.State, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, control.GetStatusMethod, new(emptypb.Empty), out); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return control.StateFromStruct(out)
}

// SetDetection switches detection on the server, identifying the caller as actor.
func (c *Client) SetDetection(ctx context.Context, actor string, active bool) (*domain.State, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if actor != "" {
		callCtx = metadata.AppendToOutgoingContext(callCtx, control.ActorMetadataKey, actor)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, control.SetDetectionMethod, wrapperspb.Bool(active), out); err != nil {
		return nil, fmt.Errorf("set detection: %w", err)
	}

	return control.StateFromStruct(out)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
