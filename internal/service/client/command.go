package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/face-sentry/internal/config"
	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	"github.com/oshokin/face-sentry/internal/logger"
	"github.com/oshokin/face-sentry/internal/service/common"
)

// Options configures a control client invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the control address from config when specified.
	ServerAddress string

	// DesiredState switches detection when non-nil; nil only prints the status.
	DesiredState *bool

	// Out receives the human-readable status line.
	Out io.Writer
}

const (
	// retryInterval is the delay between attempts.
	retryInterval = 1 * time.Second
	// maxAttempts bounds how long the command keeps trying.
	maxAttempts = 5
)

var errNoControlAddress = errors.New("control API is disabled: set control_addr or pass an address")

// Run prints the status and applies DesiredState when set.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "face-sentry-client")

	address := opts.ServerAddress
	timeout := config.DefaultTimeout

	if address == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		address = cfg.ControlAddress
		timeout = cfg.Timeout
	}

	if address == "" {
		return errNoControlAddress
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	attempt := func() (*domain.State, error) {
		if opts.DesiredState == nil {
			return client.GetStatus(ctx)
		}

		actor, actorErr := common.DetectActor()
		if actorErr != nil {
			logger.WarnKV(ctx, "Unable to detect actor", "error", actorErr)
		}

		return client.SetDetection(ctx, actor, *opts.DesiredState)
	}

	var state *domain.State

	for i := 1; ; i++ {
		state, err = attempt()
		if err == nil {
			break
		}

		logger.ErrorKV(ctx, "Control request failed", "attempt", i, "address", address, "error", err)

		if i >= maxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	if opts.Out != nil {
		_, _ = fmt.Fprintln(opts.Out, FormatState(state))
	}

	return nil
}

// FormatState renders a state as a single human-readable line.
func FormatState(state *domain.State) string {
	if state == nil {
		return "<nil state>"
	}

	timestamp := "<unknown>"
	if !state.Timestamp.IsZero() {
		timestamp = state.Timestamp.Format(time.RFC3339)
	}

	source := "<unknown>"
	if state.Source != "" {
		source = state.Source
	}

	operator := "none"
	if state.Operator.IsSet() {
		operator = state.Operator.String()
	}

	return fmt.Sprintf("detection %s, operator chat %s, changed by %s (%s)",
		domain.StatusWord(state.Active), operator, source, timestamp)
}
