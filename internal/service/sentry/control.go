package sentry

import (
	"context"
	"fmt"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// sourceControl marks changes made through the control API.
const sourceControl = "control"

// Controller serves the control API on top of the shared state. Changes go
// through the dispatcher queue like button presses do.
type Controller struct {
	state *SharedState
	queue Submitter
}

// NewController creates a controller.
func NewController(state *SharedState, queue Submitter) *Controller {
	return &Controller{
		state: state,
		queue: queue,
	}
}

// Status returns a snapshot of the shared state.
func (c *Controller) Status(_ context.Context) *domain.State {
	return c.state.Snapshot()
}

// SetDetection switches detection and waits until the dispatcher applied it.
// actor is appended to the change source when non-empty.
func (c *Controller) SetDetection(ctx context.Context, actor string, active bool) (*domain.State, error) {
	source := sourceControl
	if actor != "" {
		source += ":" + actor
	}

	reply := make(chan domain.State, 1)

	if err := c.queue.Submit(ctx, domain.NewSwitch(source, active, reply)); err != nil {
		return nil, err
	}

	select {
	case state := <-reply:
		return &state, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for switch: %w", ctx.Err())
	}
}
