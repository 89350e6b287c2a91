package sentry

import (
	"context"
	"time"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	"github.com/oshokin/face-sentry/internal/logger"
)

const (
	// sourceButton marks changes made with the physical button.
	sourceButton = "button"
	// edgePollTimeout bounds a single wait so cancellation is noticed.
	edgePollTimeout = 500 * time.Millisecond
)

// EdgeSource delivers rising edges of the button input.
type EdgeSource interface {
	// WaitForEdge blocks until an edge or the timeout and reports whether an edge occurred.
	WaitForEdge(timeout time.Duration) bool
}

// ButtonMonitor turns debounced button edges into Toggle requests.
// The toggle itself is applied by the dispatcher so that state changes and
// the resulting messages share one ordering.
type ButtonMonitor struct {
	// pin is the button input.
	pin EdgeSource
	// queue receives Toggle requests.
	queue Submitter
	// debounce collapses edges closer than this.
	debounce time.Duration
	// lastEdge is the time of the last accepted edge; only the Run goroutine touches it.
	lastEdge time.Time
	// now is the clock, replaced in tests.
	now func() time.Time
}

// NewButtonMonitor creates a monitor posting to queue.
func NewButtonMonitor(pin EdgeSource, queue Submitter, debounce time.Duration) *ButtonMonitor {
	return &ButtonMonitor{
		pin:      pin,
		queue:    queue,
		debounce: debounce,
		now:      time.Now,
	}
}

// Run waits for edges until ctx is cancelled.
func (m *ButtonMonitor) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "button")
	logger.InfoKV(ctx, "Watching button", "debounce", m.debounce.String())

	for ctx.Err() == nil {
		if m.pin.WaitForEdge(edgePollTimeout) {
			m.onEdge(ctx)
		}
	}

	return nil
}

// onEdge applies the debounce window and posts a toggle. It reports whether
// the edge was accepted.
func (m *ButtonMonitor) onEdge(ctx context.Context) bool {
	now := m.now()
	if !m.lastEdge.IsZero() && now.Sub(m.lastEdge) < m.debounce {
		logger.Debug(ctx, "Edge ignored by debounce")
		return false
	}

	m.lastEdge = now

	toggle := domain.NewToggle(sourceButton)
	if !m.queue.TrySubmit(toggle) {
		logger.WarnKV(ctx, "Notification queue full, button press lost", "request_id", toggle.ID)
		return false
	}

	logger.DebugKV(ctx, "Button pressed", "request_id", toggle.ID)

	return true
}
