package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	"github.com/oshokin/face-sentry/internal/logger"
	repo "github.com/oshokin/face-sentry/internal/repository/state"
)

// Messenger is the outbound side of the chat channel.
// It is only ever called from the dispatcher loop.
type Messenger interface {
	SendText(ctx context.Context, chatID domain.ChatID, text string) error
	SendPhoto(ctx context.Context, chatID domain.ChatID, imagePath string) error
}

// Pruner enforces the retention policy of detection artifacts.
type Pruner interface {
	Prune(ctx context.Context) error
}

// Submitter accepts requests for the dispatcher from any goroutine.
type Submitter interface {
	Submit(ctx context.Context, req domain.Request) error
	TrySubmit(req domain.Request) bool
}

// Dispatcher is the single ordering authority for everything that reaches the
// chat channel. Producers enqueue from their own goroutines; Run drains the
// queue on the messaging goroutine, which also handles incoming commands.
type Dispatcher struct {
	// queue is the bounded request queue.
	queue chan domain.Request
	// state is the shared detection state.
	state *SharedState
	// messenger sends the actual chat messages.
	messenger Messenger
	// commands handles incoming chat commands.
	commands *CommandHandler
	// repository persists the state after every change, optional.
	repository repo.Repository
	// pruner runs after every photo, optional.
	pruner Pruner
	// sendTimeout bounds a single send call.
	sendTimeout time.Duration
}

var (
	// ErrQueueFull is returned by Submit when the context ends before the queue has room.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrChannelClosed is returned by Run when the chat command stream ends.
	ErrChannelClosed = errors.New("chat channel closed")
)

// DispatcherOption configures optional collaborators.
type DispatcherOption func(*Dispatcher)

// WithRepository persists the shared state after every change.
func WithRepository(r repo.Repository) DispatcherOption {
	return func(d *Dispatcher) {
		d.repository = r
	}
}

// WithPruner runs the retention policy after every photo.
func WithPruner(p Pruner) DispatcherOption {
	return func(d *Dispatcher) {
		d.pruner = p
	}
}

// WithSendTimeout bounds each send call.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher with a queue of the given capacity.
func NewDispatcher(state *SharedState, messenger Messenger, size int, opts ...DispatcherOption) *Dispatcher {
	if size <= 0 {
		size = 1
	}

	d := &Dispatcher{
		queue:     make(chan domain.Request, size),
		state:     state,
		messenger: messenger,
	}

	d.commands = NewCommandHandler(state, d.send)

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Submit enqueues req, waiting for room until ctx ends.
func (d *Dispatcher) Submit(ctx context.Context, req domain.Request) error {
	select {
	case d.queue <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submit %s: %w", req.RequestID(), errors.Join(ErrQueueFull, ctx.Err()))
	}
}

// TrySubmit enqueues req without blocking and reports whether it was accepted.
func (d *Dispatcher) TrySubmit(req domain.Request) bool {
	select {
	case d.queue <- req:
		return true
	default:
		return false
	}
}

// Run drains the queue and the command stream until ctx is cancelled or the
// command stream closes. Requests still queued at that point are dropped.
func (d *Dispatcher) Run(ctx context.Context, commands <-chan domain.Command) error {
	ctx = logger.WithName(ctx, "dispatcher")

	for {
		select {
		case <-ctx.Done():
			if pending := len(d.queue); pending > 0 {
				logger.WarnKV(ctx, "Dropping queued notifications on shutdown", "pending", pending)
			}

			return nil
		case cmd, ok := <-commands:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}

				return ErrChannelClosed
			}

			d.commands.Handle(ctx, cmd)
			d.persist(ctx)
		case req := <-d.queue:
			d.handle(ctx, req)
		}
	}
}

// handle executes a single request. Failures are logged and never retried.
func (d *Dispatcher) handle(ctx context.Context, req domain.Request) {
	ctx = logger.WithKV(ctx, "request_id", req.RequestID())

	switch r := req.(type) {
	case domain.TextMessage:
		d.send(ctx, r)
	case domain.PhotoMessage:
		d.sendPhoto(ctx, r)
	case domain.Toggle:
		active := d.state.Toggle(r.Source)
		d.announce(ctx, r.Source, active)
		d.persist(ctx)
	case domain.Switch:
		if d.state.SetActive(r.Source, r.Active) {
			d.announce(ctx, r.Source, r.Active)
		}

		d.persist(ctx)

		if r.Reply != nil {
			// Reply channels are buffered by the caller; never block the loop on them.
			select {
			case r.Reply <- *d.state.Snapshot():
			default:
			}
		}
	default:
		logger.WarnKV(ctx, "Unknown request dropped", "type", fmt.Sprintf("%T", req))
	}
}

// announce logs a state transition and tells the operator, if any.
func (d *Dispatcher) announce(ctx context.Context, source string, active bool) {
	status := domain.StatusWord(active)
	logger.InfoKV(ctx, "Face detection switched", "status", status, "source", source)

	msg, err := domain.NewTextMessage(d.state.Operator(), fmt.Sprintf("Face detection switched %s.", status))
	if err != nil {
		logger.Debug(ctx, "No operator registered, status change not announced")
		return
	}

	d.send(ctx, msg)
}

func (d *Dispatcher) send(ctx context.Context, msg domain.TextMessage) {
	callCtx, cancel := d.callContext(ctx)
	defer cancel()

	if err := d.messenger.SendText(callCtx, msg.ChatID, msg.Body); err != nil {
		logger.ErrorKV(ctx, "Send text failed, message dropped", "chat_id", msg.ChatID, "error", err)
		return
	}

	logger.DebugKV(ctx, "Text sent", "chat_id", msg.ChatID)
}

func (d *Dispatcher) sendPhoto(ctx context.Context, msg domain.PhotoMessage) {
	callCtx, cancel := d.callContext(ctx)
	defer cancel()

	if err := d.messenger.SendPhoto(callCtx, msg.ChatID, msg.ImagePath); err != nil {
		logger.ErrorKV(ctx, "Send photo failed, message dropped", "chat_id", msg.ChatID, "path", msg.ImagePath, "error", err)
	} else {
		logger.InfoKV(ctx, "Photo sent", "chat_id", msg.ChatID, "path", msg.ImagePath)
	}

	if d.pruner == nil {
		return
	}

	if err := d.pruner.Prune(ctx); err != nil {
		logger.WarnKV(ctx, "Artifact retention failed", "error", err)
	}
}

func (d *Dispatcher) persist(ctx context.Context) {
	if d.repository == nil {
		return
	}

	if err := d.repository.Save(ctx, d.state.Snapshot()); err != nil {
		logger.ErrorKV(ctx, "Failed to persist state", "error", err)
	}
}

// callContext returns a context bounded by the send timeout when configured.
func (d *Dispatcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.sendTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d.sendTimeout)
}
