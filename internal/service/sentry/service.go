package sentry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/face-sentry/internal/api/grpc/control"
	"github.com/oshokin/face-sentry/internal/config"
	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	"github.com/oshokin/face-sentry/internal/logger"
	repo "github.com/oshokin/face-sentry/internal/repository/state"
)

// controlShutdownGrace bounds the graceful stop of the control server.
const controlShutdownGrace = 2 * time.Second

// Devices are the hardware and network collaborators of a Service.
type Devices struct {
	// Button delivers button edges.
	Button EdgeSource
	// Indicator is the alert output.
	Indicator Indicator
	// Camera opens the capture device.
	Camera Camera
	// Classifier runs face and eye detection.
	Classifier Classifier
	// Artifacts stores annotated frames.
	Artifacts ArtifactWriter
	// Preview shows analysed frames, optional.
	Preview Previewer
	// Messenger sends chat messages.
	Messenger Messenger
}

// Service runs the button monitor, the detection loop, the dispatcher and the
// optional control server over one shared state.
type Service struct {
	// cfg is the validated configuration.
	cfg *config.Config
	// state is the shared detection state.
	state *SharedState
	// repository persists the state, optional.
	repository repo.Repository
	// dispatcher owns the notification queue.
	dispatcher *Dispatcher
	// button watches the toggle button.
	button *ButtonMonitor
	// detector runs the detection loop.
	detector *DetectionLoop
	// controller backs the control API.
	controller *Controller
}

// New wires a service. repository may be nil.
func New(cfg *config.Config, devices *Devices, repository repo.Repository) *Service {
	state := NewSharedState()

	opts := []DispatcherOption{
		WithSendTimeout(cfg.Timeout),
		WithPruner(NewRetention(cfg.ScratchDir, cfg.Retention.MaxFiles, cfg.Retention.MaxAge)),
	}

	if repository != nil {
		opts = append(opts, WithRepository(repository))
	}

	dispatcher := NewDispatcher(state, devices.Messenger, cfg.QueueSize, opts...)

	detector := NewDetectionLoop(
		state,
		devices.Camera,
		devices.Classifier,
		devices.Artifacts,
		devices.Indicator,
		dispatcher,
		devices.Preview,
		DetectorOptions{
			ScratchDir:   cfg.ScratchDir,
			IdleInterval: cfg.IdleInterval,
			Hold:         cfg.Hold,
			Cooldown:     cfg.Cooldown,
		},
	)

	return &Service{
		cfg:        cfg,
		state:      state,
		repository: repository,
		dispatcher: dispatcher,
		button:     NewButtonMonitor(devices.Button, dispatcher, cfg.Debounce),
		detector:   detector,
		controller: NewController(state, dispatcher),
	}
}

// State returns the shared state.
func (s *Service) State() *SharedState {
	return s.state
}

// Restore loads the persisted operator. A missing state file is not an error.
func (s *Service) Restore(ctx context.Context) error {
	if s.repository == nil {
		return nil
	}

	state, err := s.repository.Load(ctx)
	switch {
	case err == nil && state != nil:
		s.state.Restore(state)
		logger.InfoKV(ctx, "State restored", "operator_chat_id", state.Operator, "changed_by", state.Source)
	case err == nil, errors.Is(err, repo.ErrNotFound):
		logger.Info(ctx, "No saved state, waiting for /start")
	default:
		return fmt.Errorf("load state: %w", err)
	}

	return nil
}

// Serve starts the workers and runs the dispatcher on the calling goroutine
// until ctx is cancelled or the command stream closes. It returns once every
// worker has stopped.
func (s *Service) Serve(ctx context.Context, commands <-chan domain.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.button.Run(groupCtx)
	})

	group.Go(func() error {
		return s.detector.Run(groupCtx)
	})

	if s.cfg.ControlAddress != "" {
		group.Go(func() error {
			return serveControl(groupCtx, s.cfg.ControlAddress, s.controller)
		})
	}

	runErr := s.dispatcher.Run(groupCtx, commands)

	cancel()

	waitErr := group.Wait()
	if runErr != nil {
		return fmt.Errorf("dispatcher: %w", runErr)
	}

	return waitErr
}

// serveControl runs the gRPC control server until ctx is cancelled.
func serveControl(ctx context.Context, address string, controller *Controller) error {
	ctx = logger.WithName(ctx, "control")

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	control.Register(grpcServer, control.NewServer(controller))

	logger.InfoKV(ctx, "Control server listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop returns so Serve's caller waits for the full stop.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down control server")

		// In-flight switches cannot complete once the dispatcher is gone.
		force := time.AfterFunc(controlShutdownGrace, grpcServer.Stop)
		grpcServer.GracefulStop()
		force.Stop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Control server stopped")

	return nil
}
