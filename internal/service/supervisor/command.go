package supervisor

import (
	"context"
	"fmt"
	"os"

	"github.com/oshokin/face-sentry/internal/config"
	"github.com/oshokin/face-sentry/internal/hardware/gpio"
	"github.com/oshokin/face-sentry/internal/logger"
	"github.com/oshokin/face-sentry/internal/messaging/telegram"
	repository "github.com/oshokin/face-sentry/internal/repository/state"
	"github.com/oshokin/face-sentry/internal/service/instance"
	"github.com/oshokin/face-sentry/internal/service/sentry"
	"github.com/oshokin/face-sentry/internal/version"
	"github.com/oshokin/face-sentry/internal/vision"
)

// previewTitle is the title of the preview window.
const previewTitle = "face-sentry"

// scratchDirPermissions is used when the scratch directory has to be created.
const scratchDirPermissions = 0o750

// Options controls the face-sentry daemon.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ControlAddress overrides the control API listen address from config.
	ControlAddress string
	// Preview forces the preview window on.
	Preview bool
}

// Run starts the daemon and blocks until ctx is cancelled.
// Every acquired resource is released before Run returns, on every path.
//
//nolint:funlen // Start-up order is easier to follow in one place.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if !logger.Configure(settings.LogLevel, settings.LogFile) {
		logger.WarnKV(ctx, "Unknown log level, using info", "log_level", settings.LogLevel)
	}

	defer logger.Sync()

	ctx = logger.WithName(ctx, "face-sentry")
	logger.InfoKV(ctx, "Starting", version.KV()...)

	if opts.ControlAddress != "" {
		settings.ControlAddress = opts.ControlAddress
	}

	if err = instance.EnsureSingle(); err != nil {
		return err
	}

	if err = os.MkdirAll(settings.ScratchDir, scratchDirPermissions); err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	classifier, err := vision.NewClassifier(settings.FaceModel, settings.EyeModel)
	if err != nil {
		return err
	}

	defer closeWith(ctx, "classifier", classifier.Close)

	devices := &sentry.Devices{
		Camera:     vision.NewCamera(settings.CameraIndex),
		Classifier: classifier,
		Artifacts:  vision.JPEGWriter{},
	}

	// Created before the pins so that it is destroyed after them.
	if settings.Preview || opts.Preview {
		preview := vision.NewPreview(previewTitle)
		defer closeWith(ctx, "preview window", preview.Close)

		devices.Preview = preview
	}

	board, err := gpio.Open(settings.ButtonPin, settings.IndicatorPin)
	if err != nil {
		return fmt.Errorf("configure pins: %w", err)
	}

	// Drives the indicator low and halts both pins.
	defer closeWith(ctx, "gpio", board.Close)

	devices.Button = board
	devices.Indicator = board

	bot, err := telegram.New(settings.BotToken)
	if err != nil {
		return err
	}

	username, err := bot.Username(ctx)
	if err != nil {
		return err
	}

	devices.Messenger = bot

	commands, err := bot.Commands(ctx)
	if err != nil {
		return err
	}

	svc := sentry.New(settings, devices, repository.NewFileRepository(settings.StateFile))
	if err = svc.Restore(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Face sentry ready",
		"bot", username,
		"button_pin", settings.ButtonPin,
		"indicator_pin", settings.IndicatorPin,
		"camera_index", settings.CameraIndex,
		"control_addr", settings.ControlAddress,
	)

	if err = svc.Serve(ctx, commands); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info(ctx, "Face sentry stopped")

	return nil
}

func closeWith(ctx context.Context, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.WarnKV(ctx, "Release failed", "resource", what, "error", err)
	}
}
