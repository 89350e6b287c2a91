package sentry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	"github.com/oshokin/face-sentry/internal/logger"
)

// ArtifactPattern matches every file the detection loop writes.
const ArtifactPattern = "face_eye_*.jpg"

// Camera opens the capture device. Every CAPTURE opens and closes it once.
type Camera interface {
	Open() (domain.Capture, error)
}

// Classifier finds faces in a frame and eyes inside a face.
// Returned rectangles are in frame coordinates, in detector order.
type Classifier interface {
	Faces(frame domain.Frame) ([]image.Rectangle, error)
	Eyes(frame domain.Frame, face image.Rectangle) ([]image.Rectangle, error)
}

// ArtifactWriter annotates a frame with every examined face and its eyes and
// stores it as an image file.
type ArtifactWriter interface {
	Write(frame domain.Frame, examined []domain.Detection, path string) error
}

// Indicator is the hardware output lit on a match.
type Indicator interface {
	Set(on bool) error
}

// Previewer shows analysed frames, annotated with every examined face, on a local display.
type Previewer interface {
	Show(frame domain.Frame, examined []domain.Detection)
}

// DetectorOptions holds the timings and output location of the detection loop.
type DetectorOptions struct {
	// ScratchDir receives the artifacts.
	ScratchDir string
	// IdleInterval is the tick while idle and the backoff after a failed capture.
	IdleInterval time.Duration
	// Hold is how long the indicator stays on after a match.
	Hold time.Duration
	// Cooldown is the quiet period after the indicator goes off.
	Cooldown time.Duration
}

// DetectionLoop polls the camera while detection is on and an operator is
// registered, and raises an alert for the first face with exactly two eyes.
type DetectionLoop struct {
	state      *SharedState
	camera     Camera
	classifier Classifier
	artifacts  ArtifactWriter
	indicator  Indicator
	queue      Submitter
	preview    Previewer
	opts       DetectorOptions

	// sleep waits for d or until ctx ends, replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	// now is the clock used for artifact names.
	now func() time.Time
}

// errCaptureFailed wraps camera errors so they can be told apart from detection errors.
var errCaptureFailed = errors.New("capture failed")

// NewDetectionLoop wires the loop. preview may be nil.
func NewDetectionLoop(
	state *SharedState,
	camera Camera,
	classifier Classifier,
	artifacts ArtifactWriter,
	indicator Indicator,
	queue Submitter,
	preview Previewer,
	opts DetectorOptions,
) *DetectionLoop {
	return &DetectionLoop{
		state:      state,
		camera:     camera,
		classifier: classifier,
		artifacts:  artifacts,
		indicator:  indicator,
		queue:      queue,
		preview:    preview,
		opts:       opts,
		sleep:      sleepContext,
		now:        time.Now,
	}
}

// Run loops until ctx is cancelled.
func (l *DetectionLoop) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "detector")
	logger.InfoKV(ctx, "Detection loop started",
		"idle_interval", l.opts.IdleInterval.String(),
		"hold", l.opts.Hold.String(),
		"cooldown", l.opts.Cooldown.String(),
	)

	for {
		wait := l.cycle(ctx)

		if err := l.sleep(ctx, wait); err != nil {
			logger.Info(ctx, "Detection loop stopped")
			return nil
		}
	}
}

// cycle runs one IDLE → CAPTURE → DETECT → NOTIFY pass and returns how long
// to wait before the next one.
func (l *DetectionLoop) cycle(ctx context.Context) time.Duration {
	if !l.state.Active() || !l.state.Operator().IsSet() {
		return l.opts.IdleInterval
	}

	detection, path, err := l.capture(ctx)
	if err != nil {
		if errors.Is(err, errCaptureFailed) {
			logger.WarnKV(ctx, "Camera unavailable, backing off", "error", err)
		} else {
			logger.ErrorKV(ctx, "Detection failed", "error", err)
		}

		return l.opts.IdleInterval
	}

	if detection == nil {
		return l.opts.IdleInterval
	}

	l.alert(ctx, detection, path)

	return l.opts.Cooldown
}

// capture opens the camera, reads one frame, looks for a qualifying face and
// stores the annotated frame when one is found. The camera is closed before
// capture returns, whatever the outcome.
func (l *DetectionLoop) capture(ctx context.Context) (*domain.Detection, string, error) {
	device, err := l.camera.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: open camera: %w", errCaptureFailed, err)
	}

	defer func() {
		if closeErr := device.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Camera release failed", "error", closeErr)
		}
	}()

	frame, err := device.Read()
	if err != nil {
		return nil, "", fmt.Errorf("%w: read frame: %w", errCaptureFailed, err)
	}

	defer func() {
		_ = frame.Close()
	}()

	detection, examined, err := l.detect(frame)
	if err != nil {
		return nil, "", err
	}

	var path string

	if detection != nil {
		path = l.artifactPath()

		if err = l.artifacts.Write(frame, examined, path); err != nil {
			return nil, "", fmt.Errorf("write artifact: %w", err)
		}
	}

	if l.preview != nil {
		l.preview.Show(frame, examined)
	}

	return detection, path, nil
}

// detect returns the first face with exactly two eyes, or nil, together with
// every face examined so far. Faces after the first qualifying one are not examined.
func (l *DetectionLoop) detect(frame domain.Frame) (*domain.Detection, []domain.Detection, error) {
	faces, err := l.classifier.Faces(frame)
	if err != nil {
		return nil, nil, fmt.Errorf("detect faces: %w", err)
	}

	examined := make([]domain.Detection, 0, len(faces))

	for _, face := range faces {
		eyes, err := l.classifier.Eyes(frame, face)
		if err != nil {
			return nil, nil, fmt.Errorf("detect eyes: %w", err)
		}

		examined = append(examined, domain.Detection{
			Face: face,
			Eyes: eyes,
		})

		if detection := &examined[len(examined)-1]; detection.Qualifies() {
			match := *detection

			return &match, examined, nil
		}
	}

	return nil, examined, nil
}

// alert lights the indicator, queues the photo and holds the indicator on.
// The indicator is switched off before alert returns, also on shutdown.
func (l *DetectionLoop) alert(ctx context.Context, detection *domain.Detection, path string) {
	l.setIndicator(ctx, true)
	defer l.setIndicator(ctx, false)

	logger.InfoKV(ctx, "Face with two eyes detected", "face", detection.Face.String(), "path", path)

	photo, err := domain.NewPhotoMessage(l.state.Operator(), path)
	if err != nil {
		logger.Info(ctx, "Operator went away, photo not sent")
	} else if err = l.queue.Submit(ctx, photo); err != nil {
		logger.WarnKV(ctx, "Photo not queued", "error", err)
	}

	_ = l.sleep(ctx, l.opts.Hold)
}

func (l *DetectionLoop) setIndicator(ctx context.Context, on bool) {
	if err := l.indicator.Set(on); err != nil {
		logger.ErrorKV(ctx, "Indicator write failed", "on", on, "error", err)
	}
}

// artifactPath returns a fresh file name based on the current second.
// Two matches cannot share a second thanks to the hold and cooldown, but a
// numeric suffix is added if the name is taken anyway.
func (l *DetectionLoop) artifactPath() string {
	base := fmt.Sprintf("face_eye_%d", l.now().Unix())
	path := filepath.Join(l.opts.ScratchDir, base+".jpg")

	for i := 1; fileExists(path); i++ {
		path = filepath.Join(l.opts.ScratchDir, fmt.Sprintf("%s_%d.jpg", base, i))
	}

	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
