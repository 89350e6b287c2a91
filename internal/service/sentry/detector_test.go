package sentry

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

const (
	testIdle     = 1 * time.Second
	testHold     = 3 * time.Second
	testCooldown = 10 * time.Second
)

var (
	faceA = image.Rect(10, 10, 110, 110)
	faceB = image.Rect(200, 10, 300, 110)
	eye1  = image.Rect(30, 40, 50, 60)
	eye2  = image.Rect(70, 40, 90, 60)
	eye3  = image.Rect(50, 80, 60, 90)
)

type detectorHarness struct {
	state      *SharedState
	camera     *fakeCamera
	classifier *fakeClassifier
	artifacts  *fakeArtifacts
	indicator  *fakeIndicator
	queue      *recordingQueue
	loop       *DetectionLoop

	mu     sync.Mutex
	sleeps []time.Duration
}

func newDetectorHarness(t *testing.T) *detectorHarness {
	t.Helper()

	h := &detectorHarness{
		state:      NewSharedState(),
		camera:     &fakeCamera{},
		classifier: &fakeClassifier{eyes: map[image.Rectangle][]image.Rectangle{}},
		artifacts:  &fakeArtifacts{},
		indicator:  &fakeIndicator{},
		queue:      &recordingQueue{},
	}

	h.loop = NewDetectionLoop(
		h.state,
		h.camera,
		h.classifier,
		h.artifacts,
		h.indicator,
		h.queue,
		nil,
		DetectorOptions{
			ScratchDir:   t.TempDir(),
			IdleInterval: testIdle,
			Hold:         testHold,
			Cooldown:     testCooldown,
		},
	)

	h.loop.sleep = func(ctx context.Context, d time.Duration) error {
		h.mu.Lock()
		h.sleeps = append(h.sleeps, d)
		h.mu.Unlock()

		return ctx.Err()
	}

	return h
}

// arm switches detection on with an operator registered.
func (h *detectorHarness) arm() {
	h.state.RegisterOperator(sourceOperator, 77)
	h.state.SetActive(sourceButton, true)
}

func (h *detectorHarness) requireBalanced(t *testing.T, wantOpens int) {
	t.Helper()

	opens, closes := h.camera.Counts()
	require.Equal(t, wantOpens, opens, "camera opens")
	require.Equal(t, opens, closes, "every open camera is released")

	for _, frame := range h.camera.frames {
		require.True(t, frame.closed, "every frame is released")
	}
}

func TestDetectionLoop_IdleWithoutActivationOrOperator(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	ctx := context.Background()

	require.Equal(t, testIdle, h.loop.cycle(ctx))

	h.state.SetActive(sourceButton, true)
	require.Equal(t, testIdle, h.loop.cycle(ctx), "no operator registered")

	h.state.SetActive(sourceButton, false)
	h.state.RegisterOperator(sourceOperator, 1)
	require.Equal(t, testIdle, h.loop.cycle(ctx), "detection off")

	h.requireBalanced(t, 0)
	require.Empty(t, h.queue.Requests())
}

func TestDetectionLoop_WrongEyeCountProducesNothing(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		eyes []image.Rectangle
	}{
		{name: "no eyes"},
		{name: "one eye", eyes: []image.Rectangle{eye1}},
		{name: "three eyes", eyes: []image.Rectangle{eye1, eye2, eye3}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newDetectorHarness(t)
			h.arm()

			h.classifier.faces = []image.Rectangle{faceA}
			h.classifier.eyes[faceA] = tt.eyes

			require.Equal(t, testIdle, h.loop.cycle(context.Background()))

			h.requireBalanced(t, 1)
			require.Empty(t, h.queue.Requests())
			require.Empty(t, h.artifacts.paths)
			require.Empty(t, h.indicator.Levels())
		})
	}
}

func TestDetectionLoop_NoFaces(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	require.Equal(t, testIdle, h.loop.cycle(context.Background()))
	h.requireBalanced(t, 1)
	require.Empty(t, h.queue.Requests())
}

func TestDetectionLoop_SinglePhotoPerCooldown(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	h.classifier.faces = []image.Rectangle{faceA, faceB}
	h.classifier.eyes[faceA] = []image.Rectangle{eye1, eye2}
	h.classifier.eyes[faceB] = []image.Rectangle{eye1, eye2}

	require.Equal(t, testCooldown, h.loop.cycle(context.Background()))

	h.requireBalanced(t, 1)
	require.Equal(t, 1, h.classifier.eyeCalls, "faces after the first match are not examined")
	require.Equal(t, []bool{true, false}, h.indicator.Levels())
	require.Equal(t, []time.Duration{testHold}, h.sleeps)

	requests := h.queue.Requests()
	require.Len(t, requests, 1)

	photo, ok := requests[0].(domain.PhotoMessage)
	require.True(t, ok)
	require.Equal(t, domain.ChatID(77), photo.ChatID)
	require.Equal(t, h.artifacts.paths, []string{photo.ImagePath})

	matched, err := filepath.Match(ArtifactPattern, filepath.Base(photo.ImagePath))
	require.NoError(t, err)
	require.True(t, matched)
}

func TestDetectionLoop_FirstQualifyingFaceWins(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	h.classifier.faces = []image.Rectangle{faceA, faceB}
	h.classifier.eyes[faceA] = []image.Rectangle{eye1}
	h.classifier.eyes[faceB] = []image.Rectangle{eye1, eye2}

	detection, examined, err := h.loop.detect(&fakeFrame{})
	require.NoError(t, err)
	require.NotNil(t, detection)
	require.Equal(t, faceB, detection.Face)
	require.Equal(t, 2, h.classifier.eyeCalls)
	require.Equal(t, []domain.Detection{
		{Face: faceA, Eyes: []image.Rectangle{eye1}},
		{Face: faceB, Eyes: []image.Rectangle{eye1, eye2}},
	}, examined)
}

func TestDetectionLoop_AnnotatesEveryExaminedFace(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	preview := &fakePreview{}
	h.loop.preview = preview

	faceC := image.Rect(400, 10, 500, 110)

	h.classifier.faces = []image.Rectangle{faceA, faceB, faceC}
	h.classifier.eyes[faceA] = []image.Rectangle{eye1, eye2, eye3}
	h.classifier.eyes[faceB] = []image.Rectangle{eye1, eye2}
	h.classifier.eyes[faceC] = []image.Rectangle{eye1, eye2}

	require.Equal(t, testCooldown, h.loop.cycle(context.Background()))

	want := []domain.Detection{
		{Face: faceA, Eyes: []image.Rectangle{eye1, eye2, eye3}},
		{Face: faceB, Eyes: []image.Rectangle{eye1, eye2}},
	}

	require.Equal(t, [][]domain.Detection{want}, h.artifacts.examined)
	require.Equal(t, [][]domain.Detection{want}, preview.shown)
}

func TestDetectionLoop_PreviewWithoutMatch(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	preview := &fakePreview{}
	h.loop.preview = preview

	h.classifier.faces = []image.Rectangle{faceA, faceB}
	h.classifier.eyes[faceA] = []image.Rectangle{eye1}

	require.Equal(t, testIdle, h.loop.cycle(context.Background()))

	require.Empty(t, h.artifacts.paths)
	require.Equal(t, [][]domain.Detection{{
		{Face: faceA, Eyes: []image.Rectangle{eye1}},
		{Face: faceB},
	}}, preview.shown)
}

func TestDetectionLoop_ReleasesCameraOnFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(h *detectorHarness)
		wantOpens int
	}{
		{
			name:      "open fails",
			setup:     func(h *detectorHarness) { h.camera.openErr = errBoom },
			wantOpens: 0,
		},
		{
			name:      "read fails",
			setup:     func(h *detectorHarness) { h.camera.readErr = errBoom },
			wantOpens: 1,
		},
		{
			name:      "classifier fails",
			setup:     func(h *detectorHarness) { h.classifier.faceErr = errBoom },
			wantOpens: 1,
		},
		{
			name: "artifact write fails",
			setup: func(h *detectorHarness) {
				h.classifier.faces = []image.Rectangle{faceA}
				h.classifier.eyes[faceA] = []image.Rectangle{eye1, eye2}
				h.artifacts.err = errBoom
			},
			wantOpens: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newDetectorHarness(t)
			h.arm()
			tt.setup(h)

			require.Equal(t, testIdle, h.loop.cycle(context.Background()))
			h.requireBalanced(t, tt.wantOpens)
			require.Empty(t, h.queue.Requests())
			require.Empty(t, h.indicator.Levels())
		})
	}
}

func TestDetectionLoop_FullQueueStillHolds(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	h.classifier.faces = []image.Rectangle{faceA}
	h.classifier.eyes[faceA] = []image.Rectangle{eye1, eye2}
	h.queue.full = true

	// A full queue loses the photo but the alert still runs its course.
	require.Equal(t, testCooldown, h.loop.cycle(context.Background()))
	require.Equal(t, []bool{true, false}, h.indicator.Levels())
	require.Empty(t, h.queue.Requests())
}

func TestDetectionLoop_ToggleOffDuringCooldown(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	h.classifier.faces = []image.Rectangle{faceA}
	h.classifier.eyes[faceA] = []image.Rectangle{eye1, eye2}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.loop.sleep = func(_ context.Context, d time.Duration) error {
		h.mu.Lock()
		h.sleeps = append(h.sleeps, d)
		calls := len(h.sleeps)
		h.mu.Unlock()

		if d == testCooldown {
			h.state.Toggle(sourceButton)
		}

		if calls == 4 {
			cancel()
			return ctx.Err()
		}

		return nil
	}

	require.NoError(t, h.loop.Run(ctx))

	// hold, cooldown, then two idle ticks with detection off.
	require.Equal(t, []time.Duration{testHold, testCooldown, testIdle, testIdle}, h.sleeps)
	h.requireBalanced(t, 1)
	require.Len(t, h.queue.Requests(), 1)
}

func TestDetectionLoop_ArtifactPathAvoidsCollisions(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.loop.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	first := h.loop.artifactPath()
	require.Equal(t, filepath.Join(h.loop.opts.ScratchDir, "face_eye_1700000000.jpg"), first)
	require.NoError(t, os.WriteFile(first, []byte("x"), 0o600))

	second := h.loop.artifactPath()
	require.Equal(t, filepath.Join(h.loop.opts.ScratchDir, "face_eye_1700000000_1.jpg"), second)
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)
}

// clockQueue stamps every submitted request with the virtual time.
type clockQueue struct {
	recordingQueue

	now   func() time.Duration
	times []time.Duration
}

func (q *clockQueue) Submit(ctx context.Context, req domain.Request) error {
	q.times = append(q.times, q.now())

	return q.recordingQueue.Submit(ctx, req)
}

func TestDetectionLoop_NoSecondPhotoWithinCooldown(t *testing.T) {
	t.Parallel()

	h := newDetectorHarness(t)
	h.arm()

	// Every frame qualifies.
	h.classifier.faces = []image.Rectangle{faceA}
	h.classifier.eyes[faceA] = []image.Rectangle{eye1, eye2}

	var elapsed time.Duration

	queue := &clockQueue{now: func() time.Duration { return elapsed }}
	h.loop.queue = queue
	h.loop.now = func() time.Time { return time.Unix(1_700_000_000, 0).Add(elapsed) }

	const horizon = 40 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.loop.sleep = func(_ context.Context, d time.Duration) error {
		elapsed += d
		if elapsed >= horizon {
			cancel()
			return ctx.Err()
		}

		return nil
	}

	require.NoError(t, h.loop.Run(ctx))

	window := testHold + testCooldown

	require.Equal(t, []time.Duration{0, window, 2 * window, 3 * window}, queue.times)

	for i := 1; i < len(queue.times); i++ {
		require.GreaterOrEqual(t, queue.times[i]-queue.times[i-1], window,
			"photo %d submitted inside the cooldown window", i)
	}

	require.Len(t, queue.Requests(), len(queue.times))
	h.requireBalanced(t, len(queue.times))
}
