package sentry

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

var errBoom = errors.New("boom")

type sentText struct {
	chatID domain.ChatID
	body   string
}

type fakeMessenger struct {
	mu     sync.Mutex
	texts  []sentText
	photos []string
	err    error
}

func (m *fakeMessenger) SendText(_ context.Context, chatID domain.ChatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.texts = append(m.texts, sentText{chatID: chatID, body: text})

	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, chatID domain.ChatID, imagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.texts = append(m.texts, sentText{chatID: chatID, body: "photo"})
	m.photos = append(m.photos, imagePath)

	return nil
}

func (m *fakeMessenger) Texts() []sentText {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]sentText(nil), m.texts...)
}

func (m *fakeMessenger) Photos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.photos...)
}

// recordingQueue is a Submitter that keeps what it receives.
type recordingQueue struct {
	mu       sync.Mutex
	requests []domain.Request
	full     bool
}

func (q *recordingQueue) Submit(_ context.Context, req domain.Request) error {
	if !q.TrySubmit(req) {
		return ErrQueueFull
	}

	return nil
}

func (q *recordingQueue) TrySubmit(req domain.Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.full {
		return false
	}

	q.requests = append(q.requests, req)

	return true
}

func (q *recordingQueue) Requests() []domain.Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]domain.Request(nil), q.requests...)
}

type fakeFrame struct {
	closed bool
}

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

type fakeCapture struct {
	camera *fakeCamera
}

//nolint:ireturn // Implements domain.Capture.
func (c *fakeCapture) Read() (domain.Frame, error) {
	c.camera.mu.Lock()
	defer c.camera.mu.Unlock()

	if c.camera.readErr != nil {
		return nil, c.camera.readErr
	}

	frame := &fakeFrame{}
	c.camera.frames = append(c.camera.frames, frame)

	return frame, nil
}

func (c *fakeCapture) Close() error {
	c.camera.mu.Lock()
	defer c.camera.mu.Unlock()

	c.camera.closes++

	return nil
}

type fakeCamera struct {
	mu      sync.Mutex
	opens   int
	closes  int
	frames  []*fakeFrame
	openErr error
	readErr error
}

//nolint:ireturn // Implements Camera.
func (c *fakeCamera) Open() (domain.Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openErr != nil {
		return nil, c.openErr
	}

	c.opens++

	return &fakeCapture{camera: c}, nil
}

func (c *fakeCamera) Counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opens, c.closes
}

// fakeClassifier returns the same faces for every frame and the eyes keyed by face.
type fakeClassifier struct {
	mu       sync.Mutex
	faces    []image.Rectangle
	eyes     map[image.Rectangle][]image.Rectangle
	faceErr  error
	eyeCalls int
}

func (c *fakeClassifier) Faces(domain.Frame) ([]image.Rectangle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.faces, c.faceErr
}

func (c *fakeClassifier) Eyes(_ domain.Frame, face image.Rectangle) ([]image.Rectangle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eyeCalls++

	return c.eyes[face], nil
}

type fakeArtifacts struct {
	mu       sync.Mutex
	paths    []string
	examined [][]domain.Detection
	err      error
}

func (a *fakeArtifacts) Write(_ domain.Frame, examined []domain.Detection, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return a.err
	}

	a.paths = append(a.paths, path)
	a.examined = append(a.examined, examined)

	return nil
}

type fakePreview struct {
	shown [][]domain.Detection
}

func (p *fakePreview) Show(_ domain.Frame, examined []domain.Detection) {
	p.shown = append(p.shown, examined)
}

type fakeIndicator struct {
	mu     sync.Mutex
	levels []bool
}

func (i *fakeIndicator) Set(on bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.levels = append(i.levels, on)

	return nil
}

func (i *fakeIndicator) Levels() []bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return append([]bool(nil), i.levels...)
}

// fakePin replays edges pushed to its channel.
type fakePin struct {
	edges chan struct{}
}

func (p *fakePin) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-p.edges:
		return true
	case <-time.After(timeout):
		return false
	}
}

type countingPruner struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPruner) Prune(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++

	return nil
}

type memoryRepository struct {
	mu    sync.Mutex
	saved []domain.State
	load  *domain.State
	err   error
}

func (r *memoryRepository) Load(context.Context) (*domain.State, error) {
	return r.load, r.err
}

func (r *memoryRepository) Save(_ context.Context, state *domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saved = append(r.saved, *state)

	return nil
}

func (r *memoryRepository) Last() (domain.State, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.saved) == 0 {
		return domain.State{}, 0
	}

	return r.saved[len(r.saved)-1], len(r.saved)
}
