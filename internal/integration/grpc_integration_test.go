package integration

import (
	"bytes"
	"context"
	"image"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/face-sentry/internal/config"
	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	repository "github.com/oshokin/face-sentry/internal/repository/state"
	client "github.com/oshokin/face-sentry/internal/service/client"
	"github.com/oshokin/face-sentry/internal/service/common"
	"github.com/oshokin/face-sentry/internal/service/sentry"
)

// quietDevices never produce edges, faces or errors.
type quietDevices struct{}

func (quietDevices) WaitForEdge(timeout time.Duration) bool {
	time.Sleep(timeout)
	return false
}

func (quietDevices) Set(bool) error { return nil }

//nolint:ireturn // Implements sentry.Camera.
func (quietDevices) Open() (domain.Capture, error) { return quietCapture{}, nil }

func (quietDevices) Faces(domain.Frame) ([]image.Rectangle, error) { return nil, nil }

func (quietDevices) Eyes(domain.Frame, image.Rectangle) ([]image.Rectangle, error) { return nil, nil }

func (quietDevices) Write(domain.Frame, []domain.Detection, string) error { return nil }

func (quietDevices) SendText(context.Context, domain.ChatID, string) error { return nil }

func (quietDevices) SendPhoto(context.Context, domain.ChatID, string) error { return nil }

type quietCapture struct{}

//nolint:ireturn // Implements domain.Capture.
func (quietCapture) Read() (domain.Frame, error) { return quietCapture{}, nil }

func (quietCapture) Close() error { return nil }

// freeAddress reserves a local port for the control server.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// startSentry runs a sentry service with the control API on addr.
// Returns a stop function that waits for the service to finish.
func startSentry(t *testing.T, addr, statePath string) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	cfg := &config.Config{
		BotToken:       "test-token",
		ScratchDir:     t.TempDir(),
		StateFile:      statePath,
		ControlAddress: addr,
		Timeout:        3 * time.Second,
	}
	require.NoError(t, config.Validate(cfg))

	devices := quietDevices{}
	svc := sentry.New(cfg, &sentry.Devices{
		Button:     devices,
		Indicator:  devices,
		Camera:     devices,
		Classifier: devices,
		Artifacts:  devices,
		Messenger:  devices,
	}, repository.NewFileRepository(statePath))

	commands := make(chan domain.Command)
	done := make(chan error, 1)

	go func() {
		done <- svc.Serve(ctx, commands)
	}()

	// Wait briefly for the control server to start listening.
	time.Sleep(150 * time.Millisecond)

	return func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("sentry did not stop")
		}
	}
}

// TestControl_Roundtrip runs the real service and drives it through the control client.
func TestControl_Roundtrip(t *testing.T) {
	t.Parallel()

	addr := freeAddress(t)
	statePath := filepath.Join(t.TempDir(), "state.json")

	stop := startSentry(t, addr, statePath)
	defer stop()

	ctx := context.Background()

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	got, err := c.GetStatus(ctx)
	require.NoError(t, err)
	require.False(t, got.Active)

	got, err = c.SetDetection(ctx, "tester@bench", true)
	require.NoError(t, err)
	require.True(t, got.Active)
	require.Equal(t, "control:tester@bench", got.Source)

	got, err = c.GetStatus(ctx)
	require.NoError(t, err)
	require.True(t, got.Active)

	// Every applied change is persisted.
	_, err = os.Stat(statePath)
	require.NoError(t, err)

	saved, err := repository.NewFileRepository(statePath).Load(ctx)
	require.NoError(t, err)
	require.True(t, saved.Active)
}

// TestControl_CLI exercises the status/on/off command path against a running service.
func TestControl_CLI(t *testing.T) {
	t.Parallel()

	addr := freeAddress(t)

	stop := startSentry(t, addr, filepath.Join(t.TempDir(), "state.json"))
	defer stop()

	var (
		out = &bytes.Buffer{}
		off = false
	)

	require.NoError(t, client.Run(context.Background(), &client.Options{
		ServerAddress: addr,
		DesiredState:  &off,
		Out:           out,
	}))
	require.Contains(t, out.String(), "detection OFF")

	out.Reset()

	require.NoError(t, client.Run(context.Background(), &client.Options{
		ServerAddress: addr,
		Out:           out,
	}))
	require.Contains(t, out.String(), "operator chat none")
}
