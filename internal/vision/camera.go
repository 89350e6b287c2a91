package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// errEmptyFrame is returned when the device delivers no image.
var errEmptyFrame = errors.New("camera returned no frame")

// Camera opens a V4L2 device by index.
type Camera struct {
	index int
}

// NewCamera returns a camera for the given device index.
func NewCamera(index int) *Camera {
	return &Camera{
		index: index,
	}
}

// Open acquires the device with a single-frame buffer so reads return the latest image.
//
//nolint:ireturn // The detection loop works with the domain interface.
func (c *Camera) Open() (domain.Capture, error) {
	capture, err := gocv.OpenVideoCaptureWithAPI(c.index, gocv.VideoCaptureV4L2)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", c.index, err)
	}

	if !capture.IsOpened() {
		_ = capture.Close()

		return nil, fmt.Errorf("open camera %d: device not opened", c.index)
	}

	capture.Set(gocv.VideoCaptureBufferSize, 1)

	return &Capture{
		capture: capture,
	}, nil
}

// Capture is an opened camera device.
type Capture struct {
	capture *gocv.VideoCapture
}

// Read drops whatever frame is buffered and decodes a fresh one.
//
//nolint:ireturn // The detection loop works with the domain interface.
func (c *Capture) Read() (domain.Frame, error) {
	c.capture.Grab(1)

	img := gocv.NewMat()
	if ok := c.capture.Read(&img); !ok || img.Empty() {
		_ = img.Close()

		return nil, errEmptyFrame
	}

	return newFrame(img), nil
}

// Close releases the device.
func (c *Capture) Close() error {
	return c.capture.Close()
}
