package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// errUnsupportedFrame is returned when a frame was not produced by this package.
var errUnsupportedFrame = errors.New("unsupported frame type")

// Frame is a color camera image with its lazily computed grayscale version.
type Frame struct {
	color gocv.Mat
	gray  gocv.Mat
	// annotated is set once the detection boxes were drawn onto color.
	annotated bool
}

// newFrame takes ownership of color.
func newFrame(color gocv.Mat) *Frame {
	return &Frame{
		color: color,
		gray:  gocv.NewMat(),
	}
}

// Gray returns the intensity-only version of the frame, converting on first use.
func (f *Frame) Gray() gocv.Mat {
	if f.gray.Empty() {
		gocv.CvtColor(f.color, &f.gray, gocv.ColorBGRToGray)
	}

	return f.gray
}

// Color returns the color image.
func (f *Frame) Color() gocv.Mat {
	return f.color
}

// Close releases both images.
func (f *Frame) Close() error {
	return errors.Join(f.color.Close(), f.gray.Close())
}

func asFrame(frame domain.Frame) (*Frame, error) {
	f, ok := frame.(*Frame)
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %T", errUnsupportedFrame, frame)
	}

	return f, nil
}
