package vision

import (
	"fmt"
	"image/color"

	"gocv.io/x/gocv"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

const boxThickness = 2

//nolint:gochecknoglobals // Constant colors; Go has no const structs.
var (
	faceColor = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	eyeColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// JPEGWriter draws the examined faces onto the frame and writes it as JPEG.
type JPEGWriter struct{}

// Write annotates frame in place and stores it at path.
func (JPEGWriter) Write(frame domain.Frame, examined []domain.Detection, path string) error {
	f, err := asFrame(frame)
	if err != nil {
		return err
	}

	f.annotate(examined)

	if !gocv.IMWrite(path, f.Color()) {
		return fmt.Errorf("write %s: encoder failed", path)
	}

	return nil
}

// annotate draws every face box and the eye boxes inside it, once per frame.
func (f *Frame) annotate(examined []domain.Detection) {
	if f.annotated {
		return
	}

	f.annotated = true

	for _, detection := range examined {
		gocv.Rectangle(&f.color, detection.Face, faceColor, boxThickness)

		for _, eye := range detection.Eyes {
			gocv.Rectangle(&f.color, eye, eyeColor, boxThickness)
		}
	}
}
