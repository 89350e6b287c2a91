package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

const (
	// faceScaleFactor is the image pyramid step of the face detector.
	faceScaleFactor = 1.1
	// faceMinNeighbors is the candidate overlap needed to accept a face.
	faceMinNeighbors = 4
)

// ErrModelLoad is returned when a cascade definition cannot be loaded.
var ErrModelLoad = errors.New("load cascade model")

// Classifier runs the face cascade on a frame and the eye cascade on face regions.
type Classifier struct {
	faces gocv.CascadeClassifier
	eyes  gocv.CascadeClassifier
}

// NewClassifier loads both cascade definitions.
func NewClassifier(faceModel, eyeModel string) (*Classifier, error) {
	faces := gocv.NewCascadeClassifier()
	if !faces.Load(faceModel) {
		_ = faces.Close()

		return nil, fmt.Errorf("%w: %s", ErrModelLoad, faceModel)
	}

	eyes := gocv.NewCascadeClassifier()
	if !eyes.Load(eyeModel) {
		_ = faces.Close()
		_ = eyes.Close()

		return nil, fmt.Errorf("%w: %s", ErrModelLoad, eyeModel)
	}

	return &Classifier{
		faces: faces,
		eyes:  eyes,
	}, nil
}

// Faces returns face rectangles in detector order.
func (c *Classifier) Faces(frame domain.Frame) ([]image.Rectangle, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}

	return c.faces.DetectMultiScaleWithParams(
		f.Gray(),
		faceScaleFactor,
		faceMinNeighbors,
		0,
		image.Point{},
		image.Point{},
	), nil
}

// Eyes runs the eye cascade inside face and returns rectangles in frame coordinates.
func (c *Classifier) Eyes(frame domain.Frame, face image.Rectangle) ([]image.Rectangle, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}

	gray := f.Gray()

	face = face.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if face.Empty() {
		return nil, nil
	}

	roi := gray.Region(face)
	defer func() {
		_ = roi.Close()
	}()

	eyes := c.eyes.DetectMultiScale(roi)
	for i := range eyes {
		eyes[i] = eyes[i].Add(face.Min)
	}

	return eyes, nil
}

// Close releases both cascades.
func (c *Classifier) Close() error {
	return errors.Join(c.faces.Close(), c.eyes.Close())
}
