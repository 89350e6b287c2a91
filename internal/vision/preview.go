package vision

import (
	"gocv.io/x/gocv"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// Preview is a desktop window showing analysed frames.
type Preview struct {
	window *gocv.Window
}

// NewPreview opens a window titled title.
func NewPreview(title string) *Preview {
	return &Preview{
		window: gocv.NewWindow(title),
	}
}

// Show displays frame with the examined faces drawn on it and pumps the window events once.
func (p *Preview) Show(frame domain.Frame, examined []domain.Detection) {
	f, err := asFrame(frame)
	if err != nil {
		return
	}

	f.annotate(examined)
	p.window.IMShow(f.Color())
	p.window.WaitKey(1)
}

// Close destroys the window.
func (p *Preview) Close() error {
	return p.window.Close()
}
