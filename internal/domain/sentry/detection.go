package sentry

import "image"

// RequiredEyes is the exact eye count a face needs to qualify.
const RequiredEyes = 2

// Detection is a qualifying face together with the eyes found inside it.
// Rectangles are in frame coordinates.
type Detection struct {
	// Face is the bounding box of the face.
	Face image.Rectangle
	// Eyes are the eye boxes found inside Face.
	Eyes []image.Rectangle
}

// Qualifies reports whether exactly RequiredEyes eyes were found.
func (d *Detection) Qualifies() bool {
	return d != nil && len(d.Eyes) == RequiredEyes
}
