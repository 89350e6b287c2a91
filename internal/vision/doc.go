// Package vision wraps OpenCV (through gocv) for the detection loop:
// opening the camera, running the Haar cascades, writing annotated JPEG
// artifacts and showing an optional preview window.
//
// Every type here holds native memory and must be closed.
package vision
