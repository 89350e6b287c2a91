package sentry

// Frame is a single captured camera image. It owns native memory and must be closed.
type Frame interface {
	Close() error
}

// Capture is an opened camera. It is exclusive: close it before opening again.
type Capture interface {
	// Read grabs and decodes one frame.
	Read() (Frame, error)
	// Close releases the device.
	Close() error
}
