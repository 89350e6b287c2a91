package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrPinNotFound is returned when a pin name is unknown to the host.
var ErrPinNotFound = errors.New("pin not found")

// Board owns the two pins used by the process.
type Board struct {
	// button is configured as input with pull-down and rising-edge detection.
	button gpio.PinIO
	// indicator is configured as output, initially low.
	indicator gpio.PinIO
	// closeOnce makes Close idempotent.
	closeOnce sync.Once
}

// Open initialises the host drivers and configures both pins.
func Open(buttonPin, indicatorPin string) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	button := gpioreg.ByName(buttonPin)
	if button == nil {
		return nil, fmt.Errorf("button %s: %w", buttonPin, ErrPinNotFound)
	}

	indicator := gpioreg.ByName(indicatorPin)
	if indicator == nil {
		return nil, fmt.Errorf("indicator %s: %w", indicatorPin, ErrPinNotFound)
	}

	return NewBoard(button, indicator)
}

// NewBoard configures already resolved pins.
func NewBoard(button, indicator gpio.PinIO) (*Board, error) {
	if err := button.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("configure button %s: %w", button, err)
	}

	if err := indicator.Out(gpio.Low); err != nil {
		_ = button.Halt()

		return nil, fmt.Errorf("configure indicator %s: %w", indicator, err)
	}

	return &Board{
		button:    button,
		indicator: indicator,
	}, nil
}

// WaitForEdge blocks until a rising edge on the button or the timeout.
func (b *Board) WaitForEdge(timeout time.Duration) bool {
	return b.button.WaitForEdge(timeout)
}

// Set drives the indicator.
func (b *Board) Set(on bool) error {
	if err := b.indicator.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("write indicator: %w", err)
	}

	return nil
}

// Close turns the indicator off and stops edge detection on both pins.
func (b *Board) Close() error {
	var err error

	b.closeOnce.Do(func() {
		err = errors.Join(
			b.indicator.Out(gpio.Low),
			b.indicator.Halt(),
			b.button.Halt(),
		)
	})

	return err
}
