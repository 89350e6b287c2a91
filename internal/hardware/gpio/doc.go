// Package gpio drives the button input and the indicator output through periph.io.
//
// Board owns both pins for the life of the process; Close leaves the
// indicator low and stops edge detection.
package gpio
