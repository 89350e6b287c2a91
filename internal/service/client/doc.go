// Package client implements the status, on and off subcommands.
//
// They connect to the control API of a running face-sentry process, print
// the current state and optionally switch detection, retrying until the
// server confirms or the attempts run out.
package client
