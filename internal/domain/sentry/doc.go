// Package sentry contains the core domain types of face detection alerts.
//
// It defines the operator chat identity, the state snapshot shared by the
// button, the detection loop and the chat channel, the detection result and
// the requests flowing through the notification queue.
package sentry
