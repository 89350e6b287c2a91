// Package supervisor starts the face-sentry daemon: it acquires the camera
// models, the GPIO pins and the chat bot, runs the sentry service until the
// context ends and releases the hardware on the way out.
package supervisor
