// Package logger wraps zap with a process-wide sugared logger.
//
// Every component receives a context and pulls its logger out of it, so a
// goroutine started with logger.WithName(ctx, "detector") tags all of its
// lines without passing a logger around. The sink is stdout, optionally teed
// into a size-rotated file for hosts where nobody watches the console.
package logger
