// Package state implements persistence for the shared detection state.
//
// The FileRepository stores the state as JSON on disk so the registered
// operator survives a restart, and exposes a Repository interface that the
// sentry service depends on.
package state
