// Package common holds helpers shared by the CLI subcommands.
//
// It provides a small gRPC client for the control service with per-call
// timeouts and detection of the calling actor (user@host) for the audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
