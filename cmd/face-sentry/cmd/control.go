package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/face-sentry/internal/domain/sentry"
	client "github.com/oshokin/face-sentry/internal/service/client"
)

// newStatusCommand prints the state of a running daemon.
func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [control-address]",
		Short: "Print the detection state of a running daemon.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, args, nil)
		},
	}
}

// newSwitchCommand builds the `on` or `off` subcommand.
func newSwitchCommand(active bool) *cobra.Command {
	word := sentry.StatusWord(active)

	use := "off"
	if active {
		use = "on"
	}

	return &cobra.Command{
		Use:   use + " [control-address]",
		Short: "Switch face detection " + word + " on a running daemon.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, args, &active)
		},
	}
}

func runClient(cmd *cobra.Command, args []string, desired *bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Use control address argument if provided, otherwise rely on config.
	var address string
	if len(args) > 0 {
		address = args[0]
	}

	return client.Run(ctx, &client.Options{
		ConfigPath:    configPath,
		ServerAddress: address,
		DesiredState:  desired,
		Out:           cmd.OutOrStdout(),
	})
}
