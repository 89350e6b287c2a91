package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/face-sentry/internal/config"
	"github.com/oshokin/face-sentry/internal/service/supervisor"
	"github.com/oshokin/face-sentry/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// controlAddress overrides the control API listen address.
	controlAddress string
	// preview opens the preview window regardless of config.
	preview bool

	// rootCmd runs the detection daemon.
	rootCmd = &cobra.Command{
		Use:   "face-sentry",
		Short: "Watch the camera for faces and alert a Telegram chat.",
		Long: `Runs the face detection sentry.

A push button switches detection on and off. While detection is on and an
operator has sent /start to the bot, every camera frame is searched for a face
with two visible eyes. A match lights the indicator and sends the annotated
photo to the operator, followed by a cooldown.

The status, on and off subcommands talk to a running daemon through its
control API (control_addr in the configuration).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return supervisor.Run(ctx, &supervisor.Options{
				ConfigPath:     configPath,
				ControlAddress: controlAddress,
				Preview:        preview,
			})
		},
	}
)

// Execute runs the face-sentry CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	rootCmd.Flags().StringVarP(&controlAddress, "listen", "l", "", "control API listen address, overrides control_addr")
	rootCmd.Flags().BoolVarP(&preview, "preview", "p", false, "show analysed frames in a window")

	rootCmd.AddCommand(newInitCommand(), newStatusCommand(), newSwitchCommand(true), newSwitchCommand(false))
}
