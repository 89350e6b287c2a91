package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/face-sentry/internal/config"
)

// newInitCommand writes a configuration file with defaults.
func newInitCommand() *cobra.Command {
	var (
		token string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default settings.",
		Long: `Writes the configuration file given by --config with every setting at its
default value and the provided bot token. Edit the file afterwards to change
pins, models or timings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.Init(configPath, token, force); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", configPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "Telegram bot token")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	if err := cmd.MarkFlagRequired("token"); err != nil {
		panic(err)
	}

	return cmd
}
