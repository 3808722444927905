// config.go: the config command prints the effective configuration.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
)

// ConfigCommand creates the config subcommand.
func ConfigCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			redacted := *settings
			if redacted.Output.MySQL.Password != "" {
				redacted.Output.MySQL.Password = "***"
			}
			out, err := yaml.Marshal(&redacted)
			if err != nil {
				return fmt.Errorf("marshaling settings: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
}
