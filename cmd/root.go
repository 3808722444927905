// Package cmd implements the thermal-server command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Kirushanth-G/transformer-monitoring/internal/conf"
)

// RootCommand creates the root command with all subcommands attached.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thermal-server",
		Short: "Thermal anomaly analysis pipeline for transformer monitoring",
		Long: `thermal-server analyzes thermal maintenance images through an external
vision service, persists the detected anomalies and exposes a review API
for human feedback on the detections.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default action is to serve
			return RunServe(settings)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		fmt.Printf("Error binding debug flag: %v\n", err)
	}

	rootCmd.AddCommand(ServeCommand(settings))
	rootCmd.AddCommand(ConfigCommand(settings))

	return rootCmd
}
