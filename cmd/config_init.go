package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cavena/mobility-cli/internal/config"
)

var configInitPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(configInitPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "config.yaml", "destination path for the config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
