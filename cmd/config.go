package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/markstream/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a settings file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.BuildSettingsPath("settings.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.InitializeDefaults(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		used := config.GetConfigFileUsed()
		if used == "" {
			used = "(defaults)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), used)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
