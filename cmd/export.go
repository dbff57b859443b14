package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/killallgit/markstream/pkg/config"
	"github.com/killallgit/markstream/pkg/export"
	"github.com/killallgit/markstream/pkg/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export [file|-]",
	Short: "Export a message as text, markdown or HTML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}

		msg, err := readMessage(cmd, args)
		if err != nil {
			return err
		}
		doc := pipeline.FromConfig(config.Get()).Parse(msg)

		var opts export.Options
		opts.Thinking, _ = cmd.Flags().GetBool("thinking")
		opts.Citations, _ = cmd.Flags().GetBool("citations")
		opts.Tools, _ = cmd.Flags().GetBool("tools")

		out, err := export.Export(doc, format, opts)
		if err != nil {
			return err
		}

		if path, _ := cmd.Flags().GetString("output"); path != "" {
			if err := os.WriteFile(path, []byte(out+"\n"), 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "markdown", "output format: text, markdown or html")
	exportCmd.Flags().Bool("thinking", false, "include reasoning blocks")
	exportCmd.Flags().Bool("citations", true, "include the sources list")
	exportCmd.Flags().Bool("tools", false, "include tool activity")
	exportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
