package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/markstream/pkg/config"
	"github.com/killallgit/markstream/pkg/pipeline"
	"github.com/killallgit/markstream/pkg/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [file|-]",
	Short: "Render a message once",
	Long: `Render a message read from a file or stdin. The input is either raw
assistant text or a JSON RawMessage with text, tool_calls and model_id.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := readMessage(cmd, args)
		if err != nil {
			return err
		}
		if streaming, _ := cmd.Flags().GetBool("streaming"); streaming {
			msg.IsStreaming = true
		}

		cfg := config.Get()
		doc := pipeline.FromConfig(cfg).Parse(msg)
		for _, e := range doc.Errors {
			cmd.PrintErrln("warning:", e)
		}

		fmt.Fprintln(cmd.OutOrStdout(), render.ANSI(doc, render.FromConfig(cfg)))
		return nil
	},
}

func init() {
	renderCmd.Flags().Bool("streaming", false, "treat the input as a message that is still streaming")
	rootCmd.AddCommand(renderCmd)
}
