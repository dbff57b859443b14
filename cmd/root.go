package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/killallgit/markstream/pkg/config"
	"github.com/killallgit/markstream/pkg/logger"
	"github.com/killallgit/markstream/pkg/message"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "markstream",
	Short: "Render streamed assistant messages in the terminal",
	Long: `markstream parses assistant output (reasoning tags, fenced code, LaTeX,
markdown, citations and tool activity) into a structured document and renders
it for a terminal, either all at once or chunk by chunk as it streams.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .markstream/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().Int("width", 100, "render width in columns")
	viper.BindPFlag("render.width", rootCmd.PersistentFlags().Lookup("width"))

	rootCmd.PersistentFlags().Bool("color", true, "emit ANSI colour")
	viper.BindPFlag("render.color", rootCmd.PersistentFlags().Lookup("color"))

	rootCmd.PersistentFlags().Bool("show-thinking", true, "render reasoning blocks")
	viper.BindPFlag("render.show_thinking", rootCmd.PersistentFlags().Lookup("show-thinking"))
}

func initConfig() error {
	if _, err := config.Load(cfgFile); err != nil {
		return err
	}
	return logger.Init()
}

// readMessage reads a RawMessage from the named file, or stdin for "-" or no
// argument. Non-JSON input is taken as finished assistant text.
func readMessage(cmd *cobra.Command, args []string) (message.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return message.RawMessage{}, fmt.Errorf("read input: %w", err)
	}
	return message.Decode(data)
}
