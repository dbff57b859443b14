package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/killallgit/markstream/pkg/config"
	"github.com/killallgit/markstream/pkg/langchain"
	"github.com/killallgit/markstream/pkg/pipeline"
	"github.com/killallgit/markstream/pkg/render"
	"github.com/killallgit/markstream/pkg/stream"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send a prompt to an Ollama model and render the streamed answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		var opts []ollama.Option
		if cfg.Ollama.URL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.Ollama.URL))
		}
		if cfg.Ollama.DefaultModel != "" {
			opts = append(opts, ollama.WithModel(cfg.Ollama.DefaultModel))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return fmt.Errorf("failed to create Ollama client: %w", err)
		}

		parser := pipeline.FromConfig(cfg)
		var messages []llms.MessageContent
		if system := systemPrompt(cmd, parser); system != "" {
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
		}
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, strings.Join(args, " ")))

		out := cmd.OutOrStdout()
		live := false
		if f, ok := out.(*os.File); ok {
			live = isatty.IsTerminal(f.Fd())
		}

		renderer := render.NewANSIRenderer(render.FromConfig(cfg))
		mode := stream.ModeFull
		if cfg.Parser.Incremental {
			mode = stream.ModeIncremental
		}
		session := stream.NewSession(parser, stream.SessionOptions{
			Mode:    mode,
			ModelID: cfg.Ollama.DefaultModel,
			OnUpdate: func(u stream.Update) {
				if live || !u.Document.Streaming {
					writeRevision(out, u, renderer.Render(u.Document))
				}
			},
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if cfg.Ollama.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Ollama.Timeout)
			defer cancel()
		}

		_, err = langchain.Generate(ctx, llm, messages, session)
		return err
	},
}

// systemPrompt returns --system, or the markdown format instructions the
// renderer understands unless --no-format-hint is set.
func systemPrompt(cmd *cobra.Command, parser *pipeline.Parser) string {
	if system, _ := cmd.Flags().GetString("system"); system != "" {
		return system
	}
	if noHint, _ := cmd.Flags().GetBool("no-format-hint"); noHint {
		return ""
	}
	return langchain.NewDocumentParser(parser).GetFormatInstructions()
}

func init() {
	askCmd.Flags().StringP("model", "m", "", "model name (default from ollama.default_model)")
	viper.BindPFlag("ollama.default_model", askCmd.Flags().Lookup("model"))

	askCmd.Flags().String("system", "", "system prompt (default: markdown format instructions)")
	askCmd.Flags().Bool("no-format-hint", false, "send no system prompt when --system is empty")

	rootCmd.AddCommand(askCmd)
}
