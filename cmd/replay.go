package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/killallgit/markstream/pkg/config"
	"github.com/killallgit/markstream/pkg/logger"
	"github.com/killallgit/markstream/pkg/message"
	"github.com/killallgit/markstream/pkg/pipeline"
	"github.com/killallgit/markstream/pkg/render"
	"github.com/killallgit/markstream/pkg/stream"
)

var replayCmd = &cobra.Command{
	Use:   "replay [file|-]",
	Short: "Replay a message chunk by chunk through a streaming session",
	Long: `Feed a message through a streaming session in small chunks and render
every revision. On a terminal the view is redrawn in place; otherwise each
revision is printed after a separator line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := readMessage(cmd, args)
		if err != nil {
			return err
		}

		cfg := config.Get()
		finalOnly, _ := cmd.Flags().GetBool("final-only")
		mode := stream.ModeFull
		if cfg.Parser.Incremental {
			mode = stream.ModeIncremental
		}

		out := cmd.OutOrStdout()
		renderer := render.NewANSIRenderer(render.FromConfig(cfg))
		tracker := stream.NewTracker()
		session := stream.NewSession(pipeline.FromConfig(cfg), stream.SessionOptions{
			Mode:    mode,
			ModelID: msg.ModelID,
			Tracker: tracker,
			OnUpdate: func(u stream.Update) {
				if finalOnly && u.Document.Streaming {
					return
				}
				writeRevision(out, u, renderer.Render(u.Document))
			},
		})
		registry := stream.NewRegistry()
		if err := registry.Register(session); err != nil {
			return err
		}

		started, finished, passive := toolEvents(msg.ToolCalls)
		if len(passive) > 0 {
			session.SetToolCalls(passive)
		}
		if err := dispatchAll(registry, session.ID(), started); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		src := stream.NewTextSource(msg.Text, cfg.Stream.ChunkSize, cfg.Stream.Delay)
		if err := src.Stream(ctx, session); err != nil {
			return fmt.Errorf("replay: %w", err)
		}

		// tools report their outcome once the text has finished streaming
		if err := dispatchAll(registry, session.ID(), finished); err != nil {
			return err
		}
		registry.Prune()

		if info, ok := tracker.Info(session.ID()); ok {
			logger.WithComponent("replay").Debug("Replay finished",
				"chunks", info.Chunks,
				"bytes", info.Bytes,
				"revisions", session.Revision(),
				"duration", info.EndTime.Sub(info.StartTime))
		}
		return nil
	},
}

// toolEvents turns recorded tool calls back into the events that produced
// them. Records events cannot reproduce (no ID, unknown status, undecodable
// parameters) are returned as passive and applied as a snapshot instead.
func toolEvents(records []message.ToolCallRecord) (started, finished []stream.ToolEvent, passive []message.ToolCallRecord) {
	for _, r := range records {
		args, err := r.Params()
		if r.ID == "" || !r.Status.Known() || err != nil {
			passive = append(passive, r)
			continue
		}
		if r.Status == message.ToolPending {
			started = append(started, stream.ToolEvent{Type: stream.ToolEventQueued, ID: r.ID, Name: r.Name, Timestamp: time.Now()})
			continue
		}

		started = append(started, stream.NewToolStartEvent(r.ID, r.Name, args))
		switch r.Status {
		case message.ToolCompleted:
			finished = append(finished, stream.NewToolCompleteEvent(r.ID, r.Name, r.Result))
		case message.ToolError:
			finished = append(finished, stream.NewToolErrorEvent(r.ID, r.Name, r.Error))
		}
	}
	return started, finished, passive
}

func dispatchAll(registry *stream.Registry, id string, events []stream.ToolEvent) error {
	for _, e := range events {
		if err := registry.Dispatch(id, e); err != nil {
			return fmt.Errorf("replay tool %s: %w", e.Name, err)
		}
	}
	return nil
}

// writeRevision redraws in place on a terminal and appends otherwise.
func writeRevision(w io.Writer, u stream.Update, rendered string) {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(w, "\x1b[H\x1b[2J"+rendered+"\n")
		return
	}
	fmt.Fprintf(w, "--- revision %d ---\n%s\n", u.Revision, rendered)
}

func init() {
	replayCmd.Flags().Int("chunk-size", 4, "runes per chunk")
	viper.BindPFlag("stream.chunk_size", replayCmd.Flags().Lookup("chunk-size"))

	replayCmd.Flags().String("delay", "15ms", "pause between chunks")
	viper.BindPFlag("stream.delay", replayCmd.Flags().Lookup("delay"))

	replayCmd.Flags().Bool("incremental", false, "reuse blocks of finished segments between revisions")
	viper.BindPFlag("parser.incremental", replayCmd.Flags().Lookup("incremental"))

	replayCmd.Flags().Bool("final-only", false, "only print the completed document")

	rootCmd.AddCommand(replayCmd)
}
