package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/killallgit/markstream/pkg/config"
	"github.com/killallgit/markstream/pkg/segment"
)

type segmentJSON struct {
	Kind     string `json:"kind"`
	Offset   int    `json:"offset"`
	Language string `json:"language,omitempty"`
	Complete *bool  `json:"complete,omitempty"`
	Content  string `json:"content"`
}

type classificationJSON struct {
	Thinking *thinkingJSON `json:"thinking,omitempty"`
	Segments []segmentJSON `json:"segments"`
}

type thinkingJSON struct {
	Content  string `json:"content"`
	Complete bool   `json:"complete"`
}

var segmentsCmd = &cobra.Command{
	Use:   "segments [file|-]",
	Short: "Print the classifier output as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := readMessage(cmd, args)
		if err != nil {
			return err
		}
		streaming, _ := cmd.Flags().GetBool("streaming")

		result := segment.New(segment.Options{
			Tags:      config.Get().Parser.ThinkingTags,
			Streaming: streaming || msg.IsStreaming,
		}).Classify(msg.Text)

		out := classificationJSON{Segments: make([]segmentJSON, 0, len(result.Segments))}
		if result.Thinking != nil {
			out.Thinking = &thinkingJSON{Content: result.Thinking.Content, Complete: result.Thinking.Complete}
		}
		for _, s := range result.Segments {
			switch s := s.(type) {
			case segment.CodeSegment:
				complete := s.Complete
				out.Segments = append(out.Segments, segmentJSON{
					Kind: "code", Offset: s.Offset, Language: s.Language, Complete: &complete, Content: s.Content,
				})
			case segment.TextSegment:
				out.Segments = append(out.Segments, segmentJSON{Kind: "text", Offset: s.Offset, Content: s.Content})
			}
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode segments: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	segmentsCmd.Flags().Bool("streaming", false, "classify as a message that is still streaming")
	rootCmd.AddCommand(segmentsCmd)
}
