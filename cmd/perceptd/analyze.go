package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/perceptd/internal/perception"
	"github.com/fyrsmithlabs/perceptd/internal/transcribe"
)

var (
	analyzePitch    float64
	analyzeAudio    string
	analyzeUser     string
	analyzeRemember bool
)

func init() {
	analyzeCmd.Flags().Float64Var(&analyzePitch, "pitch", 0, "mean pitch of the utterance in Hz")
	analyzeCmd.Flags().StringVar(&analyzeAudio, "audio", "", "WAV file to estimate pitch from; transcribed when no text is given")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "speaker id")
	analyzeCmd.Flags().BoolVar(&analyzeRemember, "remember", false, "store the record in the speaker's memory (requires --user)")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze one utterance and print the result as JSON",
	Long: `Analyze one utterance locally and print the tone and perception record.

Text comes from the argument, or stdin when the argument is "-" or missing.
With --audio the pitch is estimated from the WAV file, and the file is
transcribed when no text is given (requires transcription.api_key).

Examples:
  perceptd analyze "I am not happy about this"
  perceptd analyze --pitch 220 "What a wonderful day!"
  perceptd analyze --audio clip.wav --user alice --remember`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeRemember && analyzeUser == "" {
		return fmt.Errorf("--remember requires --user")
	}

	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := initDependencies(ctx, cfg, depOptions{
		memory:     analyzeRemember,
		events:     analyzeRemember,
		stderrLogs: true,
	})
	if err != nil {
		return err
	}
	defer deps.Close()

	in := perception.Input{}
	if analyzeRemember {
		in.UserID = analyzeUser
	}
	if cmd.Flags().Changed("pitch") {
		in.Pitch = &analyzePitch
	}

	var text string
	hasText := len(args) == 1 && args[0] != "-"
	if hasText {
		text = args[0]
	}

	if analyzeAudio != "" {
		if in.Pitch == nil {
			if in.Pitch, err = transcribe.EstimatePitchFile(analyzeAudio); err != nil {
				return err
			}
		}
		if !hasText {
			if deps.transcriber == nil {
				return fmt.Errorf("transcription is not configured; set transcription.api_key or pass text")
			}
			f, err := os.Open(analyzeAudio) // #nosec G304 -- user-supplied CLI argument
			if err != nil {
				return fmt.Errorf("failed to open audio: %w", err)
			}
			defer f.Close()
			if text, err = deps.transcriber.Transcribe(ctx, f); err != nil {
				return err
			}
		}
	} else if !hasText {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		text = strings.TrimSpace(string(b))
	}
	in.Text = text

	a, err := deps.perception.Analyze(ctx, in)
	if err != nil {
		return err
	}
	return printJSON(cmd, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
