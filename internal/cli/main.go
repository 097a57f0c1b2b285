package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "supercut -i <inputs...> -s <search>",
		Short:        "Cut every moment a phrase is said out of your videos",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runSearch,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	pf := root.PersistentFlags()
	pf.StringArrayP("input", "i", nil, "Video or track file, or folder (repeatable)")
	pf.String("config", "", "YAML config file (default ./supercut.yaml when present)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	f := root.Flags()
	f.StringP("search", "s", "", "Search term")
	f.StringP("search-type", "e", "re", "Search type: re, word, pos, hyper, fragment, franken")
	f.BoolP("use-transcript", "t", false, "Use <video>.transcription.txt transcripts instead of .srt files")
	f.Bool("use-vtt", false, "Use .vtt caption files instead of .srt files")
	f.IntP("max-clips", "m", 0, "Maximum number of clips to use (0 = all)")
	f.StringP("output", "o", "supercut.mp4", "Output file: a video, or .edl / .otio to export a cut list")
	f.Bool("export-clips", false, "Write every clip to its own file instead of joining them")
	f.BoolP("demo", "d", false, "Print the cut list instead of rendering")
	f.BoolP("randomize", "r", false, "Shuffle the clips")
	f.IntP("padding", "p", 0, "Padding in milliseconds added to both ends of every clip")
	f.Int("resyncsubs", 0, "Shift subtitle timings by this many milliseconds")

	// Hidden tuning flag (internal)
	f.Int("batch-size", 0, "Clips per render batch")
	_ = f.MarkHidden("batch-size")

	root.AddCommand(newTranscribeCmd(), newNgramsCmd())
	return root
}

func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe -i <videos...>",
		Short: "Write a word-timed <video>.transcription.txt for every video",
		Args:  cobra.NoArgs,
		RunE:  runTranscribe,
	}
	cmd.Flags().String("asr", "", "Transcription engine: whispercpp or gcp")
	cmd.Flags().Int("jobs", 0, "Videos transcribed at once")
	cmd.Flags().Bool("force", false, "Overwrite existing transcripts")
	return cmd
}

func newNgramsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ngrams -i <inputs...> -n <N>",
		Short: "Print the 100 most common n-word sequences",
		Args:  cobra.NoArgs,
		RunE:  runNgrams,
	}
	cmd.Flags().IntP("n", "n", 1, "Words per n-gram")
	cmd.Flags().BoolP("use-transcript", "t", false, "Use transcripts instead of .srt files")
	cmd.Flags().Bool("use-vtt", false, "Use .vtt caption files instead of .srt files")
	return cmd
}
