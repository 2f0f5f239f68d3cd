package cli

import (
	"fmt"

	"github.com/apresai/narrator/internal/config"
	"github.com/apresai/narrator/internal/ingest"
	"github.com/apresai/narrator/internal/pipeline"
	"github.com/apresai/narrator/internal/tags"
	"github.com/spf13/cobra"
)

var (
	flagTextVoice           string
	flagTextStyle           string
	flagTextProsodyRate     int
	flagTextPitch           int
	flagTextMaxPartChars    int
	flagTextPart            int
	flagTextArtist          string
	flagTextAlbum           string
	flagTextContinueOnError bool
	flagTextPretend         bool
)

var textCmd = &cobra.Command{
	Use:   "text <output-dir> <files...>",
	Short: "Narrate text files, PDFs or web pages",
	Long: `Converts each input into one or more MP3 tracks in <output-dir>. Inputs
longer than --max-part-chars are split into parts named "<name> (Part N).mp3".
Outputs that already exist are kept.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runText,
}

func init() {
	rootCmd.AddCommand(textCmd)
	f := textCmd.Flags()
	f.StringVar(&flagTextVoice, "voice", "Jenny", "Voice alias or full voice name")
	f.StringVar(&flagTextStyle, "style", "", "Speaking style (Azure only)")
	f.IntVar(&flagTextProsodyRate, "prosody-rate", 0, "Speaking rate adjustment in percent")
	f.IntVar(&flagTextPitch, "pitch", 0, "Pitch adjustment in percent")
	f.IntVar(&flagTextMaxPartChars, "max-part-chars", config.DefaultBookMaxPartCharacters, "Maximum spoken characters per track, 0 for one track per input")
	f.IntVar(&flagTextPart, "part", 0, "Convert only this part number (1-based)")
	f.StringVar(&flagTextArtist, "artist", "", "Artist tag")
	f.StringVar(&flagTextAlbum, "album", "", "Album tag")
	f.BoolVar(&flagTextContinueOnError, "continue-on-error", false, "Skip inputs that fail and continue with the rest")
	f.BoolVar(&flagTextPretend, "pretend", false, "Plan and estimate cost without synthesizing")
}

func runText(cmd *cobra.Command, args []string) error {
	target, inputs := args[0], args[1:]

	if flagTextPart < 0 {
		return fmt.Errorf("--part must be positive")
	}
	writer, err := voiceWriterConfig("azure", flagTextVoice, flagTextStyle, flagTextProsodyRate, flagTextPitch)
	if err != nil {
		return err
	}
	splitter, err := partSplitter(flagTextMaxPartChars)
	if err != nil {
		return err
	}

	files := make([]pipeline.SourceFile, len(inputs))
	for i, in := range inputs {
		files[i] = pipeline.SourceFile{Path: in}
	}

	opts := batchOptions{
		Writer:          writer,
		Splitter:        splitter,
		Parser:          ingest.BookParserConfig(),
		Pretend:         flagTextPretend,
		ContinueOnError: flagTextContinueOnError,
		Metadata: func(mc pipeline.MetadataContext) tags.Record {
			rec := pipeline.DefaultMetadata(mc)
			rec.Artist = flagTextArtist
			rec.Album = flagTextAlbum
			return rec
		},
	}
	if flagTextPart > 0 {
		want := flagTextPart - 1
		opts.PartFilter = func(_ pipeline.SourceFile, idx int) bool { return idx == want }
	}

	_, err = runBatch(cmd, files, target, nil, opts)
	return err
}
