package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/apresai/narrator/internal/content"
	"github.com/apresai/narrator/internal/ingest"
	"github.com/apresai/narrator/internal/pipeline"
	"github.com/apresai/narrator/internal/ssml"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	flagSSMLVoice        string
	flagSSMLStyle        string
	flagSSMLProsodyRate  int
	flagSSMLPitch        int
	flagSSMLMaxPartChars int
	flagSSMLFragments    int
)

var ssmlCmd = &cobra.Command{
	Use:   "ssml <output-dir> <files...>",
	Short: "Write the SSML for each part without synthesizing",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSSML,
}

func init() {
	rootCmd.AddCommand(ssmlCmd)
	f := ssmlCmd.Flags()
	f.StringVar(&flagSSMLVoice, "voice", "Jenny", "Voice alias or full voice name")
	f.StringVar(&flagSSMLStyle, "style", "", "Speaking style (Azure only)")
	f.IntVar(&flagSSMLProsodyRate, "prosody-rate", 0, "Speaking rate adjustment in percent")
	f.IntVar(&flagSSMLPitch, "pitch", 0, "Pitch adjustment in percent")
	f.IntVar(&flagSSMLMaxPartChars, "max-part-chars", content.DefaultMaxPartChars, "Maximum spoken characters per part, 0 for one part per input")
	f.IntVar(&flagSSMLFragments, "fragments", 0, "Also write request-sized fragments of at most this many characters")
}

func runSSML(cmd *cobra.Command, args []string) error {
	target, inputs := args[0], args[1:]

	writer, err := voiceWriterConfig("azure", flagSSMLVoice, flagSSMLStyle, flagSSMLProsodyRate, flagSSMLPitch)
	if err != nil {
		return err
	}
	splitter, err := partSplitter(flagSSMLMaxPartChars)
	if err != nil {
		return err
	}
	w := ssmlWriter{
		fs:       appFs,
		loader:   ingest.NewLoader(appFs, ingest.NewParser(ingest.BookParserConfig())),
		splitter: splitter,
		renderer: ssml.NewWriter(writer),
	}
	if flagSSMLFragments > 0 {
		w.fragments = ssml.NewSplitter(ssml.SplitterConfig{MaxFragmentWeight: flagSSMLFragments})
	}

	if err := appFs.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	for _, in := range inputs {
		written, err := w.write(cmd.Context(), pipeline.SourceFile{Path: in}, target)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
	}
	return nil
}

type ssmlWriter struct {
	fs        afero.Fs
	loader    *ingest.Loader
	splitter  content.Splitter
	renderer  *ssml.Writer
	fragments *ssml.Splitter
}

// write renders every part of src to target, named like the tracks the
// same input would produce but with an .xml extension.
func (w ssmlWriter) write(ctx context.Context, src pipeline.SourceFile, target string) ([]string, error) {
	items, err := w.loader.Load(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	parts := w.splitter.Split(items)

	var written []string
	for i, part := range parts {
		markup, err := w.renderer.Render(part)
		if err != nil {
			return written, err
		}
		out := xmlPath(pipeline.OutputPath(target, base, i, len(parts)))
		if err := afero.WriteFile(w.fs, out, []byte(markup), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", out, err)
		}
		written = append(written, out)

		if w.fragments == nil {
			continue
		}
		frags, err := w.fragments.Split(markup)
		if err != nil {
			return written, err
		}
		if len(frags) < 2 {
			continue
		}
		for j, frag := range frags {
			fp := strings.TrimSuffix(out, ".xml") + fmt.Sprintf(" fragment %d.xml", j+1)
			if err := afero.WriteFile(w.fs, fp, []byte(frag), 0o644); err != nil {
				return written, fmt.Errorf("write %s: %w", fp, err)
			}
			written = append(written, fp)
		}
	}
	return written, nil
}

func xmlPath(mp3 string) string {
	return strings.TrimSuffix(mp3, filepath.Ext(mp3)) + ".xml"
}
