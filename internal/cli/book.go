package cli

import (
	"fmt"
	"mime"
	"path/filepath"
	"slices"

	"github.com/apresai/narrator/internal/config"
	"github.com/apresai/narrator/internal/ingest"
	"github.com/apresai/narrator/internal/pipeline"
	"github.com/apresai/narrator/internal/tags"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	flagBookOnly    string
	flagBookPretend bool
)

var bookCmd = &cobra.Command{
	Use:   "book <input-dir> <output-dir>",
	Short: "Narrate a book from a directory of chapter files",
	Long: `Reads book.yaml and every *.txt chapter in <input-dir>, and writes one
tagged MP3 per chapter part into <output-dir>. Chapters already converted are
skipped, so an interrupted run can be restarted with the same command.`,
	Args: cobra.ExactArgs(2),
	RunE: runBook,
}

func init() {
	rootCmd.AddCommand(bookCmd)
	bookCmd.Flags().StringVar(&flagBookOnly, "only", "", "Convert only this chapter file")
	bookCmd.Flags().BoolVar(&flagBookPretend, "pretend", false, "Plan and estimate cost without synthesizing")
}

func runBook(cmd *cobra.Command, args []string) error {
	inputDir, target := args[0], args[1]

	book, err := config.LoadBook(appFs, inputDir)
	if err != nil {
		return err
	}
	chapters, err := findChapters(appFs, inputDir, book)
	if err != nil {
		return err
	}

	var filter pipeline.Filter
	if flagBookOnly != "" {
		only := flagBookOnly
		if !filepath.IsAbs(only) {
			only = filepath.Join(inputDir, only)
		}
		if !slices.Contains(chapters, only) {
			return fmt.Errorf("%s is not one of the chapters in %s", flagBookOnly, inputDir)
		}
		filter = func(f pipeline.SourceFile) bool { return f.Path == only }
	}

	var cover *tags.Picture
	if book.Metadata.CoverImage != "" {
		cover, err = loadCover(appFs, book.Metadata.CoverImage)
		if err != nil {
			return err
		}
	}

	writer, err := voiceWriterConfig("azure", book.Synthesis.Voice, book.Synthesis.Style, book.Synthesis.ProsodyRate, book.Synthesis.Pitch)
	if err != nil {
		return err
	}
	splitter, err := partSplitter(book.Synthesis.MaxPartCharacters)
	if err != nil {
		return err
	}

	files := make([]pipeline.SourceFile, len(chapters))
	for i, c := range chapters {
		files[i] = pipeline.SourceFile{Path: c}
	}

	meta := book.Metadata
	_, err = runBatch(cmd, files, target, filter, batchOptions{
		Writer:   writer,
		Splitter: splitter,
		Parser:   ingest.BookParserConfig(),
		Pretend:  flagBookPretend,
		Metadata: func(mc pipeline.MetadataContext) tags.Record {
			rec := pipeline.DefaultMetadata(mc)
			rec.Artist = meta.Author
			rec.Album = meta.Title
			rec.Year = meta.PublishedYear
			rec.Cover = cover
			return rec
		},
	})
	return err
}

// findChapters lists the *.txt files of dir in reading order, leaving out
// the ones book.yaml ignores.
func findChapters(fs afero.Fs, dir string, book *config.Book) ([]string, error) {
	matches, err := afero.Glob(fs, filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	var chapters []string
	for _, m := range matches {
		if !book.Ignored(m) {
			chapters = append(chapters, m)
		}
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapter files (*.txt) found in %s", dir)
	}
	sortChapters(chapters)
	return chapters, nil
}

func loadCover(fs afero.Fs, path string) (*tags.Picture, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read cover image: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return nil, fmt.Errorf("cover image %s: unknown image type", path)
	}
	return &tags.Picture{MIMEType: mimeType, Data: data}, nil
}
