package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apresai/narrator/internal/content"
	"github.com/apresai/narrator/internal/ingest"
	"github.com/apresai/narrator/internal/pipeline"
	"github.com/apresai/narrator/internal/tags"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	newsDateLayout      = "Monday, January 2 2006"
	archiveDateLayout   = "2006-01-02"
	maxAlbumUpdates     = 4
	newsMaxPartChars    = 9000
	newsDefaultVoice    = "AriaCasual"
	newsDefaultProsody  = 10
	newsDefaultAlbumArt = "News Deep Dive"
)

var errAlbumsTaken = errors.New("all the album names for this date have been taken")

var (
	flagNewsAlbum       string
	flagNewsAlbumArtist string
	flagNewsDate        string
	flagNewsResume      bool
	flagNewsArchive     string
	flagNewsList        string
	flagNewsVoice       string
	flagNewsProsodyRate int
	flagNewsPretend     bool
)

var newsCmd = &cobra.Command{
	Use:   "news <input-dir|file|url...> <output-dir>",
	Short: "Narrate news articles into a dated album",
	Long: `Converts articles into a new album folder under <output-dir> named after
the date, e.g. "Monday, January 2 2006". Later runs on the same day create
"(Update N)" folders. Publisher bylines become the artist tag.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if flagNewsList != "" {
			return cobra.MinimumNArgs(1)(cmd, args)
		}
		return cobra.MinimumNArgs(2)(cmd, args)
	},
	RunE: runNews,
}

func init() {
	rootCmd.AddCommand(newsCmd)
	f := newsCmd.Flags()
	f.StringVar(&flagNewsAlbum, "album", "", "Album name (default: the date)")
	f.StringVar(&flagNewsAlbumArtist, "album-artist", newsDefaultAlbumArt, "Album artist tag")
	f.StringVar(&flagNewsDate, "date", "", "Album date as YYYY-MM-DD (default today)")
	f.BoolVar(&flagNewsResume, "resume", false, "Continue the latest album for the date instead of starting a new one")
	f.StringVar(&flagNewsArchive, "archive", "", "Move converted article files into DIR/<date>/")
	f.StringVar(&flagNewsList, "list", "", "Read article paths from this file, one per line")
	f.StringVar(&flagNewsVoice, "voice", newsDefaultVoice, "Voice alias or full voice name")
	f.IntVar(&flagNewsProsodyRate, "prosody-rate", newsDefaultProsody, "Speaking rate adjustment in percent")
	f.BoolVar(&flagNewsPretend, "pretend", false, "Plan and estimate cost without synthesizing")
}

// article is one input file and the directory it was found under, which
// archiving preserves.
type article struct {
	Path string
	Root string
}

func runNews(cmd *cobra.Command, args []string) error {
	inputs, target := args[:len(args)-1], args[len(args)-1]

	date := time.Now()
	if flagNewsDate != "" {
		d, err := time.ParseInLocation(archiveDateLayout, flagNewsDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", flagNewsDate)
		}
		date = d
	}

	var listed []string
	if flagNewsList != "" {
		l, err := readArticleList(appFs, flagNewsList)
		if err != nil {
			return err
		}
		listed = l
	}
	articles, err := collectArticles(appFs, append(inputs, listed...))
	if err != nil {
		return err
	}

	album := flagNewsAlbum
	switch {
	case album != "":
	case flagNewsResume:
		album, err = resumeAlbum(appFs, target, date)
	default:
		album, err = availableAlbum(appFs, target, date)
	}
	if err != nil {
		return err
	}
	albumDir := filepath.Join(target, album)

	writer, err := voiceWriterConfig("azure-news", flagNewsVoice, "", flagNewsProsodyRate, 0)
	if err != nil {
		return err
	}
	splitter, err := partSplitter(newsMaxPartChars)
	if err != nil {
		return err
	}

	files := make([]pipeline.SourceFile, len(articles))
	for i, a := range articles {
		files[i] = pipeline.SourceFile{Path: a.Path}
	}

	_, err = runBatch(cmd, files, albumDir, nil, batchOptions{
		Writer:   writer,
		Splitter: splitter,
		Parser:   ingest.ArticleParserConfig(),
		Pretend:  flagNewsPretend,
		Metadata: newsMetadata(album, flagNewsAlbumArtist),
	})
	if err != nil {
		return err
	}

	if flagNewsArchive != "" && !flagNewsPretend {
		return archiveArticles(appFs, articles, flagNewsArchive, date)
	}
	return nil
}

// newsMetadata tags every part of an article with the article's publisher,
// falling back to albumArtist when the article names none.
func newsMetadata(album, albumArtist string) pipeline.MetadataFunc {
	return func(mc pipeline.MetadataContext) tags.Record {
		rec := pipeline.DefaultMetadata(mc)
		rec.Artist = albumArtist
		if p, ok := content.Publisher(mc.SourceItems); ok {
			rec.Artist = p
		}
		rec.Album = album
		rec.AlbumArtist = albumArtist
		return rec
	}
}

func albumName(date time.Time, update int) string {
	name := date.Format(newsDateLayout)
	if update > 0 {
		name += fmt.Sprintf(" (Update %d)", update)
	}
	return name
}

// availableAlbum returns the first album name for date without a folder
// under target.
func availableAlbum(fs afero.Fs, target string, date time.Time) (string, error) {
	for i := 0; i <= maxAlbumUpdates; i++ {
		name := albumName(date, i)
		exists, err := afero.DirExists(fs, filepath.Join(target, name))
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return "", errAlbumsTaken
}

// resumeAlbum returns the latest album folder for date. The first album of
// the day must exist.
func resumeAlbum(fs afero.Fs, target string, date time.Time) (string, error) {
	latest := ""
	for i := 0; i <= maxAlbumUpdates; i++ {
		name := albumName(date, i)
		exists, err := afero.DirExists(fs, filepath.Join(target, name))
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		latest = name
	}
	if latest == "" {
		return "", fmt.Errorf("nothing to resume: %s does not exist", filepath.Join(target, albumName(date, 0)))
	}
	return latest, nil
}

// readArticleList reads one path per line. Text after '#' and blank lines
// are ignored.
func readArticleList(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open article list: %w", err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if ingest.DetectSource(line) != ingest.SourceURL {
			if ok, _ := afero.Exists(fs, line); !ok {
				return nil, fmt.Errorf("%s:%d: %s does not exist", path, n, line)
			}
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read article list: %w", err)
	}
	return paths, nil
}

// collectArticles expands directories into their *.txt and *.pdf files,
// oldest first. URLs and files are kept in the order given.
func collectArticles(fs afero.Fs, inputs []string) ([]article, error) {
	var out []article
	for _, in := range inputs {
		if ingest.DetectSource(in) == ingest.SourceURL {
			out = append(out, article{Path: in})
			continue
		}
		info, err := fs.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", in, err)
		}
		if !info.IsDir() {
			out = append(out, article{Path: in, Root: filepath.Dir(in)})
			continue
		}
		found, err := articlesInDir(fs, in)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	if len(out) == 0 {
		return nil, errors.New("no articles found")
	}
	return out, nil
}

func articlesInDir(fs afero.Fs, dir string) ([]article, error) {
	type dated struct {
		article
		mod time.Time
	}
	var found []dated
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".pdf":
			found = append(found, dated{article{Path: path, Root: dir}, info.ModTime()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].mod.Equal(found[j].mod) {
			return found[i].Path < found[j].Path
		}
		return found[i].mod.Before(found[j].mod)
	})
	out := make([]article, len(found))
	for i, d := range found {
		out[i] = d.article
	}
	return out, nil
}

// archiveArticles moves local articles to archiveDir/<date>/, keeping their
// path below the directory they were collected from.
func archiveArticles(fs afero.Fs, articles []article, archiveDir string, date time.Time) error {
	dest := filepath.Join(archiveDir, date.Format(archiveDateLayout))
	for _, a := range articles {
		if a.Root == "" {
			continue
		}
		rel, err := filepath.Rel(a.Root, a.Path)
		if err != nil {
			rel = filepath.Base(a.Path)
		}
		to := filepath.Join(dest, rel)
		if err := fs.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return fmt.Errorf("archive %s: %w", a.Path, err)
		}
		if err := fs.Rename(a.Path, to); err != nil {
			return fmt.Errorf("archive %s: %w", a.Path, err)
		}
		logger.Info("archived article", "from", a.Path, "to", to)
	}
	return nil
}
