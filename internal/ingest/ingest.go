package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/apresai/narrator/internal/content"
	"github.com/spf13/afero"
)

type SourceType string

const (
	SourceURL  SourceType = "url"
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"

	// maxInputSize is the maximum allowed size for input content (25 MB).
	maxInputSize = 25 * 1024 * 1024
)

func (s SourceType) String() string {
	return string(s)
}

// Content is raw text extracted from a source, before parsing.
type Content struct {
	Text      string
	Title     string
	Source    string
	WordCount int
}

type Ingester interface {
	Ingest(ctx context.Context, source string) (*Content, error)
}

func DetectSource(input string) SourceType {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return SourceURL
	}
	if strings.HasSuffix(strings.ToLower(input), ".pdf") {
		return SourcePDF
	}
	return SourceText
}

// NewIngester picks an ingester for input. Text files are read through fs.
func NewIngester(input string, fs afero.Fs) Ingester {
	switch DetectSource(input) {
	case SourceURL:
		return &URLIngester{}
	case SourcePDF:
		return &PDFIngester{}
	default:
		return &TextIngester{Fs: fs}
	}
}

// Loader turns a source into content items: it ingests the raw text and
// runs it through a Parser.
type Loader struct {
	fs     afero.Fs
	parser *Parser
}

func NewLoader(fs afero.Fs, parser *Parser) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs, parser: parser}
}

func (l *Loader) Load(ctx context.Context, source string) ([]content.Item, error) {
	c, err := NewIngester(source, l.fs).Ingest(ctx, source)
	if err != nil {
		return nil, err
	}
	items, err := l.parser.Parse(strings.NewReader(c.Text))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return items, nil
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func titleFromText(text string, maxLen int) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(line)
	if len(line) > maxLen {
		line = line[:maxLen] + "..."
	}
	if line == "" {
		return "Untitled"
	}
	return line
}

func validateFile(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxInputSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxInputSize/(1024*1024))
	}
	return nil
}
