package ingest

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/apresai/narrator/internal/content"
)

var (
	sectionBreakPattern     = regexp.MustCompile(`(?i)^-{3,}(?:(?P<title>[^-]+)-{3,})?$`)
	articlePublisherPattern = regexp.MustCompile(`(?i)^Published .+ by (?P<publisher>\w[\w\s]+\w)\.$`)
)

// ParserConfig selects which structures the parser recognizes.
type ParserConfig struct {
	// RecognizeChapter turns the first block into a ChapterTitle.
	RecognizeChapter bool
	// RecognizeSectionBreaks turns "---" and "--- Title ---" blocks into SectionBreaks.
	RecognizeSectionBreaks bool
	// AppendChapterEnd adds a ChapterEnd after the last block.
	AppendChapterEnd bool
	// RecognizeArticlePublisher turns "Published ... by Name." blocks into ArticlePublishers.
	RecognizeArticlePublisher bool
}

// BookParserConfig is the configuration used for book chapters and plain text.
func BookParserConfig() ParserConfig {
	return ParserConfig{
		RecognizeChapter:       true,
		RecognizeSectionBreaks: true,
		AppendChapterEnd:       true,
	}
}

// ArticleParserConfig is BookParserConfig plus publisher bylines.
func ArticleParserConfig() ParserConfig {
	cfg := BookParserConfig()
	cfg.RecognizeArticlePublisher = true
	return cfg
}

// Parser reads plain text made of blank-line separated blocks. Lines within
// a block are trimmed and joined with a single space.
type Parser struct {
	cfg ParserConfig
}

func NewParser(cfg ParserConfig) *Parser {
	return &Parser{cfg: cfg}
}

func (p *Parser) Parse(r io.Reader) ([]content.Item, error) {
	blocks, err := readBlocks(r)
	if err != nil {
		return nil, err
	}

	var items []content.Item
	if p.cfg.RecognizeChapter && len(blocks) > 0 {
		items = append(items, content.ChapterTitle{Text: blocks[0]})
		blocks = blocks[1:]
	}

	for _, block := range blocks {
		items = append(items, p.classify(block))
	}

	if p.cfg.AppendChapterEnd {
		items = append(items, content.ChapterEnd{})
	}
	return items, nil
}

func (p *Parser) classify(block string) content.Item {
	if p.cfg.RecognizeSectionBreaks {
		if m := sectionBreakPattern.FindStringSubmatch(block); m != nil {
			title := m[sectionBreakPattern.SubexpIndex("title")]
			return content.SectionBreak{Title: strings.TrimSpace(title)}
		}
	}
	if p.cfg.RecognizeArticlePublisher {
		if m := articlePublisherPattern.FindStringSubmatch(block); m != nil {
			return content.ArticlePublisher{
				Text:      block,
				Publisher: m[articlePublisherPattern.SubexpIndex("publisher")],
			}
		}
	}
	return content.Paragraph{Text: block}
}

func readBlocks(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxInputSize)

	var (
		blocks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			blocks = append(blocks, cur.String())
			cur.Reset()
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return blocks, nil
}

// MergeLines rewrites text so every block sits on a single line, with
// blocks separated by one blank line.
func MergeLines(r io.Reader) (string, error) {
	blocks, err := readBlocks(r)
	if err != nil {
		return "", err
	}
	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}
