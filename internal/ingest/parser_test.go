package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/apresai/narrator/internal/content"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chapterText = `Chapter One:
The Beginning

It was a dark
and stormy night.

---

The rain fell.

--- Later That Day ---

   Sun came out.
`

func TestParserBook(t *testing.T) {
	items, err := NewParser(BookParserConfig()).Parse(strings.NewReader(chapterText))
	require.NoError(t, err)

	assert.Equal(t, []content.Item{
		content.ChapterTitle{Text: "Chapter One: The Beginning"},
		content.Paragraph{Text: "It was a dark and stormy night."},
		content.SectionBreak{},
		content.Paragraph{Text: "The rain fell."},
		content.SectionBreak{Title: "Later That Day"},
		content.Paragraph{Text: "Sun came out."},
		content.ChapterEnd{},
	}, items)
}

func TestParserArticlePublisher(t *testing.T) {
	text := "Rates Rise Again\n\nPublished March 4th 2024 by The Economist.\n\nCentral banks moved.\n"

	items, err := NewParser(ArticleParserConfig()).Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, content.ArticlePublisher{
		Text:      "Published March 4th 2024 by The Economist.",
		Publisher: "The Economist",
	}, items[1])

	items, err = NewParser(BookParserConfig()).Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.IsType(t, content.Paragraph{}, items[1])
}

func TestParserOptionsOff(t *testing.T) {
	items, err := NewParser(ParserConfig{}).Parse(strings.NewReader("Title\n\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, []content.Item{
		content.Paragraph{Text: "Title"},
		content.Paragraph{Text: "---"},
	}, items)
}

func TestParserEmptyInput(t *testing.T) {
	items, err := NewParser(BookParserConfig()).Parse(strings.NewReader("\n\n  \n"))
	require.NoError(t, err)
	assert.Equal(t, []content.Item{content.ChapterEnd{}}, items)
}

func TestSectionBreakPattern(t *testing.T) {
	tests := []struct {
		in    string
		match bool
		title string
	}{
		{"---", true, ""},
		{"----------", true, ""},
		{"--- Part Two ---", true, "Part Two"},
		{"-- nope --", false, ""},
		{"--- dangling", false, ""},
		{"a---", false, ""},
	}
	p := NewParser(BookParserConfig())
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			item := p.classify(tt.in)
			sb, ok := item.(content.SectionBreak)
			assert.Equal(t, tt.match, ok)
			if ok {
				assert.Equal(t, tt.title, sb.Title)
			}
		})
	}
}

func TestMergeLines(t *testing.T) {
	out, err := MergeLines(strings.NewReader("a\nb\n\n\nc\n d \n"))
	require.NoError(t, err)
	assert.Equal(t, "a b\n\nc d\n", out)
}

func TestLoaderTextFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/ch1.txt", []byte(chapterText), 0o644))

	items, err := NewLoader(fs, NewParser(BookParserConfig())).Load(context.Background(), "/in/ch1.txt")
	require.NoError(t, err)
	assert.Equal(t, content.ChapterTitle{Text: "Chapter One: The Beginning"}, items[0])
	assert.Equal(t, content.ChapterEnd{}, items[len(items)-1])
}

func TestLoaderRejectsEmptyAndMissingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/empty.txt", nil, 0o644))
	loader := NewLoader(fs, NewParser(BookParserConfig()))

	_, err := loader.Load(context.Background(), "/in/empty.txt")
	assert.ErrorContains(t, err, "is empty")

	_, err = loader.Load(context.Background(), "/in/missing.txt")
	assert.ErrorContains(t, err, "cannot access")
}

func TestDetectSource(t *testing.T) {
	assert.Equal(t, SourceURL, DetectSource("https://example.com/a"))
	assert.Equal(t, SourcePDF, DetectSource("/x/Book.PDF"))
	assert.Equal(t, SourceText, DetectSource("notes.txt"))
}
