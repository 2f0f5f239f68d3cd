package content

import (
	"fmt"
	"unicode/utf8"
)

// Item is one unit of parsed document content. The set of variants is
// closed: ChapterTitle, Paragraph, SectionBreak, ChapterEnd and
// ArticlePublisher.
type Item interface {
	isItem()
}

// ChapterTitle is the spoken title at the start of a chapter.
type ChapterTitle struct {
	Text string
}

// Paragraph is a block of body text.
type Paragraph struct {
	Text string
}

// SectionBreak is a pause between sections. Title is optional.
type SectionBreak struct {
	Title string
}

// ChapterEnd marks the end of a chapter.
type ChapterEnd struct{}

// ArticlePublisher is a byline such as "Published May 3 by The Economist."
// Text is the full line, Publisher the extracted name.
type ArticlePublisher struct {
	Text      string
	Publisher string
}

func (ChapterTitle) isItem()     {}
func (Paragraph) isItem()        {}
func (SectionBreak) isItem()     {}
func (ChapterEnd) isItem()       {}
func (ArticlePublisher) isItem() {}

// SpokenLength returns the number of characters the item contributes to
// synthesized speech. Structural items are silent and return 0.
func SpokenLength(item Item) int {
	switch it := item.(type) {
	case ChapterTitle:
		return utf8.RuneCountInString(it.Text)
	case Paragraph:
		return utf8.RuneCountInString(it.Text)
	case ArticlePublisher:
		return utf8.RuneCountInString(it.Text)
	case SectionBreak, ChapterEnd:
		return 0
	default:
		panic(fmt.Sprintf("content: unknown item type %T", item))
	}
}

// TotalLength sums SpokenLength over items.
func TotalLength(items []Item) int {
	total := 0
	for _, it := range items {
		total += SpokenLength(it)
	}
	return total
}

// FirstChapterTitle returns the text of the first ChapterTitle in items.
func FirstChapterTitle(items []Item) (string, bool) {
	for _, it := range items {
		if t, ok := it.(ChapterTitle); ok {
			return t.Text, true
		}
	}
	return "", false
}

// Publisher returns the publisher named by the first ArticlePublisher in items.
func Publisher(items []Item) (string, bool) {
	for _, it := range items {
		if p, ok := it.(ArticlePublisher); ok {
			return p.Publisher, true
		}
	}
	return "", false
}

// Part is a contiguous run of items synthesized into one output file.
type Part []Item

// Length returns the spoken length of the part.
func (p Part) Length() int {
	return TotalLength(p)
}
