package ssml

import (
	"fmt"
	"strings"

	"github.com/apresai/narrator/internal/content"
)

const (
	synthesisNamespace = "http://www.w3.org/2001/10/synthesis"
	msttsNamespace     = "http://www.w3.org/2001/mstts"
	defaultLang        = "en-US"
)

// WriterConfig controls the document envelope. Empty fields are omitted.
type WriterConfig struct {
	Lang        string // xml:lang on <speak>, default en-US
	Voice       string // <voice name="...">
	Style       string // <mstts:express-as style="...">
	ProsodyRate string // e.g. "10%"
	Pitch       string // e.g. "-5%"
	// MicrosoftExtensions declares the mstts namespace. Style implies it.
	MicrosoftExtensions bool
}

// Writer renders content items as an SSML document.
type Writer struct {
	cfg WriterConfig
}

func NewWriter(cfg WriterConfig) *Writer {
	if cfg.Lang == "" {
		cfg.Lang = defaultLang
	}
	if cfg.Style != "" {
		cfg.MicrosoftExtensions = true
	}
	return &Writer{cfg: cfg}
}

// Render returns one complete SSML document for items.
func (w *Writer) Render(items []content.Item) (string, error) {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&b, `<speak version="1.0" xmlns="%s"`, synthesisNamespace)
	if w.cfg.MicrosoftExtensions {
		fmt.Fprintf(&b, ` xmlns:mstts="%s"`, msttsNamespace)
	}
	fmt.Fprintf(&b, ` xml:lang="%s">`, escapeAttr(w.cfg.Lang))

	var closers []string
	if w.cfg.Voice != "" {
		fmt.Fprintf(&b, `<voice name="%s">`, escapeAttr(w.cfg.Voice))
		closers = append(closers, "</voice>")
	}
	if w.cfg.Style != "" {
		fmt.Fprintf(&b, `<mstts:express-as style="%s">`, escapeAttr(w.cfg.Style))
		closers = append(closers, "</mstts:express-as>")
	}
	if w.cfg.ProsodyRate != "" || w.cfg.Pitch != "" {
		b.WriteString("<prosody")
		if w.cfg.ProsodyRate != "" {
			fmt.Fprintf(&b, ` rate="%s"`, escapeAttr(w.cfg.ProsodyRate))
		}
		if w.cfg.Pitch != "" {
			fmt.Fprintf(&b, ` pitch="%s"`, escapeAttr(w.cfg.Pitch))
		}
		b.WriteString(">")
		closers = append(closers, "</prosody>")
	}

	for _, item := range items {
		if err := writeItem(&b, item); err != nil {
			return "", err
		}
	}

	for i := len(closers) - 1; i >= 0; i-- {
		b.WriteString(closers[i])
	}
	b.WriteString("</speak>")
	return b.String(), nil
}

func writeItem(b *strings.Builder, item content.Item) error {
	switch it := item.(type) {
	case content.ChapterTitle:
		writeBreak(b, "2s")
		writeParagraph(b, it.Text)
		writeBreak(b, "1s")
	case content.Paragraph:
		writeParagraph(b, it.Text)
	case content.ArticlePublisher:
		writeParagraph(b, it.Text)
	case content.SectionBreak:
		writeBreak(b, "2s")
		if it.Title != "" {
			writeParagraph(b, it.Title)
			writeBreak(b, "1s")
		}
	case content.ChapterEnd:
		writeBreak(b, "2s")
	default:
		return fmt.Errorf("ssml: unsupported content item %T", item)
	}
	return nil
}

func writeBreak(b *strings.Builder, d string) {
	fmt.Fprintf(b, `<break time="%s"/>`, d)
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func writeParagraph(b *strings.Builder, text string) {
	b.WriteString("<p>")
	b.WriteString(textEscaper.Replace(text))
	b.WriteString("</p>")
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// FormatPercent renders an integer adjustment the way prosody attributes
// expect it, e.g. 10 -> "10%".
func FormatPercent(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d%%", v)
}
