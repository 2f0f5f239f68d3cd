package ssml

import (
	"testing"

	"github.com/apresai/narrator/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRender(t *testing.T) {
	w := NewWriter(WriterConfig{Voice: "en-US-JennyNeural", ProsodyRate: "10%"})
	got, err := w.Render([]content.Item{
		content.ChapterTitle{Text: "Hi & bye"},
		content.Paragraph{Text: "P"},
		content.SectionBreak{Title: "S"},
		content.SectionBreak{},
		content.ChapterEnd{},
	})
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-US">` +
		`<voice name="en-US-JennyNeural"><prosody rate="10%">` +
		`<break time="2s"/><p>Hi &amp; bye</p><break time="1s"/>` +
		`<p>P</p>` +
		`<break time="2s"/><p>S</p><break time="1s"/>` +
		`<break time="2s"/>` +
		`<break time="2s"/>` +
		`</prosody></voice></speak>`
	assert.Equal(t, want, got)
}

func TestWriterStyleDeclaresNamespace(t *testing.T) {
	w := NewWriter(WriterConfig{Voice: "en-US-AriaNeural", Style: "newscast-casual", Pitch: "-5%"})
	got, err := w.Render([]content.Item{
		content.ArticlePublisher{Text: "Published today by Wire.", Publisher: "Wire"},
	})
	require.NoError(t, err)

	assert.Contains(t, got, `xmlns:mstts="http://www.w3.org/2001/mstts"`)
	assert.Contains(t, got, `<voice name="en-US-AriaNeural"><mstts:express-as style="newscast-casual"><prosody pitch="-5%">`)
	assert.Contains(t, got, `<p>Published today by Wire.</p>`)
	assert.Contains(t, got, `</prosody></mstts:express-as></voice></speak>`)
}

func TestWriterBareEnvelope(t *testing.T) {
	got, err := NewWriter(WriterConfig{Lang: "en-GB"}).Render([]content.Item{content.Paragraph{Text: `a "quoted" <word>`}})
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-GB">`+
		`<p>a "quoted" &lt;word&gt;</p></speak>`, got)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "", FormatPercent(0))
	assert.Equal(t, "10%", FormatPercent(10))
	assert.Equal(t, "-5%", FormatPercent(-5))
}
