package ssml

import (
	"errors"
	"testing"

	"github.com/apresai/narrator/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyStripsAzureWrappers(t *testing.T) {
	doc, err := NewWriter(WriterConfig{
		Voice:       "en-US-AriaNeural",
		Style:       "newscast",
		ProsodyRate: "10%",
	}).Render([]content.Item{content.Paragraph{Text: "Fish & chips"}, content.ChapterEnd{}})
	require.NoError(t, err)

	got, err := Simplify(doc, SimplifyOptions{StripElements: []string{"voice", "express-as", "prosody"}})
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="http://www.w3.org/2001/mstts" xml:lang="en-US">`+
		`<p>Fish &amp; chips</p><break time="2s"></break></speak>`, got)
}

func TestSimplifyBareRoot(t *testing.T) {
	got, err := Simplify(`<?xml version="1.0"?>
<speak version="1.0" xml:lang="en-US"><mstts:silence type="Leading" value="1s"/><p>Hi</p></speak>`,
		SimplifyOptions{DropDeclaration: true, BareRootAttributes: true})
	require.NoError(t, err)
	assert.Equal(t, `<speak><p>Hi</p></speak>`, got)
}

func TestSimplifyMalformed(t *testing.T) {
	_, err := Simplify(`<speak><p>Hi</speak>`, SimplifyOptions{})
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Simplify(`<speak><p>Hi</p>`, SimplifyOptions{})
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Simplify(`</speak>`, SimplifyOptions{})
	assert.True(t, errors.Is(err, ErrMalformed))
}
