package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

type TextIngester struct {
	Fs afero.Fs
}

func (t *TextIngester) Ingest(ctx context.Context, source string) (*Content, error) {
	fs := t.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := validateFile(fs, source); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(fs, source)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", source, err)
	}

	text := string(data)
	if len(text) == 0 {
		return nil, fmt.Errorf("file %s is empty", source)
	}

	return &Content{
		Text:      text,
		Title:     titleFromText(text, 80),
		Source:    filepath.Base(source),
		WordCount: wordCount(text),
	}, nil
}
