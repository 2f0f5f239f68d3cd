package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// URLIngester fetches an article and reduces it to its readable text. The
// article title becomes the first block and every non-blank line of the
// body becomes a block of its own.
type URLIngester struct {
	Client *http.Client
}

func (u *URLIngester) Ingest(ctx context.Context, source string) (*Content, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", source, err)
	}

	client := u.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", source, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch URL %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch URL %s: HTTP %d", source, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxInputSize)
	article, err := readability.FromReader(limited, parsed)
	if err != nil {
		return nil, fmt.Errorf("could not extract article from %s: %w", source, err)
	}

	body := blocksFromLines(article.TextContent)
	if body == "" {
		return nil, fmt.Errorf("no readable content extracted from %s", source)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = titleFromText(body, 80)
	}

	text := title + "\n\n" + body
	if byline := strings.TrimSpace(article.SiteName); byline != "" {
		text = title + "\n\nPublished online by " + byline + ".\n\n" + body
	}

	return &Content{
		Text:      text,
		Title:     title,
		Source:    source,
		WordCount: wordCount(body),
	}, nil
}

func blocksFromLines(text string) string {
	var blocks []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			blocks = append(blocks, line)
		}
	}
	return strings.Join(blocks, "\n\n")
}
