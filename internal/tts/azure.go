package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	azureEndpointFormat = "https://%s.tts.speech.microsoft.com/cognitiveservices/v1"
	azureOutputFormat   = "audio-48khz-192kbitrate-mono-mp3"
	azureUserAgent      = "narrator"
)

// AzureProvider implements Provider using the Azure Speech REST API. The
// voice, style and prosody all come from the SSML document.
type AzureProvider struct {
	name       string
	endpoint   string
	key        string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *slog.Logger
}

func NewAzureProvider(cfg BackendConfig, logger *slog.Logger) (*AzureProvider, error) {
	if cfg.SubscriptionKey == "" {
		return nil, fmt.Errorf("azure backend %q: subscription key is required", cfg.displayName())
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, fmt.Errorf("azure backend %q: region is required", cfg.displayName())
		}
		endpoint = fmt.Sprintf(azureEndpointFormat, cfg.Region)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AzureProvider{
		name:       cfg.displayName(),
		endpoint:   endpoint,
		key:        cfg.SubscriptionKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		retry:      DefaultRetryPolicy,
		logger:     logger,
	}, nil
}

func (p *AzureProvider) Name() string { return p.name }

func (p *AzureProvider) Synthesize(ctx context.Context, ssml string) (AudioResult, error) {
	start := time.Now()
	var data []byte
	err := WithRetry(ctx, p.retry, func() error {
		var err error
		data, err = p.post(ctx, ssml)
		return err
	})
	if err != nil {
		if _, ok := err.(*RetryableError); ok {
			return AudioResult{}, failed(p.name, "", "request failed after retries", err)
		}
		return AudioResult{}, err
	}

	p.logger.DebugContext(ctx, "azure synthesis complete",
		"chars", len(ssml),
		"bytes", len(data),
		"latency", time.Since(start).Round(time.Millisecond))
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *AzureProvider) post(ctx context.Context, ssml string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader([]byte(ssml)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", azureOutputFormat)
	req.Header.Set("User-Agent", azureUserAgent)

	res, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Body: err.Error()}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, throttled(p.name, strconv.Itoa(res.StatusCode), "too many requests", bodyError(body))
	case res.StatusCode >= http.StatusInternalServerError:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &RetryableError{StatusCode: res.StatusCode, Body: string(body)}
	case res.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, failed(p.name, strconv.Itoa(res.StatusCode), "request rejected", bodyError(body))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &RetryableError{StatusCode: res.StatusCode, Body: "read response: " + err.Error()}
	}
	if len(data) == 0 {
		return nil, failed(p.name, strconv.Itoa(res.StatusCode), "empty response", ErrEmptyAudio)
	}
	return data, nil
}

func (p *AzureProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func bodyError(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return errors.New(string(bytes.TrimSpace(body)))
}
