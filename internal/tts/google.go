package tts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/apresai/narrator/internal/ssml"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	googleDefaultVoice    = "en-US-Neural2-J"
	googleDefaultLanguage = "en-US"
)

// azureOnlyElements are wrappers other engines reject or read differently.
// Those engines take voice and rate as request parameters instead.
var azureOnlyElements = []string{"voice", "express-as", "prosody"}

// GoogleProvider implements Provider using Google Cloud TTS with SSML input.
type GoogleProvider struct {
	name     string
	client   *texttospeech.Client
	voice    string
	language string
	speed    float64
	logger   *slog.Logger
}

func NewGoogleProvider(ctx context.Context, cfg BackendConfig, logger *slog.Logger) (*GoogleProvider, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}

	p := &GoogleProvider{
		name:     cfg.displayName(),
		client:   client,
		voice:    googleDefaultVoice,
		language: googleDefaultLanguage,
		speed:    cfg.SpeakingRate,
		logger:   logger,
	}
	if cfg.Voice != "" {
		p.voice = cfg.Voice
	}
	if cfg.LanguageCode != "" {
		p.language = cfg.LanguageCode
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

func (p *GoogleProvider) Name() string { return p.name }

func (p *GoogleProvider) Synthesize(ctx context.Context, markup string) (AudioResult, error) {
	start := time.Now()

	doc, err := ssml.Simplify(markup, ssml.SimplifyOptions{StripElements: azureOnlyElements})
	if err != nil {
		return AudioResult{}, failed(p.name, "", "prepare markup", err)
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: doc},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: p.language,
			Name:         p.voice,
		},
		AudioConfig: p.audioConfig(),
	}

	resp, err := p.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return AudioResult{}, classifyGoogleError(p.name, err)
	}
	if len(resp.AudioContent) == 0 {
		return AudioResult{}, failed(p.name, "", "empty response", ErrEmptyAudio)
	}

	p.logger.DebugContext(ctx, "google synthesis complete",
		"chars", len(doc),
		"bytes", len(resp.AudioContent),
		"latency", time.Since(start).Round(time.Millisecond))
	return AudioResult{Data: resp.AudioContent, Format: FormatMP3}, nil
}

func classifyGoogleError(name string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return failed(name, "", "synthesize", err)
	}
	if st.Code() == codes.ResourceExhausted {
		return throttled(name, st.Code().String(), "quota exhausted", err)
	}
	return failed(name, st.Code().String(), "synthesize", err)
}

func (p *GoogleProvider) audioConfig() *texttospeechpb.AudioConfig {
	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if p.speed != 0 {
		cfg.SpeakingRate = p.speed
	}
	return cfg
}

func (p *GoogleProvider) Close() error { return p.client.Close() }
