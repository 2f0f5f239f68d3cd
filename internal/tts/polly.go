package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/apresai/narrator/internal/ssml"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

const pollyDefaultVoice = "Matthew"

// pollyVoiceLang maps voice IDs to their language codes.
var pollyVoiceLang = map[string]types.LanguageCode{
	"Matthew":  types.LanguageCodeEnUs,
	"Ruth":     types.LanguageCodeEnUs,
	"Stephen":  types.LanguageCodeEnUs,
	"Danielle": types.LanguageCodeEnUs,
	"Joanna":   types.LanguageCodeEnUs,
	"Gregory":  types.LanguageCodeEnUs,
	"Amy":      types.LanguageCodeEnGb,
	"Brian":    types.LanguageCodeEnGb,
	"Olivia":   types.LanguageCodeEnAu,
	"Kajal":    types.LanguageCodeEnIn,
}

// pollyThrottleCodes are API error codes that mean "slow down" rather than
// "this request is wrong".
var pollyThrottleCodes = map[string]bool{
	"ThrottlingException":           true,
	"TooManyRequestsException":      true,
	"ServiceQuotaExceededException": true,
}

// PollyProvider implements Provider using AWS Polly with SSML input.
type PollyProvider struct {
	name   string
	client *polly.Client
	voice  string
	engine types.Engine
	logger *slog.Logger
}

func NewPollyProvider(ctx context.Context, cfg BackendConfig, logger *slog.Logger) (*PollyProvider, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for Polly: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	p := &PollyProvider{
		name:   cfg.displayName(),
		client: polly.NewFromConfig(awsCfg),
		voice:  pollyDefaultVoice,
		engine: types.EngineNeural,
		logger: logger,
	}
	if cfg.Voice != "" {
		p.voice = cfg.Voice
	}
	if cfg.Engine != "" {
		p.engine = types.Engine(cfg.Engine)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

func (p *PollyProvider) Name() string { return p.name }

func (p *PollyProvider) Synthesize(ctx context.Context, markup string) (AudioResult, error) {
	start := time.Now()

	doc, err := ssml.Simplify(markup, ssml.SimplifyOptions{
		StripElements:      azureOnlyElements,
		DropDeclaration:    true,
		BareRootAttributes: true,
	})
	if err != nil {
		return AudioResult{}, failed(p.name, "", "prepare markup", err)
	}

	lang, ok := pollyVoiceLang[p.voice]
	if !ok {
		lang = types.LanguageCodeEnUs
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       p.engine,
		OutputFormat: types.OutputFormatMp3,
		Text:         &doc,
		TextType:     types.TextTypeSsml,
		VoiceId:      types.VoiceId(p.voice),
		LanguageCode: lang,
	})
	if err != nil {
		return AudioResult{}, classifyPollyError(p.name, err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return AudioResult{}, failed(p.name, "", "read audio", err)
	}
	if len(data) == 0 {
		return AudioResult{}, failed(p.name, "", "empty response", ErrEmptyAudio)
	}

	p.logger.DebugContext(ctx, "polly synthesis complete",
		"chars", len(doc),
		"bytes", len(data),
		"latency", time.Since(start).Round(time.Millisecond))
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func classifyPollyError(name string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if pollyThrottleCodes[apiErr.ErrorCode()] {
			return throttled(name, apiErr.ErrorCode(), "request throttled", err)
		}
		return failed(name, apiErr.ErrorCode(), "synthesize", err)
	}
	return failed(name, "", "synthesize", err)
}

func (p *PollyProvider) Close() error { return nil }
