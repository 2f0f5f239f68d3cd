package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apresai/narrator/internal/assembly"
	"github.com/apresai/narrator/internal/config"
	"github.com/apresai/narrator/internal/content"
	"github.com/apresai/narrator/internal/ingest"
	"github.com/apresai/narrator/internal/pipeline"
	"github.com/apresai/narrator/internal/progress"
	"github.com/apresai/narrator/internal/ssml"
	"github.com/apresai/narrator/internal/tags"
	"github.com/apresai/narrator/internal/tts"
	"github.com/spf13/cobra"
)

// batchOptions is what a command decides before handing files to the
// processor.
type batchOptions struct {
	Writer          ssml.WriterConfig
	Splitter        content.Splitter
	Parser          ingest.ParserConfig
	Metadata        pipeline.MetadataFunc
	PartFilter      pipeline.PartFilter
	Pretend         bool
	ContinueOnError bool
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flagConfig
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(appFs, path)
	if err != nil {
		return nil, err
	}
	applyLogging(cmd, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// buildSynthesizer wires the configured backends into a chunked, failover
// synthesizer. The returned func closes every provider.
func buildSynthesizer(ctx context.Context, cfg *config.Config) (*tts.Chunked, *tts.Failover, func(), error) {
	if cfg.NeedsSecrets() {
		sm, err := config.NewSecretsClient(ctx, cfg.Secrets)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := cfg.ResolveSecrets(ctx, sm, logger); err != nil {
			return nil, nil, nil, err
		}
	}

	var (
		providers []tts.Provider
		backends  []tts.NamedSynthesizer
	)
	closeAll := func() {
		for _, p := range providers {
			if err := p.Close(); err != nil {
				logger.Warn("close provider", "backend", p.Name(), "error", err)
			}
		}
	}
	for _, b := range cfg.Backends {
		p, err := tts.NewProvider(ctx, b.TTS(), logger)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		providers = append(providers, p)
		backends = append(backends, tts.NewFileWriter(p, appFs))
	}

	failover, err := tts.NewFailover(logger, backends...)
	if err != nil {
		closeAll()
		return nil, nil, nil, err
	}
	splitter := ssml.NewSplitter(ssml.SplitterConfig{MaxFragmentWeight: cfg.FragmentWeight()})
	chunked := tts.NewChunked(failover, splitter, assembly.NewFFmpegConcatenator(),
		tts.WithFs(appFs), tts.WithLogger(logger))
	return chunked, failover, closeAll, nil
}

// runBatch converts files into tracks under target and prints a summary.
func runBatch(cmd *cobra.Command, files []pipeline.SourceFile, target string, filter pipeline.Filter, opts batchOptions) (*pipeline.Report, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	pcfg := pipeline.Config{
		Loader:          ingest.NewLoader(appFs, ingest.NewParser(opts.Parser)),
		Splitter:        opts.Splitter,
		Renderer:        ssml.NewWriter(opts.Writer),
		Estimator:       tts.NewCostEstimator(cfg.Backends[0].Provider),
		Metadata:        opts.Metadata,
		PartFilter:      opts.PartFilter,
		ContinueOnError: opts.ContinueOnError,
		Pretend:         opts.Pretend,
		Fs:              appFs,
		Logger:          logger,
	}

	backendName := "none (pretend)"
	if !opts.Pretend {
		if err := assembly.CheckFFmpeg(); err != nil {
			return nil, err
		}
		synth, failover, closeAll, err := buildSynthesizer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer closeAll()
		pcfg.Synthesizer = synth
		pcfg.Tagger = tags.NewID3Writer()
		backendName = failover.Name()
	}

	printHeader(os.Stdout, target, len(files), backendName)

	var renderer *progress.Renderer
	if !flagVerbose {
		renderer = progress.NewRenderer(os.Stdout)
		pcfg.Progress = renderer.Handle
	}

	proc, err := pipeline.New(pcfg)
	if err != nil {
		return nil, err
	}
	report, err := proc.Process(ctx, files, target, filter)
	if renderer != nil {
		renderer.Finish()
	}
	if report != nil {
		printReport(ctx, os.Stdout, report, opts.Pretend)
	}
	if err != nil {
		if errors.Is(err, tts.ErrBackendsExhausted) {
			return report, fmt.Errorf("%w\nAll configured backends are throttled; completed chunks are kept, rerun later to resume", err)
		}
		return report, err
	}
	return report, nil
}

func voiceWriterConfig(catalog string, voice, style string, prosodyRate, pitch int) (ssml.WriterConfig, error) {
	voices, err := tts.AvailableVoices(catalog)
	if err != nil {
		return ssml.WriterConfig{}, err
	}
	v, err := tts.ResolveVoice(voices, voice)
	if err != nil {
		return ssml.WriterConfig{}, err
	}
	if style == "" {
		style = v.Style
	}
	return ssml.WriterConfig{
		Voice:       v.ID,
		Style:       style,
		ProsodyRate: ssml.FormatPercent(prosodyRate),
		Pitch:       ssml.FormatPercent(pitch),
	}, nil
}

func partSplitter(maxPartChars int) (content.Splitter, error) {
	if maxPartChars == 0 {
		return content.WholeSplitter{}, nil
	}
	return content.NewBalancedSplitter(maxPartChars)
}
