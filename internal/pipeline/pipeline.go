package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/apresai/narrator/internal/content"
	"github.com/apresai/narrator/internal/progress"
	"github.com/apresai/narrator/internal/tags"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/apresai/narrator/internal/pipeline")

// Stages reported in Error.
const (
	StageIngest     = "ingest"
	StageRender     = "render"
	StageOutput     = "output"
	StageLock       = "lock"
	StageSynthesize = "synthesize"
	StageTag        = "tag"
)

// Error reports a failure while processing one source file.
type Error struct {
	Stage  string
	Source string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Stage)
	if e.Source != "" {
		b.WriteString(" " + e.Source)
	}
	if e.Path != "" {
		b.WriteString(" -> " + e.Path)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SourceFile is one input of a batch.
type SourceFile struct {
	// Path is a text file, a PDF or a URL.
	Path string
	// BaseName names the outputs. Defaults to the file name without extension.
	BaseName string
}

func (s SourceFile) baseName() string {
	if s.BaseName != "" {
		return s.BaseName
	}
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Filter selects source files. A nil Filter selects everything.
type Filter func(SourceFile) bool

// PartFilter selects parts by 0-based index. Rejected parts are not
// synthesized and take no track number.
type PartFilter func(src SourceFile, partIndex int) bool

// MetadataContext is what a MetadataFunc may look at for one part.
type MetadataContext struct {
	Source    SourceFile
	Items     []content.Item // the part's items
	// SourceItems holds every item of the source file, so a part can be
	// tagged from content that landed in another part.
	SourceItems []content.Item
	PartIndex int
	PartCount int
	// ProcessedParts counts the parts handled earlier in this run,
	// including parts whose output already existed.
	ProcessedParts int
}

// MetadataFunc builds the tags for one part. The processor sets Track.
type MetadataFunc func(MetadataContext) tags.Record

// Loader turns a source into content items.
type Loader interface {
	Load(ctx context.Context, source string) ([]content.Item, error)
}

// Renderer turns items into one SSML document.
type Renderer interface {
	Render(items []content.Item) (string, error)
}

// Synthesizer renders a document of any size to an audio file.
type Synthesizer interface {
	SynthesizeToFile(ctx context.Context, markup, output string, report progress.Func) error
}

// Estimator prices a document.
type Estimator interface {
	Estimate(ssml string) float64
}

// Config wires a Processor. It is copied by New and never modified.
type Config struct {
	Loader      Loader
	Splitter    content.Splitter
	Renderer    Renderer
	Synthesizer Synthesizer
	Tagger      tags.Writer
	Estimator   Estimator
	Metadata    MetadataFunc

	PartFilter PartFilter
	// ContinueOnError abandons a failing file and moves on to the next.
	ContinueOnError bool
	// Pretend stops after planning and the cost estimate.
	Pretend bool

	Fs       afero.Fs
	Logger   *slog.Logger
	Progress progress.Callback
}

// Report summarizes a run.
type Report struct {
	RunID         string
	Planned       int
	Synthesized   int
	Existing      int
	Filtered      int
	EstimatedCost float64
	// Outputs lists the final path of every planned part, in track order.
	Outputs  []string
	Failures []*Error
	Elapsed  time.Duration
}

// Processor converts a batch of source files into tagged audio tracks.
type Processor struct {
	cfg Config
}

func New(cfg Config) (*Processor, error) {
	switch {
	case cfg.Loader == nil:
		return nil, errors.New("pipeline: loader is required")
	case cfg.Splitter == nil:
		return nil, errors.New("pipeline: splitter is required")
	case cfg.Renderer == nil:
		return nil, errors.New("pipeline: renderer is required")
	case cfg.Synthesizer == nil && !cfg.Pretend:
		return nil, errors.New("pipeline: synthesizer is required")
	case cfg.Tagger == nil && !cfg.Pretend:
		return nil, errors.New("pipeline: tagger is required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Progress == nil {
		cfg.Progress = progress.NopCallback
	}
	if cfg.Metadata == nil {
		cfg.Metadata = DefaultMetadata
	}
	return &Processor{cfg: cfg}, nil
}

// DefaultMetadata titles a track after its first chapter title, falling
// back to the output base name.
func DefaultMetadata(mc MetadataContext) tags.Record {
	title, ok := content.FirstChapterTitle(mc.Items)
	if !ok {
		title = mc.Source.baseName()
		if mc.PartCount > 1 {
			title = fmt.Sprintf("%s (Part %d)", title, mc.PartIndex+1)
		}
	}
	return tags.Record{Title: title}
}

// Process plans every selected file, reports the estimated cost, then
// synthesizes the parts in order. The first failure ends the run unless
// Config.ContinueOnError is set, in which case the failures are collected
// and returned joined.
func (p *Processor) Process(ctx context.Context, files []SourceFile, targetDir string, filter Filter) (*Report, error) {
	start := time.Now()
	runID := ulid.Make().String()
	log := p.cfg.Logger.With("run", runID)

	ctx, span := tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("target", targetDir),
		attribute.Int("files", len(files)),
	))
	defer span.End()

	report := &Report{RunID: runID}
	defer func() { report.Elapsed = time.Since(start) }()

	fail := func(err *Error) error {
		span.RecordError(err)
		report.Failures = append(report.Failures, err)
		if p.cfg.ContinueOnError {
			log.ErrorContext(ctx, "file failed, continuing", "stage", err.Stage, "source", err.Source, "error", err.Err)
			return nil
		}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	plan, err := p.plan(ctx, files, targetDir, filter, report, fail, start)
	if err != nil {
		return report, err
	}

	report.EstimatedCost = plan.cost
	report.Planned = len(plan.parts)
	for _, pp := range plan.parts {
		report.Outputs = append(report.Outputs, pp.output)
	}
	log.InfoContext(ctx, "batch planned",
		"files", len(plan.files),
		"parts", len(plan.parts),
		"pending", plan.pending,
		"filtered", report.Filtered,
		"estimated_cost", fmt.Sprintf("$%.2f", plan.cost))
	p.cfg.Progress(progress.Event{
		Stage:         progress.StageEstimate,
		Message:       fmt.Sprintf("Estimated cost: $%.2f for %d of %d parts", plan.cost, plan.pending, len(plan.parts)),
		PartTotal:     len(plan.parts),
		EstimatedCost: plan.cost,
		Elapsed:       time.Since(start),
	})

	if p.cfg.Pretend || plan.pending == 0 {
		report.Existing = len(plan.parts) - plan.pending
		p.complete(report, start)
		return report, joinFailures(report)
	}

	if err := p.cfg.Fs.MkdirAll(targetDir, 0o755); err != nil {
		return report, fail(&Error{Stage: StageOutput, Path: targetDir, Err: err})
	}
	lk, err := acquireLock(p.cfg.Fs, targetDir, runID)
	if err != nil {
		e := &Error{Stage: StageLock, Path: targetDir, Err: err}
		span.RecordError(e)
		span.SetStatus(codes.Error, e.Error())
		report.Failures = append(report.Failures, e)
		return report, e
	}
	defer func() {
		if err := lk.release(); err != nil {
			log.WarnContext(ctx, "could not remove lock file", "path", lk.path, "error", err)
		}
	}()

	abandoned := map[string]bool{}
	for i, pp := range plan.parts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if abandoned[pp.source.Path] {
			continue
		}
		track := i + 1

		if pp.existing {
			report.Existing++
			log.DebugContext(ctx, "output exists, skipping", "output", pp.output, "track", track)
			p.cfg.Progress(progress.Event{
				Stage:      progress.StageSynthesize,
				Message:    "Already done: " + filepath.Base(pp.output),
				Percent:    1,
				Part:       track,
				PartTotal:  len(plan.parts),
				OutputFile: pp.output,
				Elapsed:    time.Since(start),
			})
			continue
		}

		if err := p.runPart(ctx, pp, track, len(plan.parts), start); err != nil {
			var pe *Error
			if !errors.As(err, &pe) {
				pe = &Error{Stage: StageSynthesize, Source: pp.source.Path, Path: pp.output, Err: err}
			}
			if ctx.Err() != nil {
				report.Failures = append(report.Failures, pe)
				return report, pe
			}
			if ferr := fail(pe); ferr != nil {
				return report, ferr
			}
			abandoned[pp.source.Path] = true
			continue
		}
		report.Synthesized++
	}

	p.complete(report, start)
	return report, joinFailures(report)
}

func (p *Processor) runPart(ctx context.Context, pp plannedPart, track, total int, start time.Time) error {
	ctx, span := tracer.Start(ctx, "pipeline.part", trace.WithAttributes(
		attribute.String("source", pp.source.Path),
		attribute.String("output", pp.output),
		attribute.Int("track", track),
	))
	defer span.End()

	name := filepath.Base(pp.output)
	report := func(msg string, current, max int) {
		pct := 0.0
		if max > 0 {
			pct = float64(current) / float64(max)
		}
		p.cfg.Progress(progress.Event{
			Stage:     progress.StageSynthesize,
			Message:   fmt.Sprintf("%s: %s", name, msg),
			Percent:   pct,
			Part:      track,
			PartTotal: total,
			Elapsed:   time.Since(start),
		})
	}

	if err := p.cfg.Synthesizer.SynthesizeToFile(ctx, pp.markup, pp.scratch, report); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return &Error{Stage: StageSynthesize, Source: pp.source.Path, Path: pp.scratch, Err: err}
	}

	rec := p.cfg.Metadata(MetadataContext{
		Source:         pp.source,
		Items:          pp.items,
		SourceItems:    pp.sourceItems,
		PartIndex:      pp.index,
		PartCount:      pp.count,
		ProcessedParts: track - 1,
	})
	rec.Track = track

	p.cfg.Progress(progress.Event{
		Stage:      progress.StageTag,
		Message:    "Tagging " + name,
		Percent:    1,
		Part:       track,
		PartTotal:  total,
		OutputFile: pp.output,
		Elapsed:    time.Since(start),
	})
	if err := p.cfg.Tagger.Write(pp.scratch, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tagging failed")
		return &Error{Stage: StageTag, Source: pp.source.Path, Path: pp.scratch, Err: err}
	}
	if err := p.cfg.Fs.Rename(pp.scratch, pp.output); err != nil {
		return &Error{Stage: StageOutput, Source: pp.source.Path, Path: pp.output, Err: err}
	}
	p.cfg.Logger.InfoContext(ctx, "track complete", "output", pp.output, "track", track, "title", rec.Title)
	return nil
}

func (p *Processor) complete(report *Report, start time.Time) {
	p.cfg.Progress(progress.Event{
		Stage:       progress.StageComplete,
		Message:     fmt.Sprintf("%d synthesized, %d already done", report.Synthesized, report.Existing),
		Percent:     1,
		PartTotal:   report.Planned,
		Synthesized: report.Synthesized,
		Skipped:     report.Existing + report.Filtered,
		Elapsed:     time.Since(start),
	})
}

func joinFailures(report *Report) error {
	errs := make([]error, len(report.Failures))
	for i, f := range report.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
