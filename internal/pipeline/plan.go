package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/apresai/narrator/internal/content"
	"github.com/apresai/narrator/internal/progress"
	"github.com/apresai/narrator/internal/tts"
)

type plannedPart struct {
	source   SourceFile
	index    int
	count    int
	items    []content.Item
	markup   string
	output   string
	scratch  string
	existing bool

	sourceItems []content.Item
}

type batchPlan struct {
	files   []SourceFile
	parts   []plannedPart
	pending int
	cost    float64
}

// OutputPath names the track for part index of count.
func OutputPath(targetDir, base string, index, count int) string {
	if count > 1 {
		base = fmt.Sprintf("%s (Part %d)", base, index+1)
	}
	return filepath.Join(targetDir, base+".mp3")
}

// ScratchPath is where a track is synthesized before it is tagged and
// moved to output.
func ScratchPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + " audio" + filepath.Ext(output)
}

func (p *Processor) plan(ctx context.Context, files []SourceFile, targetDir string, filter Filter, report *Report, fail func(*Error) error, start time.Time) (*batchPlan, error) {
	plan := &batchPlan{}
	for _, f := range files {
		if filter == nil || filter(f) {
			plan.files = append(plan.files, f)
		}
	}

	for i, f := range plan.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.cfg.Progress(progress.Event{
			Stage:   progress.StagePlan,
			Message: "Reading " + filepath.Base(f.Path),
			Percent: float64(i) / float64(len(plan.files)),
			Elapsed: time.Since(start),
		})

		parts, err := p.planFile(ctx, f, targetDir, report)
		if err != nil {
			if ferr := fail(err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		for _, pp := range parts {
			if !pp.existing {
				plan.pending++
				if p.cfg.Estimator != nil {
					plan.cost += p.cfg.Estimator.Estimate(pp.markup)
				}
			}
		}
		plan.parts = append(plan.parts, parts...)
	}
	return plan, nil
}

func (p *Processor) planFile(ctx context.Context, f SourceFile, targetDir string, report *Report) ([]plannedPart, *Error) {
	items, err := p.cfg.Loader.Load(ctx, f.Path)
	if err != nil {
		return nil, &Error{Stage: StageIngest, Source: f.Path, Err: err}
	}

	split := p.cfg.Splitter.Split(items)
	base := f.baseName()
	var parts []plannedPart
	for i, part := range split {
		if p.cfg.PartFilter != nil && !p.cfg.PartFilter(f, i) {
			report.Filtered++
			continue
		}
		output := OutputPath(targetDir, base, i, len(split))
		existing, err := tts.NonEmptyFile(p.cfg.Fs, output)
		if err != nil {
			return nil, &Error{Stage: StageOutput, Source: f.Path, Path: output, Err: err}
		}

		pp := plannedPart{
			source:   f,
			index:    i,
			count:    len(split),
			items:    part,
			output:   output,
			scratch:  ScratchPath(output),
			existing: existing,

			sourceItems: items,
		}
		if !existing {
			pp.markup, err = p.cfg.Renderer.Render(part)
			if err != nil {
				return nil, &Error{Stage: StageRender, Source: f.Path, Path: output, Err: err}
			}
		}
		parts = append(parts, pp)
	}
	return parts, nil
}
