package tts

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/apresai/narrator/internal/assembly"
	"github.com/apresai/narrator/internal/progress"
	"github.com/apresai/narrator/internal/ssml"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Chunked synthesizes documents too large for one backend request. The
// markup is split into fragments, each fragment is rendered to its own
// chunk file, and the chunks are joined losslessly. Chunk files that already
// hold audio are reused, so an interrupted run resumes where it stopped.
type Chunked struct {
	inner    FileSynthesizer
	splitter *ssml.Splitter
	concat   assembly.Concatenator
	fs       afero.Fs
	logger   *slog.Logger
}

// ChunkedOption customizes a Chunked synthesizer.
type ChunkedOption func(*Chunked)

// WithFs sets the filesystem used for chunk bookkeeping.
func WithFs(fs afero.Fs) ChunkedOption {
	return func(c *Chunked) { c.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ChunkedOption {
	return func(c *Chunked) { c.logger = l }
}

func NewChunked(inner FileSynthesizer, splitter *ssml.Splitter, concat assembly.Concatenator, opts ...ChunkedOption) *Chunked {
	c := &Chunked{
		inner:    inner,
		splitter: splitter,
		concat:   concat,
		fs:       afero.NewOsFs(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkPath returns the file used for the fragment at index (0-based).
func ChunkPath(output string, index int) string {
	ext := filepath.Ext(output)
	if ext == "" {
		ext = ".mp3"
	}
	return fmt.Sprintf("%s_chunk%d%s", strings.TrimSuffix(output, filepath.Ext(output)), index+1, ext)
}

func mergePath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".merging" + ext
}

// SynthesizeToFile renders markup to output. report, if non-nil, receives
// the count of synthesized fragment characters against the total.
func (c *Chunked) SynthesizeToFile(ctx context.Context, markup, output string, report progress.Func) error {
	if report == nil {
		report = progress.NopFunc
	}

	if ready, err := NonEmptyFile(c.fs, output); err != nil {
		return fmt.Errorf("check %s: %w", output, err)
	} else if ready {
		n := utf8.RuneCountInString(markup)
		report("Already synthesized", n, n)
		return nil
	}

	fragments, err := c.splitter.Split(markup)
	if err != nil {
		return fmt.Errorf("split markup for %s: %w", output, err)
	}

	ctx, span := tracer.Start(ctx, "tts.chunked.synthesize", trace.WithAttributes(
		attribute.String("output", output),
		attribute.Int("fragments", len(fragments)),
	))
	defer span.End()

	if len(fragments) == 1 {
		total := utf8.RuneCountInString(markup)
		report("Synthesizing", 0, total)
		if err := c.inner.SynthesizeToFile(ctx, markup, output); err != nil {
			return err
		}
		report("Synthesized", total, total)
		return nil
	}

	total := 0
	for _, frag := range fragments {
		total += utf8.RuneCountInString(frag)
	}

	chunks := make([]string, len(fragments))
	done := 0
	report(fmt.Sprintf("Synthesizing %d chunks", len(fragments)), 0, total)

	for i, frag := range fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := ChunkPath(output, i)
		chunks[i] = chunk

		ready, err := NonEmptyFile(c.fs, chunk)
		if err != nil {
			return fmt.Errorf("check chunk %s: %w", chunk, err)
		}
		if ready {
			c.logger.DebugContext(ctx, "reusing chunk", "chunk", chunk)
		} else {
			c.logger.DebugContext(ctx, "synthesizing chunk", "chunk", chunk, "index", i+1, "of", len(fragments))
			if err := c.inner.SynthesizeToFile(ctx, frag, chunk); err != nil {
				return fmt.Errorf("chunk %d of %d: %w", i+1, len(fragments), err)
			}
		}

		done += utf8.RuneCountInString(frag)
		report(fmt.Sprintf("Synthesized chunk %d of %d", i+1, len(fragments)), done, total)
	}

	merging := mergePath(output)
	if err := c.concat.Concat(ctx, chunks, merging); err != nil {
		c.fs.Remove(merging) //nolint:errcheck
		return err
	}
	if err := c.fs.Rename(merging, output); err != nil {
		return fmt.Errorf("rename %s: %w", merging, err)
	}

	for _, chunk := range chunks {
		if err := c.fs.Remove(chunk); err != nil {
			c.logger.WarnContext(ctx, "could not remove chunk", "chunk", chunk, "error", err)
		}
	}
	return nil
}
