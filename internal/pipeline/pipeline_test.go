package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/apresai/narrator/internal/content"
	"github.com/apresai/narrator/internal/progress"
	"github.com/apresai/narrator/internal/tags"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const target = "/books/out"

type fakeLoader struct {
	docs map[string][]content.Item
	errs map[string]error
}

func (l *fakeLoader) Load(ctx context.Context, source string) ([]content.Item, error) {
	if err := l.errs[source]; err != nil {
		return nil, err
	}
	items, ok := l.docs[source]
	if !ok {
		return nil, fmt.Errorf("no such source %s", source)
	}
	return items, nil
}

// paragraphSplitter makes one part per paragraph.
type paragraphSplitter struct{}

func (paragraphSplitter) Split(items []content.Item) []content.Part {
	var parts []content.Part
	for _, it := range items {
		parts = append(parts, content.Part{it})
	}
	return parts
}

type textRenderer struct{}

func (textRenderer) Render(items []content.Item) (string, error) {
	var b strings.Builder
	b.WriteString("<speak>")
	for _, it := range items {
		if p, ok := it.(content.Paragraph); ok {
			b.WriteString(p.Text)
		}
	}
	b.WriteString("</speak>")
	return b.String(), nil
}

type recorder struct {
	log []string
}

func (r *recorder) add(s string) { r.log = append(r.log, s) }

type fakeSynth struct {
	fs     afero.Fs
	rec    *recorder
	failOn map[string]error
}

func (s *fakeSynth) SynthesizeToFile(ctx context.Context, markup, output string, report progress.Func) error {
	s.rec.add("synth " + output)
	if err := s.failOn[output]; err != nil {
		return err
	}
	report("Synthesizing", 0, len(markup))
	if err := afero.WriteFile(s.fs, output, []byte(markup), 0o644); err != nil {
		return err
	}
	report("Synthesized", len(markup), len(markup))
	return nil
}

type taggedFile struct {
	path string
	rec  tags.Record
}

type fakeTagger struct {
	rec    *recorder
	tagged []taggedFile
}

func (t *fakeTagger) Write(path string, rec tags.Record) error {
	t.rec.add("tag " + path)
	t.tagged = append(t.tagged, taggedFile{path: path, rec: rec})
	return nil
}

type flatEstimator struct{}

func (flatEstimator) Estimate(ssml string) float64 { return 0.5 }

type fixture struct {
	fs     afero.Fs
	rec    *recorder
	loader *fakeLoader
	synth  *fakeSynth
	tagger *fakeTagger
	events []progress.Event
}

func newFixture() *fixture {
	fs := afero.NewMemMapFs()
	rec := &recorder{}
	return &fixture{
		fs:  fs,
		rec: rec,
		loader: &fakeLoader{
			docs: map[string][]content.Item{
				"/in/a.txt": {content.Paragraph{Text: "a1"}, content.Paragraph{Text: "a2"}},
				"/in/b.txt": {content.Paragraph{Text: "b1"}, content.Paragraph{Text: "b2"}, content.Paragraph{Text: "b3"}},
				"/in/c.txt": {content.ChapterTitle{Text: "Chapter C"}},
			},
			errs: map[string]error{},
		},
		synth:  &fakeSynth{fs: fs, rec: rec, failOn: map[string]error{}},
		tagger: &fakeTagger{rec: rec},
	}
}

func (f *fixture) config() Config {
	return Config{
		Loader:      f.loader,
		Splitter:    paragraphSplitter{},
		Renderer:    textRenderer{},
		Synthesizer: f.synth,
		Tagger:      f.tagger,
		Estimator:   flatEstimator{},
		Fs:          f.fs,
		Progress: func(e progress.Event) {
			f.events = append(f.events, e)
			if e.Stage == progress.StageEstimate {
				f.rec.add("estimate")
			}
		},
	}
}

func (f *fixture) process(t *testing.T, cfg Config, files ...string) (*Report, error) {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	var srcs []SourceFile
	for _, path := range files {
		srcs = append(srcs, SourceFile{Path: path})
	}
	return p.Process(context.Background(), srcs, target, nil)
}

func (f *fixture) tracks() map[string]int {
	out := map[string]int{}
	for _, tf := range f.tagger.tagged {
		out[tf.path] = tf.rec.Track
	}
	return out
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	f := newFixture()
	cfg := f.config()
	cfg.Synthesizer = nil
	_, err = New(cfg)
	assert.ErrorContains(t, err, "synthesizer")

	cfg.Pretend = true
	cfg.Tagger = nil
	_, err = New(cfg)
	assert.NoError(t, err)
}

func TestOutputPaths(t *testing.T) {
	assert.Equal(t, "/o/Book.mp3", OutputPath("/o", "Book", 0, 1))
	assert.Equal(t, "/o/Book (Part 2).mp3", OutputPath("/o", "Book", 1, 3))
	assert.Equal(t, "/o/Book (Part 2) audio.mp3", ScratchPath("/o/Book (Part 2).mp3"))
}

func TestProcessSynthesizesTagsAndRenames(t *testing.T) {
	f := newFixture()
	report, err := f.process(t, f.config(), "/in/c.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Synthesized)
	assert.Equal(t, []string{target + "/c.mp3"}, report.Outputs)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, f.tagger.tagged, 1)
	assert.Equal(t, target+"/c audio.mp3", f.tagger.tagged[0].path)
	assert.Equal(t, "Chapter C", f.tagger.tagged[0].rec.Title)
	assert.Equal(t, 1, f.tagger.tagged[0].rec.Track)

	ok, _ := afero.Exists(f.fs, target+"/c.mp3")
	assert.True(t, ok)
	ok, _ = afero.Exists(f.fs, target+"/c audio.mp3")
	assert.False(t, ok)
	ok, _ = afero.Exists(f.fs, target+"/"+LockFileName)
	assert.False(t, ok, "lock released")
}

func TestProcessTrackNumbersSkipFilteredParts(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.PartFilter = func(src SourceFile, i int) bool {
		return !(src.Path == "/in/a.txt" && i == 1)
	}

	report, err := f.process(t, cfg, "/in/a.txt", "/in/b.txt")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		target + "/a (Part 1) audio.mp3": 1,
		target + "/b (Part 1) audio.mp3": 2,
		target + "/b (Part 2) audio.mp3": 3,
		target + "/b (Part 3) audio.mp3": 4,
	}, f.tracks())
	assert.Equal(t, 1, report.Filtered)
	assert.Equal(t, 4, report.Synthesized)
}

func TestProcessExistingOutputsKeepTrackNumbers(t *testing.T) {
	f := newFixture()
	require.NoError(t, afero.WriteFile(f.fs, target+"/a (Part 1).mp3", []byte("done"), 0o644))

	report, err := f.process(t, f.config(), "/in/a.txt", "/in/b.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Existing)
	assert.Equal(t, 4, report.Synthesized)
	assert.Equal(t, 2, f.tracks()[target+"/a (Part 2) audio.mp3"])
	assert.Equal(t, 5, f.tracks()[target+"/b (Part 3) audio.mp3"])
	assert.NotContains(t, f.rec.log, "synth "+target+"/a (Part 1) audio.mp3")
}

func TestProcessRerunIsNoop(t *testing.T) {
	f := newFixture()
	_, err := f.process(t, f.config(), "/in/a.txt")
	require.NoError(t, err)
	f.rec.log = nil

	report, err := f.process(t, f.config(), "/in/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Existing)
	assert.Equal(t, 0, report.Synthesized)
	assert.Equal(t, []string{"estimate"}, f.rec.log)
}

func TestProcessEstimatesBeforeSynthesis(t *testing.T) {
	f := newFixture()
	report, err := f.process(t, f.config(), "/in/a.txt", "/in/b.txt")
	require.NoError(t, err)

	require.NotEmpty(t, f.rec.log)
	assert.Equal(t, "estimate", f.rec.log[0])
	assert.InDelta(t, 2.5, report.EstimatedCost, 1e-9)

	var estimates int
	for _, e := range f.events {
		if e.Stage == progress.StageEstimate {
			estimates++
			assert.InDelta(t, 2.5, e.EstimatedCost, 1e-9)
		}
	}
	assert.Equal(t, 1, estimates)
	assert.Equal(t, progress.StageComplete, f.events[len(f.events)-1].Stage)
}

func TestProcessCreatesTargetLazily(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.PartFilter = func(SourceFile, int) bool { return false }

	report, err := f.process(t, cfg, "/in/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Filtered)
	ok, _ := afero.DirExists(f.fs, target)
	assert.False(t, ok)

	f.rec.log = nil
	cfg = f.config()
	cfg.Pretend = true
	report, err = f.process(t, cfg, "/in/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Synthesized)
	assert.Equal(t, 2, report.Planned)
	ok, _ = afero.DirExists(f.fs, target)
	assert.False(t, ok)
	assert.Equal(t, []string{"estimate"}, f.rec.log)
}

func TestProcessFileFilter(t *testing.T) {
	f := newFixture()
	p, err := New(f.config())
	require.NoError(t, err)

	files := []SourceFile{{Path: "/in/a.txt"}, {Path: "/in/c.txt", BaseName: "Intro"}}
	report, err := p.Process(context.Background(), files, target, func(s SourceFile) bool {
		return s.Path == "/in/c.txt"
	})
	require.NoError(t, err)
	assert.Equal(t, []string{target + "/Intro.mp3"}, report.Outputs)
}

func TestProcessRefusesLockedTarget(t *testing.T) {
	f := newFixture()
	require.NoError(t, afero.WriteFile(f.fs, target+"/"+LockFileName, []byte("01OTHER"), 0o644))

	_, err := f.process(t, f.config(), "/in/a.txt")
	require.ErrorIs(t, err, ErrLocked)
	assert.ErrorContains(t, err, "01OTHER")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageLock, pe.Stage)
	assert.Equal(t, []string{"estimate"}, f.rec.log)

	ok, _ := afero.Exists(f.fs, target+"/"+LockFileName)
	assert.True(t, ok, "foreign lock left alone")
}

func TestProcessStopsOnFirstFailure(t *testing.T) {
	f := newFixture()
	boom := errors.New("backend down")
	f.synth.failOn[target+"/a (Part 1) audio.mp3"] = boom

	report, err := f.process(t, f.config(), "/in/a.txt", "/in/b.txt")
	require.ErrorIs(t, err, boom)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageSynthesize, pe.Stage)
	assert.Equal(t, "/in/a.txt", pe.Source)
	assert.Equal(t, 0, report.Synthesized)
	assert.Empty(t, f.tagger.tagged)
}

func TestProcessContinueOnError(t *testing.T) {
	f := newFixture()
	f.loader.errs["/in/a.txt"] = errors.New("unreadable")
	f.synth.failOn[target+"/b (Part 2) audio.mp3"] = errors.New("backend down")
	cfg := f.config()
	cfg.ContinueOnError = true

	report, err := f.process(t, cfg, "/in/a.txt", "/in/b.txt", "/in/c.txt")
	require.Error(t, err)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, StageIngest, report.Failures[0].Stage)
	assert.Equal(t, StageSynthesize, report.Failures[1].Stage)

	// b part 3 is abandoned with its file; c still gets its own track.
	assert.Equal(t, map[string]int{
		target + "/b (Part 1) audio.mp3": 1,
		target + "/c audio.mp3":          4,
	}, f.tracks())
	assert.NotContains(t, f.rec.log, "synth "+target+"/b (Part 3) audio.mp3")
}

func TestProcessMetadataContext(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	var seen []MetadataContext
	cfg.Metadata = func(mc MetadataContext) tags.Record {
		seen = append(seen, mc)
		return tags.Record{Title: "x", Track: 99}
	}

	_, err := f.process(t, cfg, "/in/b.txt")
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, 2, seen[2].PartIndex)
	assert.Equal(t, 3, seen[2].PartCount)
	assert.Equal(t, 2, seen[2].ProcessedParts)
	assert.Equal(t, []content.Item{content.Paragraph{Text: "b3"}}, seen[2].Items)
	assert.Equal(t, f.loader.docs["/in/b.txt"], seen[2].SourceItems)
	assert.Equal(t, 3, f.tagger.tagged[2].rec.Track, "processor owns track numbers")
}

func TestProcessMetadataSeesWholeSourceWhenFirstPartExists(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	require.NoError(t, afero.WriteFile(f.fs, target+"/b (Part 1).mp3", []byte("done"), 0o644))

	var seen []MetadataContext
	cfg.Metadata = func(mc MetadataContext) tags.Record {
		seen = append(seen, mc)
		return tags.Record{Title: "x"}
	}

	_, err := f.process(t, cfg, "/in/b.txt")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].PartIndex)
	assert.Contains(t, seen[0].SourceItems, content.Item(content.Paragraph{Text: "b1"}))
}

func TestDefaultMetadata(t *testing.T) {
	rec := DefaultMetadata(MetadataContext{Source: SourceFile{Path: "/in/notes.txt"}, PartIndex: 1, PartCount: 2})
	assert.Equal(t, "notes (Part 2)", rec.Title)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Stage: StageTag, Source: "/in/a.txt", Path: "/out/a.mp3", Err: errors.New("disk full")}
	assert.Equal(t, "[tag] /in/a.txt -> /out/a.mp3: disk full", err.Error())
}
