package tts

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/afero"
)

// fakeSynth writes the request markup as its "audio" so tests can check
// which fragment ended up where.
type fakeSynth struct {
	name string
	fs   afero.Fs
	errs []error // consumed one per call; nil entries succeed

	mu    sync.Mutex
	calls []string
	paths []string
}

func (f *fakeSynth) Name() string { return f.name }

func (f *fakeSynth) SynthesizeToFile(ctx context.Context, ssml, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ssml)
	f.paths = append(f.paths, path)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	if f.fs == nil {
		return nil
	}
	return afero.WriteFile(f.fs, path, []byte(ssml), 0o644)
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeConcat joins inputs byte for byte.
type fakeConcat struct {
	fs    afero.Fs
	err   error
	calls [][]string
}

func (c *fakeConcat) Concat(ctx context.Context, inputs []string, output string) error {
	c.calls = append(c.calls, inputs)
	if c.err != nil {
		return c.err
	}
	var out []byte
	for _, in := range inputs {
		data, err := afero.ReadFile(c.fs, in)
		if err != nil {
			return err
		}
		out = append(out, data...)
	}
	return afero.WriteFile(c.fs, output, out, 0o644)
}

type fakeProvider struct {
	name  string
	res   AudioResult
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Synthesize(ctx context.Context, ssml string) (AudioResult, error) {
	p.calls++
	return p.res, p.err
}

func (p *fakeProvider) Close() error { return nil }

var errBoom = errors.New("boom")

func throttleErr(name string) error {
	return throttled(name, "429", "too many requests", nil)
}
