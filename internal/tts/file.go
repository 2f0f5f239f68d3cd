package tts

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// FileSynthesizer renders one SSML document to an audio file.
type FileSynthesizer interface {
	SynthesizeToFile(ctx context.Context, ssml, path string) error
}

// NamedSynthesizer is a FileSynthesizer with a display name for logs.
type NamedSynthesizer interface {
	FileSynthesizer
	Name() string
}

// FileWriter adapts a Provider to FileSynthesizer. The audio is written to
// a temporary sibling and renamed into place, so path either holds a full
// result or does not exist.
type FileWriter struct {
	provider Provider
	fs       afero.Fs
}

func NewFileWriter(p Provider, fs afero.Fs) *FileWriter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileWriter{provider: p, fs: fs}
}

func (w *FileWriter) Name() string { return w.provider.Name() }

func (w *FileWriter) SynthesizeToFile(ctx context.Context, ssml, path string) error {
	res, err := w.provider.Synthesize(ctx, ssml)
	if err != nil {
		return err
	}
	if res.Format != FormatMP3 {
		return failed(w.provider.Name(), "", fmt.Sprintf("unsupported audio format %q", res.Format), nil)
	}
	if len(res.Data) == 0 {
		return failed(w.provider.Name(), "", "empty response", ErrEmptyAudio)
	}
	return WriteFileAtomic(w.fs, path, res.Data)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it over path.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	tmp := path + ".partial"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		fs.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// NonEmptyFile reports whether path exists as a regular file with content.
func NonEmptyFile(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}
