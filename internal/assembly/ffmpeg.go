package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Concatenator joins audio files of identical encoding into one file
// without re-encoding.
type Concatenator interface {
	Concat(ctx context.Context, inputs []string, output string) error
}

// ConcatError reports a failed concatenation run with the tool's output.
type ConcatError struct {
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ConcatError) Error() string {
	msg := fmt.Sprintf("ffmpeg concat failed (exit %d): %v", e.ExitCode, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + lastLines(out, 10)
	}
	return msg
}

func (e *ConcatError) Unwrap() error { return e.Err }

// FFmpegConcatenator runs the FFmpeg concat demuxer with stream copy.
type FFmpegConcatenator struct {
	Binary string
}

func NewFFmpegConcatenator() *FFmpegConcatenator {
	return &FFmpegConcatenator{Binary: "ffmpeg"}
}

func (a *FFmpegConcatenator) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no audio files to concatenate")
	}

	list, err := os.CreateTemp(filepath.Dir(output), ".concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(list.Name())

	if _, err := list.WriteString(buildConcatList(inputs)); err != nil {
		list.Close()
		return fmt.Errorf("write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	args := concatArgs(list.Name(), output)
	cmd := exec.CommandContext(ctx, a.Binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		ce := &ConcatError{Args: args, ExitCode: -1, Output: out.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ce.ExitCode = exitErr.ExitCode()
		}
		return ce
	}

	info, err := os.Stat(output)
	if err != nil {
		return &ConcatError{Args: args, Output: out.String(), Err: fmt.Errorf("output file not created: %w", err)}
	}
	if info.Size() == 0 {
		return &ConcatError{Args: args, Output: out.String(), Err: errors.New("output file is empty")}
	}
	return nil
}

func concatArgs(listPath, output string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		output,
	}
}

// buildConcatList renders the concat demuxer script. Paths are made
// absolute since the demuxer resolves relative entries against the list.
func buildConcatList(inputs []string) string {
	var b strings.Builder
	for _, in := range inputs {
		if abs, err := filepath.Abs(in); err == nil {
			in = abs
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(in, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// ProbeDuration returns the playing time of an audio file using ffprobe.
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// FormatDuration formats d as M:SS, or H:MM:SS past an hour.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// CheckFFmpeg reports whether the ffmpeg binary is on PATH.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("FFmpeg not found: install it and make sure it is on PATH")
	}
	return nil
}
